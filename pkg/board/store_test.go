package board

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/vcanio/Terio-sub000/pkg/model"
	"github.com/vcanio/Terio-sub000/pkg/storage"
	"github.com/vcanio/Terio-sub000/pkg/zone"
)

func newTestStore(t *testing.T, kv storage.KV) *Store {
	t.Helper()
	n := 0
	s, err := Open(context.Background(), Options{
		Key:  storage.BoardKey("patient-1"),
		KV:   kv,
		Rand: rand.New(rand.NewPCG(42, 42)),
		NewID: func() string {
			n++
			return fmt.Sprintf("n%d", n)
		},
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

func TestAddNodePlacement(t *testing.T) {
	s := newTestStore(t, nil)

	n, ok := s.AddNode("Ana", zone.CategoryFamily, zone.LevelIntimate)
	if !ok {
		t.Fatal("AddNode refused a valid node")
	}

	b := s.Snapshot()
	if len(b.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(b.Nodes))
	}
	got := b.Nodes[0]
	if got.ID != n.ID || got.Category != zone.CategoryFamily || got.Level != zone.LevelIntimate {
		t.Errorf("unexpected node %+v", got)
	}
	if !zone.SectorOf(zone.CategoryFamily).Contains(zone.Angle(got.X, got.Y)) {
		t.Errorf("node at (%v,%v) outside family sector", got.X, got.Y)
	}
	if r := math.Hypot(got.X, got.Y); math.Abs(r-zone.CanonicalRadius(zone.LevelIntimate)) > zone.Jitter {
		t.Errorf("radius %v not near level 1 radius", r)
	}

	s.AddNode("Luis", zone.CategoryWork, zone.LevelPersonal)
	if b := s.Snapshot(); len(b.Nodes) != 2 || b.Nodes[1].Name != "Luis" {
		t.Errorf("expected Luis appended second, got %+v", b.Nodes)
	}
}

func TestAddNodeRejectsBlankNames(t *testing.T) {
	kv := storage.NewMemory()
	s := newTestStore(t, kv)

	for _, name := range []string{"", "   ", "\t\n"} {
		if _, ok := s.AddNode(name, zone.CategoryFriend, zone.LevelPersonal); ok {
			t.Errorf("AddNode(%q) accepted", name)
		}
	}
	if _, ok := s.AddNode("Ana", "pets", zone.LevelPersonal); ok {
		t.Error("AddNode accepted invalid category")
	}

	if n := len(s.Snapshot().Nodes); n != 0 {
		t.Errorf("expected no nodes, got %d", n)
	}
	if kv.Writes() != 0 {
		t.Errorf("rejected adds persisted %d times", kv.Writes())
	}
	if s.Version() != 0 {
		t.Errorf("rejected adds bumped version to %d", s.Version())
	}
}

func TestUpdateNodePositionDerivesLevel(t *testing.T) {
	s := newTestStore(t, nil)
	n, _ := s.AddNode("Ana", zone.CategoryFamily, zone.LevelIntimate)

	positions := []struct{ x, y float64 }{
		{500, 10}, {0, 0}, {-150, 0}, {0, 299.9}, {212, 212}, {-1000, -1000}, {10, -20},
	}
	for _, p := range positions {
		moved, ok := s.UpdateNodePosition(n.ID, p.x, p.y)
		if !ok {
			t.Fatalf("UpdateNodePosition(%v,%v) failed", p.x, p.y)
		}
		want := zone.Classify(p.x, p.y)
		if moved.Level != want {
			t.Errorf("level after move to (%v,%v) = %d, want %d", p.x, p.y, moved.Level, want)
		}
		if got := s.Snapshot().Nodes[0]; got.Level != want || got.X != p.x || got.Y != p.y {
			t.Errorf("stored node %+v inconsistent with move to (%v,%v)", got, p.x, p.y)
		}
	}
}

func TestDragAcrossOuterBoundary(t *testing.T) {
	s := newTestStore(t, nil)
	n, _ := s.AddNode("Ana", zone.CategoryFamily, zone.LevelIntimate)

	s.UpdateNodePosition(n.ID, 400, 300)

	got := s.Snapshot().Nodes[0]
	if got.Level != zone.LevelOccasional {
		t.Errorf("level after dragging to distance 500 = %d, want 3", got.Level)
	}
	if got.Category != zone.CategoryFamily {
		t.Errorf("category changed to %s by drag", got.Category)
	}
}

func TestToggleEdgeSymmetry(t *testing.T) {
	s := newTestStore(t, nil)
	a, _ := s.AddNode("Ana", zone.CategoryFamily, zone.LevelIntimate)
	l, _ := s.AddNode("Luis", zone.CategoryWork, zone.LevelPersonal)
	m, _ := s.AddNode("Marta", zone.CategoryFriend, zone.LevelOccasional)
	s.ToggleEdge(a.ID, m.ID)

	ids := []string{a.ID, l.ID, m.ID, model.CenterID}
	for _, x := range ids {
		for _, y := range ids {
			if x == y {
				continue
			}
			before := s.Snapshot().Edges

			s.ToggleEdge(x, y)
			s.ToggleEdge(x, y)
			if after := s.Snapshot().Edges; !sameEdgeSet(before, after) {
				t.Errorf("toggle(%s,%s) twice changed edges: %v -> %v", x, y, before, after)
			}

			s.ToggleEdge(x, y)
			s.ToggleEdge(y, x)
			if after := s.Snapshot().Edges; !sameEdgeSet(before, after) {
				t.Errorf("toggle(%s,%s) then toggle(%s,%s) changed edges: %v -> %v", x, y, y, x, before, after)
			}
		}
	}
}

func TestToggleEdgeIgnoresSelfLoopsAndUnknown(t *testing.T) {
	kv := storage.NewMemory()
	s := newTestStore(t, kv)
	a, _ := s.AddNode("Ana", zone.CategoryFamily, zone.LevelIntimate)
	writes := kv.Writes()

	for _, id := range []string{a.ID, model.CenterID, "ghost"} {
		if _, changed := s.ToggleEdge(id, id); changed {
			t.Errorf("ToggleEdge(%s,%s) changed the board", id, id)
		}
	}
	if _, changed := s.ToggleEdge(a.ID, "ghost"); changed {
		t.Error("ToggleEdge to unknown endpoint changed the board")
	}
	if len(s.Snapshot().Edges) != 0 {
		t.Errorf("expected no edges, got %v", s.Snapshot().Edges)
	}
	if kv.Writes() != writes {
		t.Error("ignored toggles were persisted")
	}
}

func TestToggleEdgeID(t *testing.T) {
	s := newTestStore(t, nil)
	a, _ := s.AddNode("Ana", zone.CategoryFamily, zone.LevelIntimate)

	added, changed := s.ToggleEdge(model.CenterID, a.ID)
	if !added || !changed {
		t.Fatalf("ToggleEdge = (%v,%v), want (true,true)", added, changed)
	}
	e := s.Snapshot().Edges[0]
	if e.ID != model.EdgeID(model.CenterID, a.ID) || e.From != model.CenterID || e.To != a.ID {
		t.Errorf("unexpected edge %+v", e)
	}
}

func TestDeleteNodeCascades(t *testing.T) {
	s := newTestStore(t, nil)
	a, _ := s.AddNode("Ana", zone.CategoryFamily, zone.LevelIntimate)
	l, _ := s.AddNode("Luis", zone.CategoryWork, zone.LevelPersonal)
	m, _ := s.AddNode("Marta", zone.CategoryFriend, zone.LevelOccasional)
	s.ToggleEdge(a.ID, l.ID)
	s.ToggleEdge(m.ID, a.ID)
	s.ToggleEdge(model.CenterID, a.ID)
	s.ToggleEdge(l.ID, m.ID)

	if !s.DeleteNode(a.ID) {
		t.Fatal("DeleteNode returned false")
	}

	b := s.Snapshot()
	for _, e := range b.Edges {
		if e.Touches(a.ID) {
			t.Errorf("edge %+v still references deleted node", e)
		}
	}
	if len(b.Edges) != 1 || !b.Edges[0].Joins(l.ID, m.ID) {
		t.Errorf("expected only Luis–Marta edge to survive, got %v", b.Edges)
	}
	if b.NodeIndex(a.ID) >= 0 {
		t.Error("node still present")
	}
	if s.DeleteNode(a.ID) {
		t.Error("second delete reported success")
	}
}

func TestRenameAndDeleteEdge(t *testing.T) {
	s := newTestStore(t, nil)
	a, _ := s.AddNode("Ana", zone.CategoryFamily, zone.LevelIntimate)
	s.ToggleEdge(a.ID, model.CenterID)

	if !s.RenameNode(a.ID, "") {
		t.Error("RenameNode to empty string refused")
	}
	s.RenameCenter("Marta")
	if !s.DeleteEdge(model.EdgeID(a.ID, model.CenterID)) {
		t.Error("DeleteEdge returned false")
	}
	if s.DeleteEdge("nope") {
		t.Error("DeleteEdge of unknown id returned true")
	}

	b := s.Snapshot()
	if b.Nodes[0].Name != "" || b.CenterLabel != "Marta" || len(b.Edges) != 0 {
		t.Errorf("unexpected board %+v", b)
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t, nil)
	a, _ := s.AddNode("Ana", zone.CategoryFamily, zone.LevelIntimate)
	s.ToggleEdge(a.ID, model.CenterID)
	s.RenameCenter("Marta")

	s.Clear()

	b := s.Snapshot()
	if len(b.Nodes) != 0 || len(b.Edges) != 0 || b.CenterLabel != model.DefaultCenterLabel {
		t.Errorf("board not reset: %+v", b)
	}
}

func TestMutationsPersistAndReload(t *testing.T) {
	kv := storage.NewMemory()
	s := newTestStore(t, kv)
	a, _ := s.AddNode("Ana", zone.CategoryFamily, zone.LevelIntimate)
	l, _ := s.AddNode("Luis", zone.CategoryWork, zone.LevelPersonal)
	s.ToggleEdge(a.ID, l.ID)
	s.RenameCenter("Marta")

	if kv.Writes() != 4 {
		t.Errorf("expected 4 writes, got %d", kv.Writes())
	}

	reloaded := newTestStore(t, kv)
	if !reflect.DeepEqual(s.Snapshot(), reloaded.Snapshot()) {
		t.Errorf("reloaded board differs:\n%+v\n%+v", s.Snapshot(), reloaded.Snapshot())
	}
}

func TestEmptyCenterLabelSurvivesReload(t *testing.T) {
	kv := storage.NewMemory()
	s := newTestStore(t, kv)
	s.RenameCenter("")

	if got := newTestStore(t, kv).Snapshot().CenterLabel; got != "" {
		t.Errorf("center label after reload = %q, want empty", got)
	}
}

func TestOpenFallsBackOnCorruptSnapshot(t *testing.T) {
	kv := storage.NewMemory()
	kv.Put(context.Background(), storage.BoardKey("patient-1"), []byte("{not json"))

	s := newTestStore(t, kv)
	b := s.Snapshot()
	if len(b.Nodes) != 0 || b.CenterLabel != model.DefaultCenterLabel {
		t.Errorf("expected empty board, got %+v", b)
	}
}

func TestOpenRepairsSnapshot(t *testing.T) {
	kv := storage.NewMemory()
	stored := model.Board{
		Nodes: []model.Node{{ID: "x", Name: "Ana", Category: zone.CategoryFamily, Level: zone.LevelOccasional, X: 10, Y: 10}},
		Edges: []model.Edge{{ID: "x--ghost", From: "x", To: "ghost"}},
	}
	data, _ := json.Marshal(stored)
	kv.Put(context.Background(), storage.BoardKey("patient-1"), data)

	b := newTestStore(t, kv).Snapshot()
	if len(b.Nodes) != 1 || b.Nodes[0].Level != zone.LevelIntimate {
		t.Errorf("expected level recomputed on load, got %+v", b.Nodes)
	}
	if len(b.Edges) != 0 {
		t.Errorf("expected dangling edge dropped, got %v", b.Edges)
	}
}

func TestSubscribeReceivesChanges(t *testing.T) {
	s := newTestStore(t, nil)

	var ops []string
	var lastVersion int
	unsubscribe := s.Subscribe(func(c Change) {
		ops = append(ops, c.Op)
		lastVersion = c.Version
	})

	a, _ := s.AddNode("Ana", zone.CategoryFamily, zone.LevelIntimate)
	s.UpdateNodePosition(a.ID, 10, 10)
	s.AddNode("", zone.CategoryFamily, zone.LevelIntimate)
	s.ToggleEdge(a.ID, a.ID)
	unsubscribe()
	s.Clear()

	want := []string{OpNodeAdded, OpNodeMoved}
	if !reflect.DeepEqual(ops, want) {
		t.Errorf("ops = %v, want %v", ops, want)
	}
	if lastVersion != 2 {
		t.Errorf("last version = %d, want 2", lastVersion)
	}
}

func TestChangeCarriesSnapshot(t *testing.T) {
	s := newTestStore(t, nil)

	var captured model.Board
	s.Subscribe(func(c Change) { captured = c.Board })
	s.AddNode("Ana", zone.CategoryFamily, zone.LevelIntimate)
	s.RenameCenter("after")

	if captured.CenterLabel != "after" {
		t.Fatalf("expected latest change, got %q", captured.CenterLabel)
	}
	s.AddNode("Luis", zone.CategoryWork, zone.LevelPersonal)
	if captured.CenterLabel != "after" || len(captured.Nodes) != 2 {
		t.Errorf("unexpected captured board %+v", captured)
	}
}

func sameEdgeSet(a, b []model.Edge) bool {
	if len(a) != len(b) {
		return false
	}
	for _, e := range a {
		found := false
		for _, f := range b {
			if f.Joins(e.From, e.To) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
