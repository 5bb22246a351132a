package graph

import (
	"math"
	"reflect"
	"testing"

	"github.com/vcanio/Terio-sub000/pkg/model"
	"github.com/vcanio/Terio-sub000/pkg/zone"
)

func sampleBoard() model.Board {
	b := model.NewBoard()
	b.Nodes = []model.Node{
		{ID: "a", Name: "Ana", Category: zone.CategoryFamily, Level: zone.LevelIntimate, X: 60, Y: 60},
		{ID: "b", Name: "Beto", Category: zone.CategoryFamily, Level: zone.LevelPersonal, X: 150, Y: 150},
		{ID: "c", Name: "Carla", Category: zone.CategoryWork, Level: zone.LevelPersonal, X: -150, Y: -150},
		{ID: "d", Name: "Dani", Category: zone.CategoryWork, Level: zone.LevelOccasional, X: -250, Y: -250},
		{ID: "e", Name: "Eva", Category: zone.CategoryFamily, Level: zone.LevelIntimate, X: -60, Y: 60},
	}
	b.Edges = []model.Edge{
		{ID: model.EdgeID(model.CenterID, "a"), From: model.CenterID, To: "a"},
		{ID: model.EdgeID("a", "b"), From: "a", To: "b"},
		{ID: model.EdgeID("d", "c"), From: "d", To: "c"},
		{ID: model.EdgeID("b", model.CenterID), From: "b", To: model.CenterID},
	}
	return b
}

func TestNetworkDegreeAndNeighbors(t *testing.T) {
	n := NewNetwork(sampleBoard())

	tests := []struct {
		id   string
		want int
	}{
		{model.CenterID, 2},
		{"a", 2},
		{"b", 2},
		{"c", 1},
		{"e", 0},
		{"ghost", 0},
	}
	for _, tt := range tests {
		if got := n.Degree(tt.id); got != tt.want {
			t.Errorf("Degree(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}

	if got := n.Neighbors("a"); !reflect.DeepEqual(got, []string{model.CenterID, "b"}) {
		t.Errorf("Neighbors(a) = %v", got)
	}
}

func TestClustersIgnoreCenter(t *testing.T) {
	got := NewNetwork(sampleBoard()).Clusters()
	want := [][]string{{"a", "b"}, {"c", "d"}, {"e"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Clusters = %v, want %v", got, want)
	}
}

func TestComputeMetrics(t *testing.T) {
	m := Compute(sampleBoard())

	if m.Size != 5 || m.Edges != 4 || m.CenterDegree != 2 || m.PeerEdges != 2 {
		t.Errorf("counts = size %d edges %d center %d peer %d", m.Size, m.Edges, m.CenterDegree, m.PeerEdges)
	}
	if math.Abs(m.Density-0.2) > 1e-9 {
		t.Errorf("Density = %v, want 0.2", m.Density)
	}
	if m.ByCategory[zone.CategoryFamily] != 3 || m.ByCategory[zone.CategoryWork] != 2 || m.ByCategory[zone.CategoryFriend] != 0 {
		t.Errorf("ByCategory = %v", m.ByCategory)
	}
	if m.ByLevel[zone.LevelIntimate] != 2 || m.ByLevel[zone.LevelPersonal] != 2 || m.ByLevel[zone.LevelOccasional] != 1 {
		t.Errorf("ByLevel = %v", m.ByLevel)
	}
	if !reflect.DeepEqual(m.Isolated, []string{"e"}) {
		t.Errorf("Isolated = %v", m.Isolated)
	}
	if m.Clusters != 3 || m.LargestGroup != 2 {
		t.Errorf("Clusters = %d largest %d", m.Clusters, m.LargestGroup)
	}
	if m.MostConnected != "a" {
		t.Errorf("MostConnected = %q, want first of the tied nodes", m.MostConnected)
	}
	if !reflect.DeepEqual(m.OutOfSector, []string{"e"}) {
		t.Errorf("OutOfSector = %v", m.OutOfSector)
	}
	if !reflect.DeepEqual(m.Links["a"], []string{model.CenterID, "b"}) || !reflect.DeepEqual(m.Links["d"], []string{"c"}) {
		t.Errorf("Links = %v", m.Links)
	}
	if _, ok := m.Links["e"]; ok {
		t.Error("isolated node has a links entry")
	}
}

func TestComputeEmptyBoard(t *testing.T) {
	m := Compute(model.NewBoard())
	if m.Size != 0 || m.Edges != 0 || m.Clusters != 0 || m.Density != 0 || m.MostConnected != "" {
		t.Errorf("empty board metrics = %+v", m)
	}
	if len(m.ByCategory) != len(zone.Categories) {
		t.Errorf("ByCategory should list every category, got %v", m.ByCategory)
	}
}

func TestNetworkSkipsBrokenEdges(t *testing.T) {
	b := sampleBoard()
	b.Edges = append(b.Edges,
		model.Edge{ID: "x", From: "a", To: "ghost"},
		model.Edge{ID: "y", From: "c", To: "c"},
		model.Edge{ID: "z", From: "b", To: "a"},
	)
	if m := Compute(b); m.Edges != 4 {
		t.Errorf("Edges = %d, want broken and duplicate edges skipped", m.Edges)
	}
}
