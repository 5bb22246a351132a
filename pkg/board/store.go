package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vcanio/Terio-sub000/pkg/logging"
	"github.com/vcanio/Terio-sub000/pkg/model"
	"github.com/vcanio/Terio-sub000/pkg/storage"
	"github.com/vcanio/Terio-sub000/pkg/zone"
)

// Operation names carried by Change.Op
const (
	OpLoaded        = "loaded"
	OpNodeAdded     = "node_added"
	OpNodeMoved     = "node_moved"
	OpNodeRenamed   = "node_renamed"
	OpNodeDeleted   = "node_deleted"
	OpCenterRenamed = "center_renamed"
	OpEdgeToggled   = "edge_toggled"
	OpEdgeDeleted   = "edge_deleted"
	OpCleared       = "cleared"
)

const persistTimeout = 5 * time.Second

// Change is delivered to subscribers after a mutation has been applied and persisted
type Change struct {
	Op      string
	Version int
	Board   model.Board // deep copy
}

// Listener observes store changes. Listeners run while the store is locked and
// must not call back into the store.
type Listener func(Change)

// Options configures a Store
type Options struct {
	Key   string     // storage key, see storage.BoardKey
	KV    storage.KV // durable store; nil keeps the board in memory only
	Rand  *rand.Rand // placement randomness; seeded from time when nil
	NewID func() string
}

// Store owns one patient's Board. Every mutation is atomic, written through to
// the KV store and then announced to subscribers.
type Store struct {
	mu        sync.Mutex
	board     model.Board
	version   int
	key       string
	kv        storage.KV
	rng       *rand.Rand
	newID     func() string
	listeners map[int]Listener
	nextSub   int
	log       *slog.Logger
}

// New creates a store holding an empty board
func New(opts Options) *Store {
	s := &Store{
		board:     model.NewBoard(),
		key:       opts.Key,
		kv:        opts.KV,
		rng:       opts.Rand,
		newID:     opts.NewID,
		listeners: make(map[int]Listener),
		log:       logging.Component("board").With("key", opts.Key),
	}
	if s.rng == nil {
		now := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(now, now>>17))
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.New().String() }
	}
	return s
}

// Open creates a store and rehydrates it from the KV store.
// A missing key yields an empty board. A snapshot that cannot be decoded is logged
// and replaced by an empty board; a decodable one is repaired (see model.Sanitize).
func Open(ctx context.Context, opts Options) (*Store, error) {
	s := New(opts)
	if s.kv == nil || s.key == "" {
		return s, nil
	}

	data, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		s.log.Debug("no stored board, starting empty")
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading board %s: %w", s.key, err)
	}

	b, repair, err := model.DecodeBoard(data)
	if err != nil {
		s.log.Warn("stored board is unreadable, starting empty", "error", err)
		return s, nil
	}
	if repair.Changed() {
		s.log.Warn("stored board repaired on load",
			"droppedNodes", repair.DroppedNodes,
			"droppedEdges", repair.DroppedEdges,
			"relevelledNodes", repair.RelevelledNodes)
	}
	s.board = b
	s.log.Info("board loaded", "nodes", len(b.Nodes), "edges", len(b.Edges))
	return s, nil
}

// Key returns the storage key of this board
func (s *Store) Key() string {
	return s.key
}

// Snapshot returns a deep copy of the current board
func (s *Store) Snapshot() model.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Clone()
}

// Version returns the number of mutations applied since the store was opened
func (s *Store) Version() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// HasEndpoint reports whether id is a node of the board or the center
func (s *Store) HasEndpoint(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.HasEndpoint(id)
}

// Position returns the logical position of a node or the center
func (s *Store) Position(id string) (x, y float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Position(id)
}

// Subscribe registers a listener and returns the function that removes it
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// AddNode places a new person in the category's quadrant near the level's radius.
// Names that are empty or whitespace are silently refused.
func (s *Store) AddNode(name string, category zone.Category, level zone.Level) (model.Node, bool) {
	if strings.TrimSpace(name) == "" || !category.Valid() || !level.Valid() {
		return model.Node{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	x, y := zone.Place(s.rng, category, level)
	n := model.Node{
		ID:       s.newID(),
		Name:     strings.TrimSpace(name),
		Category: category,
		Level:    level,
		X:        x,
		Y:        y,
	}
	s.board.Nodes = append(s.board.Nodes, n)
	s.commit(OpNodeAdded, "nodeID", n.ID, "category", string(category), "level", int(level))
	return n, true
}

// UpdateNodePosition moves a node and re-derives its level from the new position
// in the same step.
func (s *Store) UpdateNodePosition(id string, x, y float64) (model.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.board.NodeIndex(id)
	if i < 0 {
		return model.Node{}, false
	}
	n := &s.board.Nodes[i]
	n.X, n.Y = x, y
	n.Level = zone.Classify(x, y)
	moved := *n
	s.commit(OpNodeMoved, "nodeID", id, "level", int(moved.Level))
	return moved, true
}

// RenameNode replaces a node's name. Empty names are allowed while editing.
func (s *Store) RenameNode(id, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.board.NodeIndex(id)
	if i < 0 {
		return false
	}
	s.board.Nodes[i].Name = name
	s.commit(OpNodeRenamed, "nodeID", id)
	return true
}

// RenameCenter replaces the center label
func (s *Store) RenameCenter(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.board.CenterLabel = name
	s.commit(OpCenterRenamed)
}

// DeleteNode removes a node and every edge touching it
func (s *Store) DeleteNode(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.board.NodeIndex(id)
	if i < 0 {
		return false
	}
	s.board.Nodes = append(s.board.Nodes[:i], s.board.Nodes[i+1:]...)

	kept := s.board.Edges[:0]
	removed := 0
	for _, e := range s.board.Edges {
		if e.Touches(id) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.board.Edges = kept
	s.commit(OpNodeDeleted, "nodeID", id, "edgesRemoved", removed)
	return true
}

// ToggleEdge connects a and b, or disconnects them when an edge already joins the
// pair in either order. Self-loops and unknown endpoints are ignored.
// added reports the direction of the toggle; changed is false for ignored calls.
func (s *Store) ToggleEdge(a, b string) (added, changed bool) {
	if a == b {
		return false, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.board.HasEndpoint(a) || !s.board.HasEndpoint(b) {
		return false, false
	}

	if i := s.board.EdgeBetween(a, b); i >= 0 {
		s.board.Edges = append(s.board.Edges[:i], s.board.Edges[i+1:]...)
		s.commit(OpEdgeToggled, "from", a, "to", b, "added", false)
		return false, true
	}

	s.board.Edges = append(s.board.Edges, model.Edge{ID: model.EdgeID(a, b), From: a, To: b})
	s.commit(OpEdgeToggled, "from", a, "to", b, "added", true)
	return true, true
}

// DeleteEdge removes an edge by id; unknown ids are ignored
func (s *Store) DeleteEdge(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.board.Edges {
		if e.ID == id {
			s.board.Edges = append(s.board.Edges[:i], s.board.Edges[i+1:]...)
			s.commit(OpEdgeDeleted, "edgeID", id)
			return true
		}
	}
	return false
}

// Clear empties the board and restores the default center label
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.board = model.NewBoard()
	s.commit(OpCleared)
}

// commit persists the board and notifies listeners. Caller holds s.mu.
func (s *Store) commit(op string, attrs ...any) {
	s.version++
	s.persist()

	s.log.Debug(op, append(attrs, "version", s.version)...)

	if len(s.listeners) == 0 {
		return
	}
	change := Change{Op: op, Version: s.version, Board: s.board.Clone()}
	for _, l := range s.listeners {
		l(change)
	}
}

// persist writes the snapshot through to storage. Failures are logged and do not
// undo the in-memory mutation; the next successful write catches storage up.
func (s *Store) persist() {
	if s.kv == nil || s.key == "" {
		return
	}
	data, err := json.Marshal(s.board)
	if err != nil {
		s.log.Error("encoding board failed", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.kv.Put(ctx, s.key, data); err != nil {
		s.log.Warn("persisting board failed", "error", err)
	}
}
