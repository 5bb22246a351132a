package model

import (
	"encoding/json"
	"fmt"

	"github.com/vcanio/Terio-sub000/pkg/zone"
)

// Repair describes what Sanitize had to change in a persisted board
type Repair struct {
	DroppedNodes    int `json:"droppedNodes"`
	DroppedEdges    int `json:"droppedEdges"`
	RelevelledNodes int `json:"relevelledNodes"`
}

// Changed reports whether anything was repaired
func (r Repair) Changed() bool {
	return r.DroppedNodes > 0 || r.DroppedEdges > 0 || r.RelevelledNodes > 0
}

// DecodeBoard parses a persisted snapshot and repairs it.
// Malformed JSON is an error; the caller decides the fallback. A missing center
// label gets the default, an empty one is kept as the user left it.
func DecodeBoard(data []byte) (Board, Repair, error) {
	b := NewBoard()
	if err := json.Unmarshal(data, &b); err != nil {
		return NewBoard(), Repair{}, fmt.Errorf("decoding board: %w", err)
	}
	repair := Sanitize(&b)
	return b, repair, nil
}

// Sanitize restores the board invariants in place:
// nodes need a unique non-empty id and a valid category, level always follows
// position, and edges must join two distinct known endpoints with at most one edge
// per unordered pair.
func Sanitize(b *Board) Repair {
	var r Repair

	seen := make(map[string]bool, len(b.Nodes))
	nodes := make([]Node, 0, len(b.Nodes))
	for _, n := range b.Nodes {
		if n.ID == "" || n.ID == CenterID || seen[n.ID] || !n.Category.Valid() {
			r.DroppedNodes++
			continue
		}
		seen[n.ID] = true
		if lvl := zone.Classify(n.X, n.Y); lvl != n.Level {
			n.Level = lvl
			r.RelevelledNodes++
		}
		nodes = append(nodes, n)
	}
	b.Nodes = nodes

	known := func(id string) bool { return id == CenterID || seen[id] }
	edges := make([]Edge, 0, len(b.Edges))
	for _, e := range b.Edges {
		if e.From == e.To || !known(e.From) || !known(e.To) {
			r.DroppedEdges++
			continue
		}
		duplicate := false
		for _, kept := range edges {
			if kept.Joins(e.From, e.To) {
				duplicate = true
				break
			}
		}
		if duplicate {
			r.DroppedEdges++
			continue
		}
		e.ID = EdgeID(e.From, e.To)
		edges = append(edges, e)
	}
	b.Edges = edges

	return r
}
