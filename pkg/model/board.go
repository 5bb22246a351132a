package model

import "github.com/vcanio/Terio-sub000/pkg/zone"

// CenterID identifies the fixed origin node (the patient). It is never stored in
// Board.Nodes and always sits at (0,0).
const CenterID = "center"

// DefaultCenterLabel is the center label of a new or cleared board
const DefaultCenterLabel = "Paciente"

// Board is the complete network map of one patient.
// Node order is insertion order and defines the display index used in exports.
type Board struct {
	Nodes       []Node `json:"nodes"`
	Edges       []Edge `json:"edges"`
	CenterLabel string `json:"centerLabel"`
}

// NewBoard creates an empty board with the default center label.
func NewBoard() Board {
	return Board{
		Nodes:       make([]Node, 0),
		Edges:       make([]Edge, 0),
		CenterLabel: DefaultCenterLabel,
	}
}

// Node is a person in the patient's network.
// Level is derived from (X, Y); Category is relationship metadata and is not.
type Node struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Category zone.Category `json:"category"`
	Level    zone.Level    `json:"level"`
	X        float64       `json:"x"`
	Y        float64       `json:"y"`
}

// Edge is an undirected link. From/To keep creation order, which also fixes the ID.
type Edge struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
}

// EdgeID derives the deterministic id of an edge from its endpoints
func EdgeID(from, to string) string {
	return from + "--" + to
}

// Joins reports whether the edge connects a and b in either order
func (e Edge) Joins(a, b string) bool {
	return (e.From == a && e.To == b) || (e.From == b && e.To == a)
}

// Touches reports whether id is one of the edge's endpoints
func (e Edge) Touches(id string) bool {
	return e.From == id || e.To == id
}

// Clone returns a deep copy, so later mutations of b never reach the copy.
func (b Board) Clone() Board {
	out := Board{
		Nodes:       make([]Node, len(b.Nodes)),
		Edges:       make([]Edge, len(b.Edges)),
		CenterLabel: b.CenterLabel,
	}
	copy(out.Nodes, b.Nodes)
	copy(out.Edges, b.Edges)
	return out
}

// NodeIndex returns the position of a node in insertion order, or -1
func (b Board) NodeIndex(id string) int {
	for i := range b.Nodes {
		if b.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// HasEndpoint reports whether id can be an edge endpoint: a node or the center
func (b Board) HasEndpoint(id string) bool {
	return id == CenterID || b.NodeIndex(id) >= 0
}

// EdgeBetween returns the index of the edge joining a and b in either order, or -1
func (b Board) EdgeBetween(a, c string) int {
	for i := range b.Edges {
		if b.Edges[i].Joins(a, c) {
			return i
		}
	}
	return -1
}

// Position returns the logical coordinates of an endpoint
func (b Board) Position(id string) (x, y float64, ok bool) {
	if id == CenterID {
		return 0, 0, true
	}
	if i := b.NodeIndex(id); i >= 0 {
		return b.Nodes[i].X, b.Nodes[i].Y, true
	}
	return 0, 0, false
}

// Label returns the display name of an endpoint
func (b Board) Label(id string) string {
	if id == CenterID {
		return b.CenterLabel
	}
	if i := b.NodeIndex(id); i >= 0 {
		return b.Nodes[i].Name
	}
	return ""
}

// Degree counts the edges touching id
func (b Board) Degree(id string) int {
	n := 0
	for _, e := range b.Edges {
		if e.Touches(id) {
			n++
		}
	}
	return n
}
