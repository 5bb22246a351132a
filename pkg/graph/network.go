package graph

import (
	"slices"

	"github.com/vcanio/Terio-sub000/pkg/model"
	"github.com/vcanio/Terio-sub000/pkg/zone"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// centerGraphID is the gonum id of the center; nodes use 1+insertion index
const centerGraphID = 0

// Network is an undirected gonum view of a Board
type Network struct {
	board model.Board
	graph *simple.UndirectedGraph
	ids   map[string]int64 // node id -> graph id
}

// NewNetwork builds the graph of b, center included
func NewNetwork(b model.Board) *Network {
	n := &Network{
		board: b,
		graph: simple.NewUndirectedGraph(),
		ids:   make(map[string]int64, len(b.Nodes)+1),
	}

	n.ids[model.CenterID] = centerGraphID
	n.graph.AddNode(simple.Node(centerGraphID))
	for i, node := range b.Nodes {
		id := int64(i + 1)
		n.ids[node.ID] = id
		n.graph.AddNode(simple.Node(id))
	}

	for _, e := range b.Edges {
		from, okFrom := n.ids[e.From]
		to, okTo := n.ids[e.To]
		if !okFrom || !okTo || from == to {
			continue
		}
		if !n.graph.HasEdgeBetween(from, to) {
			n.graph.SetEdge(n.graph.NewEdge(simple.Node(from), simple.Node(to)))
		}
	}
	return n
}

// Degree returns the number of people (or the center) linked to id
func (n *Network) Degree(id string) int {
	gid, ok := n.ids[id]
	if !ok {
		return 0
	}
	return n.graph.From(gid).Len()
}

// Neighbors returns the ids linked to id, in board order with the center first
func (n *Network) Neighbors(id string) []string {
	gid, ok := n.ids[id]
	if !ok {
		return nil
	}
	var out []int64
	it := n.graph.From(gid)
	for it.Next() {
		out = append(out, it.Node().ID())
	}
	slices.Sort(out)

	ids := make([]string, len(out))
	for i, gid := range out {
		ids[i] = n.boardID(gid)
	}
	return ids
}

// Clusters returns the connected groups of people once the center is removed.
// Each cluster lists ids in board order; clusters are ordered by their first member.
func (n *Network) Clusters() [][]string {
	g := simple.NewUndirectedGraph()
	for i := range n.board.Nodes {
		g.AddNode(simple.Node(int64(i + 1)))
	}
	edges := n.graph.Edges()
	for edges.Next() {
		e := edges.Edge()
		if e.From().ID() == centerGraphID || e.To().ID() == centerGraphID {
			continue
		}
		g.SetEdge(g.NewEdge(e.From(), e.To()))
	}

	components := topo.ConnectedComponents(g)
	sorted := make([][]int64, 0, len(components))
	for _, c := range components {
		ids := make([]int64, len(c))
		for i, node := range c {
			ids[i] = node.ID()
		}
		slices.Sort(ids)
		sorted = append(sorted, ids)
	}
	slices.SortFunc(sorted, func(a, b []int64) int {
		return int(a[0] - b[0])
	})

	out := make([][]string, len(sorted))
	for i, c := range sorted {
		out[i] = make([]string, len(c))
		for j, gid := range c {
			out[i][j] = n.boardID(gid)
		}
	}
	return out
}

func (n *Network) boardID(gid int64) string {
	if gid == centerGraphID {
		return model.CenterID
	}
	return n.board.Nodes[gid-1].ID
}

// Metrics summarises a patient's network map
type Metrics struct {
	Size          int                   `json:"size"`  // people, center excluded
	Edges         int                   `json:"edges"` // all links, center included
	PeerEdges     int                   `json:"peerEdges"`
	CenterDegree  int                   `json:"centerDegree"`
	Density       float64               `json:"density"` // among people only
	ByCategory    map[zone.Category]int `json:"byCategory"`
	ByLevel       map[zone.Level]int    `json:"byLevel"`
	Degrees       map[string]int        `json:"degrees"`
	Links         map[string][]string   `json:"links"` // linked ids per person, center first
	Isolated      []string              `json:"isolated"` // no links at all, not even to the center
	Clusters      int                   `json:"clusters"` // groups of people without the center
	LargestGroup  int                   `json:"largestGroup"`
	MostConnected string                `json:"mostConnected,omitempty"`
	OutOfSector   []string              `json:"outOfSector"` // sitting in another category's quadrant
}

// Compute derives the metrics of b
func Compute(b model.Board) Metrics {
	n := NewNetwork(b)

	m := Metrics{
		Size:        len(b.Nodes),
		Edges:       n.graph.Edges().Len(),
		ByCategory:  make(map[zone.Category]int, len(zone.Categories)),
		ByLevel:     make(map[zone.Level]int, len(zone.Levels)),
		Degrees:     make(map[string]int, len(b.Nodes)),
		Links:       make(map[string][]string, len(b.Nodes)),
		Isolated:    []string{},
		OutOfSector: []string{},
	}
	for _, c := range zone.Categories {
		m.ByCategory[c] = 0
	}
	for _, l := range zone.Levels {
		m.ByLevel[l] = 0
	}

	m.CenterDegree = n.Degree(model.CenterID)
	m.PeerEdges = m.Edges - m.CenterDegree
	if m.Size > 1 {
		m.Density = float64(m.PeerEdges) / float64(m.Size*(m.Size-1)/2)
	}

	best := -1
	for _, node := range b.Nodes {
		m.ByCategory[node.Category]++
		m.ByLevel[node.Level]++

		d := n.Degree(node.ID)
		m.Degrees[node.ID] = d
		if d == 0 {
			m.Isolated = append(m.Isolated, node.ID)
		} else {
			m.Links[node.ID] = n.Neighbors(node.ID)
		}
		if d > best && d > 0 {
			best = d
			m.MostConnected = node.ID
		}
		if zone.CategoryAt(node.X, node.Y) != node.Category {
			m.OutOfSector = append(m.OutOfSector, node.ID)
		}
	}

	clusters := n.Clusters()
	m.Clusters = len(clusters)
	for _, c := range clusters {
		m.LargestGroup = max(m.LargestGroup, len(c))
	}
	return m
}
