package export

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/vcanio/Terio-sub000/pkg/graph"
	"github.com/vcanio/Terio-sub000/pkg/model"
	"github.com/vcanio/Terio-sub000/pkg/zone"
)

const (
	nodeRadius   = 14.0
	tableRowH    = 36.0
	tableMargin  = 40.0
	reportScale  = 0.6
	reportGutter = 40.0

	outOfSectorMark = " *"
	outOfSectorNote = "* Ubicada fuera del cuadrante de su categoría"
)

var (
	white     = color.RGBA{255, 255, 255, 255}
	ink       = color.RGBA{33, 37, 41, 255}
	muted     = color.RGBA{108, 117, 125, 255}
	rule      = color.RGBA{206, 212, 218, 255}
	edgeColor = color.RGBA{73, 80, 87, 255}
	toolbarBg = color.RGBA{248, 249, 250, 255}

	bandFill = map[zone.Level]color.RGBA{
		zone.LevelIntimate:   {231, 245, 255, 255},
		zone.LevelPersonal:   {240, 248, 255, 255},
		zone.LevelOccasional: {248, 251, 255, 255},
	}

	categoryColor = map[zone.Category]color.RGBA{
		zone.CategoryFamily:    {224, 49, 49, 255},
		zone.CategoryFriend:    {47, 158, 68, 255},
		zone.CategoryWork:      {28, 126, 214, 255},
		zone.CategoryCommunity: {247, 103, 7, 255},
	}
)

// BoardOptions controls how the board is drawn
type BoardOptions struct {
	NodeScale float64 // marker size multiplier; 0 means 1
	Chrome    bool    // include interactive chrome (toolbar, zoom buttons, handles)
}

// BoardScene draws the full board at the logical size
func BoardScene(b model.Board, opts BoardOptions) Element {
	root := group("board", boardLayer(b, 0, 0, 1, opts)...)
	root.W, root.H = zone.BoardSize, zone.BoardSize
	return root
}

// boardLayer lays out the board with its top-left corner at (ox, oy) shrunk by scale
func boardLayer(b model.Board, ox, oy, scale float64, opts BoardOptions) []Element {
	nodeScale := opts.NodeScale
	if nodeScale <= 0 {
		nodeScale = 1
	}
	half := zone.BoardSize / 2
	at := func(x, y float64) (float64, float64) {
		return ox + (x+half)*scale, oy + (y+half)*scale
	}
	cx, cy := at(0, 0)

	size := zone.BoardSize * scale
	out := []Element{rect(ox, oy, size, size, Style{Fill: white, Stroke: rule, LineWidth: 1})}

	// Zone bands, outermost first
	var bands []Element
	for i := len(zone.Levels) - 1; i >= 0; i-- {
		l := zone.Levels[i]
		bands = append(bands, circle(cx, cy, zone.Boundary(l)*scale, Style{
			Fill: bandFill[l], Stroke: rule, LineWidth: 1, Dash: []float64{6, 4},
		}))
	}
	bands = append(bands,
		line(ox, cy, ox+size, cy, Style{Stroke: rule, LineWidth: 1}),
		line(cx, oy, cx, oy+size, Style{Stroke: rule, LineWidth: 1}),
	)
	out = append(out, group("zones", bands...))

	// Quadrant labels sit in the corners, outside the outer band
	var labels []Element
	for _, c := range zone.Categories {
		mid := zone.SectorOf(c).Mid()
		r := zone.Boundary(zone.LevelOccasional) * math.Sqrt2 * 0.95
		x, y := at(r*math.Cos(mid), r*math.Sin(mid))
		labels = append(labels, text(x, y, c.Label(), Style{
			Fill: categoryColor[c], FontSize: 22 * scale, Bold: true, Align: AlignCenter,
		}))
	}
	out = append(out, group("quadrants", labels...))

	var edges []Element
	for _, e := range b.Edges {
		x1, y1, ok1 := b.Position(e.From)
		x2, y2, ok2 := b.Position(e.To)
		if !ok1 || !ok2 {
			continue
		}
		sx1, sy1 := at(x1, y1)
		sx2, sy2 := at(x2, y2)
		el := line(sx1, sy1, sx2, sy2, Style{Stroke: edgeColor, LineWidth: 2 * scale})
		el.ID = "edge:" + e.ID
		if opts.Chrome {
			mx, my := (sx1+sx2)/2, (sy1+sy2)/2
			el.Children = append(el.Children, deleteHandle("edge-delete:"+e.ID, mx, my, scale))
		}
		edges = append(edges, el)
	}
	out = append(out, group("edges", edges...))

	center := circle(cx, cy, zone.CenterRadius*scale, Style{Fill: ink, Stroke: white, LineWidth: 2})
	center.ID = model.CenterID
	center.Children = []Element{text(cx, cy, b.CenterLabel, Style{
		Fill: white, FontSize: 13 * scale, Bold: true, Align: AlignCenter,
	})}
	out = append(out, center)

	var nodes []Element
	r := nodeRadius * nodeScale * scale
	for i, n := range b.Nodes {
		x, y := at(n.X, n.Y)
		el := circle(x, y, r, Style{Fill: categoryColor[n.Category], Stroke: white, LineWidth: 2})
		el.ID = "node:" + n.ID
		el.Children = []Element{
			text(x, y, strconv.Itoa(i+1), Style{Fill: white, FontSize: 11 * nodeScale * scale, Bold: true, Align: AlignCenter}),
			text(x, y+r+12*scale, n.Name, Style{Fill: ink, FontSize: 13 * nodeScale * scale, Align: AlignCenter}),
		}
		if opts.Chrome {
			el.Children = append(el.Children,
				deleteHandle("node-delete:"+n.ID, x+r, y-r, scale),
				chrome(text(x, y-r-14*scale, n.Category.Label()+" · "+n.Level.Label(), Style{
					Fill: muted, FontSize: 11 * scale, Align: AlignCenter,
				})),
			)
		}
		nodes = append(nodes, el)
	}
	out = append(out, group("nodes", nodes...))

	if opts.Chrome {
		out = append(out, toolbar(ox, oy, scale), zoomControls(ox+size, oy+size, scale))
	}
	return out
}

func deleteHandle(id string, x, y, scale float64) Element {
	h := circle(x, y, 8*scale, Style{Fill: color.RGBA{250, 82, 82, 255}})
	h.ID = id
	h.Chrome = true
	h.Children = []Element{text(x, y, "×", Style{Fill: white, FontSize: 11 * scale, Bold: true, Align: AlignCenter})}
	return h
}

func toolbar(ox, oy, scale float64) Element {
	buttons := []string{"Agregar", "Conectar", "Limpiar", "Exportar"}
	children := []Element{rect(ox+10, oy+10, 420*scale, 40*scale, Style{Fill: toolbarBg, Stroke: rule, LineWidth: 1, Radius: 6})}
	for i, label := range buttons {
		x := ox + 10 + (float64(i)*100+10)*scale
		children = append(children,
			rect(x, oy+16*scale, 90*scale, 28*scale, Style{Fill: white, Stroke: rule, LineWidth: 1, Radius: 4}),
			text(x+45*scale, oy+30*scale, label, Style{Fill: ink, FontSize: 13 * scale, Align: AlignCenter}),
		)
	}
	return chrome(group("toolbar", children...))
}

func zoomControls(right, bottom, scale float64) Element {
	x := right - 50*scale
	return chrome(group("zoom",
		rect(x, bottom-100*scale, 40*scale, 40*scale, Style{Fill: white, Stroke: rule, LineWidth: 1, Radius: 4}),
		text(x+20*scale, bottom-80*scale, "+", Style{Fill: ink, FontSize: 20 * scale, Align: AlignCenter}),
		rect(x, bottom-50*scale, 40*scale, 40*scale, Style{Fill: white, Stroke: rule, LineWidth: 1, Radius: 4}),
		text(x+20*scale, bottom-30*scale, "−", Style{Fill: ink, FontSize: 20 * scale, Align: AlignCenter}),
	))
}

var tableColumns = []struct {
	title string
	x     float64
}{
	{"#", 0},
	{"Nombre", 50},
	{"Categoría", 360},
	{"Nivel", 570},
}

// tableLayer draws the node summary with its top-left corner at (ox, oy) and
// returns the elements and the height used.
func tableLayer(b model.Board, ox, oy, width float64) ([]Element, float64) {
	header := []Element{rect(ox, oy, width, tableRowH, Style{Fill: toolbarBg, Stroke: rule, LineWidth: 1})}
	for _, c := range tableColumns {
		header = append(header, text(ox+12+c.x, oy+tableRowH/2, c.title, Style{Fill: ink, FontSize: 15, Bold: true}))
	}
	out := []Element{group("table-header", header...)}

	var rows []Element
	marked := false
	for i, n := range b.Nodes {
		y := oy + tableRowH*float64(i+1)
		mid := y + tableRowH/2
		category := n.Category.Label()
		if zone.CategoryAt(n.X, n.Y) != n.Category {
			category += outOfSectorMark
			marked = true
		}
		row := group("row:"+n.ID,
			line(ox, y+tableRowH, ox+width, y+tableRowH, Style{Stroke: rule, LineWidth: 1}),
			text(ox+12+tableColumns[0].x, mid, strconv.Itoa(i+1), Style{Fill: muted, FontSize: 14}),
			text(ox+12+tableColumns[1].x, mid, n.Name, Style{Fill: ink, FontSize: 14}),
			circle(ox+12+tableColumns[2].x+6, mid, 6, Style{Fill: categoryColor[n.Category]}),
			text(ox+12+tableColumns[2].x+20, mid, category, Style{Fill: ink, FontSize: 14}),
			text(ox+12+tableColumns[3].x, mid, fmt.Sprintf("%d - %s", n.Level, n.Level.Label()), Style{Fill: ink, FontSize: 14}),
		)
		rows = append(rows, row)
	}
	out = append(out, group("table-rows", rows...))
	height := tableRowH * float64(len(b.Nodes)+1)
	if marked {
		out = append(out, text(ox+12, oy+height+tableRowH/2, outOfSectorNote, Style{Fill: muted, FontSize: 13}))
		height += tableRowH
	}
	return out, height
}

// TableScene lays out the numbered node list, built from the node list only
func TableScene(b model.Board, patientName string) Element {
	const width = zone.BoardSize
	title := text(tableMargin, tableMargin, tableTitle(patientName), Style{Fill: ink, FontSize: 22, Bold: true})
	rows, h := tableLayer(b, tableMargin, tableMargin*2, width-2*tableMargin)

	root := group("table", append([]Element{rect(0, 0, width, 0, Style{Fill: white}), title}, rows...)...)
	root.W, root.H = width, h+tableMargin*3
	root.Children[0].H = root.H
	return root
}

// ReportScene places a miniature board beside the table, with counts and
// network metrics underneath.
func ReportScene(b model.Board, patientName string, m graph.Metrics) Element {
	mini := zone.BoardSize * reportScale
	tableX := tableMargin + mini + reportGutter
	tableW := 820.0
	width := tableX + tableW + tableMargin

	top := tableMargin * 2
	board := group("mini-board", boardLayer(b, tableMargin, top, reportScale, BoardOptions{})...)
	rows, th := tableLayer(b, tableX, top, tableW)

	y := top + math.Max(mini, th) + reportGutter
	summary := []Element{
		text(tableMargin, y, fmt.Sprintf("Personas: %d   Vínculos: %d", m.Size, m.Edges), Style{Fill: ink, FontSize: 18, Bold: true}),
	}
	lines := []string{
		fmt.Sprintf("Vínculos con %s: %d   Entre personas: %d   Densidad: %.2f", b.CenterLabel, m.CenterDegree, m.PeerEdges, m.Density),
		fmt.Sprintf("Grupos sin %s: %d (mayor: %d)   Aisladas: %d", b.CenterLabel, m.Clusters, m.LargestGroup, len(m.Isolated)),
	}
	var perCategory string
	for i, c := range zone.Categories {
		if i > 0 {
			perCategory += "   "
		}
		perCategory += fmt.Sprintf("%s: %d", c.Label(), m.ByCategory[c])
	}
	lines = append(lines, perCategory)
	var perLevel string
	for i, l := range zone.Levels {
		if i > 0 {
			perLevel += "   "
		}
		perLevel += fmt.Sprintf("Nivel %d: %d", l, m.ByLevel[l])
	}
	lines = append(lines, perLevel)
	if len(m.OutOfSector) > 0 {
		names := make([]string, len(m.OutOfSector))
		for i, id := range m.OutOfSector {
			names[i] = b.Label(id)
		}
		lines = append(lines, "Fuera de su cuadrante: "+strings.Join(names, ", "))
	}
	for i, s := range lines {
		summary = append(summary, text(tableMargin, y+float64(i+1)*28, s, Style{Fill: muted, FontSize: 15}))
	}
	height := y + float64(len(lines)+1)*28 + tableMargin

	children := []Element{
		rect(0, 0, width, height, Style{Fill: white}),
		text(tableMargin, tableMargin, reportTitle(patientName), Style{Fill: ink, FontSize: 24, Bold: true}),
		board,
	}
	children = append(children, rows...)
	children = append(children, group("summary", summary...))

	root := group("report", children...)
	root.W, root.H = width, height
	return root
}

func tableTitle(patientName string) string {
	if patientName == "" {
		return "Red de apoyo social"
	}
	return "Red de apoyo social - " + patientName
}

func reportTitle(patientName string) string {
	if patientName == "" {
		return "Mapa de red (Sluzki)"
	}
	return "Mapa de red (Sluzki) - " + patientName
}
