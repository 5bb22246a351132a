package viewport

import (
	"math"
	"sync"

	"github.com/vcanio/Terio-sub000/pkg/zone"
)

const (
	// MaxZoom is the absolute upper bound of the canvas scale
	MaxZoom = 4.0

	// PanEpsilon is how far above the initial fit the scale must be before panning
	PanEpsilon = 0.01

	MinNodeScale  = 0.4
	MaxNodeScale  = 1.5
	NodeScaleStep = 0.1
)

// Point is a 2D coordinate, in screen pixels or logical units depending on use
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is the rendered bounding box of the logical board on screen
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the middle of the rectangle
func (r Rect) Center() Point {
	return Point{X: r.Left + r.Width/2, Y: r.Top + r.Height/2}
}

// State is a serializable view of the viewport
type State struct {
	ContainerWidth  float64 `json:"containerWidth"`
	ContainerHeight float64 `json:"containerHeight"`
	Scale           float64 `json:"scale"`
	InitialFit      float64 `json:"initialFit"`
	PanX            float64 `json:"panX"`
	PanY            float64 `json:"panY"`
	NodeScale       float64 `json:"nodeScale"`
	IsZoomedIn      bool    `json:"isZoomedIn"`
	Rendered        Rect    `json:"rendered"`
}

// Viewport keeps the canvas zoom/pan and the node marker scale. The two are
// independent: zooming the canvas never changes NodeScale and vice versa.
type Viewport struct {
	mu         sync.Mutex
	width      float64
	height     float64
	fit        float64
	scale      float64
	panX, panY float64
	nodeScale  float64
}

// New creates a viewport fitted to a container of w×h pixels
func New(w, h float64) *Viewport {
	v := &Viewport{nodeScale: 1}
	v.resize(w, h)
	v.scale = v.fit
	return v
}

// Resize recomputes the initial fit for a new container size.
// A scale that would now be below the fit is raised to it.
func (v *Viewport) Resize(w, h float64) State {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resize(w, h)
	if v.scale <= v.fit+PanEpsilon {
		v.snapToFit()
	} else {
		v.clampPan()
	}
	return v.state()
}

func (v *Viewport) resize(w, h float64) {
	if w <= 0 || h <= 0 {
		w, h = zone.BoardSize, zone.BoardSize
	}
	v.width, v.height = w, h
	v.fit = math.Min(w, h) / zone.BoardSize
	if v.fit > MaxZoom {
		v.fit = MaxZoom
	}
}

// InitialFit is the scale at which the full board fits the container
func (v *Viewport) InitialFit() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fit
}

// ZoomTo sets an absolute canvas scale, keeping the focal screen point fixed
func (v *Viewport) ZoomTo(scale float64, focal *Point) State {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.zoomTo(scale, focal)
	return v.state()
}

// ZoomBy multiplies the canvas scale by factor
func (v *Viewport) ZoomBy(factor float64, focal *Point) State {
	v.mu.Lock()
	defer v.mu.Unlock()
	if factor > 0 {
		v.zoomTo(v.scale*factor, focal)
	}
	return v.state()
}

func (v *Viewport) zoomTo(scale float64, focal *Point) {
	scale = math.Max(v.fit, math.Min(MaxZoom, scale))
	if scale <= v.fit+PanEpsilon {
		v.snapToFit()
		return
	}

	if focal != nil {
		// Keep the logical point under the focal pixel in place
		cx, cy := v.width/2+v.panX, v.height/2+v.panY
		lx := (focal.X - cx) / v.scale
		ly := (focal.Y - cy) / v.scale
		v.panX = focal.X - v.width/2 - lx*scale
		v.panY = focal.Y - v.height/2 - ly*scale
	} else {
		v.panX *= scale / v.scale
		v.panY *= scale / v.scale
	}
	v.scale = scale
	v.clampPan()
}

// Pan translates the canvas by (dx, dy) pixels. Ignored at the initial fit.
func (v *Viewport) Pan(dx, dy float64) State {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.zoomedIn() {
		return v.state()
	}
	v.panX += dx
	v.panY += dy
	v.clampPan()
	return v.state()
}

// Reset returns the canvas to the initial fit; node scale is untouched
func (v *Viewport) Reset() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snapToFit()
	return v.state()
}

func (v *Viewport) snapToFit() {
	v.scale = v.fit
	v.panX, v.panY = 0, 0
}

// clampPan keeps the board edge from moving past the container's centre line
func (v *Viewport) clampPan() {
	maxX := zone.BoardSize * v.scale / 2
	maxY := zone.BoardSize * v.scale / 2
	v.panX = math.Max(-maxX, math.Min(maxX, v.panX))
	v.panY = math.Max(-maxY, math.Min(maxY, v.panY))
}

func (v *Viewport) zoomedIn() bool {
	return v.scale > v.fit+PanEpsilon
}

// IsZoomedIn reports whether the canvas is zoomed past the initial fit
func (v *Viewport) IsZoomedIn() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.zoomedIn()
}

// NodeScale returns the marker size multiplier
func (v *Viewport) NodeScale() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.nodeScale
}

// NodeScaleIn enlarges node markers by one step
func (v *Viewport) NodeScaleIn() State {
	return v.stepNodeScale(NodeScaleStep)
}

// NodeScaleOut shrinks node markers by one step
func (v *Viewport) NodeScaleOut() State {
	return v.stepNodeScale(-NodeScaleStep)
}

func (v *Viewport) stepNodeScale(delta float64) State {
	v.mu.Lock()
	defer v.mu.Unlock()
	// Round to one decimal so repeated steps do not drift past the bounds
	next := math.Round((v.nodeScale+delta)*10) / 10
	v.nodeScale = math.Max(MinNodeScale, math.Min(MaxNodeScale, next))
	return v.state()
}

// RenderedRect is where the logical board currently sits inside the container
func (v *Viewport) RenderedRect() Rect {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rendered()
}

func (v *Viewport) rendered() Rect {
	size := zone.BoardSize * v.scale
	cx := v.width/2 + v.panX
	cy := v.height/2 + v.panY
	return Rect{Left: cx - size/2, Top: cy - size/2, Width: size, Height: size}
}

// ScreenToLogical converts a screen point using the rendered bounding box of the
// board. Live drags and the connect preview both go through here.
func ScreenToLogical(p Point, rendered Rect) Point {
	if rendered.Width <= 0 {
		return Point{}
	}
	scale := rendered.Width / zone.BoardSize
	c := rendered.Center()
	return Point{
		X: (p.X - c.X) / scale,
		Y: (p.Y - c.Y) / scale,
	}
}

// LogicalToScreen is the inverse of ScreenToLogical
func LogicalToScreen(p Point, rendered Rect) Point {
	scale := rendered.Width / zone.BoardSize
	c := rendered.Center()
	return Point{X: c.X + p.X*scale, Y: c.Y + p.Y*scale}
}

// ScreenToLogical converts using the viewport's own rendered rectangle
func (v *Viewport) ScreenToLogical(p Point) Point {
	return ScreenToLogical(p, v.RenderedRect())
}

// State returns a snapshot of the viewport
func (v *Viewport) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state()
}

func (v *Viewport) state() State {
	return State{
		ContainerWidth:  v.width,
		ContainerHeight: v.height,
		Scale:           v.scale,
		InitialFit:      v.fit,
		PanX:            v.panX,
		PanY:            v.panY,
		NodeScale:       v.nodeScale,
		IsZoomedIn:      v.zoomedIn(),
		Rendered:        v.rendered(),
	}
}
