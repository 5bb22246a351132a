package export

import (
	"bytes"
	"fmt"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultPixelRatio is the density exported images are drawn at
const DefaultPixelRatio = 2.0

// Rasterizer turns a render tree into an encoded image
type Rasterizer interface {
	Rasterize(scene Element) ([]byte, error)
}

// PNGRasterizer draws scenes with gg and encodes them as PNG
type PNGRasterizer struct {
	PixelRatio float64

	once    sync.Once
	fontErr error
	regular *truetype.Font
	bold    *truetype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face

	// truetype faces keep glyph caches and are not safe for concurrent use
	render sync.Mutex
}

type faceKey struct {
	bold bool
	size float64
}

// NewPNGRasterizer creates a rasterizer at the given pixel ratio (0 means the default)
func NewPNGRasterizer(ratio float64) *PNGRasterizer {
	if ratio <= 0 {
		ratio = DefaultPixelRatio
	}
	return &PNGRasterizer{PixelRatio: ratio, faces: make(map[faceKey]font.Face)}
}

func (r *PNGRasterizer) loadFonts() error {
	r.once.Do(func() {
		if r.regular, r.fontErr = truetype.Parse(goregular.TTF); r.fontErr != nil {
			r.fontErr = fmt.Errorf("failed to parse font: %w", r.fontErr)
			return
		}
		if r.bold, r.fontErr = truetype.Parse(gobold.TTF); r.fontErr != nil {
			r.fontErr = fmt.Errorf("failed to parse bold font: %w", r.fontErr)
		}
	})
	return r.fontErr
}

func (r *PNGRasterizer) face(bold bool, size float64) font.Face {
	key := faceKey{bold: bold, size: math.Round(size*4) / 4}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.faces == nil {
		r.faces = make(map[faceKey]font.Face)
	}
	if f, ok := r.faces[key]; ok {
		return f
	}
	ttf := r.regular
	if bold {
		ttf = r.bold
	}
	f := truetype.NewFace(ttf, &truetype.Options{
		Size:    key.size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	r.faces[key] = f
	return f
}

// Rasterize draws every non-chrome element of scene. The scene root carries the
// canvas size in W and H.
func (r *PNGRasterizer) Rasterize(scene Element) ([]byte, error) {
	if scene.W <= 0 || scene.H <= 0 {
		return nil, fmt.Errorf("scene %q has no size", scene.ID)
	}
	if err := r.loadFonts(); err != nil {
		return nil, err
	}

	ratio := r.PixelRatio
	if ratio <= 0 {
		ratio = DefaultPixelRatio
	}

	r.render.Lock()
	defer r.render.Unlock()

	dc := gg.NewContext(int(math.Ceil(scene.W*ratio)), int(math.Ceil(scene.H*ratio)))
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	Walk(scene, func(e Element) {
		r.draw(dc, e, ratio)
	})

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// draw paints one element. Coordinates are multiplied by ratio here rather than
// through the context matrix so glyphs are rasterised at full density.
func (r *PNGRasterizer) draw(dc *gg.Context, e Element, ratio float64) {
	s := e.Style
	x, y := e.X*ratio, e.Y*ratio
	switch e.Kind {
	case KindRect:
		if s.Radius > 0 {
			dc.DrawRoundedRectangle(x, y, e.W*ratio, e.H*ratio, s.Radius*ratio)
		} else {
			dc.DrawRectangle(x, y, e.W*ratio, e.H*ratio)
		}
		paint(dc, s, ratio)

	case KindCircle:
		dc.DrawCircle(x, y, e.R*ratio)
		paint(dc, s, ratio)

	case KindLine:
		if s.Stroke.A == 0 {
			return
		}
		dc.DrawLine(x, y, e.X2*ratio, e.Y2*ratio)
		dc.SetColor(s.Stroke)
		dc.SetLineWidth(math.Max(s.LineWidth, 1) * ratio)
		dc.SetDash(scaled(s.Dash, ratio)...)
		dc.Stroke()

	case KindText:
		if e.Text == "" || s.Fill.A == 0 {
			return
		}
		size := s.FontSize
		if size <= 0 {
			size = 12
		}
		dc.SetFontFace(r.face(s.Bold, size*ratio))
		dc.SetColor(s.Fill)
		ax := 0.0
		switch s.Align {
		case AlignCenter:
			ax = 0.5
		case AlignRight:
			ax = 1
		}
		dc.DrawStringAnchored(e.Text, x, y, ax, 0.35)
	}
}

// paint fills then strokes the current path. Line widths are in device pixels.
func paint(dc *gg.Context, s Style, ratio float64) {
	if s.Fill.A > 0 {
		dc.SetColor(s.Fill)
		if s.Stroke.A > 0 {
			dc.FillPreserve()
		} else {
			dc.Fill()
		}
	}
	if s.Stroke.A > 0 {
		dc.SetColor(s.Stroke)
		dc.SetLineWidth(math.Max(s.LineWidth, 1) * ratio)
		dc.SetDash(scaled(s.Dash, ratio)...)
		dc.Stroke()
	}
	dc.ClearPath()
}

func scaled(dash []float64, ratio float64) []float64 {
	if len(dash) == 0 {
		return nil
	}
	out := make([]float64, len(dash))
	for i, d := range dash {
		out[i] = d * ratio
	}
	return out
}
