package export

import "image/color"

// ElementKind selects how an Element is drawn
type ElementKind string

const (
	KindGroup  ElementKind = "group"  // container only
	KindRect   ElementKind = "rect"   // X, Y, W, H
	KindCircle ElementKind = "circle" // centre X, Y and radius R
	KindLine   ElementKind = "line"   // X, Y to X2, Y2
	KindText   ElementKind = "text"   // anchored at X, Y
)

// Align is the horizontal anchor of a text element
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Style describes paint. A zero-alpha colour means "don't paint".
type Style struct {
	Fill      color.RGBA
	Stroke    color.RGBA
	LineWidth float64
	Radius    float64 // corner radius for rects
	FontSize  float64
	Bold      bool
	Align     Align
	Dash      []float64
}

// Element is a node of the render tree. Coordinates are in output pixels before
// the pixel ratio is applied.
type Element struct {
	Kind     ElementKind
	ID       string
	X, Y     float64
	W, H     float64
	X2, Y2   float64
	R        float64
	Text     string
	Style    Style
	Chrome   bool // interactive UI: never part of an exported image
	Children []Element
}

// Walk visits e and its descendants depth-first, parents before children.
// Any element flagged Chrome is skipped together with its whole subtree, at any depth.
func Walk(e Element, visit func(Element)) {
	if e.Chrome {
		return
	}
	visit(e)
	for _, c := range e.Children {
		Walk(c, visit)
	}
}

// Find returns the first element with the given id, chrome included
func Find(e Element, id string) (Element, bool) {
	if e.ID == id {
		return e, true
	}
	for _, c := range e.Children {
		if found, ok := Find(c, id); ok {
			return found, true
		}
	}
	return Element{}, false
}

func group(id string, children ...Element) Element {
	return Element{Kind: KindGroup, ID: id, Children: children}
}

func chrome(e Element) Element {
	e.Chrome = true
	return e
}

func rect(x, y, w, h float64, s Style) Element {
	return Element{Kind: KindRect, X: x, Y: y, W: w, H: h, Style: s}
}

func circle(x, y, r float64, s Style) Element {
	return Element{Kind: KindCircle, X: x, Y: y, R: r, Style: s}
}

func line(x1, y1, x2, y2 float64, s Style) Element {
	return Element{Kind: KindLine, X: x1, Y: y1, X2: x2, Y2: y2, Style: s}
}

func text(x, y float64, s string, st Style) Element {
	return Element{Kind: KindText, X: x, Y: y, Text: s, Style: st}
}
