package zone

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

// Category is the relationship quadrant a person belongs to
type Category string

const (
	CategoryFamily    Category = "family"
	CategoryFriend    Category = "friend"
	CategoryWork      Category = "work"
	CategoryCommunity Category = "community"
)

// Categories lists the quadrants in angular order
var Categories = []Category{CategoryFamily, CategoryFriend, CategoryWork, CategoryCommunity}

var categoryLabels = map[Category]string{
	CategoryFamily:    "Familia",
	CategoryFriend:    "Amistades",
	CategoryWork:      "Trabajo/Estudio",
	CategoryCommunity: "Comunidad",
}

// Valid reports whether c is one of the four quadrants
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the display label used in tables and exports
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// ParseCategory accepts a category key, case-insensitively
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Level is the closeness band, 1 innermost
type Level int

const (
	LevelIntimate   Level = 1
	LevelPersonal   Level = 2
	LevelOccasional Level = 3
)

// Levels lists the bands from the center outwards
var Levels = []Level{LevelIntimate, LevelPersonal, LevelOccasional}

var levelLabels = map[Level]string{
	LevelIntimate:   "Relaciones íntimas",
	LevelPersonal:   "Relaciones personales",
	LevelOccasional: "Relaciones ocasionales",
}

// Valid reports whether l is 1, 2 or 3
func (l Level) Valid() bool {
	return l >= LevelIntimate && l <= LevelOccasional
}

// Label returns the human description of the band
func (l Level) Label() string {
	if label, ok := levelLabels[l]; ok {
		return label
	}
	return fmt.Sprintf("Nivel %d", int(l))
}

// ParseLevel validates a numeric level
func ParseLevel(n int) (Level, error) {
	l := Level(n)
	if !l.Valid() {
		return 0, fmt.Errorf("level must be 1, 2 or 3, got %d", n)
	}
	return l, nil
}

const (
	// BoardSize is the side of the square logical board, centred on the origin
	BoardSize = 1000.0

	// CenterRadius is the radius of the origin marker
	CenterRadius = 30.0

	// Jitter is the maximum radial offset applied at creation time
	Jitter = 20.0

	// sectorMargin keeps new nodes away from quadrant boundary lines
	sectorMargin = 10 * math.Pi / 180
)

// boundaries are the outer radius of each band, strictly increasing
var boundaries = [...]float64{
	LevelIntimate:   150,
	LevelPersonal:   300,
	LevelOccasional: 450,
}

// Boundary returns the outer radius of a band
func Boundary(l Level) float64 {
	if !l.Valid() {
		return boundaries[LevelOccasional]
	}
	return boundaries[l]
}

// InnerBoundary returns the inner radius of a band
func InnerBoundary(l Level) float64 {
	if l <= LevelIntimate {
		return CenterRadius
	}
	return Boundary(l - 1)
}

// CanonicalRadius is the mid-point of a band
func CanonicalRadius(l Level) float64 {
	return (InnerBoundary(l) + Boundary(l)) / 2
}

// Classify returns the band for a point. A point exactly on a boundary belongs to
// the inner band; anything beyond the last boundary is occasional.
func Classify(x, y float64) Level {
	d := math.Hypot(x, y)
	for _, l := range Levels {
		if d <= boundaries[l] {
			return l
		}
	}
	return LevelOccasional
}

// Sector is a half-open angular interval [Min, Max) in radians
type Sector struct {
	Min float64
	Max float64
}

// Contains reports whether an angle (already normalised) falls in the sector
func (s Sector) Contains(angle float64) bool {
	return angle >= s.Min && angle < s.Max
}

// Mid returns the bisector angle
func (s Sector) Mid() float64 {
	return (s.Min + s.Max) / 2
}

// SectorOf returns the quadrant owned by a category
func SectorOf(c Category) Sector {
	for i, cat := range Categories {
		if cat == c {
			return Sector{
				Min: float64(i) * math.Pi / 2,
				Max: float64(i+1) * math.Pi / 2,
			}
		}
	}
	return Sector{Min: 0, Max: 2 * math.Pi}
}

// Angle returns the direction of (x, y) in [0, 2π)
func Angle(x, y float64) float64 {
	a := math.Atan2(y, x)
	if a < 0 {
		a += 2 * math.Pi
	}
	if a >= 2*math.Pi {
		a = 0
	}
	return a
}

// CategoryAt returns the quadrant a point falls in. The origin reports family.
func CategoryAt(x, y float64) Category {
	a := Angle(x, y)
	for _, c := range Categories {
		if SectorOf(c).Contains(a) {
			return c
		}
	}
	return CategoryFamily
}

// Place samples an initial position for a new node: a random angle inside the
// category's sector and a radius jittered around the band's canonical radius.
func Place(rng *rand.Rand, c Category, l Level) (x, y float64) {
	s := SectorOf(c)
	span := s.Max - s.Min - 2*sectorMargin
	angle := s.Min + sectorMargin + rng.Float64()*span
	radius := CanonicalRadius(l) + (rng.Float64()*2-1)*Jitter
	return radius * math.Cos(angle), radius * math.Sin(angle)
}
