package zone

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestBoundariesStrictlyIncreasing(t *testing.T) {
	prev := 0.0
	for _, l := range Levels {
		b := Boundary(l)
		if b <= prev {
			t.Errorf("boundary for level %d (%v) not greater than previous (%v)", l, b, prev)
		}
		prev = b
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		x, y float64
		want Level
	}{
		{"origin", 0, 0, LevelIntimate},
		{"inside first band", 100, 0, LevelIntimate},
		{"on first boundary rounds inward", 150, 0, LevelIntimate},
		{"just past first boundary", 150.0001, 0, LevelPersonal},
		{"on second boundary", 0, -300, LevelPersonal},
		{"third band", -200, -300, LevelOccasional},
		{"on last boundary", 0, 450, LevelOccasional},
		{"far outside", 900, 900, LevelOccasional},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.x, tt.y); got != tt.want {
				t.Errorf("Classify(%v, %v) = %d, want %d", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestSectorsPartitionCircle(t *testing.T) {
	for deg := 0; deg < 360; deg++ {
		a := float64(deg) * math.Pi / 180
		matches := 0
		for _, c := range Categories {
			if SectorOf(c).Contains(a) {
				matches++
			}
		}
		if matches != 1 {
			t.Fatalf("angle %d° falls in %d sectors, want exactly 1", deg, matches)
		}
	}
}

func TestAngleNormalised(t *testing.T) {
	if a := Angle(1, -1); a < 0 || a >= 2*math.Pi {
		t.Errorf("Angle(1,-1) = %v, want within [0, 2π)", a)
	}
	if a := Angle(-1, -0.0); a != math.Pi {
		t.Errorf("Angle(-1, -0) = %v, want π", a)
	}
}

func TestPlaceStaysInSectorAndBand(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for _, c := range Categories {
		for _, l := range Levels {
			for i := 0; i < 200; i++ {
				x, y := Place(rng, c, l)

				if !SectorOf(c).Contains(Angle(x, y)) {
					t.Fatalf("Place(%s, %d) = (%v, %v) outside sector", c, l, x, y)
				}
				if got := Classify(x, y); got != l {
					t.Fatalf("Place(%s, %d) classified as level %d", c, l, got)
				}
				r := math.Hypot(x, y)
				if math.Abs(r-CanonicalRadius(l)) > Jitter+1e-9 {
					t.Fatalf("radius %v too far from canonical %v", r, CanonicalRadius(l))
				}
			}
		}
	}
}

func TestPlaceDeterministicWithSeed(t *testing.T) {
	x1, y1 := Place(rand.New(rand.NewPCG(7, 7)), CategoryWork, LevelPersonal)
	x2, y2 := Place(rand.New(rand.NewPCG(7, 7)), CategoryWork, LevelPersonal)
	if x1 != x2 || y1 != y2 {
		t.Errorf("same seed produced (%v,%v) and (%v,%v)", x1, y1, x2, y2)
	}
}

func TestParse(t *testing.T) {
	if c, err := ParseCategory(" Family "); err != nil || c != CategoryFamily {
		t.Errorf("ParseCategory(Family) = %q, %v", c, err)
	}
	if _, err := ParseCategory("neighbours"); err == nil {
		t.Error("expected error for unknown category")
	}
	if _, err := ParseLevel(4); err == nil {
		t.Error("expected error for level 4")
	}
	if l, err := ParseLevel(2); err != nil || l != LevelPersonal {
		t.Errorf("ParseLevel(2) = %d, %v", l, err)
	}
}

func TestCategoryAt(t *testing.T) {
	for _, c := range Categories {
		mid := SectorOf(c).Mid()
		if got := CategoryAt(200*math.Cos(mid), 200*math.Sin(mid)); got != c {
			t.Errorf("CategoryAt(mid of %s) = %s", c, got)
		}
	}
}
