package catalog

import (
	"math"
	"testing"
)

func testBoundaries() map[Attribute][]float64 {
	return map[Attribute][]float64{
		Price: {0, 100_000, 200_000, 300_000, 400_000, 500_000, 750_000},
		Area:  {0, 50, 75, 100, 150, 200, 300},
		Rooms: {0, 1, 2, 3, 4, 5, 6},
	}
}

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New(32, testBoundaries())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_ConfigErrors(t *testing.T) {
	tests := []struct {
		name       string
		dim        int
		boundaries map[Attribute][]float64
	}{
		{"zero dim", 0, testBoundaries()},
		{"negative dim", -1, testBoundaries()},
		{
			"missing attribute", 32,
			map[Attribute][]float64{Price: {0, 100}, Area: {0, 50}},
		},
		{
			"single bin", 32,
			func() map[Attribute][]float64 {
				b := testBoundaries()
				b[Rooms] = []float64{0}
				return b
			}(),
		},
		{
			"non-increasing boundaries", 32,
			func() map[Attribute][]float64 {
				b := testBoundaries()
				b[Price] = []float64{0, 200_000, 100_000}
				return b
			}(),
		},
		{
			"duplicate boundary", 32,
			func() map[Attribute][]float64 {
				b := testBoundaries()
				b[Area] = []float64{0, 50, 50, 100}
				return b
			}(),
		},
		{
			"first boundary not zero", 32,
			func() map[Attribute][]float64 {
				b := testBoundaries()
				b[Price] = []float64{100, 200, 300}
				return b
			}(),
		},
		{
			"infinite boundary", 32,
			func() map[Attribute][]float64 {
				b := testBoundaries()
				b[Price] = []float64{0, 100, math.Inf(1)}
				return b
			}(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.dim, tt.boundaries); err == nil {
				t.Error("expected configuration error, got nil")
			}
		})
	}
}

func TestBinOf_TotalityAndMonotonicity(t *testing.T) {
	c := newTestCatalog(t)

	for _, attr := range Attributes {
		prev := 0
		// Sweep values across and past every boundary.
		for v := 0.0; v <= 1_000_000; v += 7919 {
			idx, emb := c.BinOf(attr, v)
			if idx < 0 || idx >= c.BinCount(attr) {
				t.Fatalf("%s: value %v mapped to out-of-range bin %d", attr, v, idx)
			}
			if len(emb) != c.Dim() {
				t.Fatalf("%s: embedding dim = %d, want %d", attr, len(emb), c.Dim())
			}
			if idx < prev {
				t.Fatalf("%s: bin index decreased from %d to %d at value %v", attr, prev, idx, v)
			}
			prev = idx
		}
	}
}

func TestBinOf_Boundaries(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		value float64
		want  int
	}{
		{0, 0},
		{99_999.99, 0},
		{100_000, 1}, // lower edge is inclusive
		{150_000, 1},
		{199_999.99, 1},
		{200_000, 2},
		{750_000, 6},
		{10_000_000, 6}, // catch-all top bin
		{-5, 0},         // negative clamps to bin 0
	}
	for _, tt := range tests {
		if got, _ := c.BinOf(Price, tt.value); got != tt.want {
			t.Errorf("BinOf(Price, %v) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestCompatibility_SymmetricAndBounded(t *testing.T) {
	c := newTestCatalog(t)

	for _, attr := range Attributes {
		n := c.BinCount(attr)
		for a := 0; a < n; a++ {
			for b := 0; b < n; b++ {
				s1 := c.Compatibility(attr, a, b)
				s2 := c.Compatibility(attr, b, a)
				if math.Abs(s1-s2) > 1e-12 {
					t.Fatalf("%s: compatibility(%d,%d)=%v != compatibility(%d,%d)=%v", attr, a, b, s1, b, a, s2)
				}
				if s1 < 0 || s1 > 1 {
					t.Fatalf("%s: compatibility(%d,%d)=%v out of [0,1]", attr, a, b, s1)
				}
			}
		}
	}
}

func TestCompatibility_SameBinIsPerfect(t *testing.T) {
	c := newTestCatalog(t)
	for _, attr := range Attributes {
		for b := 0; b < c.BinCount(attr); b++ {
			if got := c.Compatibility(attr, b, b); math.Abs(got-1) > 1e-9 {
				t.Errorf("%s: compatibility(%d,%d) = %v, want 1", attr, b, b, got)
			}
		}
	}
}

func TestCompatibility_DecaysWithBinDistance(t *testing.T) {
	c := newTestCatalog(t)

	near := c.Compatibility(Price, 2, 3)
	far := c.Compatibility(Price, 2, 6)
	if near <= far {
		t.Errorf("adjacent-bin compatibility %v should exceed distant-bin compatibility %v", near, far)
	}
}

// A listing at 150k against a contact whose preferred-price bin is the
// 100k-200k bin must beat a contact preferring the 750k+ bin.
func TestCompatibility_PriceScenario(t *testing.T) {
	c := newTestCatalog(t)

	listingBin, _ := c.BinOf(Price, 150_000)
	matchingPrefBin, _ := c.BinOf(Price, 150_000)
	distantPrefBin, _ := c.BinOf(Price, 900_000)

	matching := c.Compatibility(Price, matchingPrefBin, listingBin)
	distant := c.Compatibility(Price, distantPrefBin, listingBin)
	if matching <= distant {
		t.Errorf("matching-bin score %v should exceed distant-bin score %v", matching, distant)
	}
}

func TestEmbeddings_UnitNormAndDeterministic(t *testing.T) {
	c1 := newTestCatalog(t)
	c2 := newTestCatalog(t)

	for _, attr := range Attributes {
		for b := 0; b < c1.BinCount(attr); b++ {
			lower := boundaryOf(t, attr, b)
			_, e1 := c1.BinOf(attr, lower)
			_, e2 := c2.BinOf(attr, lower)

			var norm float64
			for i := range e1 {
				norm += e1[i] * e1[i]
				if e1[i] != e2[i] {
					t.Fatalf("%s bin %d: embeddings differ across catalogs", attr, b)
				}
			}
			if math.Abs(math.Sqrt(norm)-1) > 1e-9 {
				t.Errorf("%s bin %d: norm = %v, want 1", attr, b, math.Sqrt(norm))
			}
		}
	}
}

func boundaryOf(t *testing.T, attr Attribute, bin int) float64 {
	t.Helper()
	return testBoundaries()[attr][bin]
}
