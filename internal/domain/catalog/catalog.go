package catalog

import (
	"fmt"
	"math"
	"sort"
)

// Attribute identifies a binned continuous listing attribute.
type Attribute string

// Binned attributes.
const (
	Price Attribute = "price"
	Area  Attribute = "area"
	Rooms Attribute = "rooms"
)

// Attributes lists all binned attributes in a stable order.
var Attributes = []Attribute{Price, Area, Rooms}

// baseSeeds drive the deterministic embedding generation per attribute.
// Distinct bases keep embeddings of different attributes uncorrelated.
var baseSeeds = map[Attribute]float64{
	Price: 0.1,
	Area:  0.2,
	Rooms: 0.3,
}

// attributeBins holds the boundaries and embeddings for one attribute.
// boundaries[i] is the inclusive lower edge of bin i; the last bin extends
// to +Inf. embeddings[i] is the unit vector for bin i.
type attributeBins struct {
	boundaries []float64
	embeddings [][]float64
}

// Catalog maps continuous attribute values to discrete bins and their
// embedding vectors. Read-only after construction, safe for concurrent use.
type Catalog struct {
	dim  int
	bins map[Attribute]attributeBins
}

// New builds a catalog from per-attribute bin boundaries and the embedding
// dimension. boundaries must start at 0 and be strictly increasing; each
// attribute needs at least 2 bins. These are configuration errors: the
// catalog must not serve if any check fails.
func New(dim int, boundaries map[Attribute][]float64) (*Catalog, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}

	bins := make(map[Attribute]attributeBins, len(Attributes))
	for _, attr := range Attributes {
		b, ok := boundaries[attr]
		if !ok {
			return nil, fmt.Errorf("missing bin boundaries for attribute %q", attr)
		}
		if len(b) < 2 {
			return nil, fmt.Errorf("attribute %q needs at least 2 bins, got %d", attr, len(b))
		}
		if b[0] != 0 {
			return nil, fmt.Errorf("attribute %q: first boundary must be 0, got %v", attr, b[0])
		}
		for i := 1; i < len(b); i++ {
			if !(b[i] > b[i-1]) {
				return nil, fmt.Errorf(
					"attribute %q: boundaries must be strictly increasing (index %d: %v <= %v)",
					attr, i, b[i], b[i-1],
				)
			}
			if math.IsInf(b[i], 1) {
				return nil, fmt.Errorf("attribute %q: boundaries must be finite (top bin is implicit)", attr)
			}
		}

		bounds := make([]float64, len(b))
		copy(bounds, b)
		bins[attr] = attributeBins{
			boundaries: bounds,
			embeddings: generateEmbeddings(len(bounds), dim, baseSeeds[attr]),
		}
	}

	return &Catalog{dim: dim, bins: bins}, nil
}

// Dim returns the embedding dimension.
func (c *Catalog) Dim() int { return c.dim }

// BinCount returns the number of bins for an attribute (0 if unknown).
func (c *Catalog) BinCount(attr Attribute) int {
	return len(c.bins[attr].boundaries)
}

// BinOf maps a value to its bin index and embedding. Every non-negative
// value falls into exactly one bin; negative values clamp to bin 0. The
// top bin covers [last boundary, +Inf).
func (c *Catalog) BinOf(attr Attribute, value float64) (int, []float64) {
	ab, ok := c.bins[attr]
	if !ok {
		return 0, nil
	}
	idx := binIndex(ab.boundaries, value)
	return idx, ab.embeddings[idx]
}

// Compatibility returns the cosine similarity of two bins' embeddings,
// rescaled from [-1,1] to [0,1]. Symmetric in its bin arguments.
// Out-of-range bin indices clamp to the nearest valid bin.
func (c *Catalog) Compatibility(attr Attribute, binA, binB int) float64 {
	ab, ok := c.bins[attr]
	if !ok {
		return 0
	}
	ea := ab.embeddings[clampBin(binA, len(ab.embeddings))]
	eb := ab.embeddings[clampBin(binB, len(ab.embeddings))]

	score := (cosine(ea, eb) + 1) / 2
	return math.Min(1, math.Max(0, score))
}

// binIndex finds the greatest i with boundaries[i] <= value via binary search.
func binIndex(boundaries []float64, value float64) int {
	if value < boundaries[0] {
		return 0
	}
	// First index where boundary > value; the bin is the one before it.
	idx := sort.Search(len(boundaries), func(i int) bool {
		return boundaries[i] > value
	})
	return idx - 1
}

func clampBin(idx, n int) int {
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

// binPhaseStep is the angular distance between adjacent bins on each
// dimension's sinusoid. With D phases spread uniformly, the cosine between
// bins i and j approaches cos(|i-j| * binPhaseStep), so similarity decays
// smoothly and monotonically with bin distance.
const binPhaseStep = 0.35

// generateEmbeddings produces deterministic unit vectors, one per bin. Each
// dimension is a sinusoid over the bin index with a seed-derived phase, which
// keeps adjacent bins close in vector space: crossing a bin boundary degrades
// compatibility smoothly rather than discontinuously.
func generateEmbeddings(numBins, dim int, baseSeed float64) [][]float64 {
	phases := make([]float64, dim)
	for d := 0; d < dim; d++ {
		_, frac := math.Modf(math.Abs(math.Sin(baseSeed+float64(d)*0.97) * 10000))
		phases[d] = frac * 2 * math.Pi
	}

	embeddings := make([][]float64, numBins)
	for bin := 0; bin < numBins; bin++ {
		vec := make([]float64, dim)
		for d := 0; d < dim; d++ {
			vec[d] = math.Sin(float64(bin)*binPhaseStep + phases[d])
		}
		normalize(vec)
		embeddings[bin] = vec
	}
	return embeddings
}

func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] /= norm
	}
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
