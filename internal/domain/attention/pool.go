package attention

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/homematch/internal/domain/contact"
	"github.com/kailas-cloud/homematch/internal/domain/geo"
)

// Match is the distance-aware location signal for one (contact, listing) pair.
type Match struct {
	// DistanceKm is the attention-weighted distance to the listing.
	DistanceKm float64
	// Score is the pooled match score in [0,1].
	Score float64
	// Weights holds the normalized attention weight per preferred location,
	// in input order. Length equals the number of preferred locations.
	Weights []float64
}

// Pooler aggregates several preferred locations into one distance-aware
// match signal. Read-only after construction, safe for concurrent use.
type Pooler struct {
	decay float64
}

// NewPooler creates a pooler with the given distance decay factor (per km).
// A non-positive decay is a configuration error.
func NewPooler(decay float64) (*Pooler, error) {
	if decay <= 0 {
		return nil, fmt.Errorf("location decay factor must be positive, got %v", decay)
	}
	return &Pooler{decay: decay}, nil
}

// Decay returns the plain exponential distance decay exp(-λ·d).
func (p *Pooler) Decay(distanceKm float64) float64 {
	return math.Exp(-p.decay * distanceKm)
}

// Pool computes the attention-weighted location match for a listing.
// Per preferred location i with distance d_i and importance w_i, the
// unnormalized attention weight is w_i·exp(-λ·d_i); weights are normalized
// to sum to 1. When every weight underflows to zero the pooler falls back
// to uniform weights. With a single preferred location the result reduces
// to (d, exp(-λ·d)).
func (p *Pooler) Pool(prefs []contact.LocationPreference, listingLoc geo.Point) (Match, error) {
	if len(prefs) == 0 {
		return Match{}, fmt.Errorf("at least one preferred location is required")
	}

	n := len(prefs)
	distances := make([]float64, n)
	scores := make([]float64, n)
	weights := make([]float64, n)

	var total float64
	for i, pref := range prefs {
		distances[i] = geo.DistanceKm(pref.Location, listingLoc)
		scores[i] = p.Decay(distances[i])
		weights[i] = pref.Weight * scores[i]
		total += weights[i]
	}

	if total > 0 {
		for i := range weights {
			weights[i] /= total
		}
	} else {
		// All attention weights underflowed; avoid division by zero.
		uniform := 1 / float64(n)
		for i := range weights {
			weights[i] = uniform
		}
	}

	var pooledDist, pooledScore float64
	for i := range weights {
		pooledDist += weights[i] * distances[i]
		pooledScore += weights[i] * scores[i]
	}

	return Match{
		DistanceKm: pooledDist,
		Score:      pooledScore,
		Weights:    weights,
	}, nil
}
