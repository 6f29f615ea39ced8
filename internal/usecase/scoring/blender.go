package scoring

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/homematch/internal/domain/attention"
	"github.com/kailas-cloud/homematch/internal/domain/catalog"
	"github.com/kailas-cloud/homematch/internal/domain/contact"
	"github.com/kailas-cloud/homematch/internal/domain/geo"
	"github.com/kailas-cloud/homematch/internal/domain/listing"
	"github.com/kailas-cloud/homematch/internal/domain/query"
	"github.com/kailas-cloud/homematch/internal/domain/recommendation"
)

// weightSumTolerance bounds how far the blend weights may drift from a
// convex combination before startup fails.
const weightSumTolerance = 0.001

// neutralScore is used when the contact states no preference for a term.
const neutralScore = 0.5

// Weights is the convex blend of the per-attribute sub-scores.
type Weights struct {
	Price    float64
	Area     float64
	Rooms    float64
	Location float64
}

// Validate checks that the weights form a convex combination: all
// non-negative, summing to 1 within tolerance.
func (w Weights) Validate() error {
	if w.Price < 0 || w.Area < 0 || w.Rooms < 0 || w.Location < 0 {
		return fmt.Errorf("blend weights must be non-negative, got %+v", w)
	}
	sum := w.Price + w.Area + w.Rooms + w.Location
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("blend weights must sum to 1 (±%v), got %v", weightSumTolerance, sum)
	}
	return nil
}

// Blender turns a (contact, listing) pair into a blended score with a
// structured explanation. Read-only after construction, safe for
// concurrent use.
type Blender struct {
	weights Weights
	catalog *catalog.Catalog
	pooler  *attention.Pooler
}

// NewBlender creates a blender. Weight validation failures are
// configuration errors.
func NewBlender(weights Weights, cat *catalog.Catalog, pooler *attention.Pooler) (*Blender, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, fmt.Errorf("feature catalog is required")
	}
	if pooler == nil {
		return nil, fmt.Errorf("attention pooler is required")
	}
	return &Blender{weights: weights, catalog: cat, pooler: pooler}, nil
}

// Score blends per-attribute sub-scores into one score in [0,1]. Both modes
// produce the same explanation shape, so callers can toggle modes without
// changing their parsing.
func (b *Blender) Score(c *contact.Contact, l *listing.Listing, mode query.Mode) (float64, recommendation.Explanation) {
	var expl recommendation.Explanation
	switch mode {
	case query.Traditional:
		expl.PriceScore = budgetScore(l.Price(), c.BudgetMin(), c.BudgetMax())
		expl.AreaScore = closenessScore(l.AreaSqm(), c.AreaMid())
		expl.RoomsScore = closenessScore(float64(l.Rooms()), c.RoomsMid())
		expl.Location = b.nearestLocationMatch(c, l)
	default: // enhanced
		expl.PriceScore = b.compatScore(catalog.Price, c.BudgetMid(), l.Price())
		expl.AreaScore = b.compatScore(catalog.Area, c.AreaMid(), l.AreaSqm())
		expl.RoomsScore = b.compatScore(catalog.Rooms, c.RoomsMid(), float64(l.Rooms()))
		expl.Location = b.pooledLocationMatch(c, l)
	}

	score := b.weights.Price*expl.PriceScore +
		b.weights.Area*expl.AreaScore +
		b.weights.Rooms*expl.RoomsScore +
		b.weights.Location*expl.Location.Score
	score = math.Min(1, math.Max(0, score))

	expl.Reasons = reasons(expl)
	return score, expl
}

// compatScore maps the contact's preference midpoint and the listing value
// to bins and returns their embedding compatibility.
func (b *Blender) compatScore(attr catalog.Attribute, prefValue, listingValue float64) float64 {
	prefBin, _ := b.catalog.BinOf(attr, prefValue)
	listingBin, _ := b.catalog.BinOf(attr, listingValue)
	return b.catalog.Compatibility(attr, prefBin, listingBin)
}

// nearestLocationMatch is the rule-based location term: plain exponential
// decay over the distance to the nearest preferred location.
func (b *Blender) nearestLocationMatch(c *contact.Contact, l *listing.Listing) recommendation.LocationMatch {
	prefs := c.Preferred()
	if len(prefs) == 0 {
		return recommendation.LocationMatch{Score: neutralScore}
	}

	minDist := math.Inf(1)
	for _, pref := range prefs {
		if d := geo.DistanceKm(pref.Location, l.Location()); d < minDist {
			minDist = d
		}
	}
	return recommendation.LocationMatch{
		DistanceKm: minDist,
		Score:      b.pooler.Decay(minDist),
	}
}

func (b *Blender) pooledLocationMatch(c *contact.Contact, l *listing.Listing) recommendation.LocationMatch {
	prefs := c.Preferred()
	if len(prefs) == 0 {
		return recommendation.LocationMatch{Score: neutralScore}
	}

	// Pool only fails on empty input, which is excluded above.
	m, err := b.pooler.Pool(prefs, l.Location())
	if err != nil {
		return recommendation.LocationMatch{Score: neutralScore}
	}
	return recommendation.LocationMatch{
		DistanceKm: m.DistanceKm,
		Score:      m.Score,
		Weights:    m.Weights,
	}
}

// budgetScore rates the listing price against the contact's budget range.
// Within budget, 60-90% budget utilization is ideal; below-minimum prices
// are mildly penalized, over-budget prices heavily.
func budgetScore(price, budgetMin, budgetMax float64) float64 {
	switch {
	case price < budgetMin:
		diffRatio := (budgetMin - price) / budgetMin
		return math.Max(0.1, 1-diffRatio*0.5)
	case price <= budgetMax:
		if budgetMax == budgetMin {
			return 1
		}
		utilization := (price - budgetMin) / (budgetMax - budgetMin)
		switch {
		case utilization >= 0.6 && utilization <= 0.9:
			return 1
		case utilization < 0.6:
			return 0.8 + utilization*0.2
		default:
			return 1 - (utilization-0.9)*2
		}
	default:
		if budgetMax == 0 {
			return 0
		}
		overRatio := (price - budgetMax) / budgetMax
		return math.Max(0, 1-overRatio*2)
	}
}

// closenessScore rates how close a listing value is to the contact's range
// midpoint, linearly: exact midpoint scores 1, twice the midpoint (or zero)
// scores 0. A zero midpoint means no stated preference.
func closenessScore(value, mid float64) float64 {
	if mid <= 0 {
		return neutralScore
	}
	return math.Max(0, 1-math.Abs(value-mid)/mid)
}

// reasons derives human-readable highlights from the sub-scores.
func reasons(expl recommendation.Explanation) []string {
	var out []string

	switch {
	case expl.PriceScore > 0.8:
		out = append(out, "Excellent budget match")
	case expl.PriceScore > 0.6:
		out = append(out, "Good budget fit")
	case expl.PriceScore < 0.3:
		out = append(out, "Budget concerns")
	}

	switch {
	case expl.Location.Score > 0.8:
		out = append(out, "Perfect location match")
	case expl.Location.Score > 0.6:
		out = append(out, "Good location proximity")
	case expl.Location.Score < 0.3:
		out = append(out, "Location may be distant")
	}

	size := (expl.AreaScore + expl.RoomsScore) / 2
	switch {
	case size > 0.8:
		out = append(out, "Ideal size requirements")
	case size < 0.3:
		out = append(out, "Size concerns")
	}

	if len(out) == 0 {
		out = append(out, "Meets basic criteria")
	}
	return out
}
