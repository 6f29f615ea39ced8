package recommendation

import "time"

// LocationMatch describes how well a listing's location fits the contact's
// preferred locations.
type LocationMatch struct {
	// DistanceKm is the attention-weighted distance between the listing and
	// the contact's preferred locations.
	DistanceKm float64
	// Score is the pooled location score in [0,1].
	Score float64
	// Weights holds the normalized attention weight per preferred location,
	// in the order the contact stated them. Empty when the contact has no
	// preferred locations.
	Weights []float64
}

// Explanation breaks a blended score into its per-attribute components.
// Both scoring modes produce the same shape.
type Explanation struct {
	PriceScore float64
	AreaScore  float64
	RoomsScore float64
	Location   LocationMatch
	// Reasons are human-readable highlights derived from the sub-scores.
	Reasons []string
}

// Entry is one ranked candidate.
type Entry struct {
	// CandidateID is the listing or contact on the other side of the match.
	CandidateID string
	// Score is the blended score in [0,1].
	Score       float64
	Explanation Explanation
}

// Result is a ranked, paginated recommendation page.
type Result struct {
	// SubjectID is the contact or listing the page was computed for.
	SubjectID string
	Entries   []Entry
	// Total is the number of candidates that passed the score threshold,
	// before offset and limit were applied.
	Total int
	// Key is the cache key the page is stored under.
	Key string
	// ExpiresAt is when the cached page becomes stale.
	ExpiresAt time.Time
}
