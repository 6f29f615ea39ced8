package query

import (
	"fmt"

	"github.com/kailas-cloud/homematch/internal/domain"
)

// Mode selects the scoring strategy.
type Mode string

const (
	// Traditional is the rule-based scorer.
	Traditional Mode = "traditional"
	// Enhanced blends bin-embedding compatibility with attention pooling.
	Enhanced Mode = "enhanced"
)

// ParseMode parses a mode string; an empty string defaults to Enhanced.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "":
		return Enhanced, nil
	case string(Traditional):
		return Traditional, nil
	case string(Enhanced):
		return Enhanced, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidQuery, s)
	}
}

// Direction says which side of the match is the subject.
type Direction string

const (
	// ListingsForContact ranks listings for a contact subject.
	ListingsForContact Direction = "listings_for_contact"
	// ContactsForListing ranks contacts for a listing subject.
	ContactsForListing Direction = "contacts_for_listing"
)

// ParseDirection parses a direction string. No default: callers must choose.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case string(ListingsForContact):
		return ListingsForContact, nil
	case string(ContactsForListing):
		return ContactsForListing, nil
	default:
		return "", fmt.Errorf("%w: unknown direction %q", domain.ErrInvalidQuery, s)
	}
}

// Query is a validated recommendation request. Immutable once constructed.
type Query struct {
	direction Direction
	subjectID string
	mode      Mode
	minScore  float64
	limit     int
	offset    int
}

// New validates and creates a query.
func New(direction Direction, subjectID string, mode Mode, minScore float64, limit, offset int) (Query, error) {
	if direction != ListingsForContact && direction != ContactsForListing {
		return Query{}, fmt.Errorf("%w: unknown direction %q", domain.ErrInvalidQuery, direction)
	}
	if subjectID == "" {
		return Query{}, fmt.Errorf("%w: subject id is required", domain.ErrInvalidQuery)
	}
	if mode != Traditional && mode != Enhanced {
		return Query{}, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidQuery, mode)
	}
	if minScore < 0 || minScore > 1 {
		return Query{}, fmt.Errorf("%w: min score %v out of [0,1]", domain.ErrInvalidQuery, minScore)
	}
	if limit <= 0 {
		return Query{}, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidQuery, limit)
	}
	if offset < 0 {
		return Query{}, fmt.Errorf("%w: offset must be non-negative, got %d", domain.ErrInvalidQuery, offset)
	}
	return Query{
		direction: direction,
		subjectID: subjectID,
		mode:      mode,
		minScore:  minScore,
		limit:     limit,
		offset:    offset,
	}, nil
}

// Direction returns which side of the match is the subject.
func (q Query) Direction() Direction { return q.direction }

// SubjectID returns the contact or listing identifier being matched for.
func (q Query) SubjectID() string { return q.subjectID }

// Mode returns the scoring strategy.
func (q Query) Mode() Mode { return q.mode }

// MinScore returns the inclusive blended-score threshold.
func (q Query) MinScore() float64 { return q.minScore }

// Limit returns the page size.
func (q Query) Limit() int { return q.limit }

// Offset returns the number of ranked entries to skip.
func (q Query) Offset() int { return q.offset }

// CacheKey returns a stable key covering every field that affects the result.
func (q Query) CacheKey() string {
	return fmt.Sprintf("%s|%s|%s|%.4f|%d|%d",
		q.direction, q.subjectID, q.mode, q.minScore, q.limit, q.offset)
}
