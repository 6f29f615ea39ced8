package homematch

import (
	"fmt"
	"time"

	domcontact "github.com/kailas-cloud/homematch/internal/domain/contact"
	"github.com/kailas-cloud/homematch/internal/domain/geo"
	domlisting "github.com/kailas-cloud/homematch/internal/domain/listing"
	"github.com/kailas-cloud/homematch/internal/domain/recommendation"
)

// Mode selects the scoring strategy.
type Mode string

const (
	// ModeTraditional uses the rule-based scorer.
	ModeTraditional Mode = "traditional"
	// ModeEnhanced blends bin-embedding compatibility with attention pooling.
	ModeEnhanced Mode = "enhanced"
)

// Location is a geographic coordinate in degrees.
type Location struct {
	Lat float64
	Lon float64
}

// LocationPreference is a preferred location with a stated importance weight.
// Weight <= 0 defaults to 1.
type LocationPreference struct {
	Location Location
	Weight   float64
}

// Contact is a person looking for a listing.
type Contact struct {
	ID                 string
	Name               string
	BudgetMin          float64
	BudgetMax          float64
	AreaMinSqm         float64
	AreaMaxSqm         float64
	RoomsMin           int
	RoomsMax           int
	PreferredLocations []LocationPreference
}

// Listing is a real-estate listing.
type Listing struct {
	ID           string
	Price        float64
	AreaSqm      float64
	Rooms        int
	Location     Location
	PropertyType string
}

// LocationMatch explains the location component of a score.
type LocationMatch struct {
	DistanceKm       float64
	Score            float64
	AttentionWeights []float64
}

// Explanation breaks a blended score into its components.
type Explanation struct {
	PriceScore float64
	AreaScore  float64
	RoomsScore float64
	Location   LocationMatch
	Reasons    []string
}

// Entry is one ranked candidate.
type Entry struct {
	CandidateID string
	Score       float64
	Explanation Explanation
}

// Result is a ranked recommendation page.
type Result struct {
	SubjectID string
	Entries   []Entry
	Total     int
	ExpiresAt time.Time
}

func toDomainContact(c Contact) (domcontact.Contact, error) {
	prefs := make([]domcontact.LocationPreference, len(c.PreferredLocations))
	for i, p := range c.PreferredLocations {
		prefs[i] = domcontact.LocationPreference{
			Location: geo.Point{Lat: p.Location.Lat, Lon: p.Location.Lon},
			Weight:   p.Weight,
		}
	}
	dc, err := domcontact.New(c.ID, c.Name,
		c.BudgetMin, c.BudgetMax, c.AreaMinSqm, c.AreaMaxSqm,
		c.RoomsMin, c.RoomsMax, prefs)
	if err != nil {
		return domcontact.Contact{}, fmt.Errorf("homematch: invalid contact: %w", err)
	}
	return dc, nil
}

func toDomainListing(l Listing) (domlisting.Listing, error) {
	dl, err := domlisting.New(l.ID, l.Price, l.AreaSqm, l.Rooms,
		geo.Point{Lat: l.Location.Lat, Lon: l.Location.Lon}, l.PropertyType)
	if err != nil {
		return domlisting.Listing{}, fmt.Errorf("homematch: invalid listing: %w", err)
	}
	return dl, nil
}

func fromDomainResult(r recommendation.Result) Result {
	entries := make([]Entry, len(r.Entries))
	for i, e := range r.Entries {
		entries[i] = Entry{
			CandidateID: e.CandidateID,
			Score:       e.Score,
			Explanation: Explanation{
				PriceScore: e.Explanation.PriceScore,
				AreaScore:  e.Explanation.AreaScore,
				RoomsScore: e.Explanation.RoomsScore,
				Location: LocationMatch{
					DistanceKm:       e.Explanation.Location.DistanceKm,
					Score:            e.Explanation.Location.Score,
					AttentionWeights: e.Explanation.Location.Weights,
				},
				Reasons: e.Explanation.Reasons,
			},
		}
	}
	return Result{
		SubjectID: r.SubjectID,
		Entries:   entries,
		Total:     r.Total,
		ExpiresAt: r.ExpiresAt,
	}
}
