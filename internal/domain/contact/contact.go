package contact

import (
	"fmt"

	"github.com/kailas-cloud/homematch/internal/domain/geo"
)

// LocationPreference is a preferred location with a stated importance weight.
type LocationPreference struct {
	Location geo.Point
	Weight   float64
}

// Contact is a validated person looking for a listing. Immutable once constructed.
type Contact struct {
	id         string
	name       string
	budgetMin  float64
	budgetMax  float64
	areaMinSqm float64
	areaMaxSqm float64
	roomsMin   int
	roomsMax   int
	preferred  []LocationPreference
}

// New validates and creates a contact. preferred may be empty; a preference
// with non-positive weight defaults to weight 1.
func New(
	id, name string,
	budgetMin, budgetMax float64,
	areaMinSqm, areaMaxSqm float64,
	roomsMin, roomsMax int,
	preferred []LocationPreference,
) (Contact, error) {
	if id == "" {
		return Contact{}, fmt.Errorf("contact id is required")
	}
	if budgetMin < 0 || budgetMax < budgetMin {
		return Contact{}, fmt.Errorf("invalid budget range [%v, %v]", budgetMin, budgetMax)
	}
	if areaMinSqm < 0 || areaMaxSqm < areaMinSqm {
		return Contact{}, fmt.Errorf("invalid area range [%v, %v]", areaMinSqm, areaMaxSqm)
	}
	if roomsMin < 0 || roomsMax < roomsMin {
		return Contact{}, fmt.Errorf("invalid rooms range [%d, %d]", roomsMin, roomsMax)
	}

	prefs := make([]LocationPreference, len(preferred))
	for i, p := range preferred {
		if !p.Location.Valid() {
			return Contact{}, fmt.Errorf("preferred location %d: invalid coordinates: %+v", i, p.Location)
		}
		if p.Weight <= 0 {
			p.Weight = 1
		}
		prefs[i] = p
	}

	return Contact{
		id:         id,
		name:       name,
		budgetMin:  budgetMin,
		budgetMax:  budgetMax,
		areaMinSqm: areaMinSqm,
		areaMaxSqm: areaMaxSqm,
		roomsMin:   roomsMin,
		roomsMax:   roomsMax,
		preferred:  prefs,
	}, nil
}

// ID returns the contact identifier.
func (c *Contact) ID() string { return c.id }

// Name returns the display name.
func (c *Contact) Name() string { return c.name }

// BudgetMin returns the lower budget bound.
func (c *Contact) BudgetMin() float64 { return c.budgetMin }

// BudgetMax returns the upper budget bound.
func (c *Contact) BudgetMax() float64 { return c.budgetMax }

// AreaMinSqm returns the lower area bound.
func (c *Contact) AreaMinSqm() float64 { return c.areaMinSqm }

// AreaMaxSqm returns the upper area bound.
func (c *Contact) AreaMaxSqm() float64 { return c.areaMaxSqm }

// RoomsMin returns the lower room-count bound.
func (c *Contact) RoomsMin() int { return c.roomsMin }

// RoomsMax returns the upper room-count bound.
func (c *Contact) RoomsMax() int { return c.roomsMax }

// Preferred returns the preferred locations with importance weights.
func (c *Contact) Preferred() []LocationPreference { return c.preferred }

// BudgetMid returns the midpoint of the budget range.
func (c *Contact) BudgetMid() float64 { return (c.budgetMin + c.budgetMax) / 2 }

// AreaMid returns the midpoint of the area range.
func (c *Contact) AreaMid() float64 { return (c.areaMinSqm + c.areaMaxSqm) / 2 }

// RoomsMid returns the midpoint of the rooms range.
func (c *Contact) RoomsMid() float64 { return float64(c.roomsMin+c.roomsMax) / 2 }
