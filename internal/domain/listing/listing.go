package listing

import (
	"fmt"

	"github.com/kailas-cloud/homematch/internal/domain/geo"
)

// Listing is a validated real-estate listing. Immutable once constructed.
type Listing struct {
	id           string
	price        float64
	areaSqm      float64
	rooms        int
	location     geo.Point
	propertyType string
}

// New validates and creates a listing.
func New(
	id string, price, areaSqm float64, rooms int,
	location geo.Point, propertyType string,
) (Listing, error) {
	if id == "" {
		return Listing{}, fmt.Errorf("listing id is required")
	}
	if price < 0 {
		return Listing{}, fmt.Errorf("price must be non-negative, got %v", price)
	}
	if areaSqm <= 0 {
		return Listing{}, fmt.Errorf("area must be positive, got %v", areaSqm)
	}
	if rooms < 0 {
		return Listing{}, fmt.Errorf("rooms must be non-negative, got %d", rooms)
	}
	if !location.Valid() {
		return Listing{}, fmt.Errorf("invalid coordinates: %+v", location)
	}

	return Listing{
		id:           id,
		price:        price,
		areaSqm:      areaSqm,
		rooms:        rooms,
		location:     location,
		propertyType: propertyType,
	}, nil
}

// ID returns the listing identifier.
func (l *Listing) ID() string { return l.id }

// Price returns the asking price.
func (l *Listing) Price() float64 { return l.price }

// AreaSqm returns the living area in square meters.
func (l *Listing) AreaSqm() float64 { return l.areaSqm }

// Rooms returns the room count.
func (l *Listing) Rooms() int { return l.rooms }

// Location returns the geographic coordinate.
func (l *Listing) Location() geo.Point { return l.location }

// PropertyType returns the listing category (apartment, house, ...).
func (l *Listing) PropertyType() string { return l.propertyType }
