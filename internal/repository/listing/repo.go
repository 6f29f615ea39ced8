package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/homematch/internal/db"
	"github.com/kailas-cloud/homematch/internal/domain"
	"github.com/kailas-cloud/homematch/internal/domain/geo"
	domlisting "github.com/kailas-cloud/homematch/internal/domain/listing"
)

var (
	keyPrefix = domain.KeyPrefix + "listing:"
	indexKey  = domain.KeyPrefix + "listings"
)

// store is the consumer interface for listings (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// Repo implements usecase/recommend.ListingSource over a key-value store.
// Listings live as JSON blobs under homematch:listing:<id>, with an id set
// at homematch:listings for enumeration.
type Repo struct {
	store store
}

// New creates a listing repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Get returns a listing by id.
func (r *Repo) Get(ctx context.Context, id string) (domlisting.Listing, error) {
	data, err := r.store.Get(ctx, keyPrefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domlisting.Listing{}, domain.ErrListingNotFound
		}
		return domlisting.Listing{}, fmt.Errorf("%w: get listing %s: %w", domain.ErrUpstreamUnavailable, id, err)
	}
	return unmarshalListing(data)
}

// All returns every stored listing. Ids present in the index but missing
// their blob (deleted concurrently) are skipped.
func (r *Repo) All(ctx context.Context) ([]domlisting.Listing, error) {
	ids, err := r.store.SMembers(ctx, indexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: list listings: %w", domain.ErrUpstreamUnavailable, err)
	}

	out := make([]domlisting.Listing, 0, len(ids))
	for _, id := range ids {
		l, err := r.Get(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrListingNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// Put stores a listing and registers it in the id index.
func (r *Repo) Put(ctx context.Context, l *domlisting.Listing) error {
	data, err := json.Marshal(toDTO(l))
	if err != nil {
		return fmt.Errorf("marshal listing: %w", err)
	}
	if err := r.store.Set(ctx, keyPrefix+l.ID(), data); err != nil {
		return fmt.Errorf("set listing %s: %w", l.ID(), err)
	}
	if err := r.store.SAdd(ctx, indexKey, l.ID()); err != nil {
		return fmt.Errorf("index listing %s: %w", l.ID(), err)
	}
	return nil
}

// Delete removes a listing and its index entry.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, keyPrefix+id); err != nil {
		return fmt.Errorf("del listing %s: %w", id, err)
	}
	if err := r.store.SRem(ctx, indexKey, id); err != nil {
		return fmt.Errorf("unindex listing %s: %w", id, err)
	}
	return nil
}

type listingDTO struct {
	ID           string  `json:"id"`
	Price        float64 `json:"price"`
	AreaSqm      float64 `json:"area_sqm"`
	Rooms        int     `json:"rooms"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	PropertyType string  `json:"property_type,omitempty"`
}

func toDTO(l *domlisting.Listing) listingDTO {
	return listingDTO{
		ID:           l.ID(),
		Price:        l.Price(),
		AreaSqm:      l.AreaSqm(),
		Rooms:        l.Rooms(),
		Lat:          l.Location().Lat,
		Lon:          l.Location().Lon,
		PropertyType: l.PropertyType(),
	}
}

func unmarshalListing(data []byte) (domlisting.Listing, error) {
	var dto listingDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return domlisting.Listing{}, fmt.Errorf("unmarshal listing: %w", err)
	}

	l, err := domlisting.New(
		dto.ID, dto.Price, dto.AreaSqm, dto.Rooms,
		geo.Point{Lat: dto.Lat, Lon: dto.Lon},
		dto.PropertyType,
	)
	if err != nil {
		return domlisting.Listing{}, fmt.Errorf("invalid stored listing %s: %w", dto.ID, err)
	}
	return l, nil
}
