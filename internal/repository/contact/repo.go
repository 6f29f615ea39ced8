package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/homematch/internal/db"
	"github.com/kailas-cloud/homematch/internal/domain"
	domcontact "github.com/kailas-cloud/homematch/internal/domain/contact"
	"github.com/kailas-cloud/homematch/internal/domain/geo"
)

var (
	keyPrefix = domain.KeyPrefix + "contact:"
	indexKey  = domain.KeyPrefix + "contacts"
)

// store is the consumer interface for contacts (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// Repo implements usecase/recommend.ContactSource over a key-value store.
// Contacts live as JSON blobs under homematch:contact:<id>, with an id set
// at homematch:contacts for enumeration.
type Repo struct {
	store store
}

// New creates a contact repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Get returns a contact by id.
func (r *Repo) Get(ctx context.Context, id string) (domcontact.Contact, error) {
	data, err := r.store.Get(ctx, keyPrefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domcontact.Contact{}, domain.ErrContactNotFound
		}
		return domcontact.Contact{}, fmt.Errorf("%w: get contact %s: %w", domain.ErrUpstreamUnavailable, id, err)
	}
	return unmarshalContact(data)
}

// All returns every stored contact. Ids present in the index but missing
// their blob (deleted concurrently) are skipped.
func (r *Repo) All(ctx context.Context) ([]domcontact.Contact, error) {
	ids, err := r.store.SMembers(ctx, indexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: list contacts: %w", domain.ErrUpstreamUnavailable, err)
	}

	out := make([]domcontact.Contact, 0, len(ids))
	for _, id := range ids {
		c, err := r.Get(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrContactNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Put stores a contact and registers it in the id index.
func (r *Repo) Put(ctx context.Context, c *domcontact.Contact) error {
	data, err := json.Marshal(toDTO(c))
	if err != nil {
		return fmt.Errorf("marshal contact: %w", err)
	}
	if err := r.store.Set(ctx, keyPrefix+c.ID(), data); err != nil {
		return fmt.Errorf("set contact %s: %w", c.ID(), err)
	}
	if err := r.store.SAdd(ctx, indexKey, c.ID()); err != nil {
		return fmt.Errorf("index contact %s: %w", c.ID(), err)
	}
	return nil
}

// Delete removes a contact and its index entry.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, keyPrefix+id); err != nil {
		return fmt.Errorf("del contact %s: %w", id, err)
	}
	if err := r.store.SRem(ctx, indexKey, id); err != nil {
		return fmt.Errorf("unindex contact %s: %w", id, err)
	}
	return nil
}

type locationDTO struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Weight float64 `json:"weight"`
}

type contactDTO struct {
	ID         string        `json:"id"`
	Name       string        `json:"name,omitempty"`
	BudgetMin  float64       `json:"budget_min"`
	BudgetMax  float64       `json:"budget_max"`
	AreaMinSqm float64       `json:"area_min_sqm"`
	AreaMaxSqm float64       `json:"area_max_sqm"`
	RoomsMin   int           `json:"rooms_min"`
	RoomsMax   int           `json:"rooms_max"`
	Preferred  []locationDTO `json:"preferred_locations,omitempty"`
}

func toDTO(c *domcontact.Contact) contactDTO {
	prefs := make([]locationDTO, 0, len(c.Preferred()))
	for _, p := range c.Preferred() {
		prefs = append(prefs, locationDTO{Lat: p.Location.Lat, Lon: p.Location.Lon, Weight: p.Weight})
	}
	return contactDTO{
		ID:         c.ID(),
		Name:       c.Name(),
		BudgetMin:  c.BudgetMin(),
		BudgetMax:  c.BudgetMax(),
		AreaMinSqm: c.AreaMinSqm(),
		AreaMaxSqm: c.AreaMaxSqm(),
		RoomsMin:   c.RoomsMin(),
		RoomsMax:   c.RoomsMax(),
		Preferred:  prefs,
	}
}

func unmarshalContact(data []byte) (domcontact.Contact, error) {
	var dto contactDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return domcontact.Contact{}, fmt.Errorf("unmarshal contact: %w", err)
	}

	prefs := make([]domcontact.LocationPreference, 0, len(dto.Preferred))
	for _, p := range dto.Preferred {
		prefs = append(prefs, domcontact.LocationPreference{
			Location: geo.Point{Lat: p.Lat, Lon: p.Lon},
			Weight:   p.Weight,
		})
	}

	c, err := domcontact.New(
		dto.ID, dto.Name,
		dto.BudgetMin, dto.BudgetMax,
		dto.AreaMinSqm, dto.AreaMaxSqm,
		dto.RoomsMin, dto.RoomsMax,
		prefs,
	)
	if err != nil {
		return domcontact.Contact{}, fmt.Errorf("invalid stored contact %s: %w", dto.ID, err)
	}
	return c, nil
}
