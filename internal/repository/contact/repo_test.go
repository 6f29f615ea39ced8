package contact

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/kailas-cloud/homematch/internal/db"
	"github.com/kailas-cloud/homematch/internal/domain"
	domcontact "github.com/kailas-cloud/homematch/internal/domain/contact"
	"github.com/kailas-cloud/homematch/internal/domain/geo"
)

const storedContact = `{
	"id": "c-1",
	"name": "Alex",
	"budget_min": 100000,
	"budget_max": 200000,
	"area_min_sqm": 60,
	"area_max_sqm": 100,
	"rooms_min": 2,
	"rooms_max": 4,
	"preferred_locations": [{"lat": 52.52, "lon": 13.405, "weight": 2}]
}`

func TestGet_Found(t *testing.T) {
	var gotKey string
	repo := New(&mockStore{
		getFn: func(_ context.Context, key string) ([]byte, error) {
			gotKey = key
			return []byte(storedContact), nil
		},
	})

	c, err := repo.Get(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotKey != "homematch:contact:c-1" {
		t.Errorf("store key = %q, want homematch:contact:c-1", gotKey)
	}
	if c.ID() != "c-1" || c.Name() != "Alex" {
		t.Errorf("id/name = %q/%q", c.ID(), c.Name())
	}
	if c.BudgetMin() != 100_000 || c.BudgetMax() != 200_000 {
		t.Errorf("budget = [%v, %v]", c.BudgetMin(), c.BudgetMax())
	}
	prefs := c.Preferred()
	if len(prefs) != 1 || prefs[0].Weight != 2 || prefs[0].Location.Lat != 52.52 {
		t.Errorf("preferred = %+v", prefs)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := New(&mockStore{
		getFn: func(context.Context, string) ([]byte, error) {
			return nil, db.ErrKeyNotFound
		},
	})

	if _, err := repo.Get(context.Background(), "ghost"); !errors.Is(err, domain.ErrContactNotFound) {
		t.Errorf("got %v, want ErrContactNotFound", err)
	}
}

func TestGet_StoreFailure(t *testing.T) {
	repo := New(&mockStore{
		getFn: func(context.Context, string) ([]byte, error) {
			return nil, errors.New("connection refused")
		},
	})

	if _, err := repo.Get(context.Background(), "c-1"); !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Errorf("got %v, want ErrUpstreamUnavailable", err)
	}
}

func TestGet_CorruptBlob(t *testing.T) {
	repo := New(&mockStore{
		getFn: func(context.Context, string) ([]byte, error) {
			return []byte("{not json"), nil
		},
	})

	if _, err := repo.Get(context.Background(), "c-1"); err == nil {
		t.Error("expected error for corrupt blob")
	}
}

func TestAll_SkipsConcurrentlyDeleted(t *testing.T) {
	repo := New(&mockStore{
		smembersFn: func(_ context.Context, key string) ([]string, error) {
			if key != "homematch:contacts" {
				t.Errorf("index key = %q", key)
			}
			return []string{"c-1", "gone"}, nil
		},
		getFn: func(_ context.Context, key string) ([]byte, error) {
			if key == "homematch:contact:gone" {
				return nil, db.ErrKeyNotFound
			}
			return []byte(storedContact), nil
		},
	})

	all, err := repo.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 || all[0].ID() != "c-1" {
		t.Errorf("got %d contacts, want just c-1", len(all))
	}
}

func TestAll_StoreFailure(t *testing.T) {
	repo := New(&mockStore{
		smembersFn: func(context.Context, string) ([]string, error) {
			return nil, errors.New("connection refused")
		},
	})

	if _, err := repo.All(context.Background()); !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Errorf("got %v, want ErrUpstreamUnavailable", err)
	}
}

func TestPut_RoundTrip(t *testing.T) {
	var (
		setKey   string
		setValue []byte
		indexed  []string
	)
	repo := New(&mockStore{
		setFn: func(_ context.Context, key string, value []byte) error {
			setKey, setValue = key, value
			return nil
		},
		saddFn: func(_ context.Context, key string, members ...string) error {
			if key != "homematch:contacts" {
				t.Errorf("index key = %q", key)
			}
			indexed = append(indexed, members...)
			return nil
		},
	})

	c, err := domcontact.New("c-9", "Kim", 150_000, 300_000, 70, 120, 3, 5,
		[]domcontact.LocationPreference{{Location: geo.Point{Lat: 48.85, Lon: 2.35}, Weight: 1}})
	if err != nil {
		t.Fatalf("contact.New: %v", err)
	}
	if err := repo.Put(context.Background(), &c); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if setKey != "homematch:contact:c-9" {
		t.Errorf("set key = %q", setKey)
	}
	if len(indexed) != 1 || indexed[0] != "c-9" {
		t.Errorf("indexed = %v", indexed)
	}
	if !json.Valid(setValue) {
		t.Fatalf("stored blob is not valid JSON: %s", setValue)
	}

	back, err := unmarshalContact(setValue)
	if err != nil {
		t.Fatalf("unmarshal stored blob: %v", err)
	}
	if back.ID() != c.ID() || back.BudgetMax() != c.BudgetMax() || len(back.Preferred()) != 1 {
		t.Errorf("round trip mismatch: %+v", back)
	}
}

func TestDelete(t *testing.T) {
	var delKey string
	var removed []string
	repo := New(&mockStore{
		delFn: func(_ context.Context, key string) error {
			delKey = key
			return nil
		},
		sremFn: func(_ context.Context, _ string, members ...string) error {
			removed = append(removed, members...)
			return nil
		},
	})

	if err := repo.Delete(context.Background(), "c-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if delKey != "homematch:contact:c-1" {
		t.Errorf("del key = %q", delKey)
	}
	if len(removed) != 1 || removed[0] != "c-1" {
		t.Errorf("removed = %v", removed)
	}
}
