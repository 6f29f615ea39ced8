package homematch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/homematch/internal/cache"
	"github.com/kailas-cloud/homematch/internal/db"
	dbRedis "github.com/kailas-cloud/homematch/internal/db/redis"
	"github.com/kailas-cloud/homematch/internal/domain/attention"
	"github.com/kailas-cloud/homematch/internal/domain/catalog"
	"github.com/kailas-cloud/homematch/internal/domain/query"
	contactrepo "github.com/kailas-cloud/homematch/internal/repository/contact"
	listingrepo "github.com/kailas-cloud/homematch/internal/repository/listing"
	recommenduc "github.com/kailas-cloud/homematch/internal/usecase/recommend"
	"github.com/kailas-cloud/homematch/internal/usecase/scoring"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultMinScore         = 0.3
	defaultLimit            = 10
)

// Client is the homematch SDK entry point: the full recommendation pipeline
// embedded in-process, backed by Redis.
type Client struct {
	store       db.Store
	contacts    *contactrepo.Repo
	listings    *listingrepo.Repo
	cache       *cache.Cache
	recommender *recommenduc.Service
}

// New creates a homematch Client and connects to the database.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		dimensions:     32,
		priceBins:      []float64{0, 150_000, 250_000, 350_000, 500_000, 750_000, 1_000_000},
		areaBins:       []float64{0, 50, 75, 100, 150, 200, 300},
		roomsBins:      []float64{0, 1, 2, 3, 4, 5, 6},
		distanceDecay:  0.1,
		priceWeight:    0.35,
		areaWeight:     0.25,
		roomsWeight:    0.10,
		locationWeight: 0.30,
		cacheCapacity:  10000,
		cacheTTL:       time.Hour,
	}
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("homematch: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
		DB:       cfg.db,
	})
	if err != nil {
		return nil, fmt.Errorf("homematch: create redis store: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("homematch: database not ready: %w", err)
	}

	c, err := wireClient(store, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func wireClient(store db.Store, cfg *clientConfig) (*Client, error) {
	cat, err := catalog.New(cfg.dimensions, map[catalog.Attribute][]float64{
		catalog.Price: cfg.priceBins,
		catalog.Area:  cfg.areaBins,
		catalog.Rooms: cfg.roomsBins,
	})
	if err != nil {
		return nil, fmt.Errorf("homematch: build catalog: %w", err)
	}
	pooler, err := attention.NewPooler(cfg.distanceDecay)
	if err != nil {
		return nil, fmt.Errorf("homematch: build pooler: %w", err)
	}
	blender, err := scoring.NewBlender(scoring.Weights{
		Price:    cfg.priceWeight,
		Area:     cfg.areaWeight,
		Rooms:    cfg.roomsWeight,
		Location: cfg.locationWeight,
	}, cat, pooler)
	if err != nil {
		return nil, fmt.Errorf("homematch: build blender: %w", err)
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	resultCache, err := cache.New(cfg.cacheCapacity, cfg.cacheTTL, 0, nil, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("homematch: build cache: %w", err)
	}

	contacts := contactrepo.New(store)
	listings := listingrepo.New(store)

	return &Client{
		store:       store,
		contacts:    contacts,
		listings:    listings,
		cache:       resultCache,
		recommender: recommenduc.New(contacts, listings, blender, resultCache, logger),
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// PutContact stores a contact and invalidates nothing: cached pages expire by TTL.
func (c *Client) PutContact(ctx context.Context, contact Contact) error {
	dc, err := toDomainContact(contact)
	if err != nil {
		return err
	}
	return c.contacts.Put(ctx, &dc)
}

// DeleteContact removes a contact.
func (c *Client) DeleteContact(ctx context.Context, id string) error {
	return c.contacts.Delete(ctx, id)
}

// PutListing stores a listing.
func (c *Client) PutListing(ctx context.Context, listing Listing) error {
	dl, err := toDomainListing(listing)
	if err != nil {
		return err
	}
	return c.listings.Put(ctx, &dl)
}

// DeleteListing removes a listing.
func (c *Client) DeleteListing(ctx context.Context, id string) error {
	return c.listings.Delete(ctx, id)
}

// RecommendListings ranks all listings for a contact.
func (c *Client) RecommendListings(ctx context.Context, contactID string, opts ...QueryOption) (Result, error) {
	return c.recommend(ctx, query.ListingsForContact, contactID, opts)
}

// RecommendContacts ranks all contacts for a listing.
func (c *Client) RecommendContacts(ctx context.Context, listingID string, opts ...QueryOption) (Result, error) {
	return c.recommend(ctx, query.ContactsForListing, listingID, opts)
}

func (c *Client) recommend(ctx context.Context, direction query.Direction, subjectID string, opts []QueryOption) (Result, error) {
	qc := &queryConfig{
		mode:     ModeEnhanced,
		minScore: defaultMinScore,
		limit:    defaultLimit,
	}
	for _, o := range opts {
		o(qc)
	}

	mode, err := query.ParseMode(string(qc.mode))
	if err != nil {
		return Result{}, err
	}
	q, err := query.New(direction, subjectID, mode, qc.minScore, qc.limit, qc.offset)
	if err != nil {
		return Result{}, err
	}

	res, err := c.recommender.Recommend(ctx, q)
	if err != nil {
		return Result{}, err
	}
	return fromDomainResult(res), nil
}
