package homematch

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	addrs    []string
	username string
	password string
	db       int

	dimensions int
	priceBins  []float64
	areaBins   []float64
	roomsBins  []float64

	distanceDecay float64

	priceWeight    float64
	areaWeight     float64
	roomsWeight    float64
	locationWeight float64

	cacheCapacity int
	cacheTTL      time.Duration

	logger *zap.Logger
}

// WithRedis sets the Redis connection address and password.
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithRedisUsername sets the Redis ACL username.
func WithRedisUsername(username string) Option {
	return func(c *clientConfig) {
		c.username = username
	}
}

// WithRedisDB selects a logical Redis database.
func WithRedisDB(db int) Option {
	return func(c *clientConfig) {
		c.db = db
	}
}

// WithCatalog overrides the bin-embedding catalog layout. Bin edges must be
// strictly ascending.
func WithCatalog(dimensions int, priceBins, areaBins, roomsBins []float64) Option {
	return func(c *clientConfig) {
		c.dimensions = dimensions
		c.priceBins = priceBins
		c.areaBins = areaBins
		c.roomsBins = roomsBins
	}
}

// WithDistanceDecay sets the per-km exponential decay of location affinity.
func WithDistanceDecay(decay float64) Option {
	return func(c *clientConfig) {
		c.distanceDecay = decay
	}
}

// WithWeights sets the score blending weights. They must sum to 1.
func WithWeights(price, area, rooms, location float64) Option {
	return func(c *clientConfig) {
		c.priceWeight = price
		c.areaWeight = area
		c.roomsWeight = rooms
		c.locationWeight = location
	}
}

// WithCache sets the recommendation cache capacity and entry TTL.
func WithCache(capacity int, ttl time.Duration) Option {
	return func(c *clientConfig) {
		c.cacheCapacity = capacity
		c.cacheTTL = ttl
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// QueryOption configures a single recommendation request.
type QueryOption func(*queryConfig)

type queryConfig struct {
	mode     Mode
	minScore float64
	limit    int
	offset   int
}

// WithMode selects the scoring strategy. Defaults to ModeEnhanced.
func WithMode(m Mode) QueryOption {
	return func(q *queryConfig) {
		q.mode = m
	}
}

// WithMinScore filters out candidates scoring below the threshold.
func WithMinScore(minScore float64) QueryOption {
	return func(q *queryConfig) {
		q.minScore = minScore
	}
}

// WithLimit sets the page size.
func WithLimit(limit int) QueryOption {
	return func(q *queryConfig) {
		q.limit = limit
	}
}

// WithOffset skips the first ranked entries.
func WithOffset(offset int) QueryOption {
	return func(q *queryConfig) {
		q.offset = offset
	}
}
