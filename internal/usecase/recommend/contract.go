package recommend

import (
	"context"

	"github.com/kailas-cloud/homematch/internal/cache"
	"github.com/kailas-cloud/homematch/internal/domain/contact"
	"github.com/kailas-cloud/homematch/internal/domain/listing"
	"github.com/kailas-cloud/homematch/internal/domain/recommendation"
)

// ContactSource reads contacts from the external store.
type ContactSource interface {
	Get(ctx context.Context, id string) (contact.Contact, error)
	All(ctx context.Context) ([]contact.Contact, error)
}

// ListingSource reads listings from the external store.
type ListingSource interface {
	Get(ctx context.Context, id string) (listing.Listing, error)
	All(ctx context.Context) ([]listing.Listing, error)
}

// ResultCache fronts ranked-page computation with single-flight caching.
type ResultCache interface {
	GetOrCompute(ctx context.Context, key string, compute cache.ComputeFunc) (recommendation.Result, error)
}
