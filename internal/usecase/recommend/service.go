package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/homematch/internal/domain/query"
	"github.com/kailas-cloud/homematch/internal/domain/recommendation"
	"github.com/kailas-cloud/homematch/internal/metrics"
	"github.com/kailas-cloud/homematch/internal/usecase/scoring"
)

// scoringConcurrency bounds the parallel candidate-scoring goroutines per request.
const scoringConcurrency = 8

// Service is the ranking orchestrator: it resolves candidates, scores them,
// filters, sorts, paginates, and fronts the whole pipeline with the cache.
type Service struct {
	contacts ContactSource
	listings ListingSource
	blender  *scoring.Blender
	cache    ResultCache
	logger   *zap.Logger
}

// New creates a recommendation service.
func New(
	contacts ContactSource,
	listings ListingSource,
	blender *scoring.Blender,
	c ResultCache,
	logger *zap.Logger,
) *Service {
	return &Service{
		contacts: contacts,
		listings: listings,
		blender:  blender,
		cache:    c,
		logger:   logger,
	}
}

// Recommend returns the ranked page for a query, computing it on cache miss.
func (s *Service) Recommend(ctx context.Context, q query.Query) (recommendation.Result, error) {
	res, err := s.cache.GetOrCompute(ctx, q.CacheKey(), func(ctx context.Context) (recommendation.Result, error) {
		return s.compute(ctx, q)
	})

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecommendationRequestsTotal.
		WithLabelValues(string(q.Direction()), string(q.Mode()), status).Inc()

	if err != nil {
		return recommendation.Result{}, err
	}
	return res, nil
}

// BulkOutcome is the per-subject result of a bulk request.
type BulkOutcome struct {
	SubjectID string
	Result    recommendation.Result
	Err       error
}

// Bulk runs the per-subject pipeline independently for each query. One
// subject failing does not affect the others; per-subject errors are
// reported inline.
func (s *Service) Bulk(ctx context.Context, queries []query.Query) []BulkOutcome {
	out := make([]BulkOutcome, len(queries))

	var g errgroup.Group
	g.SetLimit(scoringConcurrency)
	for i := range queries {
		i := i
		g.Go(func() error {
			res, err := s.Recommend(ctx, queries[i])
			out[i] = BulkOutcome{SubjectID: queries[i].SubjectID(), Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures are inline

	return out
}

func (s *Service) compute(ctx context.Context, q query.Query) (recommendation.Result, error) {
	start := time.Now()

	var (
		entries []recommendation.Entry
		err     error
	)
	switch q.Direction() {
	case query.ContactsForListing:
		entries, err = s.scoreContacts(ctx, q)
	default:
		entries, err = s.scoreListings(ctx, q)
	}
	if err != nil {
		return recommendation.Result{}, err
	}

	metrics.RecommendationScoringDuration.
		WithLabelValues(string(q.Direction()), string(q.Mode())).
		Observe(time.Since(start).Seconds())
	metrics.RecommendationCandidatesScored.
		WithLabelValues(string(q.Direction())).Observe(float64(len(entries)))

	res := assemble(q, entries)
	s.logger.Debug("Computed recommendations",
		zap.String("subject_id", q.SubjectID()),
		zap.String("direction", string(q.Direction())),
		zap.String("mode", string(q.Mode())),
		zap.Int("candidates", len(entries)),
		zap.Int("returned", len(res.Entries)),
		zap.Duration("took", time.Since(start)),
	)
	return res, nil
}

// scoreListings ranks all listings for a contact subject.
func (s *Service) scoreListings(ctx context.Context, q query.Query) ([]recommendation.Entry, error) {
	subject, err := s.contacts.Get(ctx, q.SubjectID())
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	candidates, err := s.listings.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}

	entries := make([]recommendation.Entry, len(candidates))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(scoringConcurrency)
	for i := range candidates {
		i := i
		g.Go(func() error {
			score, expl := s.blender.Score(&subject, &candidates[i], q.Mode())
			entries[i] = recommendation.Entry{
				CandidateID: candidates[i].ID(),
				Score:       score,
				Explanation: expl,
			}
			return nil
		})
	}
	_ = g.Wait() // scoring is a pure computation and never fails

	return entries, nil
}

// scoreContacts ranks all contacts for a listing subject.
func (s *Service) scoreContacts(ctx context.Context, q query.Query) ([]recommendation.Entry, error) {
	subject, err := s.listings.Get(ctx, q.SubjectID())
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	candidates, err := s.contacts.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	entries := make([]recommendation.Entry, len(candidates))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(scoringConcurrency)
	for i := range candidates {
		i := i
		g.Go(func() error {
			score, expl := s.blender.Score(&candidates[i], &subject, q.Mode())
			entries[i] = recommendation.Entry{
				CandidateID: candidates[i].ID(),
				Score:       score,
				Explanation: expl,
			}
			return nil
		})
	}
	_ = g.Wait()

	return entries, nil
}

// assemble filters by min score, sorts score-descending with an ascending
// candidate-id tie-break, and applies offset and limit. The tie-break makes
// output reproducible regardless of scoring completion order.
func assemble(q query.Query, entries []recommendation.Entry) recommendation.Result {
	kept := make([]recommendation.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Score >= q.MinScore() {
			kept = append(kept, e)
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].CandidateID < kept[j].CandidateID
	})

	total := len(kept)
	start := q.Offset()
	if start > total {
		start = total
	}
	end := start + q.Limit()
	if end > total {
		end = total
	}

	return recommendation.Result{
		SubjectID: q.SubjectID(),
		Entries:   kept[start:end],
		Total:     total,
	}
}
