package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/homematch/internal/domain"
	"github.com/kailas-cloud/homematch/internal/domain/query"
	"github.com/kailas-cloud/homematch/internal/domain/recommendation"
	healthuc "github.com/kailas-cloud/homematch/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/homematch/internal/usecase/recommend"
)

const maxBulkSubjects = 100

// errorCode is the machine-readable error discriminator in responses.
type errorCode string

const (
	codeBadRequest          errorCode = "bad_request"
	codeValidationFailed    errorCode = "validation_failed"
	codeContactNotFound     errorCode = "contact_not_found"
	codeListingNotFound     errorCode = "listing_not_found"
	codeUpstreamUnavailable errorCode = "upstream_unavailable"
	codeUnauthorized        errorCode = "unauthorized"
	codeInternalError       errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// QueryDefaults supplies per-request parameter defaults and caps from config.
type QueryDefaults struct {
	MinScore float64
	Limit    int
	MaxLimit int
	MaxBulk  int
}

// Server exposes the recommendation API over HTTP.
type Server struct {
	recommender   *recommenduc.Service
	health        *healthuc.Service
	defaults      QueryDefaults
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	recommender *recommenduc.Service,
	health *healthuc.Service,
	defaults QueryDefaults,
	logger *zap.Logger,
) *Server {
	if defaults.MaxBulk <= 0 {
		defaults.MaxBulk = maxBulkSubjects
	}
	s := &Server{
		recommender: recommender,
		health:      health,
		defaults:    defaults,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrContactNotFound, http.StatusNotFound, codeContactNotFound),
		sentinelHandler(domain.ErrListingNotFound, http.StatusNotFound, codeListingNotFound),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusServiceUnavailable, codeUpstreamUnavailable),
	}
	return s
}

// RegisterRoutes mounts all API routes on the router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/health", s.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/v1/contacts/{id}/recommendations", s.ContactRecommendations)
	r.Get("/api/v1/listings/{id}/candidates", s.ListingCandidates)
	r.Post("/api/v1/recommendations/bulk", s.BulkRecommendations)
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// ContactRecommendations handles GET /api/v1/contacts/{id}/recommendations.
func (s *Server) ContactRecommendations(w http.ResponseWriter, r *http.Request) {
	s.recommend(w, r, query.ListingsForContact, chi.URLParam(r, "id"))
}

// ListingCandidates handles GET /api/v1/listings/{id}/candidates.
func (s *Server) ListingCandidates(w http.ResponseWriter, r *http.Request) {
	s.recommend(w, r, query.ContactsForListing, chi.URLParam(r, "id"))
}

func (s *Server) recommend(w http.ResponseWriter, r *http.Request, direction query.Direction, subjectID string) {
	q, err := s.queryFromParams(r, direction, subjectID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	res, err := s.recommender.Recommend(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resultToResponse(res))
}

// bulkRequest is the POST /api/v1/recommendations/bulk body.
type bulkRequest struct {
	SubjectIDs []string `json:"subject_ids"`
	Direction  string   `json:"direction"`
	Mode       string   `json:"mode,omitempty"`
	MinScore   *float64 `json:"min_score,omitempty"`
	Limit      *int     `json:"limit,omitempty"`
}

type bulkResultItem struct {
	SubjectID       string                  `json:"subject_id"`
	Error           *errorResponse          `json:"error,omitempty"`
	Recommendations *recommendationResponse `json:"recommendations,omitempty"`
}

type bulkResponse struct {
	TotalSubjects int              `json:"total_subjects"`
	Results       []bulkResultItem `json:"results"`
}

// BulkRecommendations handles POST /api/v1/recommendations/bulk.
func (s *Server) BulkRecommendations(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.SubjectIDs) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "subject_ids is required")
		return
	}
	if len(req.SubjectIDs) > s.defaults.MaxBulk {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"subject_ids exceeds the maximum of "+strconv.Itoa(s.defaults.MaxBulk))
		return
	}

	direction, err := query.ParseDirection(req.Direction)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	mode, err := query.ParseMode(req.Mode)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	minScore := s.defaults.MinScore
	if req.MinScore != nil {
		minScore = *req.MinScore
	}
	limit := s.defaults.Limit
	if req.Limit != nil {
		limit = *req.Limit
	}
	if limit > s.defaults.MaxLimit {
		limit = s.defaults.MaxLimit
	}

	queries := make([]query.Query, 0, len(req.SubjectIDs))
	for _, id := range req.SubjectIDs {
		q, err := query.New(direction, id, mode, minScore, limit, 0)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		queries = append(queries, q)
	}

	outcomes := s.recommender.Bulk(r.Context(), queries)

	resp := bulkResponse{
		TotalSubjects: len(outcomes),
		Results:       make([]bulkResultItem, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		item := bulkResultItem{SubjectID: o.SubjectID}
		if o.Err != nil {
			item.Error = &errorResponse{
				Code:    errorCodeFor(o.Err),
				Message: safeDomainMessage(o.Err),
			}
		} else {
			r := resultToResponse(o.Result)
			item.Recommendations = &r
		}
		resp.Results = append(resp.Results, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// queryFromParams builds a validated query from URL parameters, applying
// configured defaults for the omitted ones.
func (s *Server) queryFromParams(r *http.Request, direction query.Direction, subjectID string) (query.Query, error) {
	params := r.URL.Query()

	mode, err := query.ParseMode(params.Get("mode"))
	if err != nil {
		return query.Query{}, err
	}

	minScore := s.defaults.MinScore
	if raw := params.Get("min_score"); raw != "" {
		minScore, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return query.Query{}, fmt.Errorf("%w: invalid min_score %q", domain.ErrInvalidQuery, raw)
		}
	}

	limit := s.defaults.Limit
	if raw := params.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return query.Query{}, fmt.Errorf("%w: invalid limit %q", domain.ErrInvalidQuery, raw)
		}
	}
	if limit > s.defaults.MaxLimit {
		limit = s.defaults.MaxLimit
	}

	offset := 0
	if raw := params.Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil {
			return query.Query{}, fmt.Errorf("%w: invalid offset %q", domain.ErrInvalidQuery, raw)
		}
	}

	return query.New(direction, subjectID, mode, minScore, limit, offset)
}

// --- response DTOs ---

type locationMatchDTO struct {
	DistanceKm       float64   `json:"distance_km"`
	Score            float64   `json:"score"`
	AttentionWeights []float64 `json:"attention_weights,omitempty"`
}

type explanationDTO struct {
	PriceScore float64          `json:"price_score"`
	AreaScore  float64          `json:"area_score"`
	RoomsScore float64          `json:"rooms_score"`
	Location   locationMatchDTO `json:"location"`
	Reasons    []string         `json:"reasons"`
}

type entryDTO struct {
	CandidateID string         `json:"candidate_id"`
	Score       float64        `json:"score"`
	Explanation explanationDTO `json:"explanation"`
}

type recommendationResponse struct {
	SubjectID string     `json:"subject_id"`
	Entries   []entryDTO `json:"entries"`
	Total     int        `json:"total"`
	ExpiresAt string     `json:"expires_at,omitempty"`
}

func resultToResponse(res recommendation.Result) recommendationResponse {
	entries := make([]entryDTO, 0, len(res.Entries))
	for _, e := range res.Entries {
		entries = append(entries, entryDTO{
			CandidateID: e.CandidateID,
			Score:       e.Score,
			Explanation: explanationDTO{
				PriceScore: e.Explanation.PriceScore,
				AreaScore:  e.Explanation.AreaScore,
				RoomsScore: e.Explanation.RoomsScore,
				Location: locationMatchDTO{
					DistanceKm:       e.Explanation.Location.DistanceKm,
					Score:            e.Explanation.Location.Score,
					AttentionWeights: e.Explanation.Location.Weights,
				},
				Reasons: e.Explanation.Reasons,
			},
		})
	}

	resp := recommendationResponse{
		SubjectID: res.SubjectID,
		Entries:   entries,
		Total:     res.Total,
	}
	if !res.ExpiresAt.IsZero() {
		resp.ExpiresAt = res.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

// --- error handling ---

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// safeDomainMessage returns the sentinel text for known errors and hides
// internal details for everything else.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrContactNotFound,
		domain.ErrListingNotFound,
		domain.ErrInvalidQuery,
		domain.ErrUpstreamUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func errorCodeFor(err error) errorCode {
	switch {
	case errors.Is(err, domain.ErrContactNotFound):
		return codeContactNotFound
	case errors.Is(err, domain.ErrListingNotFound):
		return codeListingNotFound
	case errors.Is(err, domain.ErrInvalidQuery):
		return codeValidationFailed
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return codeUpstreamUnavailable
	default:
		return codeInternalError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
