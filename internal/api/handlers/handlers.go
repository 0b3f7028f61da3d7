package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dvloznov/finassist/internal/api/middleware"
	"github.com/dvloznov/finassist/internal/categorize"
	"github.com/dvloznov/finassist/internal/dispatch"
	infraBQ "github.com/dvloznov/finassist/internal/infra/bigquery"
	"github.com/dvloznov/finassist/internal/jobs"
	"github.com/dvloznov/finassist/internal/logger"
	"github.com/dvloznov/finassist/internal/record"
	"github.com/dvloznov/finassist/internal/schema"
	"github.com/dvloznov/finassist/internal/validation"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies read by the handlers.
const maxBodyBytes = 1 << 20

// Dispatcher runs operation envelopes.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) *dispatch.Result
	DispatchJSON(ctx context.Context, body []byte) *dispatch.Result
}

// OperationsHandler handles envelope dispatch, both inline and queued.
type OperationsHandler struct {
	dispatcher Dispatcher
	publisher  jobs.Publisher
	structs    *validator.Validate
	log        zerolog.Logger
}

// NewOperationsHandler creates a new operations handler. publisher may be
// nil, in which case ?async=true is rejected.
func NewOperationsHandler(d Dispatcher, publisher jobs.Publisher, log zerolog.Logger) *OperationsHandler {
	return &OperationsHandler{
		dispatcher: d,
		publisher:  publisher,
		structs:    validator.New(),
		log:        log,
	}
}

// StatusFor maps a Result to its HTTP status code.
func StatusFor(res *dispatch.Result) int {
	if res.Success {
		return http.StatusCreated
	}
	switch res.ErrorKind {
	case dispatch.KindMalformedRequest, dispatch.KindInvalidEntity, dispatch.KindEmptyData:
		return http.StatusBadRequest
	case dispatch.KindFieldValidationFailure:
		return http.StatusUnprocessableEntity
	case dispatch.KindUnsupportedOperation:
		return http.StatusNotImplemented
	case dispatch.KindPersistenceFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Dispatch handles POST /api/operations
func (h *OperationsHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		h.enqueue(w, r, body)
		return
	}

	res := h.dispatcher.DispatchJSON(ctx, body)
	middleware.WriteJSON(w, StatusFor(res), res)
}

func (h *OperationsHandler) enqueue(w http.ResponseWriter, r *http.Request, body []byte) {
	ctx := r.Context()
	log := requestLogger(ctx, h.log)

	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Async dispatch is not enabled")
		return
	}

	var req dispatch.Request
	if err := json.Unmarshal(body, &req); err != nil || h.structs.Struct(req) != nil {
		// Malformed envelopes are answered inline with the usual failure Result.
		res := h.dispatcher.DispatchJSON(ctx, body)
		middleware.WriteJSON(w, StatusFor(res), res)
		return
	}

	job := &jobs.OperationJob{Request: req}
	if err := h.publisher.Publish(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue operation")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue operation")
		return
	}

	log.Info().
		Str("job_id", job.JobID).
		Str("operation", req.Operation).
		Str("entity", req.Entity).
		Msg("Operation enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// RecordsHandler exposes validation and categorization without persisting.
type RecordsHandler struct {
	categorizer categorize.Categorizer
	structs     *validator.Validate
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(c categorize.Categorizer) *RecordsHandler {
	return &RecordsHandler{
		categorizer: c,
		structs:     validator.New(),
	}
}

// ValidateResponse reports what a CREATE of the record would be rejected for.
type ValidateResponse struct {
	Valid       bool                    `json:"valid"`
	Entity      string                  `json:"entity"`
	Missing     []string                `json:"missing"`
	Pending     []string                `json:"pending"`
	Inferred    *categorize.Suggestion  `json:"inferred,omitempty"`
	FieldErrors []validation.FieldError `json:"field_errors"`
}

// Validate handles POST /api/validate
func (h *RecordsHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Entity string      `json:"entity" validate:"required"`
		Data   record.Data `json:"data"`
	}

	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.structs.Struct(req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "entity is required")
		return
	}

	s, err := schema.Resolve(req.Entity)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec := record.FromData(s, req.Data)
	resp := ValidateResponse{Entity: s.Name}
	if sug, ok := categorize.ResolvePending(r.Context(), h.categorizer, rec); ok {
		resp.Inferred = &sug
	}
	resp.Missing = nonNil(rec.Missing())
	resp.Pending = nonNil(rec.PendingFields())
	resp.FieldErrors = validation.ValidateRecord(rec)
	if resp.FieldErrors == nil {
		resp.FieldErrors = []validation.FieldError{}
	}
	resp.Valid = len(resp.FieldErrors) == 0

	middleware.WriteJSON(w, http.StatusOK, resp)
}

// Categorize handles POST /api/categorize
func (h *RecordsHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Establishment string `json:"establishment" validate:"required"`
		Description   string `json:"description"`
	}

	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.structs.Struct(req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "establishment is required")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, h.categorizer.Suggest(r.Context(), req.Establishment, req.Description))
}

// CategoriesHandler handles category-related endpoints.
type CategoriesHandler struct {
	taxonomy *categorize.Taxonomy
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(taxonomy *categorize.Taxonomy) *CategoriesHandler {
	return &CategoriesHandler{taxonomy: taxonomy}
}

// ListCategories handles GET /api/categories
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.taxonomy.Categories()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// UsersHandler serves user context for upstream callers.
type UsersHandler struct {
	provider infraBQ.ContextProvider
	log      zerolog.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(provider infraBQ.ContextProvider, log zerolog.Logger) *UsersHandler {
	return &UsersHandler{provider: provider, log: log}
}

// GetContext handles GET /api/users/{id}/context
func (h *UsersHandler) GetContext(w http.ResponseWriter, r *http.Request, userID string) {
	ctx := r.Context()

	if strings.TrimSpace(userID) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	uc, err := h.provider.UserContext(ctx, userID)
	if errors.Is(err, infraBQ.ErrUserNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		requestLogger(ctx, h.log).Error().Err(err).Str("user_id", userID).Msg("Failed to load user context")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load user context")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, uc)
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		if !errors.Is(err, jobs.ErrJobNotFound) {
			requestLogger(ctx, h.log).Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		}
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Entity: strings.ToLower(query.Get("entity")),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		requestLogger(ctx, h.log).Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// requestLogger prefers the request-scoped logger installed by
// middleware.Logger.
func requestLogger(ctx context.Context, fallback zerolog.Logger) *zerolog.Logger {
	if l, ok := ctx.Value(logger.LoggerKey).(zerolog.Logger); ok {
		return &l
	}
	return &fallback
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
