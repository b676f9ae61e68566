package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/medtech/go-cds/internal/api/middleware"
	"github.com/medtech/go-cds/internal/domain/triage"
	"github.com/medtech/go-cds/internal/observability/metrics"
)

// Appended to every assessment explanation returned to clients.
const medicalDisclaimer = "⚠️ MEDICAL DISCLAIMER: This is a decision support system. ML outputs are suggestions only. Final authority rests with the licensed medical professional."

// TriageDecider produces an urgency assessment, remote or rule-based.
type TriageDecider interface {
	Triage(ctx context.Context, in triage.Input, forceAI bool) *triage.Result
}

// TriageStore persists triage records.
type TriageStore interface {
	Save(ctx context.Context, rec *triage.Record) error
	GetByID(ctx context.Context, id string) (*triage.Record, error)
	List(ctx context.Context, page, limit int) ([]*triage.Record, int, error)
	ListByPatient(ctx context.Context, patientID string) ([]*triage.Record, error)
}

// TriageHandler handles triage endpoints
type TriageHandler struct {
	decider TriageDecider
	store   TriageStore
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewTriageHandler creates a new handler
func NewTriageHandler(decider TriageDecider, store TriageStore, m *metrics.Metrics, logger *zap.Logger) *TriageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TriageHandler{decider: decider, store: store, metrics: m, logger: logger}
}

// Routes returns the handler routes
func (h *TriageHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Assess)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/patient/{patientID}", h.ListByPatient)
	return r
}

// AssessRequest is the request body for a triage submission
type AssessRequest struct {
	triage.Input
	ForceAI bool `json:"forceAI,omitempty"`
}

// Assess handles POST /triage
func (h *TriageHandler) Assess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("triage-handler")
	ctx, span := tracer.Start(ctx, "assess_triage")
	defer span.End()

	start := time.Now()

	var req AssessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PatientName == "" {
		jsonError(w, "patientName is required", http.StatusBadRequest)
		return
	}
	if req.Symptoms == "" {
		jsonError(w, "symptoms is required", http.StatusBadRequest)
		return
	}
	if req.Age < 0 {
		jsonError(w, "age must be non-negative", http.StatusBadRequest)
		return
	}
	if req.PatientID == "" {
		req.PatientID = uuid.New().String()
	}

	result := h.decider.Triage(ctx, req.Input, req.ForceAI)
	span.SetAttributes(
		attribute.Int("triage.level", result.Level),
		attribute.String("triage.source", string(result.Source)),
	)

	rec := &triage.Record{
		ID:          uuid.New().String(),
		PatientID:   req.PatientID,
		PatientName: req.PatientName,
		Result:      *result,
		CreatedAt:   time.Now().UTC(),
	}
	if req.Vitals != nil {
		vitals, err := json.Marshal(req.Vitals)
		if err == nil {
			rec.Vitals = vitals
		}
	}

	if err := h.store.Save(ctx, rec); err != nil {
		h.logger.Error("save triage result failed", zap.Error(err),
			zap.String("request_id", middleware.GetRequestID(ctx)))
		jsonError(w, "failed to save triage result", http.StatusInternalServerError)
		return
	}

	if h.metrics != nil {
		h.metrics.TriageSubmissions.WithLabelValues(string(result.Category), string(result.Source)).Inc()
		if result.Source == triage.SourceRuleBased {
			h.metrics.TriageFallbacks.Inc()
		}
		h.metrics.ProcessingDuration.WithLabelValues("triage").Observe(time.Since(start).Seconds())
	}

	h.logger.Info("triage assessed",
		zap.String("id", rec.ID),
		zap.String("patient_id", rec.PatientID),
		zap.Int("urgency_level", result.Level),
		zap.String("source", string(result.Source)),
		zap.String("request_id", middleware.GetRequestID(ctx)),
	)

	out := *rec
	out.Result.Explanation = result.Explanation + "\n\n" + medicalDisclaimer
	writeJSON(w, http.StatusCreated, out)
}

// Get handles GET /triage/{id}
func (h *TriageHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, "triage result not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// List handles GET /triage
func (h *TriageHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	records, total, err := h.store.List(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("list triage results failed", zap.Error(err))
		jsonError(w, "failed to list triage results", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*triage.Record{}
	}
	writeJSON(w, http.StatusOK, newPagedResponse(records, total, page, pageSize))
}

// ListByPatient handles GET /triage/patient/{patientID}
func (h *TriageHandler) ListByPatient(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListByPatient(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		h.logger.Error("list patient triage results failed", zap.Error(err))
		jsonError(w, "failed to list triage results", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*triage.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}
