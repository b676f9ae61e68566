package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/medtech/go-cds/internal/domain/recommend"
	"github.com/medtech/go-cds/internal/observability/metrics"
)

// RecommendDecider produces a drug category recommendation, remote or
// rule-based.
type RecommendDecider interface {
	RecommendDrug(ctx context.Context, in recommend.Input) *recommend.Result
}

// PredictionHandler handles decision-support prediction endpoints
type PredictionHandler struct {
	decider RecommendDecider
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewPredictionHandler creates a new handler
func NewPredictionHandler(decider RecommendDecider, m *metrics.Metrics, logger *zap.Logger) *PredictionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PredictionHandler{decider: decider, metrics: m, logger: logger}
}

// Routes returns the handler routes
func (h *PredictionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/drug", h.RecommendDrug)
	return r
}

// recommendationResponse carries the recommendation plus the advisory notice.
type recommendationResponse struct {
	recommend.Result
	Disclaimer string `json:"disclaimer"`
}

// RecommendDrug handles POST /predict/drug. The recommendation is advisory
// and is not persisted.
func (h *PredictionHandler) RecommendDrug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("prediction-handler")
	ctx, span := tracer.Start(ctx, "recommend_drug")
	defer span.End()

	start := time.Now()

	var in recommend.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if in.Condition == "" {
		jsonError(w, "condition is required", http.StatusBadRequest)
		return
	}
	if in.Age < 0 || in.Age > 150 {
		jsonError(w, "age must be between 0 and 150", http.StatusBadRequest)
		return
	}

	result := h.decider.RecommendDrug(ctx, in)
	span.SetAttributes(
		attribute.String("recommend.category", result.DrugCategory),
		attribute.String("recommend.source", string(result.Source)),
	)

	if h.metrics != nil {
		h.metrics.ProcessingDuration.WithLabelValues("recommend").Observe(time.Since(start).Seconds())
	}

	h.logger.Info("drug recommended",
		zap.String("category", result.DrugCategory),
		zap.String("source", string(result.Source)),
	)

	writeJSON(w, http.StatusOK, recommendationResponse{
		Result:     *result,
		Disclaimer: medicalDisclaimer,
	})
}
