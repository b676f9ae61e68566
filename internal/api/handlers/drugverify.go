package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/medtech/go-cds/internal/api/middleware"
	"github.com/medtech/go-cds/internal/domain/drugcheck"
	"github.com/medtech/go-cds/internal/observability/metrics"
)

// 8 MiB ceiling for uploaded packaging images.
const maxImageBytes = 8 << 20

// DrugDecider produces an authenticity verdict, remote or rule-based.
type DrugDecider interface {
	VerifyDrug(ctx context.Context, in drugcheck.Input) *drugcheck.Result
}

// DrugStore persists verification records.
type DrugStore interface {
	Save(ctx context.Context, rec *drugcheck.Record) error
	History(ctx context.Context, page, limit int) ([]*drugcheck.Record, int, error)
}

// DrugVerifyHandler handles drug verification endpoints
type DrugVerifyHandler struct {
	decider DrugDecider
	store   DrugStore
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewDrugVerifyHandler creates a new handler
func NewDrugVerifyHandler(decider DrugDecider, store DrugStore, m *metrics.Metrics, logger *zap.Logger) *DrugVerifyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DrugVerifyHandler{decider: decider, store: store, metrics: m, logger: logger}
}

// Routes returns the handler routes
func (h *DrugVerifyHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Verify)
	r.Get("/history", h.History)
	return r
}

// Verify handles POST /verify. Accepts either a JSON body or multipart form
// data with an optional packaging image under the "image" field.
func (h *DrugVerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("drugverify-handler")
	ctx, span := tracer.Start(ctx, "verify_drug")
	defer span.End()

	start := time.Now()

	in, err := h.decodeInput(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := h.decider.VerifyDrug(ctx, in)
	span.SetAttributes(
		attribute.String("drug.status", string(result.Status)),
		attribute.String("drug.source", string(result.Source)),
	)

	rec := &drugcheck.Record{
		ID:        uuid.New().String(),
		Result:    *result,
		CreatedAt: time.Now().UTC(),
	}
	if claims := middleware.GetClaims(ctx); claims != nil {
		rec.VerifiedBy = claims.UserID
	}

	if err := h.store.Save(ctx, rec); err != nil {
		h.logger.Error("save verification failed", zap.Error(err),
			zap.String("request_id", middleware.GetRequestID(ctx)))
		jsonError(w, "failed to save verification", http.StatusInternalServerError)
		return
	}

	if h.metrics != nil {
		h.metrics.DrugVerifications.WithLabelValues(string(result.Status), string(result.Source)).Inc()
		if result.Source == drugcheck.SourceRuleBased {
			h.metrics.DrugFallbacks.Inc()
		}
		h.metrics.ProcessingDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())
	}

	h.logger.Info("drug verified",
		zap.String("id", rec.ID),
		zap.String("batch", result.BatchNumber),
		zap.String("status", string(result.Status)),
		zap.String("source", string(result.Source)),
		zap.String("request_id", middleware.GetRequestID(ctx)),
	)

	writeJSON(w, http.StatusCreated, rec)
}

func (h *DrugVerifyHandler) decodeInput(r *http.Request) (drugcheck.Input, error) {
	var in drugcheck.Input

	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return in, errInvalidBody
		}
		return in, nil
	}

	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		return in, errInvalidBody
	}
	in.DrugName = r.FormValue("drugName")
	in.BatchNumber = r.FormValue("batchNumber")
	in.Manufacturer = r.FormValue("manufacturer")

	file, _, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		in.Image, err = io.ReadAll(io.LimitReader(file, maxImageBytes))
		if err != nil {
			return in, errInvalidBody
		}
	}
	return in, nil
}

var errInvalidBody = errors.New("invalid request body")

// History handles GET /verify/history
func (h *DrugVerifyHandler) History(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	records, total, err := h.store.History(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("list verification history failed", zap.Error(err))
		jsonError(w, "failed to list verification history", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*drugcheck.Record{}
	}
	writeJSON(w, http.StatusOK, newPagedResponse(records, total, page, pageSize))
}
