package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/medtech/go-cds/internal/api/middleware"
	"github.com/medtech/go-cds/internal/domain/prescription"
	"github.com/medtech/go-cds/internal/observability/metrics"
)

// PrescriptionStore persists prescriptions.
type PrescriptionStore interface {
	Create(ctx context.Context, p *prescription.Prescription) error
	GetByID(ctx context.Context, id string) (*prescription.Prescription, error)
	GetByHash(ctx context.Context, hash string) (*prescription.Prescription, error)
	List(ctx context.Context) ([]*prescription.Prescription, error)
	ListByPatient(ctx context.Context, patientID string) ([]*prescription.Prescription, error)
	Delete(ctx context.Context, id string) error
}

// PrescriptionHandler handles prescription endpoints
type PrescriptionHandler struct {
	store   PrescriptionStore
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewPrescriptionHandler creates a new handler
func NewPrescriptionHandler(store PrescriptionStore, m *metrics.Metrics, logger *zap.Logger) *PrescriptionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrescriptionHandler{store: store, metrics: m, logger: logger}
}

// Routes returns the handler routes. requireWriter gates issuance and
// deletion to prescribing roles.
func (h *PrescriptionHandler) Routes(requireWriter func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/verify/{hash}", h.VerifyByHash)
	r.Get("/patient/{patientID}", h.ListByPatient)
	r.With(requireWriter).Post("/", h.Create)
	r.With(requireWriter).Delete("/{id}", h.Delete)
	return r
}

// Create handles POST /prescriptions
func (h *PrescriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("prescription-handler")
	ctx, span := tracer.Start(ctx, "create_prescription")
	defer span.End()

	var p prescription.Prescription
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := p.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	claims := middleware.GetClaims(ctx)
	if claims != nil {
		p.DoctorID = claims.UserID
		if p.DoctorName == "" {
			p.DoctorName = claims.Name
		}
	}

	p.ID = uuid.New().String()
	p.CreatedAt = time.Now().UTC()
	p.VerificationHash = prescription.GenerateHash(p.PatientID, p.DoctorID, p.CreatedAt)
	span.SetAttributes(attribute.String("prescription_id", p.ID))

	if err := h.store.Create(ctx, &p); err != nil {
		h.logger.Error("create prescription failed", zap.Error(err),
			zap.String("request_id", middleware.GetRequestID(ctx)))
		jsonError(w, "failed to create prescription", http.StatusInternalServerError)
		return
	}

	if h.metrics != nil {
		h.metrics.PrescriptionsCreated.Inc()
	}
	h.logger.Info("prescription created",
		zap.String("id", p.ID),
		zap.String("patient_id", p.PatientID),
		zap.String("request_id", middleware.GetRequestID(ctx)),
	)

	writeJSON(w, http.StatusCreated, p)
}

// Get handles GET /prescriptions/{id}
func (h *PrescriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, prescription.ErrNotFound) {
			jsonError(w, "prescription not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to load prescription", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// VerifyByHash handles GET /prescriptions/verify/{hash}, the pharmacy-side
// lookup by the printed verification code.
func (h *PrescriptionHandler) VerifyByHash(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetByHash(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		if errors.Is(err, prescription.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"valid": false,
				"error": "no prescription matches this code",
			})
			return
		}
		jsonError(w, "failed to verify prescription", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":        true,
		"prescription": p,
	})
}

// List handles GET /prescriptions
func (h *PrescriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("list prescriptions failed", zap.Error(err))
		jsonError(w, "failed to list prescriptions", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []*prescription.Prescription{}
	}
	writeJSON(w, http.StatusOK, items)
}

// ListByPatient handles GET /prescriptions/patient/{patientID}
func (h *PrescriptionHandler) ListByPatient(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListByPatient(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		h.logger.Error("list patient prescriptions failed", zap.Error(err))
		jsonError(w, "failed to list prescriptions", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []*prescription.Prescription{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Delete handles DELETE /prescriptions/{id}
func (h *PrescriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, prescription.ErrNotFound) {
			jsonError(w, "prescription not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to delete prescription", http.StatusInternalServerError)
		return
	}
	h.logger.Info("prescription deleted", zap.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}
