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
	"github.com/medtech/go-cds/internal/domain/patient"
)

// PatientStore persists patient records.
type PatientStore interface {
	Create(ctx context.Context, p *patient.Patient) error
	GetByID(ctx context.Context, id string) (*patient.Patient, error)
	Update(ctx context.Context, id string, upd patient.Update) (*patient.Patient, error)
	List(ctx context.Context, page, limit int) ([]*patient.Patient, int, error)
}

// PatientHandler handles patient registry endpoints
type PatientHandler struct {
	store  PatientStore
	logger *zap.Logger
}

// NewPatientHandler creates a new handler
func NewPatientHandler(store PatientStore, logger *zap.Logger) *PatientHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatientHandler{store: store, logger: logger}
}

// Routes returns the handler routes
func (h *PatientHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	return r
}

// Create handles POST /patients
func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("patient-handler")
	ctx, span := tracer.Start(ctx, "create_patient")
	defer span.End()

	var p patient.Patient
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := p.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	p.ID = uuid.New().String()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = nil
	span.SetAttributes(attribute.String("patient_id", p.ID))

	if err := h.store.Create(ctx, &p); err != nil {
		h.logger.Error("create patient failed", zap.Error(err),
			zap.String("request_id", middleware.GetRequestID(ctx)))
		jsonError(w, "failed to create patient", http.StatusInternalServerError)
		return
	}

	h.logger.Info("patient created",
		zap.String("id", p.ID),
		zap.String("request_id", middleware.GetRequestID(ctx)),
	)
	writeJSON(w, http.StatusCreated, p)
}

// Get handles GET /patients/{id}
func (h *PatientHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			jsonError(w, "patient not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to load patient", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// List handles GET /patients
func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	items, total, err := h.store.List(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("list patients failed", zap.Error(err))
		jsonError(w, "failed to list patients", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []*patient.Patient{}
	}
	writeJSON(w, http.StatusOK, newPagedResponse(items, total, page, pageSize))
}

// Update handles PUT /patients/{id}. The body is a partial update; absent
// fields keep their stored values.
func (h *PatientHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd patient.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	p, err := h.store.Update(r.Context(), id, upd)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			jsonError(w, "patient not found", http.StatusNotFound)
			return
		}
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info("patient updated", zap.String("id", id))
	writeJSON(w, http.StatusOK, p)
}
