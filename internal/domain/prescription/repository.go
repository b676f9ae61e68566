package prescription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no prescription matches the lookup.
var ErrNotFound = errors.New("prescription not found")

// Repository persists prescriptions.
type Repository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{pool: pool, logger: logger}
}

// Create inserts a prescription.
func (r *Repository) Create(ctx context.Context, p *Prescription) error {
	meds, err := json.Marshal(p.Medications)
	if err != nil {
		return fmt.Errorf("marshal medications: %w", err)
	}

	query := `
		INSERT INTO prescriptions
		(id, patient_id, patient_name, doctor_id, doctor_name, diagnosis,
		 medications, instructions, verification_hash, follow_up_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.pool.Exec(ctx, query,
		p.ID, p.PatientID, p.PatientName, p.DoctorID, p.DoctorName,
		p.Diagnosis, meds, p.Instructions, p.VerificationHash,
		p.FollowUpDate, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}
	return nil
}

// GetByID retrieves a prescription by its identifier.
func (r *Repository) GetByID(ctx context.Context, id string) (*Prescription, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = $1`, id)
}

// GetByHash retrieves a prescription by its verification hash. This is the
// pharmacy-side lookup path.
func (r *Repository) GetByHash(ctx context.Context, hash string) (*Prescription, error) {
	return r.getOne(ctx, selectColumns+` WHERE verification_hash = $1`, hash)
}

// List returns all prescriptions, newest first.
func (r *Repository) List(ctx context.Context) ([]*Prescription, error) {
	return r.getMany(ctx, selectColumns+` ORDER BY created_at DESC`)
}

// ListByPatient returns a patient's prescriptions, newest first.
func (r *Repository) ListByPatient(ctx context.Context, patientID string) ([]*Prescription, error) {
	return r.getMany(ctx, selectColumns+` WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
}

// Delete removes a prescription. Returns ErrNotFound when nothing was
// deleted.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM prescriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete prescription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const selectColumns = `
	SELECT id, patient_id, patient_name, doctor_id, doctor_name, diagnosis,
	       medications, instructions, verification_hash, follow_up_date, created_at
	FROM prescriptions`

func (r *Repository) getOne(ctx context.Context, query string, args ...any) (*Prescription, error) {
	p, err := scanPrescription(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *Repository) getMany(ctx context.Context, query string, args ...any) ([]*Prescription, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrescription(row rowScanner) (*Prescription, error) {
	p := &Prescription{}
	var meds []byte
	err := row.Scan(
		&p.ID, &p.PatientID, &p.PatientName, &p.DoctorID, &p.DoctorName,
		&p.Diagnosis, &meds, &p.Instructions, &p.VerificationHash,
		&p.FollowUpDate, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(meds, &p.Medications); err != nil {
		return nil, fmt.Errorf("unmarshal medications: %w", err)
	}
	return p, nil
}
