package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no patient matches the lookup.
var ErrNotFound = errors.New("patient not found")

// Repository persists patient records.
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

// Create inserts a patient record.
func (r *Repository) Create(ctx context.Context, p *Patient) error {
	query := `
		INSERT INTO patients
		(id, name, age, gender, contact, emergency_contact, medical_history, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Age, p.Gender, p.Contact,
		p.EmergencyContact, p.MedicalHistory, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

// GetByID retrieves a patient by identifier.
func (r *Repository) GetByID(ctx context.Context, id string) (*Patient, error) {
	p, err := scanPatient(r.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Update applies a partial update and returns the updated record.
func (r *Repository) Update(ctx context.Context, id string, upd Update) (*Patient, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := upd.Apply(p); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	p.UpdatedAt = &now

	query := `
		UPDATE patients
		SET name = $1, age = $2, gender = $3, contact = $4,
		    emergency_contact = $5, medical_history = $6, updated_at = $7
		WHERE id = $8
	`
	tag, err := r.pool.Exec(ctx, query,
		p.Name, p.Age, p.Gender, p.Contact,
		p.EmergencyContact, p.MedicalHistory, p.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return p, nil
}

// List returns a page of patients, newest first, with the total count.
func (r *Repository) List(ctx context.Context, page, limit int) ([]*Patient, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	offset := (page - 1) * limit
	rows, err := r.pool.Query(ctx, selectColumns+` ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

const selectColumns = `
	SELECT id, name, age, gender, contact, emergency_contact, medical_history,
	       created_at, updated_at
	FROM patients`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (*Patient, error) {
	p := &Patient{}
	err := row.Scan(
		&p.ID, &p.Name, &p.Age, &p.Gender, &p.Contact,
		&p.EmergencyContact, &p.MedicalHistory, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
