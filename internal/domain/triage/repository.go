package triage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/medtech/go-cds/internal/infrastructure/postgres"
	"github.com/medtech/go-cds/internal/infrastructure/redpanda"
)

// Repository persists triage records and emits decision events through the
// transactional outbox.
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

// Save inserts a record and writes the matching outbox entry in one
// transaction, so the decision event is published iff the record commits.
func (r *Repository) Save(ctx context.Context, rec *Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO triage_results
		(id, patient_id, patient_name, urgency_level, category, explanation,
		 confidence, source, recommended_action, symptoms, vitals, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = tx.Exec(ctx, query,
		rec.ID,
		rec.PatientID,
		rec.PatientName,
		rec.Result.Level,
		rec.Result.Category,
		rec.Result.Explanation,
		rec.Result.Confidence,
		rec.Result.Source,
		rec.Result.RecommendedAction,
		rec.Result.Symptoms,
		rec.Vitals,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert triage result: %w", err)
	}

	entry := &postgres.OutboxEntry{
		AggregateID:   rec.ID,
		AggregateType: "TriageResult",
		EventType:     "TriageAssessed",
		Payload:       payload,
		KafkaTopic:    redpanda.TopicTriageDecisions,
		KafkaKey:      rec.PatientID,
	}
	if err := postgres.WriteEntry(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetByID retrieves a single record.
func (r *Repository) GetByID(ctx context.Context, id string) (*Record, error) {
	query := selectColumns + ` WHERE id = $1`
	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("triage result not found: %s", id)
	}
	return rec, nil
}

// List returns a page of records ordered by urgency then recency, plus the
// total count.
func (r *Repository) List(ctx context.Context, page, limit int) ([]*Record, int, error) {
	if page < 1 {
		page = 1
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM triage_results`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	query := selectColumns + `
		ORDER BY urgency_level ASC, created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

// ListByPatient returns all records for one patient, newest first.
func (r *Repository) ListByPatient(ctx context.Context, patientID string) ([]*Record, error) {
	query := selectColumns + `
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

const selectColumns = `
	SELECT id, patient_id, patient_name, urgency_level, category, explanation,
	       confidence, source, recommended_action, symptoms, vitals, created_at
	FROM triage_results`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	rec := &Record{}
	err := row.Scan(
		&rec.ID, &rec.PatientID, &rec.PatientName,
		&rec.Result.Level, &rec.Result.Category, &rec.Result.Explanation,
		&rec.Result.Confidence, &rec.Result.Source, &rec.Result.RecommendedAction,
		&rec.Result.Symptoms, &rec.Vitals, &rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	return rec, nil
}
