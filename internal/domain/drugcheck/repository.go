package drugcheck

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/medtech/go-cds/internal/infrastructure/postgres"
	"github.com/medtech/go-cds/internal/infrastructure/redpanda"
)

// Repository persists verification records and emits verification events
// through the transactional outbox.
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

// Save inserts a record and the matching outbox entry in one transaction.
func (r *Repository) Save(ctx context.Context, rec *Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	var details []byte
	if rec.Result.Details != nil {
		details, err = json.Marshal(rec.Result.Details)
		if err != nil {
			return fmt.Errorf("marshal details: %w", err)
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO drug_verifications
		(id, drug_name, batch_number, is_authentic, confidence, verification_status,
		 warning_message, source, details, verified_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.Exec(ctx, query,
		rec.ID,
		rec.Result.DrugName,
		rec.Result.BatchNumber,
		rec.Result.IsAuthentic,
		rec.Result.Confidence,
		rec.Result.Status,
		rec.Result.Warning,
		rec.Result.Source,
		details,
		rec.VerifiedBy,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert verification: %w", err)
	}

	entry := &postgres.OutboxEntry{
		AggregateID:   rec.ID,
		AggregateType: "DrugVerification",
		EventType:     "DrugVerified",
		Payload:       payload,
		KafkaTopic:    redpanda.TopicDrugVerifications,
		KafkaKey:      rec.ID,
	}
	if err := postgres.WriteEntry(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// History returns a page of verification records, newest first, plus the
// total count.
func (r *Repository) History(ctx context.Context, page, limit int) ([]*Record, int, error) {
	if page < 1 {
		page = 1
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM drug_verifications`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	query := `
		SELECT id, drug_name, batch_number, is_authentic, confidence,
		       verification_status, warning_message, source, details,
		       verified_by, created_at
		FROM drug_verifications
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec := &Record{}
		var details []byte
		err := rows.Scan(
			&rec.ID, &rec.Result.DrugName, &rec.Result.BatchNumber,
			&rec.Result.IsAuthentic, &rec.Result.Confidence, &rec.Result.Status,
			&rec.Result.Warning, &rec.Result.Source, &details,
			&rec.VerifiedBy, &rec.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan failed: %w", err)
		}
		if len(details) > 0 {
			rec.Result.Details = &Details{}
			if err := json.Unmarshal(details, rec.Result.Details); err != nil {
				return nil, 0, fmt.Errorf("unmarshal details: %w", err)
			}
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}
