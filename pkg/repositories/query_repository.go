package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/querypilot/querypilot-engine/pkg/database"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// QueryRepository stores immutable query execution history.
type QueryRepository interface {
	// InsertExecution writes one execution record. The record's ID and
	// CreatedAt are assigned here when unset.
	InsertExecution(ctx context.Context, record *models.ExecutionRecord) error

	// ListRecent returns the newest execution records for an org.
	ListRecent(ctx context.Context, orgID int64, limit int) ([]*models.ExecutionRecord, error)
}

type queryRepository struct {
	db *database.DB
}

// NewQueryRepository creates a QueryRepository backed by the admin pool.
func NewQueryRepository(db *database.DB) QueryRepository {
	return &queryRepository{db: db}
}

var _ QueryRepository = (*queryRepository)(nil)

func (r *queryRepository) InsertExecution(ctx context.Context, record *models.ExecutionRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO nl2sql_queries (
			id, org_id, user_id, query_text, sql_generated,
			status, error_message, execution_time_ms, rows_returned, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		record.ID,
		record.OrgID,
		record.UserID,
		record.QueryText,
		record.SQLGenerated,
		record.Status,
		record.ErrorMessage,
		record.ExecutionTimeMs,
		record.RowsReturned,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution record: %w", err)
	}

	return nil
}

func (r *queryRepository) ListRecent(ctx context.Context, orgID int64, limit int) ([]*models.ExecutionRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	const query = `
		SELECT id, org_id, user_id, query_text, sql_generated,
		       status, error_message, execution_time_ms, rows_returned, created_at
		FROM nl2sql_queries
		WHERE org_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list execution records: %w", err)
	}
	defer rows.Close()

	var records []*models.ExecutionRecord
	for rows.Next() {
		var rec models.ExecutionRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.OrgID,
			&rec.UserID,
			&rec.QueryText,
			&rec.SQLGenerated,
			&rec.Status,
			&rec.ErrorMessage,
			&rec.ExecutionTimeMs,
			&rec.RowsReturned,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan execution record: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution records: %w", err)
	}

	return records, nil
}
