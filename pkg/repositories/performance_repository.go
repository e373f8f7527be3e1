package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/database"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// PerformanceRepository stores the per-period performance rollups. The
// running-average arithmetic lives in the tracker service; this layer only
// reads and writes rows.
type PerformanceRepository interface {
	// Get returns the aggregate for (orgID, period, datePeriod), or
	// apperrors.ErrNotFound when no row exists yet.
	Get(ctx context.Context, orgID int64, period models.PeriodType, datePeriod time.Time) (*models.PerformanceAggregate, error)

	// Upsert writes the aggregate row, replacing values for an existing
	// (org_id, period_type, date_period) key.
	Upsert(ctx context.Context, agg *models.PerformanceAggregate) error
}

type performanceRepository struct {
	db *database.DB
}

// NewPerformanceRepository creates a PerformanceRepository backed by the
// admin pool.
func NewPerformanceRepository(db *database.DB) PerformanceRepository {
	return &performanceRepository{db: db}
}

var _ PerformanceRepository = (*performanceRepository)(nil)

func (r *performanceRepository) Get(ctx context.Context, orgID int64, period models.PeriodType, datePeriod time.Time) (*models.PerformanceAggregate, error) {
	const query = `
		SELECT org_id, period_type, date_period,
		       total_queries, successful_queries, failed_queries, avg_execution_time_ms
		FROM nl2sql_query_performance
		WHERE org_id = $1 AND period_type = $2 AND date_period = $3`

	var agg models.PerformanceAggregate
	err := r.db.QueryRow(ctx, query, orgID, period, datePeriod).Scan(
		&agg.OrgID,
		&agg.PeriodType,
		&agg.DatePeriod,
		&agg.TotalQueries,
		&agg.SuccessfulQueries,
		&agg.FailedQueries,
		&agg.AvgExecutionTimeMs,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("aggregate for org %d %s: %w", orgID, period, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load performance aggregate: %w", err)
	}

	return &agg, nil
}

func (r *performanceRepository) Upsert(ctx context.Context, agg *models.PerformanceAggregate) error {
	const query = `
		INSERT INTO nl2sql_query_performance (
			org_id, period_type, date_period,
			total_queries, successful_queries, failed_queries, avg_execution_time_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (org_id, period_type, date_period)
		DO UPDATE SET
			total_queries = EXCLUDED.total_queries,
			successful_queries = EXCLUDED.successful_queries,
			failed_queries = EXCLUDED.failed_queries,
			avg_execution_time_ms = EXCLUDED.avg_execution_time_ms`

	_, err := r.db.Exec(ctx, query,
		agg.OrgID,
		agg.PeriodType,
		agg.DatePeriod,
		agg.TotalQueries,
		agg.SuccessfulQueries,
		agg.FailedQueries,
		agg.AvgExecutionTimeMs,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert performance aggregate: %w", err)
	}

	return nil
}
