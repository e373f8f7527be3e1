package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/audit"
	"github.com/querypilot/querypilot-engine/pkg/logging"
	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/repositories"
	sqlpkg "github.com/querypilot/querypilot-engine/pkg/sql"
)

// activityDetailMaxLen caps the question text stored in the activity log.
const activityDetailMaxLen = 200

// ExecutionTracker records the outcome of each query run: the durable
// execution row, the activity-log row, and the daily performance rollup.
type ExecutionTracker interface {
	// RecordExecution persists the execution record and returns its ID.
	// Only the execution row itself can fail the call; the activity row and
	// the rollup are best-effort and their failures are logged and dropped.
	RecordExecution(ctx context.Context, input models.ExecutionRecordInput) (uuid.UUID, error)
}

type executionTracker struct {
	queries     repositories.QueryRepository
	activity    repositories.ActivityRepository
	performance repositories.PerformanceRepository
	auditor     *audit.SecurityAuditor
	logger      *zap.Logger
	now         func() time.Time
}

// NewExecutionTracker creates an ExecutionTracker.
func NewExecutionTracker(
	queries repositories.QueryRepository,
	activity repositories.ActivityRepository,
	performance repositories.PerformanceRepository,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) ExecutionTracker {
	return &executionTracker{
		queries:     queries,
		activity:    activity,
		performance: performance,
		auditor:     auditor,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

var _ ExecutionTracker = (*executionTracker)(nil)

func (t *executionTracker) RecordExecution(ctx context.Context, input models.ExecutionRecordInput) (uuid.UUID, error) {
	record := &models.ExecutionRecord{
		OrgID:           input.OrgID,
		UserID:          input.UserID,
		QueryText:       input.QueryText,
		SQLGenerated:    input.SQLGenerated,
		Status:          input.Status,
		ErrorMessage:    input.ErrorMessage,
		ExecutionTimeMs: input.ExecutionTimeMs,
		RowsReturned:    input.RowsReturned,
		CreatedAt:       t.now(),
	}

	// The execution row is the system of record and must land first; the
	// rest of the bookkeeping hangs off its ID.
	if err := t.queries.InsertExecution(ctx, record); err != nil {
		return uuid.Nil, fmt.Errorf("record execution for org %d: %w", input.OrgID, err)
	}

	if finding := sqlpkg.CheckFreeText("question", input.QueryText); finding != nil {
		t.auditor.LogInjectionAttempt(input.OrgID, input.UserID, audit.InjectionDetails{
			Field:       finding.Field,
			Value:       logging.TruncateString(finding.Value, activityDetailMaxLen),
			Fingerprint: finding.Fingerprint,
		})
	}

	t.recordActivity(ctx, record)
	t.updateDailyAggregate(ctx, input)

	t.auditor.LogQueryExecution(input.OrgID, record.ID, input.UserID, string(input.Status))

	return record.ID, nil
}

func (t *executionTracker) recordActivity(ctx context.Context, record *models.ExecutionRecord) {
	activity := &models.UserActivity{
		OrgID:        record.OrgID,
		UserID:       record.UserID,
		ActivityType: "QUERY",
		Detail:       logging.TruncateString(record.QueryText, activityDetailMaxLen),
		CreatedAt:    t.now(),
	}

	if err := t.activity.Insert(ctx, activity); err != nil {
		t.logger.Warn("failed to record user activity",
			zap.Int64("orgID", record.OrgID),
			zap.String("executionID", record.ID.String()),
			zap.Error(err))
	}
}

// updateDailyAggregate folds this run into the org's daily rollup with the
// running-average rule avg' = (avg*total + sample)/(total+1). The
// read-modify-write is racy under concurrent executions for the same org and
// day; a lost update skews one sample of an average, which is tolerable for
// a reporting table.
func (t *executionTracker) updateDailyAggregate(ctx context.Context, input models.ExecutionRecordInput) {
	day := t.now().Truncate(24 * time.Hour)

	var sample float64
	if input.ExecutionTimeMs != nil {
		sample = float64(*input.ExecutionTimeMs)
	}

	agg, err := t.performance.Get(ctx, input.OrgID, models.PeriodDay, day)
	switch {
	case err == nil:
		agg.AvgExecutionTimeMs = (agg.AvgExecutionTimeMs*float64(agg.TotalQueries) + sample) / float64(agg.TotalQueries+1)
		agg.TotalQueries++
		if input.Status == models.StatusSuccess {
			agg.SuccessfulQueries++
		} else {
			agg.FailedQueries++
		}
	case errors.Is(err, apperrors.ErrNotFound):
		agg = &models.PerformanceAggregate{
			OrgID:              input.OrgID,
			PeriodType:         models.PeriodDay,
			DatePeriod:         day,
			TotalQueries:       1,
			AvgExecutionTimeMs: sample,
		}
		if input.Status == models.StatusSuccess {
			agg.SuccessfulQueries = 1
		} else {
			agg.FailedQueries = 1
		}
	default:
		t.logger.Warn("failed to load daily performance aggregate",
			zap.Int64("orgID", input.OrgID),
			zap.Error(err))
		return
	}

	if err := t.performance.Upsert(ctx, agg); err != nil {
		t.logger.Warn("failed to upsert daily performance aggregate",
			zap.Int64("orgID", input.OrgID),
			zap.Error(err))
	}
}
