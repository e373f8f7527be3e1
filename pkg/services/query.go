package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	"github.com/querypilot/querypilot-engine/pkg/audit"
	"github.com/querypilot/querypilot-engine/pkg/llm"
	"github.com/querypilot/querypilot-engine/pkg/logging"
	"github.com/querypilot/querypilot-engine/pkg/models"
	sqlpkg "github.com/querypilot/querypilot-engine/pkg/sql"
)

const (
	// queryTimeout bounds execution against the external database.
	queryTimeout = 30 * time.Second

	// defaultRowLimit is the row bound applied when the caller does not
	// request one. Runners clamp to dialect.MaxQueryLimit regardless.
	defaultRowLimit = 100

	// trackingTimeout bounds the outcome write, which runs detached from the
	// request context so a cancelled request still gets its history row.
	trackingTimeout = 5 * time.Second
)

// AskResult is the full outcome of one natural-language query: the generated
// statement, its validation and confidence verdicts, and the bounded rows.
type AskResult struct {
	Question    string                   `json:"question"`
	SQL         string                   `json:"sql"`
	Dialect     models.Dialect           `json:"dialect"`
	Validation  *models.ValidationResult `json:"validation"`
	Evaluation  *models.Evaluation       `json:"evaluation"`
	Result      *dialect.QueryResult     `json:"result"`
	ExecutionID uuid.UUID                `json:"execution_id"`
}

// QueryService runs the ask pipeline: introspect, generate, gate, optimize,
// validate, execute, track.
type QueryService interface {
	Ask(ctx context.Context, orgID int64, userID, question string) (*AskResult, error)
}

type queryService struct {
	schemas   SchemaService
	resolver  ConnectionResolver
	generator llm.SQLGenerator
	validator ValidatorService
	adapters  dialect.AdapterFactory
	tracker   ExecutionTracker
	auditor   *audit.SecurityAuditor
	logger    *zap.Logger
}

// NewQueryService creates a QueryService.
func NewQueryService(
	schemas SchemaService,
	resolver ConnectionResolver,
	generator llm.SQLGenerator,
	validator ValidatorService,
	adapters dialect.AdapterFactory,
	tracker ExecutionTracker,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) QueryService {
	return &queryService{
		schemas:   schemas,
		resolver:  resolver,
		generator: generator,
		validator: validator,
		adapters:  adapters,
		tracker:   tracker,
		auditor:   auditor,
		logger:    logger,
	}
}

var _ QueryService = (*queryService)(nil)

func (s *queryService) Ask(ctx context.Context, orgID int64, userID, question string) (*AskResult, error) {
	schema, err := s.schemas.Introspect(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("introspect schema: %w", err)
	}

	prompt := FormatForPrompt(schema.Searchable())

	generated, err := s.generator.GenerateSQL(ctx, prompt, question)
	if err != nil {
		return nil, fmt.Errorf("generate SQL: %w", err)
	}

	// Structural gate before anything touches the org's database. A model
	// that produced a write statement is recorded as a failed execution.
	normalized, gateErr := s.gate(generated)
	if gateErr != nil {
		s.auditor.LogStatementRejected(orgID, userID, generated, gateErr.Error())
		executionID := s.recordOutcome(ctx, orgID, userID, question, generated, models.StatusFailed, gateErr, nil, nil)
		return &AskResult{
			Question:    question,
			SQL:         generated,
			Validation:  &models.ValidationResult{IsValid: false, Error: gateErr.Error()},
			ExecutionID: executionID,
		}, gateErr
	}

	profile, err := s.resolver.Resolve(ctx, orgID)
	if err != nil {
		return nil, err
	}

	optimized := sqlpkg.Optimize(normalized, profile.Dialect)

	validation, err := s.validator.Validate(ctx, optimized, &orgID)
	if err != nil {
		return nil, fmt.Errorf("validate SQL: %w", err)
	}
	if !validation.IsValid {
		// The database's own message comes back verbatim; callers feed it
		// into a regeneration attempt.
		validationErr := fmt.Errorf("generated SQL failed validation: %s", validation.Error)
		executionID := s.recordOutcome(ctx, orgID, userID, question, optimized, models.StatusFailed, validationErr, nil, nil)
		return &AskResult{
			Question:    question,
			SQL:         optimized,
			Dialect:     profile.Dialect,
			Validation:  validation,
			ExecutionID: executionID,
		}, validationErr
	}

	evaluation, err := s.validator.Evaluate(ctx, optimized, question, &orgID)
	if err != nil {
		s.logger.Warn("evaluation failed, continuing without a score",
			zap.Int64("orgID", orgID),
			zap.Error(err))
	}

	runner, err := s.adapters.NewQueryRunner(ctx, profile.Dialect, profile.Bundle, orgID)
	if err != nil {
		return nil, fmt.Errorf("create query runner: %w", err)
	}
	defer func() {
		if closeErr := runner.Close(); closeErr != nil {
			s.logger.Warn("failed to close query runner",
				zap.Int64("orgID", orgID),
				zap.Error(closeErr))
		}
	}()

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	start := time.Now()
	result, queryErr := runner.Query(queryCtx, optimized, defaultRowLimit)
	elapsed := time.Since(start).Milliseconds()

	if queryErr != nil {
		status := models.StatusFailed
		if queryCtx.Err() == context.DeadlineExceeded {
			status = models.StatusTimeout
		} else if ctx.Err() == context.Canceled {
			status = models.StatusCancelled
		}
		executionID := s.recordOutcome(ctx, orgID, userID, question, optimized, status, queryErr, &elapsed, nil)
		return &AskResult{
			Question:    question,
			SQL:         optimized,
			Dialect:     profile.Dialect,
			Validation:  validation,
			Evaluation:  evaluation,
			ExecutionID: executionID,
		}, fmt.Errorf("execute query: %w", queryErr)
	}

	rows := int64(result.RowCount)
	executionID := s.recordOutcome(ctx, orgID, userID, question, optimized, models.StatusSuccess, nil, &elapsed, &rows)

	return &AskResult{
		Question:    question,
		SQL:         optimized,
		Dialect:     profile.Dialect,
		Validation:  validation,
		Evaluation:  evaluation,
		Result:      result,
		ExecutionID: executionID,
	}, nil
}

// gate applies the read-only statement checks and returns the normalized
// statement. No database connection is made before this passes.
func (s *queryService) gate(generated string) (string, error) {
	if !sqlpkg.IsReadStatement(generated) {
		return "", sqlpkg.ErrNotReadStatement
	}
	return sqlpkg.Normalize(generated)
}

// recordOutcome hands the run to the tracker. Tracking failures are logged
// and dropped: the user already has their result (or their error), and
// losing a history row must not turn a successful query into a failed one.
func (s *queryService) recordOutcome(
	ctx context.Context,
	orgID int64,
	userID, question, sqlText string,
	status models.ExecutionStatus,
	execErr error,
	elapsedMs *int64,
	rowsReturned *int64,
) uuid.UUID {
	input := models.ExecutionRecordInput{
		OrgID:           orgID,
		UserID:          userID,
		QueryText:       question,
		SQLGenerated:    sqlText,
		Status:          status,
		ExecutionTimeMs: elapsedMs,
		RowsReturned:    rowsReturned,
	}
	if execErr != nil {
		msg := logging.SanitizeError(execErr)
		input.ErrorMessage = &msg
	}

	// The request context may already be cancelled — that is exactly how a
	// CANCELLED outcome arises — so the write runs under a detached context
	// with its own deadline.
	trackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), trackingTimeout)
	defer cancel()

	executionID, err := s.tracker.RecordExecution(trackCtx, input)
	if err != nil {
		s.logger.Error("failed to record query execution",
			zap.Int64("orgID", orgID),
			zap.String("status", string(status)),
			zap.Error(err))
		return uuid.Nil
	}
	return executionID
}
