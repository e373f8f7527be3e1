package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	"github.com/querypilot/querypilot-engine/pkg/database"
	"github.com/querypilot/querypilot-engine/pkg/models"
	sqlpkg "github.com/querypilot/querypilot-engine/pkg/sql"
)

// dryRunTimeout bounds the validation round trip so a hung external database
// degrades to a warning instead of stalling the request.
const dryRunTimeout = 5 * time.Second

// ValidatorService validates, optimizes, and scores generated SQL.
type ValidatorService interface {
	// Validate runs the read-only gate and then a dialect-aware dry run
	// against the org's database. orgID may be nil, in which case the dry
	// run falls back to the admin pool and assumes Postgres.
	Validate(ctx context.Context, sqlText string, orgID *int64) (*models.ValidationResult, error)

	// Optimize applies dialect-specific rewriting to the statement.
	Optimize(sqlText string, d models.Dialect) string

	// Evaluate produces the pre-execution confidence verdict for a
	// statement: a fixed rule cascade over the validation outcome and
	// dialect-portability checks. The originating question is carried for
	// audit context only; the score is a function of the SQL alone.
	Evaluate(ctx context.Context, sqlText, question string, orgID *int64) (*models.Evaluation, error)
}

type validatorService struct {
	resolver ConnectionResolver
	adapters dialect.AdapterFactory
	adminDB  *database.DB // fallback dry-run target; nil in unit tests
	logger   *zap.Logger
}

// NewValidatorService creates a ValidatorService. adminDB may be nil; without
// it, validation with no org context degrades to the gate alone.
func NewValidatorService(
	resolver ConnectionResolver,
	adapters dialect.AdapterFactory,
	adminDB *database.DB,
	logger *zap.Logger,
) ValidatorService {
	return &validatorService{
		resolver: resolver,
		adapters: adapters,
		adminDB:  adminDB,
		logger:   logger,
	}
}

var _ ValidatorService = (*validatorService)(nil)

func (v *validatorService) Validate(ctx context.Context, sqlText string, orgID *int64) (*models.ValidationResult, error) {
	// Structural gate first: a rejected statement never touches any
	// database connection.
	if !sqlpkg.IsReadStatement(sqlText) {
		return &models.ValidationResult{
			IsValid: false,
			Error:   sqlpkg.ErrNotReadStatement.Error(),
		}, nil
	}

	normalized, err := sqlpkg.Normalize(sqlText)
	if err != nil {
		return &models.ValidationResult{
			IsValid: false,
			Error:   err.Error(),
		}, nil
	}

	if orgID == nil {
		return v.validateAgainstAdmin(ctx, normalized), nil
	}

	profile, err := v.resolver.Resolve(ctx, *orgID)
	if err != nil {
		return nil, err
	}

	runner, err := v.adapters.NewQueryRunner(ctx, profile.Dialect, profile.Bundle, *orgID)
	if err != nil {
		return nil, fmt.Errorf("create query runner: %w", err)
	}
	defer func() {
		if closeErr := runner.Close(); closeErr != nil {
			v.logger.Warn("failed to close query runner after dry run",
				zap.Int64("orgID", *orgID),
				zap.Error(closeErr))
		}
	}()

	dryCtx, cancel := context.WithTimeout(ctx, dryRunTimeout)
	defer cancel()

	if err := runner.Explain(dryCtx, normalized); err != nil {
		if dialect.IsConnectionError(err) {
			// Unreachable database says nothing about the statement itself,
			// so validation degrades to valid-with-warning.
			v.logger.Warn("dry run skipped, external database unreachable",
				zap.Int64("orgID", *orgID),
				zap.String("dialect", string(profile.Dialect)),
				zap.Error(err))
			return &models.ValidationResult{
				IsValid: true,
				Warning: true,
				Dialect: profile.Dialect,
			}, nil
		}

		// Query errors surface the database's own message verbatim; that
		// text feeds the retry prompt and must not be paraphrased.
		return &models.ValidationResult{
			IsValid: false,
			Error:   err.Error(),
			Dialect: profile.Dialect,
		}, nil
	}

	return &models.ValidationResult{
		IsValid: true,
		Dialect: profile.Dialect,
	}, nil
}

// validateAgainstAdmin dry-runs the statement on the admin Postgres pool.
// Used when no org context is available; generated SQL there targets
// Postgres by construction.
func (v *validatorService) validateAgainstAdmin(ctx context.Context, normalized string) *models.ValidationResult {
	if v.adminDB == nil {
		return &models.ValidationResult{
			IsValid: true,
			Warning: true,
			Dialect: models.DialectPostgres,
		}
	}

	dryCtx, cancel := context.WithTimeout(ctx, dryRunTimeout)
	defer cancel()

	if _, err := v.adminDB.Exec(dryCtx, "EXPLAIN "+normalized); err != nil {
		if dialect.IsConnectionError(dialect.ClassifyQueryError(models.DialectPostgres, err)) {
			return &models.ValidationResult{
				IsValid: true,
				Warning: true,
				Dialect: models.DialectPostgres,
			}
		}
		return &models.ValidationResult{
			IsValid: false,
			Error:   err.Error(),
			Dialect: models.DialectPostgres,
		}
	}

	return &models.ValidationResult{
		IsValid: true,
		Dialect: models.DialectPostgres,
	}
}

func (v *validatorService) Optimize(sqlText string, d models.Dialect) string {
	return sqlpkg.Optimize(sqlText, d)
}

// Evaluate scores a statement on a fixed cascade. The rungs are ordered from
// disqualifying to cosmetic; the first match wins:
//
//	3 — fails validation outright
//	7 — valid but unverifiable (database unreachable)
//	5 — Oracle target with constructs that commonly break there
//	6 — Oracle target with unprefixed table references
//	9 — clean
func (v *validatorService) Evaluate(ctx context.Context, sqlText, question string, orgID *int64) (*models.Evaluation, error) {
	result, err := v.Validate(ctx, sqlText, orgID)
	if err != nil {
		return nil, err
	}

	if question != "" {
		v.logger.Debug("evaluating generated SQL", zap.String("question", question))
	}

	dialectName := string(result.Dialect)
	if dialectName == "" {
		dialectName = "the target database"
	}

	if !result.IsValid {
		return &models.Evaluation{
			Score:       3,
			Explanation: fmt.Sprintf("Invalid syntax for %s: %s", dialectName, result.Error),
		}, nil
	}

	if result.Warning {
		return &models.Evaluation{
			Score:       7,
			Explanation: fmt.Sprintf("valid syntax for %s, but the database was unreachable so execution could not be verified", dialectName),
		}, nil
	}

	if result.Dialect == models.DialectOracle {
		if sqlpkg.HasDoubleQuotedIdentifiers(sqlText) ||
			sqlpkg.HasPositionalParameters(sqlText) ||
			sqlpkg.HasLimitClause(sqlText) {
			return &models.Evaluation{
				Score:       5,
				Explanation: "valid syntax, but uses constructs that commonly fail on Oracle: double-quoted identifiers, positional parameters, or LIMIT",
			}, nil
		}
		if sqlpkg.HasUnprefixedTableReferences(sqlText) {
			return &models.Evaluation{
				Score:       6,
				Explanation: "valid syntax, but references tables without a schema prefix, which often resolves to the wrong owner on Oracle",
			}, nil
		}
	}

	return &models.Evaluation{
		Score:       9,
		Explanation: fmt.Sprintf("sound technique, valid syntax for %s", dialectName),
	}, nil
}
