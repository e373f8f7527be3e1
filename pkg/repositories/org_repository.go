// Package repositories provides data access against the admin metadata
// store. Every repository takes its pool through the constructor and is
// described by an interface so services can be tested with fakes.
package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/database"
)

// OrgRepository loads organization records and their stored credential
// bundles.
type OrgRepository interface {
	// GetCredentialBlob returns the raw serialized credential bundle and
	// the stored dialect string, which may be empty when the org predates
	// explicit dialect storage.
	GetCredentialBlob(ctx context.Context, orgID int64) (blob string, dialect string, err error)

	// SaveCredentials stores a serialized credential bundle and dialect
	// for an organization.
	SaveCredentials(ctx context.Context, orgID int64, blob string, dialect string) error
}

type orgRepository struct {
	db *database.DB
}

// NewOrgRepository creates an OrgRepository backed by the admin pool.
func NewOrgRepository(db *database.DB) OrgRepository {
	return &orgRepository{db: db}
}

var _ OrgRepository = (*orgRepository)(nil)

func (r *orgRepository) GetCredentialBlob(ctx context.Context, orgID int64) (string, string, error) {
	const query = `
		SELECT COALESCE(db_credentials, ''), COALESCE(db_dialect, '')
		FROM nl2sql_org
		WHERE id = $1`

	var blob, dialect string
	err := r.db.QueryRow(ctx, query, orgID).Scan(&blob, &dialect)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", fmt.Errorf("org %d: %w", orgID, apperrors.ErrNotFound)
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to load org credentials: %w", err)
	}

	if blob == "" {
		return "", "", fmt.Errorf("org %d has no stored credentials: %w", orgID, apperrors.ErrOrgNotConfigured)
	}

	return blob, dialect, nil
}

func (r *orgRepository) SaveCredentials(ctx context.Context, orgID int64, blob string, dialect string) error {
	const query = `
		UPDATE nl2sql_org
		SET db_credentials = $2, db_dialect = $3, updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, orgID, blob, dialect)
	if err != nil {
		return fmt.Errorf("failed to save org credentials: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("org %d: %w", orgID, apperrors.ErrNotFound)
	}

	return nil
}
