// Package services holds the engine's business logic: resolving tenant
// connections, introspecting and formatting schemas, validating and
// optimizing generated SQL, and tracking execution outcomes.
package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/crypto"
	"github.com/querypilot/querypilot-engine/pkg/jsonutil"
	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/repositories"
)

// ConnectionResolver loads an organization's stored credential bundle and
// determines the target dialect.
type ConnectionResolver interface {
	Resolve(ctx context.Context, orgID int64) (*models.ConnectionProfile, error)
}

type connectionResolver struct {
	orgs   repositories.OrgRepository
	cipher *crypto.CredentialCipher // nil when bundles are stored in the clear
	logger *zap.Logger
}

// NewConnectionResolver creates a ConnectionResolver. cipher may be nil
// when credential encryption at rest is not configured.
func NewConnectionResolver(orgs repositories.OrgRepository, cipher *crypto.CredentialCipher, logger *zap.Logger) ConnectionResolver {
	return &connectionResolver{orgs: orgs, cipher: cipher, logger: logger}
}

var _ ConnectionResolver = (*connectionResolver)(nil)

func (r *connectionResolver) Resolve(ctx context.Context, orgID int64) (*models.ConnectionProfile, error) {
	blob, storedDialect, err := r.orgs.GetCredentialBlob(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if r.cipher != nil {
		decrypted, decErr := r.cipher.Decrypt(blob)
		if decErr == nil {
			blob = decrypted
		} else {
			// Bundles stored before encryption was enabled are plaintext
			// JSON; fall through and let the parse decide.
			r.logger.Debug("credential bundle not decryptable, treating as plaintext",
				zap.Int64("orgID", orgID))
		}
	}

	var bundle map[string]any
	if err := json.Unmarshal([]byte(blob), &bundle); err != nil {
		return nil, fmt.Errorf("org %d credential bundle: %w", orgID, apperrors.ErrMalformedCredentials)
	}

	d, ok := models.ParseDialect(storedDialect)
	if !ok {
		d = DetectDialect(bundle)
	}

	return &models.ConnectionProfile{
		OrgID:   orgID,
		Dialect: d,
		Bundle:  bundle,
	}, nil
}

// DetectDialect infers the dialect from the shape of a credential bundle.
// It is a pure function of the bundle and is applied everywhere raw blobs
// are interpreted, since older orgs never stored a dialect explicitly: an
// explicit dialect field wins, a connect-string field means Oracle, a
// server field means SQL Server, host plus the well-known port picks
// Postgres or MySQL, and anything else defaults to Postgres.
func DetectDialect(bundle map[string]any) models.Dialect {
	if s, ok := bundle["dialect"].(string); ok {
		if d, ok := models.ParseDialect(s); ok {
			return d
		}
	}
	if hasStringField(bundle, "connectString") || hasStringField(bundle, "connect_string") {
		return models.DialectOracle
	}
	if hasStringField(bundle, "server") {
		return models.DialectMSSQL
	}
	if hasStringField(bundle, "host") {
		if port, ok := jsonutil.IntValue(bundle["port"]); ok {
			switch port {
			case 5432:
				return models.DialectPostgres
			case 3306:
				return models.DialectMySQL
			}
		}
	}
	return models.DialectPostgres
}

func hasStringField(bundle map[string]any, key string) bool {
	s, ok := bundle[key].(string)
	return ok && s != ""
}
