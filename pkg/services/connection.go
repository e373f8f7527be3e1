package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	"github.com/querypilot/querypilot-engine/pkg/crypto"
	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/repositories"
)

// ConnectionService manages an organization's external database credentials:
// verifying reachability and rotating the stored bundle.
type ConnectionService interface {
	// TestConnection verifies the org's stored credentials against the live
	// database.
	TestConnection(ctx context.Context, orgID int64) error

	// SaveCredentials verifies the bundle connects, then persists it. The
	// bundle is encrypted at rest when a credentials key is configured.
	SaveCredentials(ctx context.Context, orgID int64, d models.Dialect, bundle map[string]any) error
}

type connectionService struct {
	orgs     repositories.OrgRepository
	resolver ConnectionResolver
	adapters dialect.AdapterFactory
	cipher   *crypto.CredentialCipher // nil stores bundles in the clear
	logger   *zap.Logger
}

// NewConnectionService creates a ConnectionService. cipher may be nil.
func NewConnectionService(
	orgs repositories.OrgRepository,
	resolver ConnectionResolver,
	adapters dialect.AdapterFactory,
	cipher *crypto.CredentialCipher,
	logger *zap.Logger,
) ConnectionService {
	return &connectionService{
		orgs:     orgs,
		resolver: resolver,
		adapters: adapters,
		cipher:   cipher,
		logger:   logger,
	}
}

var _ ConnectionService = (*connectionService)(nil)

func (s *connectionService) TestConnection(ctx context.Context, orgID int64) error {
	profile, err := s.resolver.Resolve(ctx, orgID)
	if err != nil {
		return err
	}
	return s.testBundle(ctx, orgID, profile.Dialect, profile.Bundle)
}

func (s *connectionService) SaveCredentials(ctx context.Context, orgID int64, d models.Dialect, bundle map[string]any) error {
	if !d.IsValid() {
		d = DetectDialect(bundle)
	}

	// Bad credentials are rejected up front; an org must never end up with
	// a stored bundle that cannot connect.
	if err := s.testBundle(ctx, orgID, d, bundle); err != nil {
		return fmt.Errorf("credentials failed verification: %w", err)
	}

	blob, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encode credential bundle: %w", err)
	}

	stored := string(blob)
	if s.cipher != nil {
		stored, err = s.cipher.Encrypt(stored)
		if err != nil {
			return fmt.Errorf("encrypt credential bundle: %w", err)
		}
	}

	if err := s.orgs.SaveCredentials(ctx, orgID, stored, string(d)); err != nil {
		return err
	}

	s.logger.Info("organization credentials updated",
		zap.Int64("orgID", orgID),
		zap.String("dialect", string(d)))
	return nil
}

func (s *connectionService) testBundle(ctx context.Context, orgID int64, d models.Dialect, bundle map[string]any) error {
	tester, err := s.adapters.NewConnectionTester(ctx, d, bundle, orgID)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := tester.Close(); closeErr != nil {
			s.logger.Warn("failed to close connection tester",
				zap.Int64("orgID", orgID),
				zap.Error(closeErr))
		}
	}()

	return tester.TestConnection(ctx)
}
