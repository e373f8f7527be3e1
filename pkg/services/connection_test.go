package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/querypilot/querypilot-engine/pkg/crypto"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

func TestConnectionService_TestConnection(t *testing.T) {
	tester := &fakeTester{}
	factory := &fakeFactory{tester: tester}
	svc := NewConnectionService(&fakeOrgRepo{}, postgresResolver(), factory, nil, zaptest.NewLogger(t))

	require.NoError(t, svc.TestConnection(context.Background(), 42))
	assert.Equal(t, 1, tester.tested)
	assert.Equal(t, 1, tester.closed)
}

func TestConnectionService_TestConnectionFailure(t *testing.T) {
	tester := &fakeTester{err: errors.New("dial tcp: connection refused")}
	factory := &fakeFactory{tester: tester}
	svc := NewConnectionService(&fakeOrgRepo{}, postgresResolver(), factory, nil, zaptest.NewLogger(t))

	err := svc.TestConnection(context.Background(), 42)
	assert.Error(t, err)
	assert.Equal(t, 1, tester.closed)
}

func TestConnectionService_SaveCredentials(t *testing.T) {
	orgs := &fakeOrgRepo{}
	tester := &fakeTester{}
	factory := &fakeFactory{tester: tester}
	svc := NewConnectionService(orgs, postgresResolver(), factory, nil, zaptest.NewLogger(t))

	bundle := map[string]any{"host": "db.internal", "port": float64(5432), "user": "app", "database": "sales"}
	require.NoError(t, svc.SaveCredentials(context.Background(), 42, models.DialectPostgres, bundle))

	assert.Equal(t, "postgres", orgs.savedDialect)

	var stored map[string]any
	require.NoError(t, json.Unmarshal([]byte(orgs.savedBlob), &stored))
	assert.Equal(t, "db.internal", stored["host"])
	assert.Equal(t, 1, tester.tested)
}

func TestConnectionService_SaveCredentialsEncryptsAtRest(t *testing.T) {
	cipher, err := crypto.NewCredentialCipher("unit-test-passphrase")
	require.NoError(t, err)

	orgs := &fakeOrgRepo{}
	factory := &fakeFactory{tester: &fakeTester{}}
	svc := NewConnectionService(orgs, postgresResolver(), factory, cipher, zaptest.NewLogger(t))

	bundle := map[string]any{"host": "db.internal", "password": "s3cret"}
	require.NoError(t, svc.SaveCredentials(context.Background(), 42, models.DialectPostgres, bundle))

	// The stored blob is ciphertext, not JSON.
	assert.NotContains(t, orgs.savedBlob, "s3cret")

	plaintext, err := cipher.Decrypt(orgs.savedBlob)
	require.NoError(t, err)
	assert.Contains(t, plaintext, "s3cret")
}

func TestConnectionService_SaveCredentialsRejectsBadBundle(t *testing.T) {
	orgs := &fakeOrgRepo{}
	tester := &fakeTester{err: errors.New("password authentication failed")}
	factory := &fakeFactory{tester: tester}
	svc := NewConnectionService(orgs, postgresResolver(), factory, nil, zaptest.NewLogger(t))

	err := svc.SaveCredentials(context.Background(), 42, models.DialectPostgres, map[string]any{"host": "db.internal"})
	assert.Error(t, err)
	assert.Empty(t, orgs.savedBlob)
}

func TestConnectionService_SaveCredentialsDetectsDialect(t *testing.T) {
	orgs := &fakeOrgRepo{}
	factory := &fakeFactory{tester: &fakeTester{}}
	svc := NewConnectionService(orgs, postgresResolver(), factory, nil, zaptest.NewLogger(t))

	bundle := map[string]any{"connectString": "db.example.com:1521/XEPDB1", "user": "scott"}
	require.NoError(t, svc.SaveCredentials(context.Background(), 42, "", bundle))
	assert.Equal(t, "oracle", orgs.savedDialect)
}
