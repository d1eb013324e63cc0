package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"lipa/config"
	"lipa/internal/auth"
	"lipa/internal/repository"
	"lipa/pkg/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTokenCmd(t *testing.T) {
	t.Setenv("LIPA_JWT_ACCESS_SECRET", "cli-secret")
	configPath := ""
	cmd := tokenCmd(&configPath)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--subject", "ops@example.com", "--role", "viewer"})
	require.NoError(t, cmd.Execute())

	cfg, err := config.Load("")
	require.NoError(t, err)
	claims, err := auth.ParseAccessToken(&cfg.JWT, strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.Equal(t, auth.RoleViewer, claims.Role)
}

func TestTokenCmd_UnknownRole(t *testing.T) {
	configPath := ""
	cmd := tokenCmd(&configPath)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--subject", "ops", "--role", "root"})
	assert.Error(t, cmd.Execute())
}

func TestOpenStore(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	store, closeStore, err := openStore(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &repository.MemoryIntentStore{}, store)
	closeStore()

	cfg.Store.Driver = "bolt"
	cfg.Store.BoltPath = filepath.Join(t.TempDir(), "lipa.db")
	store, closeStore, err = openStore(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &repository.BoltIntentStore{}, store)
	closeStore()
}

func TestNewProvider(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.IsType(t, &payment.StubProvider{}, newProvider(&cfg.Mpesa, zap.NewNop()))

	cfg.Mpesa.Provider = "daraja"
	assert.IsType(t, &payment.DarajaProvider{}, newProvider(&cfg.Mpesa, zap.NewNop()))
}
