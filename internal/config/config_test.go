package config_test

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/config"
)

func bound(t *testing.T, args ...string) *config.Config {
	t.Helper()
	c := &config.Config{}
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.Bind(flags)
	require.NoError(t, flags.Parse(args))
	return c
}

func TestPreflightRejectsMissingCatalogDSN(t *testing.T) {
	c := bound(t, "--objectStoreLocalDir=/tmp/data")
	require.Error(t, c.Preflight())
}

func TestPreflightRejectsBothObjectStoreBackends(t *testing.T) {
	c := bound(t, "--catalogDSN=postgres://x", "--objectStoreBucket=b", "--objectStoreLocalDir=/tmp/data")
	require.Error(t, c.Preflight())
}

func TestPreflightRejectsNeitherObjectStoreBackend(t *testing.T) {
	c := bound(t, "--catalogDSN=postgres://x")
	require.Error(t, c.Preflight())
}

func TestPreflightAcceptsValidLocalConfig(t *testing.T) {
	c := bound(t, "--catalogDSN=postgres://x", "--objectStoreLocalDir=/tmp/data")
	require.NoError(t, c.Preflight())
}

func TestPreflightRejectsOutOfRangeChaosProbability(t *testing.T) {
	c := bound(t, "--catalogDSN=postgres://x", "--objectStoreLocalDir=/tmp/data", "--chaosProbability=1.5")
	require.Error(t, c.Preflight())
}
