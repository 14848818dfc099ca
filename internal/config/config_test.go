package config_test

import (
	"testing"
	"time"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/config"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, env map[string]string) {
	t.Setenv("XCHWALLET_DATADIR", t.TempDir())
	t.Setenv("XCHWALLET_LEDGER_URL", "http://localhost:8080")
	t.Setenv("XCHWALLET_KV_STORE_TYPE", "inmemory")
	for k, v := range env {
		t.Setenv("XCHWALLET_"+k, v)
	}
}

func TestLoadConfig(t *testing.T) {
	setEnv(t, map[string]string{
		"NETWORK":             "TESTNET",
		"STALENESS_THRESHOLD": "45s",
		"SYNC_RETRIES":        "5",
		"METADATA_RATE_LIMIT": "0.5",
	})

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "testnet", cfg.Network)
	require.Equal(t, 45*time.Second, cfg.StalenessThreshold)
	require.Equal(t, 5, cfg.SyncRetries)
	require.Equal(t, 0.5, cfg.MetadataRateLimit)
	require.Equal(t, 2*time.Second, cfg.SyncBackoffBase)
	require.Equal(t, 24*time.Hour, cfg.MetadataTTL)
	require.Equal(t, time.Minute, cfg.OfferExpirySweepInterval)

	require.NoError(t, cfg.Validate())
	require.Equal(t, "txch", cfg.AddressCodec().Network().Prefix())

	svc, err := cfg.AppService()
	require.NoError(t, err)
	require.NotNil(t, svc)

	again, err := cfg.AppService()
	require.NoError(t, err)
	require.Equal(t, svc, again)
}

func TestConfigCredentialIsHidden(t *testing.T) {
	setEnv(t, map[string]string{"LEDGER_CREDENTIAL": "super-secret"})

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "super-secret", cfg.LedgerCredential)
	require.NotContains(t, cfg.String(), "super-secret")
}

func TestValidateConfig(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
		err  string
	}{
		{"unknown network", map[string]string{"NETWORK": "regtest"}, "network not supported"},
		{"unknown store", map[string]string{"KV_STORE_TYPE": "postgres"}, "kv store type not supported"},
		{"missing redis url", map[string]string{"KV_STORE_TYPE": "redis"}, "missing redis url"},
		{"missing ledger url", map[string]string{"LEDGER_URL": ""}, "missing ledger service url"},
		{"invalid ledger url", map[string]string{"LEDGER_URL": "localhost"}, "invalid ledger service url"},
		{"invalid staleness", map[string]string{"STALENESS_THRESHOLD": "0s"}, "invalid staleness threshold"},
		{"negative retries", map[string]string{"SYNC_RETRIES": "-1"}, "invalid sync retries"},
		{"invalid ttl", map[string]string{"METADATA_TTL": "0s"}, "invalid metadata ttl"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setEnv(t, tc.env)

			cfg, err := config.LoadConfig()
			require.NoError(t, err)
			require.ErrorContains(t, cfg.Validate(), tc.err)
		})
	}
}

func TestAppServiceRequiresValidation(t *testing.T) {
	setEnv(t, nil)

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	_, err = cfg.AppService()
	require.Error(t, err)
}
