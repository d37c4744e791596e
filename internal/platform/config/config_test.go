package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, time.Hour, cfg.Verification.VerificationTTL)
	assert.Equal(t, 3*time.Minute, cfg.Verification.PendingTTL)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, []string{"over18"}, cfg.OIDC.EssentialClaims)
	assert.Equal(t, "verifying you are over 18 to purchase age restricted items", cfg.OIDC.Purpose)
	assert.NotEmpty(t, cfg.Verification.SessionSecret, "dev default secret")
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_ParsesValues(t *testing.T) {
	t.Setenv("OIDC_AUTH_SERVERS", "bank1=https://bank1.example, bank2=https://bank2.example")
	t.Setenv("RESTRICTED_CATEGORY_ID", "42")
	t.Setenv("VERIFICATION_TTL", "30m")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,k1:9092")
	t.Setenv("BYPASS_ALLOW_ANY", "true")
	t.Setenv("ADMIN_TOKEN", "ops-token")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"bank1": "https://bank1.example",
		"bank2": "https://bank2.example",
	}, cfg.OIDC.AuthServers)
	assert.Equal(t, 42, cfg.Store.RestrictedCategoryID)
	assert.Equal(t, 30*time.Minute, cfg.Verification.VerificationTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Audit.KafkaBrokers)
	assert.True(t, cfg.Bypass.AllowAny)
	assert.Equal(t, "ops-token", cfg.AdminToken)
}

func TestFromEnv_StoreDomainBecomesOrigin(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"shop.example", "https://shop.example"},
		{" shop.example/ ", "https://shop.example"},
		{"https://shop.example", "https://shop.example"},
		{"http://localhost:3000/", "http://localhost:3000"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Setenv("STORE_DOMAIN", tt.raw)
			cfg, err := FromEnv()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Store.Domain)
		})
	}
}

func TestFromEnv_RejectsMalformedValues(t *testing.T) {
	t.Setenv("PENDING_TTL", "three minutes")
	t.Setenv("OIDC_AUTH_SERVERS", "bank1")
	t.Setenv("OIDC_PURPOSE", "x")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OIDC_PURPOSE")
	assert.Contains(t, err.Error(), "PENDING_TTL")
	assert.Contains(t, err.Error(), "OIDC_AUTH_SERVERS")
}

func TestValidate_Production(t *testing.T) {
	t.Setenv("AGEGATE_ENV", "production")

	cfg, err := FromEnv()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
	assert.Contains(t, err.Error(), "STORE_HASH")
	assert.Contains(t, err.Error(), "RESTRICTED_CATEGORY_ID")
	assert.Contains(t, err.Error(), "ADMIN_TOKEN")
}

func TestValidate_TraceSampleRatio(t *testing.T) {
	t.Setenv("TRACE_SAMPLE_RATIO", "0.25")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.InDelta(t, 0.25, cfg.TraceSampleRatio, 1e-9)
	assert.NoError(t, cfg.Validate())

	cfg.TraceSampleRatio = 1.5
	assert.ErrorContains(t, cfg.Validate(), "TRACE_SAMPLE_RATIO")
}
