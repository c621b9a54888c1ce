package cfg

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "ACCOUNT_ADDRESS", "API_PRIVATE_KEY", "FORCE_LIVE_TRADING",
		"SYMBOLS", "DRY_RUN", "METRICS_PORT", "DASHBOARD_PORT",
	} {
		os.Unsetenv(k)
	}
}

func TestLoadDefaultsDryRun(t *testing.T) {
	clearEnv(t)
	s, err := Load()
	require.NoError(t, err)
	assert.True(t, s.DryRun)
	assert.ElementsMatch(t, []string{"BTC", "ETH", "SOL", "HYPE"}, s.Symbols)
	assert.Equal(t, 9090, s.MetricsPort)
}

func TestLoadRequiresCredentialsWhenNotDryRun(t *testing.T) {
	clearEnv(t)
	os.Setenv("DRY_RUN", "false")
	defer os.Unsetenv("DRY_RUN")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetSymbolConfigFallsBackToZeroValue(t *testing.T) {
	s := &Settings{SymbolConfigs: map[string]SymbolConfig{"BTC": {MaxLeverage: 5}}}
	assert.Equal(t, 5.0, s.GetSymbolConfig("BTC").MaxLeverage)
	assert.Equal(t, SymbolConfig{}, s.GetSymbolConfig("ETH"))
}

func TestValidatePositionLimitsRejectsZeroConcurrent(t *testing.T) {
	s := validSettingsForTest()
	s.MaxConcurrentPositions = 0
	assert.Error(t, validateSettings(s))
}

func TestValidatePortsRejectsCollision(t *testing.T) {
	s := validSettingsForTest()
	s.DashboardPort = s.MetricsPort
	assert.Error(t, validateSettings(s))
}

func validSettingsForTest() *Settings {
	s := loadFromEnv()
	s.DryRun = true
	return s
}
