package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/flashrbf/internal/interpolation/kernels"
	"github.com/copyleftdev/flashrbf/internal/interpolation/rbf"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 120*time.Second, cfg.HTTP.IdleTimeout)
	assert.Equal(t, 60*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, kernels.Gaussian, cfg.DefaultKernel())
	assert.Equal(t, 1.0, cfg.Model.Bandwidth)
	assert.Equal(t, rbf.DefaultCalibration(), cfg.Calibration())
	assert.Equal(t, 2000, cfg.Model.MaxTrainingPoints)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("HTTP_REQUEST_TIMEOUT", "5s")
	t.Setenv("RBF_KERNEL", "inverse_multiquadric")
	t.Setenv("RBF_BANDWIDTH", "0.25")
	t.Setenv("RBF_CALIBRATE_LOWER", "0.2")
	t.Setenv("RBF_CALIBRATE_UPPER", "0.8")
	t.Setenv("RBF_CALIBRATE_STEP", "0.01")
	t.Setenv("RBF_MAX_TRAINING_POINTS", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, kernels.InverseMultiquadric, cfg.DefaultKernel())
	assert.Equal(t, 0.25, cfg.Model.Bandwidth)
	assert.Equal(t, rbf.Calibration{Lower: 0.2, Upper: 0.8, Step: 0.01}, cfg.Calibration())
	assert.Equal(t, 50, cfg.Model.MaxTrainingPoints)
}

func TestEnvironmentDefaults(t *testing.T) {
	dev := &Config{Environment: "development"}
	dev.applyEnvironmentDefaults()
	assert.Equal(t, "debug", dev.Logging.Level)

	prod := &Config{Environment: "production"}
	prod.applyEnvironmentDefaults()
	assert.Equal(t, "info", prod.Logging.Level)

	explicit := &Config{Environment: "development"}
	explicit.Logging.Level = "warn"
	explicit.applyEnvironmentDefaults()
	assert.Equal(t, "warn", explicit.Logging.Level)
}

func TestLoadDevelopmentKeepsExplicitLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown kernel", "RBF_KERNEL", "thin_plate"},
		{"zero bandwidth", "RBF_BANDWIDTH", "0"},
		{"negative bandwidth", "RBF_BANDWIDTH", "-1"},
		{"inverted interval", "RBF_CALIBRATE_LOWER", "2"},
		{"zero lower bound", "RBF_CALIBRATE_LOWER", "0"},
		{"infinite upper bound", "RBF_CALIBRATE_UPPER", "+Inf"},
		{"zero step", "RBF_CALIBRATE_STEP", "0"},
		{"zero cap", "RBF_MAX_TRAINING_POINTS", "0"},
		{"bad port", "HTTP_PORT", "70000"},
		{"unparsable duration", "HTTP_READ_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
