package config

import (
	"fmt"
	"math"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/copyleftdev/flashrbf/internal/interpolation/kernels"
	"github.com/copyleftdev/flashrbf/internal/interpolation/rbf"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
		RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"60s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Model struct {
		Kernel            string  `env:"RBF_KERNEL" envDefault:"gaussian"`
		Bandwidth         float64 `env:"RBF_BANDWIDTH" envDefault:"1.0"`
		CalibrateLower    float64 `env:"RBF_CALIBRATE_LOWER" envDefault:"0.1"`
		CalibrateUpper    float64 `env:"RBF_CALIBRATE_UPPER" envDefault:"1.0"`
		CalibrateStep     float64 `env:"RBF_CALIBRATE_STEP" envDefault:"0.001"`
		MaxTrainingPoints int     `env:"RBF_MAX_TRAINING_POINTS" envDefault:"2000"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvironmentDefaults fills settings that depend on ENV.
func (c *Config) applyEnvironmentDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
		if c.Environment == "development" {
			c.Logging.Level = "debug"
		}
	}
}

// Validate checks the model defaults and server limits.
func (c *Config) Validate() error {
	if _, err := kernels.ParseKernel(c.Model.Kernel); err != nil {
		return fmt.Errorf("RBF_KERNEL: %w", err)
	}
	if !(c.Model.Bandwidth > 0) || math.IsInf(c.Model.Bandwidth, 0) {
		return fmt.Errorf("RBF_BANDWIDTH must be positive, got %v", c.Model.Bandwidth)
	}
	if err := c.Calibration().Validate(); err != nil {
		return fmt.Errorf("RBF_CALIBRATE_*: %w", err)
	}
	if c.Model.MaxTrainingPoints <= 0 {
		return fmt.Errorf("RBF_MAX_TRAINING_POINTS must be positive, got %d", c.Model.MaxTrainingPoints)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT out of range: %d", c.HTTP.Port)
	}
	return nil
}

// DefaultKernel returns the configured default kernel.
func (c *Config) DefaultKernel() kernels.Kernel {
	k, err := kernels.ParseKernel(c.Model.Kernel)
	if err != nil {
		return kernels.Gaussian
	}
	return k
}

// Calibration returns the configured bandwidth search interval.
func (c *Config) Calibration() rbf.Calibration {
	return rbf.Calibration{
		Lower: c.Model.CalibrateLower,
		Upper: c.Model.CalibrateUpper,
		Step:  c.Model.CalibrateStep,
	}
}
