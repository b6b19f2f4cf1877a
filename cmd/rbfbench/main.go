package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v10"

	"github.com/copyleftdev/flashrbf/internal/benchmark"
	apperrors "github.com/copyleftdev/flashrbf/internal/errors"
	"github.com/copyleftdev/flashrbf/internal/interpolation/kernels"
	"github.com/copyleftdev/flashrbf/internal/logging"
)

type benchConfig struct {
	Scenarios   []string `env:"BENCH_SCENARIO" envDefault:"1d" envSeparator:","`
	Seed        uint64   `env:"BENCH_SEED" envDefault:"1"`
	TrainPoints int      `env:"BENCH_TRAIN_POINTS" envDefault:"10"`
	Updates     int      `env:"BENCH_UPDATES" envDefault:"5"`
	Dimension   int      `env:"BENCH_DIMENSION" envDefault:"100"`
	Kernel      string   `env:"BENCH_KERNEL" envDefault:"gaussian"`
	Bandwidth   float64  `env:"BENCH_BANDWIDTH" envDefault:"1.0"`

	// Plot is an image path for the 1-D curve; empty disables plotting.
	Plot        string `env:"BENCH_PLOT"`
	TimingsPlot string `env:"BENCH_TIMINGS_PLOT"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

func main() {
	cfg := benchConfig{}
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: "stderr",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		if apperrors.Is(err, context.Canceled) {
			logger.Warn("Benchmark interrupted")
			return
		}
		logger.WithError(err).Error("Benchmark failed")
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg benchConfig, logger *logging.Logger) error {
	scenarios := make([]benchmark.Scenario, 0, len(cfg.Scenarios))
	for _, name := range cfg.Scenarios {
		s, err := benchmark.ParseScenario(name)
		if err != nil {
			return err
		}
		scenarios = append(scenarios, s)
	}
	if len(scenarios) == 0 {
		return fmt.Errorf("BENCH_SCENARIO lists no scenario")
	}
	kernel, err := kernels.ParseKernel(cfg.Kernel)
	if err != nil {
		return err
	}

	updates := cfg.Updates
	if updates == 0 {
		updates = -1
	}

	reports := make([]*benchmark.Report, 0, len(scenarios))
	plotted := false
	for _, s := range scenarios {
		scenarioLogger := logger.WithField("scenario", string(s))
		scenarioLogger.Info("Running benchmark", map[string]interface{}{
			"seed":         cfg.Seed,
			"train_points": cfg.TrainPoints,
			"updates":      cfg.Updates,
			"kernel":       kernel.String(),
			"bandwidth":    cfg.Bandwidth,
		})

		report, err := benchmark.Run(ctx, s, benchmark.Options{
			Seed:        cfg.Seed,
			TrainPoints: cfg.TrainPoints,
			Updates:     updates,
			Dimension:   cfg.Dimension,
			Kernel:      kernel,
			Bandwidth:   cfg.Bandwidth,
			Logger:      scenarioLogger.Named("rbf").Zap(),
		})
		if err != nil {
			return fmt.Errorf("scenario %s: %w", s, err)
		}
		reports = append(reports, report)

		scenarioLogger.Info("Benchmark finished", report.LogFields())
		if scenarioLogger.Enabled(logging.DebugLevel) {
			for i, q := range report.AfterQueries {
				scenarioLogger.Debug("Prediction", map[string]interface{}{
					"query":  q,
					"output": report.AfterOutputs[i],
				})
			}
		}
		fmt.Fprint(os.Stdout, report.Model.String())

		if cfg.Plot != "" && s == benchmark.Scenario1D {
			if err := benchmark.Plot1D(report, cfg.Plot); err != nil {
				return fmt.Errorf("plot: %w", err)
			}
			scenarioLogger.Info("Plot written", map[string]interface{}{"path": cfg.Plot})
			plotted = true
		}
	}

	if cfg.Plot != "" && !plotted {
		logger.Warn("Plotting is only available for the 1d scenario", map[string]interface{}{"path": cfg.Plot})
	}

	if cfg.TimingsPlot != "" {
		if err := benchmark.PlotTimings(reports, cfg.TimingsPlot); err != nil {
			return fmt.Errorf("timings plot: %w", err)
		}
		logger.Info("Timings plot written", map[string]interface{}{"path": cfg.TimingsPlot})
	}
	return nil
}
