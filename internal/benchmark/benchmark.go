// Package benchmark runs end-to-end interpolation scenarios: fit on a
// blackbox function, predict, stream updates, predict again and, in one
// dimension, calibrate the bandwidth on a held-out set.
package benchmark

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/copyleftdev/flashrbf/internal/interpolation/kernels"
	"github.com/copyleftdev/flashrbf/internal/interpolation/linalg"
	"github.com/copyleftdev/flashrbf/internal/interpolation/rbf"
)

// Scenario names a benchmark scenario.
type Scenario string

const (
	Scenario1D Scenario = "1d"
	ScenarioND Scenario = "nd"
)

// ParseScenario accepts "1d" or "nd".
func ParseScenario(s string) (Scenario, error) {
	switch Scenario(s) {
	case Scenario1D, ScenarioND:
		return Scenario(s), nil
	}
	return "", fmt.Errorf("unknown scenario %q", s)
}

// Domains of the blackbox functions.
var (
	Bounds1D = [2]float64{0.1, 5.0}
	BoundsND = [2]float64{-5.0, 5.0}
)

// Blackbox1D is x² + 2·sin(2πx).
func Blackbox1D(x float64) float64 {
	return x*x + 2.0*math.Sin(2.0*math.Pi*x)
}

// Rastrigin is 10·dim + Σ(x² + 10·cos(2πx)).
func Rastrigin(x []float64) float64 {
	sum := 10.0 * float64(len(x))
	for _, v := range x {
		sum += v*v + 10.0*math.Cos(2.0*math.Pi*v)
	}
	return sum
}

// Options configures a run. Zero fields take the scenario defaults; a
// negative Updates disables the update stage.
type Options struct {
	Seed        uint64
	TrainPoints int
	Updates     int
	Dimension   int
	Predictions int
	Kernel      kernels.Kernel
	Bandwidth   float64
	Logger      *zap.Logger
}

// DefaultOptions returns the reference settings for a scenario.
func DefaultOptions(s Scenario) Options {
	opts := Options{
		Seed:        1,
		TrainPoints: 10,
		Updates:     5,
		Dimension:   1,
		Predictions: 50,
		Kernel:      kernels.Gaussian,
		Bandwidth:   1.0,
	}
	if s == ScenarioND {
		opts.Dimension = 100
	}
	return opts
}

func (o Options) withDefaults(s Scenario) Options {
	def := DefaultOptions(s)
	if o.TrainPoints <= 0 {
		o.TrainPoints = def.TrainPoints
	}
	switch {
	case o.Updates == 0:
		o.Updates = def.Updates
	case o.Updates < 0:
		o.Updates = 0
	}
	if o.Dimension <= 0 || s == Scenario1D {
		o.Dimension = def.Dimension
	}
	if o.Predictions <= 0 {
		o.Predictions = def.Predictions
	}
	if o.Bandwidth == 0 {
		o.Bandwidth = def.Bandwidth
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Report holds the inputs, predictions and timings of one run.
type Report struct {
	Scenario  Scenario
	Dimension int
	Kernel    kernels.Kernel
	// Bandwidth is the bandwidth the model ends with.
	Bandwidth float64

	TrainPoints  [][]float64
	TrainOutputs []float64
	// Observations streamed into the model after the initial fit.
	UpdatePoints  [][]float64
	UpdateOutputs []float64

	// Predictions on disjoint query sets before and after the updates.
	BeforeQueries [][]float64
	BeforeOutputs []float64
	AfterQueries  [][]float64
	AfterOutputs  []float64

	// Held-out RMSE around calibration, 1-D only.
	Calibrated          bool
	RMSEBeforeCalibrate float64
	RMSEAfterCalibrate  float64

	FitDuration       time.Duration
	PredictDuration   time.Duration
	UpdateDuration    time.Duration
	CalibrateDuration time.Duration
	TotalDuration     time.Duration

	Model *rbf.Model
}

// LogFields flattens the report summary for structured logging.
func (r *Report) LogFields() map[string]interface{} {
	fields := map[string]interface{}{
		"scenario":       string(r.Scenario),
		"dimension":      r.Dimension,
		"kernel":         r.Kernel.String(),
		"bandwidth":      r.Bandwidth,
		"training_size":  r.Model.Len(),
		"fit_ms":         ms(r.FitDuration),
		"predict_ms":     ms(r.PredictDuration),
		"update_ms":      ms(r.UpdateDuration),
		"total_ms":       ms(r.TotalDuration),
		"predictions":    len(r.BeforeOutputs) + len(r.AfterOutputs),
		"update_samples": len(r.UpdatePoints),
	}
	if r.Calibrated {
		fields["calibrate_ms"] = ms(r.CalibrateDuration)
		fields["rmse_before_calibrate"] = r.RMSEBeforeCalibrate
		fields["rmse_after_calibrate"] = r.RMSEAfterCalibrate
	}
	return fields
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

// Run executes a scenario.
func Run(ctx context.Context, s Scenario, opts Options) (*Report, error) {
	switch s {
	case Scenario1D:
		return Run1D(ctx, opts)
	case ScenarioND:
		return RunND(ctx, opts)
	}
	return nil, fmt.Errorf("unknown scenario %q", s)
}

// sampler draws uniform points in a box.
type sampler struct {
	dist distuv.Uniform
}

func newSampler(seed uint64, bounds [2]float64) *sampler {
	return &sampler{dist: distuv.Uniform{
		Min: bounds[0],
		Max: bounds[1],
		Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
	}}
}

func (s *sampler) points(n, dim int) [][]float64 {
	pts := make([][]float64, n)
	for i := range pts {
		pts[i] = make([]float64, dim)
		for j := range pts[i] {
			pts[i][j] = s.dist.Rand()
		}
	}
	return pts
}

// Linspace returns n evenly spaced values over [lo, hi].
func Linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// Run1D fits x² + 2·sin(2πx) on an evenly spaced grid, predicts on random
// points, streams random observations, predicts again and calibrates on a
// held-out set followed by a refit.
func Run1D(ctx context.Context, opts Options) (*Report, error) {
	opts = opts.withDefaults(Scenario1D)
	rng := newSampler(opts.Seed, Bounds1D)

	grid := Linspace(Bounds1D[0], Bounds1D[1], opts.TrainPoints)
	train := make([][]float64, len(grid))
	for i, x := range grid {
		train[i] = []float64{x}
	}
	truth := func(p []float64) float64 { return Blackbox1D(p[0]) }

	// queries before, queries after, held-out set
	queries := rng.points(opts.Predictions, 1)
	updates := rng.points(opts.Updates, 1)
	heldOut := rng.points(opts.Predictions, 1)

	report, err := run(ctx, Scenario1D, opts, train, queries, updates, truth)
	if err != nil {
		return nil, err
	}

	heldOutOutputs := evaluate(heldOut, truth)
	if report.RMSEBeforeCalibrate, err = heldOutRMSE(report.Model, heldOut, heldOutOutputs); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	if err := report.Model.Calibrate(heldOut, heldOutOutputs); err != nil {
		return nil, fmt.Errorf("calibrate: %w", err)
	}
	if err := report.Model.Refit(); err != nil {
		return nil, fmt.Errorf("refit after calibration: %w", err)
	}
	report.CalibrateDuration = time.Since(start)
	report.TotalDuration += report.CalibrateDuration

	report.Calibrated = true
	report.Bandwidth = report.Model.Bandwidth()
	if report.RMSEAfterCalibrate, err = heldOutRMSE(report.Model, heldOut, heldOutOutputs); err != nil {
		return nil, err
	}
	return report, nil
}

// RunND fits the Rastrigin function on random points in [-5, 5]^dim,
// predicts, streams the first queries back as observations and predicts
// again.
func RunND(ctx context.Context, opts Options) (*Report, error) {
	opts = opts.withDefaults(ScenarioND)
	rng := newSampler(opts.Seed, BoundsND)

	train := rng.points(opts.TrainPoints, opts.Dimension)
	queries := rng.points(opts.Predictions, opts.Dimension)

	n := opts.Updates
	if n > len(queries) {
		n = len(queries)
	}
	return run(ctx, ScenarioND, opts, train, queries, queries[:n], Rastrigin)
}

// run fits, predicts on the first half of the queries, applies the updates
// one at a time and predicts on the second half.
func run(ctx context.Context, s Scenario, opts Options, train, queries, updates [][]float64, truth func([]float64) float64) (*Report, error) {
	report := &Report{
		Scenario:     s,
		Dimension:    opts.Dimension,
		Kernel:       opts.Kernel,
		TrainPoints:  train,
		TrainOutputs: evaluate(train, truth),
	}
	half := len(queries) / 2
	report.BeforeQueries, report.AfterQueries = queries[:half], queries[half:]
	report.UpdatePoints = updates
	report.UpdateOutputs = evaluate(updates, truth)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total := time.Now()

	start := time.Now()
	model, err := rbf.New(train, report.TrainOutputs,
		rbf.WithKernel(opts.Kernel),
		rbf.WithBandwidth(opts.Bandwidth),
		rbf.WithLogger(opts.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	report.FitDuration = time.Since(start)
	report.Model = model

	start = time.Now()
	if report.BeforeOutputs, err = model.Predict(report.BeforeQueries); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	report.PredictDuration = time.Since(start)

	start = time.Now()
	for i := range updates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := model.Update(updates[i:i+1], report.UpdateOutputs[i:i+1]); err != nil {
			return nil, fmt.Errorf("update %d: %w", i, err)
		}
	}
	report.UpdateDuration = time.Since(start)

	start = time.Now()
	if report.AfterOutputs, err = model.Predict(report.AfterQueries); err != nil {
		return nil, fmt.Errorf("predict after update: %w", err)
	}
	report.PredictDuration += time.Since(start)

	report.TotalDuration = time.Since(total)
	report.Bandwidth = model.Bandwidth()
	return report, nil
}

func evaluate(points [][]float64, f func([]float64) float64) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = f(p)
	}
	return out
}

func heldOutRMSE(m *rbf.Model, points [][]float64, outputs []float64) (float64, error) {
	pred, err := m.Predict(points)
	if err != nil {
		return 0, fmt.Errorf("predict held-out set: %w", err)
	}
	return linalg.RMSE(pred, outputs), nil
}
