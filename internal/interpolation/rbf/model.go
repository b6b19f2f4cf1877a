// Package rbf implements radial basis function interpolation of scattered
// multi-dimensional data.
//
// A Model is fitted on construction by solving DesignMatrix · w = outputs with
// an LU factorization. Every update refits from scratch, which costs O(n³) in
// the number of training points; keep training sets small to moderate.
//
// A Model is not safe for concurrent use. Predict only reads, but it must not
// overlap with Update, Calibrate or Refit on the same Model.
package rbf

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/flashrbf/internal/interpolation"
	"github.com/copyleftdev/flashrbf/internal/interpolation/kernels"
	"github.com/copyleftdev/flashrbf/internal/interpolation/linalg"
)

const component = "rbf"

// DefaultBandwidth is the bandwidth used when none is given.
const DefaultBandwidth = 1.0

var _ interpolation.Interpolator = (*Model)(nil)

// Model is an RBF interpolator.
type Model struct {
	// Training data
	points  [][]float64
	outputs []float64
	dim     int

	kernel    kernels.Kernel
	bandwidth float64

	// Interpolation coefficients, one per training point
	weights *mat.VecDense

	state       interpolation.State
	calibration Calibration

	matrixPool *MatrixPool
	logger     *zap.Logger
}

// Option configures a Model.
type Option func(*Model)

// WithKernel selects the kernel. The default is kernels.Gaussian.
func WithKernel(k kernels.Kernel) Option {
	return func(m *Model) {
		m.kernel = k
	}
}

// WithBandwidth sets the kernel bandwidth. The default is DefaultBandwidth.
func WithBandwidth(b float64) Option {
	return func(m *Model) {
		m.bandwidth = b
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithCalibration sets the bandwidth search interval used by Calibrate.
func WithCalibration(c Calibration) Option {
	return func(m *Model) {
		m.calibration = c
	}
}

// New fits a model to the training set. The points and outputs are copied.
func New(points [][]float64, outputs []float64, opts ...Option) (*Model, error) {
	const op = "New"

	m := &Model{
		kernel:      kernels.Gaussian,
		bandwidth:   DefaultBandwidth,
		calibration: DefaultCalibration(),
		matrixPool:  NewMatrixPool(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if !m.kernel.Valid() {
		return nil, interpolation.NewErrorf(interpolation.ErrInvalidArgument,
			"unknown kernel %d", int(m.kernel)).WithComponent(component).WithOperation(op)
	}
	if !(m.bandwidth > 0) || math.IsInf(m.bandwidth, 1) {
		return nil, interpolation.NewErrorf(interpolation.ErrInvalidArgument,
			"bandwidth must be positive and finite, got %v", m.bandwidth).WithComponent(component).WithOperation(op)
	}
	if err := m.calibration.Validate(); err != nil {
		return nil, interpolation.WrapError(err, "invalid calibration").WithComponent(component).WithOperation(op)
	}
	if len(points) == 0 {
		return nil, interpolation.NewError(interpolation.ErrSizeMismatch,
			"training set must not be empty").WithComponent(component).WithOperation(op)
	}
	if len(points) != len(outputs) {
		return nil, interpolation.NewErrorf(interpolation.ErrSizeMismatch,
			"%d points but %d outputs", len(points), len(outputs)).WithComponent(component).WithOperation(op)
	}
	dim := len(points[0])
	if dim == 0 {
		return nil, interpolation.NewError(interpolation.ErrSizeMismatch,
			"points must have at least one dimension").WithComponent(component).WithOperation(op)
	}
	if err := checkDims(points, dim); err != nil {
		return nil, err.WithComponent(component).WithOperation(op)
	}

	m.dim = dim
	m.points = make([][]float64, len(points))
	for i, p := range points {
		m.points[i] = append([]float64(nil), p...)
	}
	m.outputs = append([]float64(nil), outputs...)

	if err := m.fit(); err != nil {
		return nil, interpolation.WrapError(err, "fit failed").WithComponent(component).WithOperation(op)
	}
	return m, nil
}

// fit solves for the weights over the current training set and bandwidth.
func (m *Model) fit() error {
	n := len(m.points)

	m.logger.Debug("Fitting RBF model",
		zap.Int("samples", n),
		zap.Int("features", m.dim),
		zap.Stringer("kernel", m.kernel),
		zap.Float64("bandwidth", m.bandwidth),
	)

	design := m.matrixPool.GetDense(n, n)
	defer m.matrixPool.PutDense(design)
	linalg.DesignMatrixTo(design, m.points, m.points, m.kernel, m.bandwidth)

	weights, err := linalg.Solve(design, mat.NewVecDense(n, append([]float64(nil), m.outputs...)))
	if err != nil {
		return err
	}

	m.weights = weights
	m.state = interpolation.Fitted

	m.logger.Debug("Successfully fitted RBF model",
		zap.Int("samples", n),
		zap.Int("features", m.dim),
	)
	return nil
}

// Predict returns the interpolated output at each point.
func (m *Model) Predict(points [][]float64) ([]float64, error) {
	const op = "Predict"

	if m.state != interpolation.Fitted {
		return nil, interpolation.NewError(interpolation.ErrInvalidModel,
			"model is not fitted").WithComponent(component).WithOperation(op)
	}
	if err := checkDims(points, m.dim); err != nil {
		return nil, err.WithComponent(component).WithOperation(op)
	}
	return m.predict(points)
}

func (m *Model) predict(points [][]float64) ([]float64, error) {
	weights := m.weights.RawVector().Data
	result := make([]float64, len(points))
	for k, x := range points {
		for i, xi := range m.points {
			result[k] += weights[i] * m.kernel.Eval(linalg.FlooredDistance(x, xi), m.bandwidth)
		}
		if math.IsNaN(result[k]) {
			return nil, interpolation.NewErrorf(interpolation.ErrNumericInstability,
				"NaN value in output for point %d", k).WithComponent(component).WithOperation("Predict")
		}
	}
	return result, nil
}

// Update merges new observations into the training set, dropping exact
// duplicates of existing points, and refits the weights. If the refit fails
// the model is left in the failed state.
func (m *Model) Update(points [][]float64, outputs []float64) error {
	const op = "Update"

	if m.state != interpolation.Fitted {
		return interpolation.NewError(interpolation.ErrInvalidModel,
			"model is not fitted").WithComponent(component).WithOperation(op)
	}
	if len(points) != len(outputs) {
		return interpolation.NewErrorf(interpolation.ErrSizeMismatch,
			"%d points but %d outputs", len(points), len(outputs)).WithComponent(component).WithOperation(op)
	}
	if err := checkDims(points, m.dim); err != nil {
		return err.WithComponent(component).WithOperation(op)
	}

	added := MergeUniquePoints(&m.points, &m.outputs, points, outputs)
	m.logger.Debug("Merged observations",
		zap.Int("received", len(points)),
		zap.Int("added", added),
		zap.Int("samples", len(m.points)),
	)

	return m.refit(op)
}

// Refit recomputes the weights at the current bandwidth. Calibrate does not
// refit, so callers that need weights matching the calibrated bandwidth call
// Refit afterwards.
func (m *Model) Refit() error {
	return m.refit("Refit")
}

func (m *Model) refit(op string) error {
	if err := m.fit(); err != nil {
		m.state = interpolation.Failed
		m.weights = nil
		m.logger.Warn("Refit failed, model is no longer usable",
			zap.Int("samples", len(m.points)),
			zap.Float64("bandwidth", m.bandwidth),
			zap.Error(err),
		)
		return interpolation.WrapError(err, "refit failed").WithComponent(component).WithOperation(op)
	}
	return nil
}

// Kernel returns the kernel.
func (m *Model) Kernel() kernels.Kernel { return m.kernel }

// Bandwidth returns the current bandwidth.
func (m *Model) Bandwidth() float64 { return m.bandwidth }

// Len returns the number of training points.
func (m *Model) Len() int { return len(m.points) }

// Dim returns the dimensionality of the training points.
func (m *Model) Dim() int { return m.dim }

// State returns the fitting state.
func (m *Model) State() interpolation.State { return m.state }

// Weights returns a copy of the interpolation weights, or nil if the model failed.
func (m *Model) Weights() []float64 {
	if m.weights == nil {
		return nil
	}
	return append([]float64(nil), m.weights.RawVector().Data...)
}

// TrainingSet returns copies of the training points and outputs.
func (m *Model) TrainingSet() ([][]float64, []float64) {
	points := make([][]float64, len(m.points))
	for i, p := range m.points {
		points[i] = append([]float64(nil), p...)
	}
	return points, append([]float64(nil), m.outputs...)
}

// String renders a boxed summary of the model.
func (m *Model) String() string {
	const width = 48
	line := func(s string) string {
		return fmt.Sprintf("│%-*s│\n", width, s)
	}

	var b strings.Builder
	b.WriteString("┌" + strings.Repeat("─", width) + "┐\n")
	b.WriteString(line("Rbf Model:"))
	b.WriteString("╞" + strings.Repeat("═", width) + "╡\n")
	b.WriteString(line("Kernel: " + m.kernel.String()))
	b.WriteString(line(fmt.Sprintf("Epsilon: %v", m.bandwidth)))
	b.WriteString(line(fmt.Sprintf("Points: %d x %d", len(m.points), m.dim)))
	b.WriteString(line("State: " + m.state.String()))
	b.WriteString("└" + strings.Repeat("─", width) + "┘\n")
	return b.String()
}

func checkDims(points [][]float64, dim int) *interpolation.Error {
	for i, p := range points {
		if len(p) != dim {
			return interpolation.NewErrorf(interpolation.ErrSizeMismatch,
				"point %d has dimension %d, want %d", i, len(p), dim)
		}
	}
	return nil
}
