package rbf

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/copyleftdev/flashrbf/internal/interpolation"
	"github.com/copyleftdev/flashrbf/internal/interpolation/kernels"
)

func blackbox(x float64) float64 {
	return x*x + 2.0*math.Sin(2.0*math.Pi*x)
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

func oneDimensional(xs []float64, f func(float64) float64) ([][]float64, []float64) {
	points := make([][]float64, len(xs))
	outputs := make([]float64, len(xs))
	for i, x := range xs {
		points[i] = []float64{x}
		outputs[i] = f(x)
	}
	return points, outputs
}

func TestPredictRegression(t *testing.T) {
	m, err := New([][]float64{{1.0, 2.0}, {3.0, 4.0}}, []float64{5.0, 6.0})
	require.NoError(t, err)

	prediction, err := m.Predict([][]float64{{2.5, 3.5}})
	require.NoError(t, err)
	require.Len(t, prediction, 1)
	assert.Equal(t, 5.11861403058931, prediction[0])
}

func TestDefaults(t *testing.T) {
	m, err := New([][]float64{{0}, {1}}, []float64{0, 1})
	require.NoError(t, err)

	assert.Equal(t, kernels.Gaussian, m.Kernel())
	assert.Equal(t, DefaultBandwidth, m.Bandwidth())
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 1, m.Dim())
	assert.Equal(t, interpolation.Fitted, m.State())
	assert.Len(t, m.Weights(), 2)
}

func TestInterpolatesTrainingPoints(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	scattered := make([][]float64, 6)
	scatteredOut := make([]float64, len(scattered))
	for i := range scattered {
		scattered[i] = []float64{rng.Float64()*4 - 2, rng.Float64()*4 - 2}
		scatteredOut[i] = scattered[i][0]*scattered[i][1] + math.Cos(scattered[i][0])
	}
	linePoints, lineOut := oneDimensional(linspace(0.1, 5.0, 10), blackbox)
	tiny, tinyOut := oneDimensional([]float64{0, 1, 2}, blackbox)

	tests := []struct {
		name      string
		kernel    kernels.Kernel
		bandwidth float64
		points    [][]float64
		outputs   []float64
	}{
		{"gaussian", kernels.Gaussian, 0.5, linePoints, lineOut},
		{"multiquadric", kernels.Multiquadric, 1.0, scattered, scatteredOut},
		{"inverse multiquadric", kernels.InverseMultiquadric, 1.0, scattered, scatteredOut},
		{"linear", kernels.Linear, 1.0, tiny, tinyOut},
		{"cubic", kernels.Cubic, 1.0, tiny, tinyOut},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.points, tt.outputs, WithKernel(tt.kernel), WithBandwidth(tt.bandwidth))
			require.NoError(t, err)

			got, err := m.Predict(tt.points)
			require.NoError(t, err)
			for i := range got {
				assert.InDelta(t, tt.outputs[i], got[i], 1e-6, "training point %d", i)
			}
		})
	}
}

func TestCoincidentPointInverseMultiquadric(t *testing.T) {
	points := [][]float64{{0, 0}, {1, 0}, {0, 1}}
	m, err := New(points, []float64{1, 2, 3}, WithKernel(kernels.InverseMultiquadric), WithBandwidth(1e-3))
	require.NoError(t, err)

	got, err := m.Predict([][]float64{{0, 0}})
	require.NoError(t, err)
	assert.False(t, math.IsNaN(got[0]))
	assert.False(t, math.IsInf(got[0], 0))
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		points  [][]float64
		outputs []float64
		opts    []Option
		kind    error
		message string
	}{
		{"empty", nil, nil, nil, interpolation.ErrSizeMismatch, "training set must not be empty"},
		{"length mismatch", [][]float64{{1}, {2}}, []float64{1}, nil, interpolation.ErrSizeMismatch, "2 points but 1 outputs"},
		{"zero dimension", [][]float64{{}, {}}, []float64{1, 2}, nil, interpolation.ErrSizeMismatch, "at least one dimension"},
		{"ragged points", [][]float64{{1, 2}, {3}}, []float64{1, 2}, nil, interpolation.ErrSizeMismatch, "point 1 has dimension 1, want 2"},
		{"zero bandwidth", [][]float64{{1}}, []float64{1}, []Option{WithBandwidth(0)}, interpolation.ErrInvalidArgument, "bandwidth must be positive"},
		{"NaN bandwidth", [][]float64{{1}}, []float64{1}, []Option{WithBandwidth(math.NaN())}, interpolation.ErrInvalidArgument, "bandwidth must be positive"},
		{"unknown kernel", [][]float64{{1}}, []float64{1}, []Option{WithKernel(kernels.Kernel(9))}, interpolation.ErrInvalidArgument, "unknown kernel 9"},
		{"bad calibration", [][]float64{{1}}, []float64{1}, []Option{WithCalibration(Calibration{Lower: 1, Upper: 0.5, Step: 0.1})}, interpolation.ErrInvalidArgument, "calibration interval"},
		{"singular design matrix", [][]float64{{0}, {1}}, []float64{1, 2}, []Option{WithBandwidth(1e-12)}, interpolation.ErrSingularMatrix, "zero pivot in column 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.points, tt.outputs, tt.opts...)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestNewCopiesInput(t *testing.T) {
	points := [][]float64{{0}, {1}}
	outputs := []float64{0, 1}
	m, err := New(points, outputs)
	require.NoError(t, err)

	points[0][0] = 42
	outputs[1] = -7

	gotPoints, gotOutputs := m.TrainingSet()
	assert.Equal(t, [][]float64{{0}, {1}}, gotPoints)
	assert.Equal(t, []float64{0, 1}, gotOutputs)

	gotPoints[1][0] = 99
	again, _ := m.TrainingSet()
	assert.Equal(t, 1.0, again[1][0])
}

func TestPredictErrors(t *testing.T) {
	m, err := New([][]float64{{0, 0}, {1, 1}}, []float64{0, 1})
	require.NoError(t, err)

	_, err = m.Predict([][]float64{{0.5}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, interpolation.ErrSizeMismatch))

	got, err := m.Predict(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = m.Predict([][]float64{{math.NaN(), 0}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, interpolation.ErrNumericInstability))

	// a failed prediction leaves the model usable
	_, err = m.Predict([][]float64{{0.5, 0.5}})
	assert.NoError(t, err)
}

func TestUpdate(t *testing.T) {
	points, outputs := oneDimensional(linspace(0.1, 5.0, 10), blackbox)
	m, err := New(points, outputs, WithBandwidth(0.5))
	require.NoError(t, err)

	newPoints, newOutputs := oneDimensional([]float64{1.45, 3.1}, blackbox)
	require.NoError(t, m.Update(newPoints, newOutputs))
	assert.Equal(t, 12, m.Len())
	assert.Len(t, m.Weights(), 12)

	got, err := m.Predict(newPoints)
	require.NoError(t, err)
	for i := range got {
		assert.InDelta(t, newOutputs[i], got[i], 1e-6)
	}
}

func TestUpdateDuplicateLeavesModelUnchanged(t *testing.T) {
	m, err := New([][]float64{{1, 2}, {3, 4}}, []float64{5, 6})
	require.NoError(t, err)
	before := m.Weights()

	require.NoError(t, m.Update([][]float64{{3, 4}}, []float64{100}))

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, before, m.Weights())
	_, outputs := m.TrainingSet()
	assert.Equal(t, []float64{5, 6}, outputs)
}

func TestUpdateValidation(t *testing.T) {
	m, err := New([][]float64{{1, 2}, {3, 4}}, []float64{5, 6})
	require.NoError(t, err)

	err = m.Update([][]float64{{1, 1}}, []float64{1, 2})
	assert.True(t, errors.Is(err, interpolation.ErrSizeMismatch))

	err = m.Update([][]float64{{1, 1, 1}}, []float64{1})
	assert.True(t, errors.Is(err, interpolation.ErrSizeMismatch))

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, interpolation.Fitted, m.State())
}

func TestUpdateFailureInvalidatesModel(t *testing.T) {
	// with a vanishing bandwidth every Gaussian entry underflows to zero
	m, err := New([][]float64{{0}}, []float64{1}, WithBandwidth(1e-12))
	require.NoError(t, err)

	err = m.Update([][]float64{{1}}, []float64{2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, interpolation.ErrSingularMatrix))
	assert.Equal(t, interpolation.Failed, m.State())
	assert.Nil(t, m.Weights())

	_, err = m.Predict([][]float64{{0.5}})
	assert.True(t, errors.Is(err, interpolation.ErrInvalidModel))
	assert.True(t, errors.Is(m.Update([][]float64{{2}}, []float64{3}), interpolation.ErrInvalidModel))
	assert.True(t, errors.Is(m.Calibrate([][]float64{{2}}, []float64{3}), interpolation.ErrInvalidModel))
}

func TestRefitRecoversConsistency(t *testing.T) {
	m, err := New([][]float64{{0}, {1}, {2}}, []float64{1, 3, 2})
	require.NoError(t, err)
	before := m.Weights()

	require.NoError(t, m.Refit())
	assert.Equal(t, before, m.Weights())
}

func TestModelLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	m, err := New([][]float64{{0}, {1}}, []float64{0, 1}, WithLogger(zap.New(core)))
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("Fitting RBF model").Len())
	assert.Equal(t, 1, logs.FilterMessage("Successfully fitted RBF model").Len())

	require.NoError(t, m.Update([][]float64{{2}}, []float64{4}))
	merged := logs.FilterMessage("Merged observations").All()
	require.Len(t, merged, 1)
	assert.Equal(t, int64(1), merged[0].ContextMap()["added"])
}

func TestString(t *testing.T) {
	m, err := New([][]float64{{0, 0}, {1, 1}}, []float64{0, 1}, WithKernel(kernels.Cubic), WithBandwidth(0.25))
	require.NoError(t, err)

	s := m.String()
	assert.Contains(t, s, "Rbf Model:")
	assert.Contains(t, s, "Kernel: cubic")
	assert.Contains(t, s, "Epsilon: 0.25")
	assert.Contains(t, s, "Points: 2 x 2")
	assert.Contains(t, s, "State: fitted")
}

func TestInterpolatorInterface(t *testing.T) {
	var ip interpolation.Interpolator
	m, err := New([][]float64{{0}, {1}}, []float64{0, 1})
	require.NoError(t, err)
	ip = m

	require.NoError(t, ip.Update([][]float64{{0.5}}, []float64{0.25}))
	got, err := ip.Predict([][]float64{{0.5}})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, got[0], 1e-9)
}
