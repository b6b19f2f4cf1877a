package rbf

import (
	"math"

	"go.uber.org/zap"

	"github.com/copyleftdev/flashrbf/internal/interpolation"
	"github.com/copyleftdev/flashrbf/internal/interpolation/linalg"
)

// Calibration is the bandwidth search interval and step used by Calibrate.
type Calibration struct {
	Lower float64
	Upper float64
	Step  float64
}

// DefaultCalibration searches [0.1, 1.0] with a step of 0.001.
func DefaultCalibration() Calibration {
	return Calibration{Lower: 0.1, Upper: 1.0, Step: 0.001}
}

// Validate requires 0 < Lower < Upper < +Inf and a positive Step.
func (c Calibration) Validate() error {
	if !(c.Lower > 0) || !(c.Upper > c.Lower) || math.IsInf(c.Upper, 1) {
		return interpolation.NewErrorf(interpolation.ErrInvalidArgument,
			"calibration interval must satisfy 0 < lower < upper, got [%v, %v]", c.Lower, c.Upper)
	}
	if !(c.Step > 0) {
		return interpolation.NewErrorf(interpolation.ErrInvalidArgument,
			"calibration step must be positive, got %v", c.Step)
	}
	return nil
}

// Calibrate searches the calibration interval for the bandwidth minimizing the
// mean of the training RMSE and the validation RMSE, and keeps the best one.
//
// The search halves the interval like a bisection, moving the upper bound
// down when the candidate scores worse than the best so far and the lower
// bound up otherwise. It is not guaranteed to find the global optimum.
// Candidates are scored with the current weights; the weights are not refit,
// neither during the search nor for the bandwidth finally kept. Call Refit to
// obtain weights consistent with the new bandwidth.
func (m *Model) Calibrate(validationPoints [][]float64, validationOutputs []float64) error {
	const op = "Calibrate"

	if m.state != interpolation.Fitted {
		return interpolation.NewError(interpolation.ErrInvalidModel,
			"model is not fitted").WithComponent(component).WithOperation(op)
	}
	if len(validationPoints) == 0 {
		return interpolation.NewError(interpolation.ErrSizeMismatch,
			"validation set must not be empty").WithComponent(component).WithOperation(op)
	}
	if len(validationPoints) != len(validationOutputs) {
		return interpolation.NewErrorf(interpolation.ErrSizeMismatch,
			"%d validation points but %d outputs", len(validationPoints), len(validationOutputs)).
			WithComponent(component).WithOperation(op)
	}
	if err := checkDims(validationPoints, m.dim); err != nil {
		return err.WithComponent(component).WithOperation(op)
	}

	original := m.bandwidth
	score := func() (float64, error) {
		trainPred, err := m.predict(m.points)
		if err != nil {
			return 0, err
		}
		validPred, err := m.predict(validationPoints)
		if err != nil {
			return 0, err
		}
		return (linalg.RMSE(trainPred, m.outputs) + linalg.RMSE(validPred, validationOutputs)) / 2.0, nil
	}

	bestRMSE, err := score()
	if err != nil {
		return interpolation.WrapError(err, "scoring current bandwidth").WithComponent(component).WithOperation(op)
	}
	bestBandwidth := m.bandwidth

	lo, hi := m.calibration.Lower, m.calibration.Upper
	diff := m.calibration.Step
	mid := (lo + hi) / 2.0
	iterations := 0

	for lo < hi {
		m.bandwidth = mid
		rmse, err := score()
		if err != nil {
			m.bandwidth = original
			return interpolation.WrapErrorf(err, "scoring bandwidth %v", mid).WithComponent(component).WithOperation(op)
		}
		if rmse < bestRMSE {
			bestRMSE = rmse
			bestBandwidth = mid
		}
		if rmse > bestRMSE {
			hi = mid - diff
		} else {
			lo = mid + diff
		}
		mid = (lo + hi) / 2.0
		iterations++
	}

	m.bandwidth = bestBandwidth

	m.logger.Info("Calibrated bandwidth",
		zap.Float64("previous", original),
		zap.Float64("bandwidth", bestBandwidth),
		zap.Float64("rmse", bestRMSE),
		zap.Int("iterations", iterations),
	)
	return nil
}
