// Package interpolation defines the contract shared by scattered-data
// interpolators and the error kinds they report.
package interpolation

// Interpolator predicts outputs at new points and absorbs new observations.
type Interpolator interface {
	// Predict returns one output per point.
	Predict(points [][]float64) ([]float64, error)

	// Update adds new observations and refits the model.
	Update(points [][]float64, outputs []float64) error
}

// State is the fitting state of a model.
type State int

const (
	// Fitted means the weights are consistent with the training set and bandwidth.
	Fitted State = iota
	// Failed means the last refit aborted and the weights are unusable.
	Failed
)

func (s State) String() string {
	switch s {
	case Fitted:
		return "fitted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
