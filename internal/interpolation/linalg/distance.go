// Package linalg holds the dense numerical building blocks of the RBF engine:
// distances, design matrices and an LU solver with partial pivoting.
package linalg

import "math"

// MachineEpsilon is the float64 machine epsilon (2^-52). Distances are
// floored at this value before reaching a kernel.
const MachineEpsilon = 2.220446049250313e-16

// SquaredEuclidean returns the sum of squared component differences.
// a and b must have the same length.
func SquaredEuclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

// FlooredDistance returns SquaredEuclidean(a, b), floored at MachineEpsilon.
func FlooredDistance(a, b []float64) float64 {
	return math.Max(SquaredEuclidean(a, b), MachineEpsilon)
}

// RMSE returns sqrt(sum of squared errors) / n.
//
// The division by n instead of sqrt(n) is intentional; bandwidth calibration
// is tuned to this magnitude.
func RMSE(predicted, actual []float64) float64 {
	return math.Sqrt(SquaredEuclidean(predicted, actual)) / float64(len(actual))
}
