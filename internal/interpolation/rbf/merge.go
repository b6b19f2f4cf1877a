package rbf

import "gonum.org/v1/gonum/floats"

// MergeUniquePoints appends the new points and their outputs to the training
// set, skipping any point exactly equal, component by component, to one
// already present. Points appended earlier in the same call count as present.
// It returns the number of points appended.
func MergeUniquePoints(points *[][]float64, outputs *[]float64, newPoints [][]float64, newOutputs []float64) int {
	added := 0
	for i, p := range newPoints {
		if containsPoint(*points, p) {
			continue
		}
		*points = append(*points, append([]float64(nil), p...))
		*outputs = append(*outputs, newOutputs[i])
		added++
	}
	return added
}

func containsPoint(points [][]float64, p []float64) bool {
	for _, q := range points {
		if floats.Equal(p, q) {
			return true
		}
	}
	return false
}
