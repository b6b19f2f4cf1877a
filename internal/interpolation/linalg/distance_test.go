package linalg

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSquaredEuclidean(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
	}{
		{"empty", nil, nil, 0},
		{"same point", []float64{1, 2, 3}, []float64{1, 2, 3}, 0},
		{"unit diagonal", []float64{0, 0}, []float64{1, 1}, 2},
		{"three dims", []float64{1, -2, 3}, []float64{4, 2, 3}, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SquaredEuclidean(tt.a, tt.b))
		})
	}
}

func TestSquaredEuclideanProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	points := randomPoints(rng, 20, 4)

	for i := range points {
		assert.Equal(t, 0.0, SquaredEuclidean(points[i], points[i]), "distance to self")
		for j := range points {
			assert.Equal(t, SquaredEuclidean(points[i], points[j]), SquaredEuclidean(points[j], points[i]), "symmetry")
		}
	}
}

func TestFlooredDistance(t *testing.T) {
	p := []float64{3, 4}
	assert.Equal(t, MachineEpsilon, FlooredDistance(p, p))
	assert.Equal(t, 25.0, FlooredDistance(p, []float64{0, 0}))
	assert.Equal(t, math.Nextafter(1, 2)-1, MachineEpsilon)
}

func TestRMSE(t *testing.T) {
	assert.Equal(t, 0.25, RMSE([]float64{2.0, 4.0, 6.0, 8.0}, []float64{1.5, 4.5, 6.5, 8.5}))

	x := []float64{1, -2, 3.5}
	assert.Equal(t, 0.0, RMSE(x, x))

	// sqrt(9 + 16) / 2, not the textbook sqrt(25 / 2)
	assert.Equal(t, 2.5, RMSE([]float64{3, 4}, []float64{0, 0}))
}
