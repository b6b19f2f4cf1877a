package linalg

import (
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/flashrbf/internal/interpolation/kernels"
)

// DesignMatrix returns the |a| x |b| matrix of kernel evaluations
// kernel(max(|a_i - b_j|^2, eps), bandwidth). Empty inputs give an empty matrix.
func DesignMatrix(a, b [][]float64, kernel kernels.Kernel, bandwidth float64) *mat.Dense {
	if len(a) == 0 || len(b) == 0 {
		return &mat.Dense{}
	}
	dst := mat.NewDense(len(a), len(b), nil)
	DesignMatrixTo(dst, a, b, kernel, bandwidth)
	return dst
}

// DesignMatrixTo writes the design matrix of a and b into dst, which must be
// |a| x |b|.
func DesignMatrixTo(dst *mat.Dense, a, b [][]float64, kernel kernels.Kernel, bandwidth float64) {
	r, c := dst.Dims()
	if r != len(a) || c != len(b) {
		panic(mat.ErrShape)
	}
	for i := range a {
		row := dst.RawRowView(i)
		for j := range b {
			row[j] = kernel.Eval(FlooredDistance(a[i], b[j]), bandwidth)
		}
	}
}
