package linalg

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/flashrbf/internal/interpolation"
)

const component = "linalg"

// LU is an in-place LU factorization with partial pivoting, PA = LU.
// The strict lower triangle of the factor holds the elimination multipliers
// (L has an implicit unit diagonal) and the upper triangle holds U.
type LU struct {
	lu   *mat.Dense
	perm []int
}

// Factorize computes the factorization of the square matrix a. a is not modified.
//
// Pivots are checked for columns 0..n-2 only; a zero final pivot is not
// reported and leads to non-finite solutions.
func (f *LU) Factorize(a mat.Matrix) error {
	const op = "LU.Factorize"

	r, c := a.Dims()
	if r != c {
		return interpolation.NewErrorf(interpolation.ErrSizeMismatch,
			"matrix must be square, got %dx%d", r, c).
			WithComponent(component).WithOperation(op)
	}
	n := r

	f.perm = make([]int, n)
	for i := range f.perm {
		f.perm[i] = i
	}
	if n == 0 {
		f.lu = &mat.Dense{}
		return nil
	}
	f.lu = mat.DenseCopyOf(a)
	lu := f.lu

	for k := 0; k < n-1; k++ {
		maxRow := k
		for i := k + 1; i < n; i++ {
			if math.Abs(lu.At(i, k)) > math.Abs(lu.At(maxRow, k)) {
				maxRow = i
			}
		}
		if lu.At(maxRow, k) == 0 {
			return interpolation.NewErrorf(interpolation.ErrSingularMatrix,
				"zero pivot in column %d", k).
				WithComponent(component).WithOperation(op)
		}
		if maxRow != k {
			swapRows(lu, k, maxRow)
			f.perm[k], f.perm[maxRow] = f.perm[maxRow], f.perm[k]
		}

		pivotRow := lu.RawRowView(k)
		for i := k + 1; i < n; i++ {
			row := lu.RawRowView(i)
			factor := row[k] / pivotRow[k]
			row[k] = factor
			for j := k + 1; j < n; j++ {
				row[j] -= factor * pivotRow[j]
			}
		}
	}
	return nil
}

// SolveVec solves A x = b using the factorization.
func (f *LU) SolveVec(b *mat.VecDense) (*mat.VecDense, error) {
	const op = "LU.SolveVec"

	if f.perm == nil {
		return nil, interpolation.NewError(interpolation.ErrInvalidArgument,
			"factorization not computed").
			WithComponent(component).WithOperation(op)
	}
	n := len(f.perm)
	if b.Len() != n {
		return nil, interpolation.NewErrorf(interpolation.ErrSizeMismatch,
			"incompatible design matrix and right hand side sizes: %d rows, %d values", n, b.Len()).
			WithComponent(component).WithOperation(op)
	}
	if n == 0 {
		return &mat.VecDense{}, nil
	}

	// L y = P b
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		row := f.lu.RawRowView(i)
		var sum float64
		for j := 0; j < i; j++ {
			sum += row[j] * y[j]
		}
		y[i] = b.AtVec(f.perm[i]) - sum
	}

	// U x = y
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		row := f.lu.RawRowView(i)
		var sum float64
		for j := i + 1; j < n; j++ {
			sum += row[j] * x[j]
		}
		x[i] = (y[i] - sum) / row[i]
	}

	return mat.NewVecDense(n, x), nil
}

// Solve factorizes a and solves a x = b.
func Solve(a mat.Matrix, b *mat.VecDense) (*mat.VecDense, error) {
	const op = "Solve"

	r, _ := a.Dims()
	if b.Len() != r {
		return nil, interpolation.NewErrorf(interpolation.ErrSizeMismatch,
			"incompatible design matrix and right hand side sizes: %d rows, %d values", r, b.Len()).
			WithComponent(component).WithOperation(op)
	}

	var lu LU
	if err := lu.Factorize(a); err != nil {
		return nil, err
	}
	return lu.SolveVec(b)
}

func swapRows(m *mat.Dense, i, j int) {
	ri := m.RawRowView(i)
	rj := m.RawRowView(j)
	for k := range ri {
		ri[k], rj[k] = rj[k], ri[k]
	}
}
