package rbf

import "gonum.org/v1/gonum/mat"

// MatrixPool keeps released design matrices so refits can reuse their
// backing storage. It is not safe for concurrent use.
type MatrixPool struct {
	dense []*mat.Dense
}

// NewMatrixPool creates a new MatrixPool
func NewMatrixPool() *MatrixPool {
	return &MatrixPool{
		dense: make([]*mat.Dense, 0, 2),
	}
}

// GetDense returns a zeroed r x c matrix, reusing a pooled one when possible.
func (p *MatrixPool) GetDense(r, c int) *mat.Dense {
	if len(p.dense) > 0 {
		m := p.dense[len(p.dense)-1]
		p.dense = p.dense[:len(p.dense)-1]
		m.Reset()
		m.ReuseAs(r, c)
		return m
	}
	return mat.NewDense(r, c, nil)
}

// PutDense returns a matrix to the pool
func (p *MatrixPool) PutDense(m *mat.Dense) {
	if m == nil || m.IsEmpty() {
		return
	}
	p.dense = append(p.dense, m)
}

// Len reports how many matrices are pooled.
func (p *MatrixPool) Len() int {
	return len(p.dense)
}
