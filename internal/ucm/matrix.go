package ucm

import "math"

// MatrixView is an immutable square matrix. The zero value is the empty
// matrix. Views are safe to share between goroutines.
type MatrixView struct {
	n    int
	data []float64 // row-major, len n*n
}

// NewMatrixView copies rows into a view. Every row must have len(rows)
// entries; callers that cannot guarantee this should go through Decode.
func NewMatrixView(rows [][]float64) MatrixView {
	n := len(rows)
	data := make([]float64, 0, n*n)
	for _, r := range rows {
		data = append(data, r...)
	}
	return MatrixView{n: n, data: data}
}

// Size returns the number of rows (and columns).
func (m MatrixView) Size() int { return m.n }

// At returns element (i, j).
func (m MatrixView) At(i, j int) float64 { return m.data[i*m.n+j] }

// Row returns a copy of row i.
func (m MatrixView) Row(i int) []float64 {
	out := make([]float64, m.n)
	copy(out, m.data[i*m.n:(i+1)*m.n])
	return out
}

// Rows returns a copy of the matrix as a slice of rows.
func (m MatrixView) Rows() [][]float64 {
	out := make([][]float64, m.n)
	for i := range out {
		out[i] = m.Row(i)
	}
	return out
}

// Diagonal returns the member variances.
func (m MatrixView) Diagonal() []float64 {
	out := make([]float64, m.n)
	for i := range out {
		out[i] = m.At(i, i)
	}
	return out
}

// Trace returns the sum of the diagonal.
func (m MatrixView) Trace() float64 {
	var t float64
	for i := 0; i < m.n; i++ {
		t += m.At(i, i)
	}
	return t
}

// IsSymmetric reports whether |m[i][j] - m[j][i]| <= tol for all i, j.
func (m MatrixView) IsSymmetric(tol float64) bool {
	for i := 0; i < m.n; i++ {
		for j := i + 1; j < m.n; j++ {
			if math.Abs(m.At(i, j)-m.At(j, i)) > tol {
				return false
			}
		}
	}
	return true
}

// Equal reports element-wise equality.
func (m MatrixView) Equal(other MatrixView) bool {
	if m.n != other.n {
		return false
	}
	for i, v := range m.data {
		if other.data[i] != v {
			return false
		}
	}
	return true
}
