// Package sparse holds the compressed-row feature matrices passed between
// feature extraction, training and evaluation.
package sparse

import (
	"math"
	"sort"

	"github.com/takuma-ynd/fever-baselines/fever-golib/errors"
)

// Vector is a sparse vector with strictly increasing indices.
type Vector struct {
	Indices []int
	Values  []float64
}

// FromCounts builds a Vector from an index -> value map.
func FromCounts(counts map[int]float64) Vector {
	v := Vector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for i := range counts {
		v.Indices = append(v.Indices, i)
	}
	sort.Ints(v.Indices)
	for _, i := range v.Indices {
		v.Values = append(v.Values, counts[i])
	}
	return v
}

// Norm returns the L2 norm of v.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Normalized returns a copy of v scaled to unit L2 norm; the zero vector is
// returned unchanged.
func (v Vector) Normalized() Vector {
	out := Vector{
		Indices: append([]int(nil), v.Indices...),
		Values:  append([]float64(nil), v.Values...),
	}
	norm := v.Norm()
	if norm == 0 {
		return out
	}
	for i := range out.Values {
		out.Values[i] /= norm
	}
	return out
}

// Dot returns the inner product of v and w.
func (v Vector) Dot(w Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(w.Indices) {
		switch {
		case v.Indices[i] == w.Indices[j]:
			sum += v.Values[i] * w.Values[j]
			i++
			j++
		case v.Indices[i] < w.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Cosine returns the cosine similarity of v and w, 0 if either is zero.
func Cosine(v, w Vector) float64 {
	nv, nw := v.Norm(), w.Norm()
	if nv == 0 || nw == 0 {
		return 0
	}
	return v.Dot(w) / (nv * nw)
}

// Matrix is a CSR matrix with a fixed number of columns.
type Matrix struct {
	Cols    int
	Indptr  []int
	Indices []int
	Values  []float64
}

// NewMatrix returns an empty matrix with the given width.
func NewMatrix(cols int) *Matrix {
	return &Matrix{Cols: cols, Indptr: []int{0}}
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int {
	return len(m.Indptr) - 1
}

// AppendRow appends the concatenation of the given segments as a new row.
// Each segment is placed after the previous one; widths gives the column
// span of every segment and must sum to m.Cols. On error m is unchanged.
func (m *Matrix) AppendRow(widths []int, segments ...Vector) error {
	if len(widths) != len(segments) {
		return errors.Errorf("got %d segments but %d widths", len(segments), len(widths))
	}
	var span int
	for s, seg := range segments {
		if len(seg.Indices) != len(seg.Values) {
			return errors.Errorf("segment %d has %d indices and %d values", s, len(seg.Indices), len(seg.Values))
		}
		for _, idx := range seg.Indices {
			if idx < 0 || idx >= widths[s] {
				return errors.Errorf("index %d out of range for segment %d of width %d", idx, s, widths[s])
			}
		}
		span += widths[s]
	}
	if span != m.Cols {
		return errors.Errorf("segments span %d columns, matrix has %d", span, m.Cols)
	}

	var offset int
	for s, seg := range segments {
		for k, idx := range seg.Indices {
			if seg.Values[k] == 0 {
				continue
			}
			m.Indices = append(m.Indices, offset+idx)
			m.Values = append(m.Values, seg.Values[k])
		}
		offset += widths[s]
	}
	m.Indptr = append(m.Indptr, len(m.Indices))
	return nil
}

// Validate checks the CSR invariants: row pointers start at 0 and never
// decrease, and every column index lies in [0, Cols).
func (m *Matrix) Validate() error {
	if m.Cols < 0 {
		return errors.Errorf("corrupt matrix: %d columns", m.Cols)
	}
	if len(m.Indptr) == 0 || m.Indptr[0] != 0 {
		return errors.Errorf("corrupt matrix: row pointers must start at 0")
	}
	if len(m.Indices) != len(m.Values) || m.Indptr[len(m.Indptr)-1] != len(m.Indices) {
		return errors.Errorf("corrupt matrix: %d row pointers, %d indices, %d values", len(m.Indptr), len(m.Indices), len(m.Values))
	}
	for i := 1; i < len(m.Indptr); i++ {
		if m.Indptr[i] < m.Indptr[i-1] {
			return errors.Errorf("corrupt matrix: row %d ends before it starts", i-1)
		}
	}
	for _, idx := range m.Indices {
		if idx < 0 || idx >= m.Cols {
			return errors.Errorf("corrupt matrix: column %d out of range for width %d", idx, m.Cols)
		}
	}
	return nil
}

// Row returns row i as a Vector sharing storage with m.
func (m *Matrix) Row(i int) Vector {
	start, end := m.Indptr[i], m.Indptr[i+1]
	return Vector{Indices: m.Indices[start:end], Values: m.Values[start:end]}
}

// HStack concatenates matrices with the same number of rows column-wise.
func HStack(ms ...*Matrix) (*Matrix, error) {
	if len(ms) == 0 {
		return NewMatrix(0), nil
	}
	if len(ms) == 1 {
		return ms[0], nil
	}
	widths := make([]int, len(ms))
	var cols int
	for i, m := range ms {
		if m.Rows() != ms[0].Rows() {
			return nil, errors.Errorf("cannot stack %d rows with %d rows", m.Rows(), ms[0].Rows())
		}
		widths[i] = m.Cols
		cols += m.Cols
	}
	out := NewMatrix(cols)
	segs := make([]Vector, len(ms))
	for r := 0; r < ms[0].Rows(); r++ {
		for i, m := range ms {
			segs[i] = m.Row(r)
		}
		if err := out.AppendRow(widths, segs...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Labeled pairs a feature matrix with one class id per row.
type Labeled struct {
	X *Matrix
	Y []int
}

// Len returns the number of labeled rows.
func (l Labeled) Len() int {
	return len(l.Y)
}

// Width returns the feature width.
func (l Labeled) Width() int {
	if l.X == nil {
		return 0
	}
	return l.X.Cols
}
