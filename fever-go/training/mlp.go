package training

import (
	"math"
	"math/rand"

	"github.com/takuma-ynd/fever-baselines/fever-golib/errors"
	"github.com/takuma-ynd/fever-baselines/fever-golib/sparse"
	"gonum.org/v1/gonum/mat"
)

// ErrShapeMismatch is returned when features or a checkpoint do not fit the
// dimensions of a model.
var ErrShapeMismatch = errors.New("shape mismatch")

// SimpleMLP is a one hidden layer perceptron:
//
//   logits = W2 · drop(relu(drop(W1 · x + B1))) + B2
//
// Dropout is only applied while training.
type SimpleMLP struct {
	In, Hidden, Out int
	Dropout         float64

	W1 *mat.Dense // Hidden x In
	B1 []float64
	W2 *mat.Dense // Out x Hidden
	B2 []float64

	device Device
}

// NewSimpleMLP returns a model initialized like torch's nn.Linear: weights and
// biases uniform in ±1/sqrt(fan_in).
func NewSimpleMLP(in, hidden, out int, dropout float64, rng *rand.Rand) (*SimpleMLP, error) {
	if in <= 0 || hidden <= 0 || out <= 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "invalid MLP shape %dx%dx%d", in, hidden, out)
	}
	if dropout < 0 || dropout >= 1 {
		return nil, errors.Errorf("dropout must be in [0, 1), got %v", dropout)
	}
	m := &SimpleMLP{
		In:      in,
		Hidden:  hidden,
		Out:     out,
		Dropout: dropout,
		W1:      mat.NewDense(hidden, in, nil),
		B1:      make([]float64, hidden),
		W2:      mat.NewDense(out, hidden, nil),
		B2:      make([]float64, out),
		device:  CPU,
	}
	uniform(rng, m.W1.RawMatrix().Data, in)
	uniform(rng, m.B1, in)
	uniform(rng, m.W2.RawMatrix().Data, hidden)
	uniform(rng, m.B2, hidden)
	return m, nil
}

func uniform(rng *rand.Rand, xs []float64, fanIn int) {
	bound := 1 / math.Sqrt(float64(fanIn))
	for i := range xs {
		xs[i] = (2*rng.Float64() - 1) * bound
	}
}

// To moves the model to a device.
func (m *SimpleMLP) To(d Device) *SimpleMLP {
	m.device = d
	return m
}

// Device returns the device the model computes on.
func (m *SimpleMLP) Device() Device {
	return m.device
}

// params returns the parameter slices in a fixed order; they alias the model.
func (m *SimpleMLP) params() [][]float64 {
	return [][]float64{m.W1.RawMatrix().Data, m.B1, m.W2.RawMatrix().Data, m.B2}
}

func (m *SimpleMLP) snapshot() [][]float64 {
	var out [][]float64
	for _, p := range m.params() {
		out = append(out, append([]float64(nil), p...))
	}
	return out
}

func (m *SimpleMLP) load(snapshot [][]float64) {
	for i, p := range m.params() {
		copy(p, snapshot[i])
	}
}

func (m *SimpleMLP) checkWidth(x *sparse.Matrix) error {
	if x == nil || x.Cols != m.In {
		var cols int
		if x != nil {
			cols = x.Cols
		}
		return errors.Wrapf(ErrShapeMismatch, "model expects %d features, got %d", m.In, cols)
	}
	return nil
}

// hiddenLayer writes W1 · x + B1 for the given rows of x into z. x is sparse,
// so only the columns of W1 with a non-zero feature are touched.
func (m *SimpleMLP) hiddenLayer(x *sparse.Matrix, rows []int, z *mat.Dense) error {
	w := m.W1.RawMatrix().Data
	zs := z.RawMatrix()
	return m.device.run(m.Hidden, func(lo, hi int) {
		for r, i := range rows {
			zr := zs.Data[r*zs.Stride : r*zs.Stride+m.Hidden]
			copy(zr[lo:hi], m.B1[lo:hi])
			row := x.Row(i)
			for k, idx := range row.Indices {
				v := row.Values[k]
				for h := lo; h < hi; h++ {
					zr[h] += w[h*m.In+idx] * v
				}
			}
		}
	})
}

// outputLayer returns a · W2ᵀ + B2.
func (m *SimpleMLP) outputLayer(a *mat.Dense) *mat.Dense {
	n, _ := a.Dims()
	out := mat.NewDense(n, m.Out, nil)
	out.Mul(a, m.W2.T())
	for r := 0; r < n; r++ {
		row := out.RawRowView(r)
		for j := range row {
			row[j] += m.B2[j]
		}
	}
	return out
}

// logits runs the model in eval mode on the given rows.
func (m *SimpleMLP) logits(x *sparse.Matrix, rows []int) (*mat.Dense, error) {
	z := mat.NewDense(len(rows), m.Hidden, nil)
	if err := m.hiddenLayer(x, rows, z); err != nil {
		return nil, err
	}
	z.Apply(func(i, j int, v float64) float64 {
		return math.Max(v, 0)
	}, z)
	return m.outputLayer(z), nil
}

// Predict returns the arg max class of every row of x, batchSize rows at a
// time.
func (m *SimpleMLP) Predict(x *sparse.Matrix, batchSize int) ([]int, error) {
	if err := m.checkWidth(x); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = x.Rows()
	}
	preds := make([]int, 0, x.Rows())
	rows := make([]int, 0, batchSize)
	for start := 0; start < x.Rows(); start += batchSize {
		rows = rows[:0]
		for i := start; i < min(start+batchSize, x.Rows()); i++ {
			rows = append(rows, i)
		}
		out, err := m.logits(x, rows)
		if err != nil {
			return nil, err
		}
		for r := range rows {
			preds = append(preds, argmax(out.RawRowView(r)))
		}
	}
	return preds, nil
}

func argmax(xs []float64) int {
	best := 0
	for i, x := range xs {
		if x > xs[best] {
			best = i
		}
	}
	return best
}

// softmax replaces xs by softmax(xs) and returns log(softmax(xs)[target]).
func softmax(xs []float64, target int) float64 {
	max := xs[argmax(xs)]
	shifted := xs[target] - max
	var sum float64
	for i, x := range xs {
		xs[i] = math.Exp(x - max)
		sum += xs[i]
	}
	for i := range xs {
		xs[i] /= sum
	}
	return shifted - math.Log(sum)
}
