package training

import (
	"math/rand"

	"github.com/takuma-ynd/fever-baselines/fever-golib/sparse"
	"gonum.org/v1/gonum/mat"
)

// newGradients returns zeroed buffers shaped like m.params().
func (m *SimpleMLP) newGradients() [][]float64 {
	var grads [][]float64
	for _, p := range m.params() {
		grads = append(grads, make([]float64, len(p)))
	}
	return grads
}

// dropoutMask fills mask with 0 with probability Dropout and with
// 1/(1-Dropout) otherwise.
func (m *SimpleMLP) dropoutMask(rng *rand.Rand, mask []float64) {
	if m.Dropout == 0 {
		for i := range mask {
			mask[i] = 1
		}
		return
	}
	scale := 1 / (1 - m.Dropout)
	for i := range mask {
		if rng.Float64() < m.Dropout {
			mask[i] = 0
		} else {
			mask[i] = scale
		}
	}
}

// backward runs a training-mode forward pass over the given rows and writes
// the gradient of the mean cross-entropy into grads. mask1 and mask2 hold the
// dropout masks of the two dropout layers, len(rows) x Hidden each. It
// returns the mean loss.
func (m *SimpleMLP) backward(x *sparse.Matrix, y []int, rows []int, mask1, mask2 []float64, grads [][]float64) (float64, error) {
	n := len(rows)
	z := mat.NewDense(n, m.Hidden, nil)
	if err := m.hiddenLayer(x, rows, z); err != nil {
		return 0, err
	}
	pre := z.RawMatrix().Data
	for k := range pre {
		pre[k] *= mask1[k]
	}
	a := mat.NewDense(n, m.Hidden, nil)
	act := a.RawMatrix().Data
	for k, v := range pre {
		if v > 0 {
			act[k] = v * mask2[k]
		}
	}

	// turn the logits into the gradient of the loss with respect to them
	out := m.outputLayer(a)
	var loss float64
	for r, i := range rows {
		row := out.RawRowView(r)
		loss -= softmax(row, y[i])
		row[y[i]]--
		for j := range row {
			row[j] /= float64(n)
		}
	}

	gw2 := mat.NewDense(m.Out, m.Hidden, grads[2])
	gw2.Mul(out.T(), a)
	gb2 := grads[3]
	clear(gb2)
	for r := 0; r < n; r++ {
		for j, v := range out.RawRowView(r) {
			gb2[j] += v
		}
	}

	da := mat.NewDense(n, m.Hidden, nil)
	da.Mul(out, m.W2)
	delta := da.RawMatrix().Data
	for k := range delta {
		if pre[k] > 0 {
			delta[k] *= mask2[k] * mask1[k]
		} else {
			delta[k] = 0
		}
	}
	if err := m.hiddenGrad(x, rows, da, grads[0], grads[1]); err != nil {
		return 0, err
	}
	return loss / float64(n), nil
}

// hiddenGrad writes the gradients of W1 and B1 given the gradient dz of the
// hidden pre-activations.
func (m *SimpleMLP) hiddenGrad(x *sparse.Matrix, rows []int, dz *mat.Dense, gw, gb []float64) error {
	ds := dz.RawMatrix()
	return m.device.run(m.Hidden, func(lo, hi int) {
		clear(gw[lo*m.In : hi*m.In])
		clear(gb[lo:hi])
		for r, i := range rows {
			dr := ds.Data[r*ds.Stride : r*ds.Stride+m.Hidden]
			row := x.Row(i)
			for h := lo; h < hi; h++ {
				d := dr[h]
				if d == 0 {
					continue
				}
				gb[h] += d
				base := h * m.In
				for k, idx := range row.Indices {
					gw[base+idx] += d * row.Values[k]
				}
			}
		}
	})
}
