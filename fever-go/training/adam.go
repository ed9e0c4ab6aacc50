package training

import "math"

// Adam is the Adam optimizer with L2 weight decay added to the gradient, as
// torch.optim.Adam does.
type Adam struct {
	LR          float64
	Beta1       float64
	Beta2       float64
	Eps         float64
	WeightDecay float64

	steps int
	m, v  [][]float64
}

// NewAdam returns an optimizer with the usual betas and epsilon.
func NewAdam(lr, weightDecay float64) *Adam {
	return &Adam{LR: lr, Beta1: 0.9, Beta2: 0.999, Eps: 1e-8, WeightDecay: weightDecay}
}

// Step updates params in place from grads.
func (a *Adam) Step(d Device, params, grads [][]float64) error {
	if a.m == nil {
		for _, p := range params {
			a.m = append(a.m, make([]float64, len(p)))
			a.v = append(a.v, make([]float64, len(p)))
		}
	}
	a.steps++
	c1 := 1 - math.Pow(a.Beta1, float64(a.steps))
	c2 := 1 - math.Pow(a.Beta2, float64(a.steps))

	for i, p := range params {
		g, m, v := grads[i], a.m[i], a.v[i]
		err := d.run(len(p), func(lo, hi int) {
			for k := lo; k < hi; k++ {
				gk := g[k] + a.WeightDecay*p[k]
				m[k] = a.Beta1*m[k] + (1-a.Beta1)*gk
				v[k] = a.Beta2*v[k] + (1-a.Beta2)*gk*gk
				p[k] -= a.LR * (m[k] / c1) / (math.Sqrt(v[k]/c2) + a.Eps)
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}
