// Package training trains and checkpoints the MLP that classifies claims
// from their features.
package training

import (
	"math/rand"

	"github.com/montanaflynn/stats"
	"github.com/sbwhitecap/tqdm"
	"github.com/sbwhitecap/tqdm/iterators"
	"github.com/takuma-ynd/fever-baselines/fever-go/evaluation"
	"github.com/takuma-ynd/fever-baselines/fever-golib/errors"
	"github.com/takuma-ynd/fever-baselines/fever-golib/runlog"
	"github.com/takuma-ynd/fever-baselines/fever-golib/sparse"
)

// DefaultSeed seeds every rng of a run unless overridden.
const DefaultSeed = 12459

// PredictBatchSize is the batch size used for predictions.
const PredictBatchSize = 500

// Params are the training hyperparameters.
type Params struct {
	Epochs      int
	LR          float64
	BatchSize   int
	WeightDecay float64
	Seed        int64

	// Progress renders a progress bar over epochs on stderr.
	Progress bool
}

// DefaultParams returns the hyperparameters of the FEVER MLP baseline.
func DefaultParams() Params {
	return Params{
		Epochs:      500,
		LR:          1e-2,
		BatchSize:   90,
		WeightDecay: 1e-4,
		Seed:        DefaultSeed,
	}
}

// NewRand returns the rng of a run, for initialization and shuffling.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func (p Params) validate() error {
	switch {
	case p.Epochs <= 0:
		return errors.Errorf("epochs must be positive, got %d", p.Epochs)
	case p.BatchSize <= 0:
		return errors.Errorf("batch size must be positive, got %d", p.BatchSize)
	case p.LR <= 0:
		return errors.Errorf("learning rate must be positive, got %v", p.LR)
	case p.WeightDecay < 0:
		return errors.Errorf("weight decay must not be negative, got %v", p.WeightDecay)
	}
	return nil
}

// History holds the per-epoch mean training loss and dev accuracy.
type History struct {
	Loss        []float64
	DevAccuracy []float64

	// BestEpoch is the 1-based epoch whose parameters were restored, 0 if
	// the final parameters were kept.
	BestEpoch int
}

// Epochs returns the number of epochs that ran.
func (h History) Epochs() int {
	return len(h.Loss)
}

func checkSet(model *SimpleMLP, set sparse.Labeled, name string) error {
	if err := model.checkWidth(set.X); err != nil {
		return errors.Wrapf(err, "%s features", name)
	}
	if set.X.Rows() != set.Len() {
		return errors.Wrapf(ErrShapeMismatch, "%s has %d rows but %d labels", name, set.X.Rows(), set.Len())
	}
	for _, y := range set.Y {
		if y < 0 || y >= model.Out {
			return errors.Errorf("%s label %d out of range for %d classes", name, y, model.Out)
		}
	}
	return nil
}

// Train fits model on train with Adam and shuffled mini-batches. After each
// epoch the dev accuracy is computed when dev is given, and es, when given,
// decides whether to stop; the best parameters es saw are restored at the end.
func Train(model *SimpleMLP, train sparse.Labeled, params Params, dev *sparse.Labeled, es *EarlyStopping, log runlog.Interface) (History, error) {
	var h History
	if log == nil {
		log = runlog.Basic
	}
	if err := params.validate(); err != nil {
		return h, err
	}
	if err := checkSet(model, train, "train"); err != nil {
		return h, err
	}
	if train.Len() == 0 {
		return h, errors.New("no training instances")
	}
	if dev != nil {
		if err := checkSet(model, *dev, "dev"); err != nil {
			return h, err
		}
	}

	rng := NewRand(params.Seed)
	opt := NewAdam(params.LR, params.WeightDecay)
	grads := model.newGradients()
	mask1 := make([]float64, params.BatchSize*model.Hidden)
	mask2 := make([]float64, params.BatchSize*model.Hidden)

	n := train.Len()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	epoch := func(e int) (bool, error) {
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		var losses stats.Float64Data
		for start := 0; start < n; start += params.BatchSize {
			rows := order[start:min(start+params.BatchSize, n)]
			m1, m2 := mask1[:len(rows)*model.Hidden], mask2[:len(rows)*model.Hidden]
			model.dropoutMask(rng, m1)
			model.dropoutMask(rng, m2)

			loss, err := model.backward(train.X, train.Y, rows, m1, m2, grads)
			if err != nil {
				return false, err
			}
			if err := opt.Step(model.device, model.params(), grads); err != nil {
				return false, err
			}
			losses = append(losses, loss)
		}
		mean, err := stats.Mean(losses)
		if err != nil {
			return false, err
		}
		h.Loss = append(h.Loss, mean)

		if dev == nil {
			log.Printf("epoch %d: loss %.4f", e+1, mean)
			return false, nil
		}
		preds, err := model.Predict(dev.X, PredictBatchSize)
		if err != nil {
			return false, err
		}
		acc := evaluation.Accuracy(dev.Y, preds)
		h.DevAccuracy = append(h.DevAccuracy, acc)
		log.Printf("epoch %d: loss %.4f, dev accuracy %.4f", e+1, mean, acc)
		return es != nil && es.Step(model, acc), nil
	}

	var err error
	if params.Progress {
		tqdmErr := tqdm.With(iterators.Interval(0, params.Epochs), "training", func(v interface{}) (brk bool) {
			var stop bool
			stop, err = epoch(v.(int))
			return stop || err != nil
		})
		if err == nil {
			err = tqdmErr
		}
	} else {
		for e := 0; e < params.Epochs; e++ {
			var stop bool
			if stop, err = epoch(e); stop || err != nil {
				break
			}
		}
	}
	if err != nil {
		return h, errors.Wrapf(err, "error in epoch %d", h.Epochs()+1)
	}

	if es != nil && es.Restore(model) {
		best, acc := es.Best()
		h.BestEpoch = best
		log.Printf("restored parameters of epoch %d (dev accuracy %.4f) after %d epochs", best, acc, h.Epochs())
	}
	return h, nil
}
