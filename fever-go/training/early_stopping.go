package training

// DefaultPatience is the number of epochs without improvement tolerated.
const DefaultPatience = 8

// EarlyStopping keeps the parameters of the epoch with the best dev accuracy
// and stops training once Patience epochs passed without reaching it again.
type EarlyStopping struct {
	Patience int

	epoch     int
	bestEpoch int
	best      float64
	snapshot  [][]float64
}

// NewEarlyStopping returns an EarlyStopping with the given patience, or
// DefaultPatience if patience is not positive.
func NewEarlyStopping(patience int) *EarlyStopping {
	if patience <= 0 {
		patience = DefaultPatience
	}
	return &EarlyStopping{Patience: patience}
}

// Step records the dev accuracy of the epoch that just finished and reports
// whether training should stop. Ties count as improvements.
func (es *EarlyStopping) Step(model *SimpleMLP, acc float64) bool {
	es.epoch++
	if es.snapshot == nil || acc >= es.best {
		es.best = acc
		es.bestEpoch = es.epoch
		es.snapshot = model.snapshot()
		return false
	}
	return es.epoch > es.bestEpoch+es.Patience
}

// Best returns the 1-based best epoch and its accuracy, 0 before any Step.
func (es *EarlyStopping) Best() (int, float64) {
	return es.bestEpoch, es.best
}

// Restore loads the best parameters into model. It returns false if no
// epoch was recorded.
func (es *EarlyStopping) Restore(model *SimpleMLP) bool {
	if es.snapshot == nil {
		return false
	}
	model.load(es.snapshot)
	return true
}
