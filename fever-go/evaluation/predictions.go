package evaluation

import (
	"io"

	"github.com/gocarina/gocsv"
	"github.com/spf13/afero"
	"github.com/takuma-ynd/fever-baselines/fever-golib/errors"
	"github.com/takuma-ynd/fever-baselines/fever-golib/fileutil"
)

// Prediction is one row of a predictions file.
type Prediction struct {
	ID        int    `csv:"id"`
	Label     string `csv:"label"`
	Predicted string `csv:"predicted_label"`
	Correct   bool   `csv:"correct"`
}

// Predictions pairs instance ids with their gold and predicted labels.
func Predictions(ids, actual, predicted []int, labels []string) ([]Prediction, error) {
	if len(ids) != len(actual) || len(actual) != len(predicted) {
		return nil, errors.Errorf("got %d ids, %d labels and %d predictions", len(ids), len(actual), len(predicted))
	}
	name := func(c int) string {
		if c < 0 || c >= len(labels) {
			return ""
		}
		return labels[c]
	}
	out := make([]Prediction, len(ids))
	for i, id := range ids {
		out[i] = Prediction{
			ID:        id,
			Label:     name(actual[i]),
			Predicted: name(predicted[i]),
			Correct:   actual[i] == predicted[i],
		}
	}
	return out, nil
}

// WritePredictions writes preds as CSV to path.
func WritePredictions(fs afero.Fs, path string, preds []Prediction) error {
	err := fileutil.WriteAtomic(fs, path, func(w io.Writer) error {
		return gocsv.Marshal(&preds, w)
	})
	return errors.WrapfOrNil(err, "error writing predictions to %s", path)
}
