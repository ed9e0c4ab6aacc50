package evaluation

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/takuma-ynd/fever-baselines/fever-golib/errors"
	"github.com/takuma-ynd/fever-baselines/fever-golib/sparse"
)

// BatchSize is the number of rows predicted at once.
const BatchSize = 500

// Predictor maps feature rows to classes.
type Predictor interface {
	Predict(x *sparse.Matrix, batchSize int) ([]int, error)
}

// Evaluate predicts every row of set.
func Evaluate(p Predictor, set sparse.Labeled) ([]int, error) {
	preds, err := p.Predict(set.X, BatchSize)
	if err != nil {
		return nil, err
	}
	if len(preds) != set.Len() {
		return nil, errors.Errorf("got %d predictions for %d instances", len(preds), set.Len())
	}
	return preds, nil
}

// Print evaluates p on set and writes the accuracy, the classification
// report and the confusion matrix to w. It returns the predictions.
func Print(w io.Writer, p Predictor, set sparse.Labeled, labels []string) ([]int, error) {
	preds, err := Evaluate(p, set)
	if err != nil {
		return nil, err
	}
	PrintScores(w, set.Y, preds, labels)
	return preds, nil
}

// PrintScores writes the accuracy, the classification report and the
// confusion matrix of predicted against actual.
func PrintScores(w io.Writer, actual, predicted []int, labels []string) {
	report := Report(actual, predicted, labels)
	fmt.Fprintf(w, "accuracy: %.4f\n", report.Accuracy)
	WriteReport(w, report)
	WriteConfusionMatrix(w, ConfusionMatrix(actual, predicted, len(labels)), labels)
}

func scoreRow(s ClassScores) []string {
	return []string{
		s.Label,
		strconv.FormatFloat(s.Precision, 'f', 2, 64),
		strconv.FormatFloat(s.Recall, 'f', 2, 64),
		strconv.FormatFloat(s.F1, 'f', 2, 64),
		strconv.Itoa(s.Support),
	}
}

// WriteReport renders a classification report as a table.
func WriteReport(w io.Writer, r ClassificationReport) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"", "precision", "recall", "f1-score", "support"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, c := range r.Classes {
		table.Append(scoreRow(c))
	}
	table.Append([]string{"accuracy", "", "", strconv.FormatFloat(r.Accuracy, 'f', 2, 64), strconv.Itoa(r.Support)})
	table.Append(scoreRow(r.Macro))
	table.Append(scoreRow(r.Weighted))
	table.Render()
}

// WriteConfusionMatrix renders cm with actual classes as rows.
func WriteConfusionMatrix(w io.Writer, cm [][]int, labels []string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(append([]string{"actual \\ predicted"}, labels...))
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for i, row := range cm {
		cells := []string{labels[i]}
		for _, n := range row {
			cells = append(cells, strconv.Itoa(n))
		}
		table.Append(cells)
	}
	table.Render()
}
