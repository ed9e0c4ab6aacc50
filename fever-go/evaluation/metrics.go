// Package evaluation scores class predictions against gold labels.
package evaluation

import (
	"github.com/montanaflynn/stats"
)

// Accuracy is the fraction of positions where predicted equals actual; 0 for
// empty input.
func Accuracy(actual, predicted []int) float64 {
	if len(actual) == 0 {
		return 0
	}
	var correct int
	for i, y := range actual {
		if predicted[i] == y {
			correct++
		}
	}
	return float64(correct) / float64(len(actual))
}

// ConfusionMatrix counts (actual, predicted) pairs: rows are actual classes,
// columns predicted ones. Classes outside [0, n) are ignored.
func ConfusionMatrix(actual, predicted []int, n int) [][]int {
	cm := make([][]int, n)
	for i := range cm {
		cm[i] = make([]int, n)
	}
	for i, y := range actual {
		p := predicted[i]
		if y < 0 || y >= n || p < 0 || p >= n {
			continue
		}
		cm[y][p]++
	}
	return cm
}

// ClassScores are the scores of one class, or an average over classes.
type ClassScores struct {
	Label     string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// ClassificationReport holds per-class scores and their averages.
type ClassificationReport struct {
	Classes  []ClassScores
	Macro    ClassScores
	Weighted ClassScores
	Accuracy float64
	Support  int
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Report computes precision, recall and F1 of every class in labels. Ratios
// with a zero denominator are 0.
func Report(actual, predicted []int, labels []string) ClassificationReport {
	cm := ConfusionMatrix(actual, predicted, len(labels))
	r := ClassificationReport{Accuracy: Accuracy(actual, predicted)}

	var precisions, recalls, f1s, supports stats.Float64Data
	for c, label := range labels {
		var tp, predictedC, actualC int
		for other := range labels {
			actualC += cm[c][other]
			predictedC += cm[other][c]
		}
		tp = cm[c][c]

		s := ClassScores{
			Label:     label,
			Precision: ratio(tp, predictedC),
			Recall:    ratio(tp, actualC),
			Support:   actualC,
		}
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		r.Classes = append(r.Classes, s)
		r.Support += actualC

		precisions = append(precisions, s.Precision)
		recalls = append(recalls, s.Recall)
		f1s = append(f1s, s.F1)
		supports = append(supports, float64(actualC))
	}

	r.Macro = ClassScores{Label: "macro avg", Support: r.Support}
	r.Weighted = ClassScores{Label: "weighted avg", Support: r.Support}
	if len(labels) == 0 {
		return r
	}
	r.Macro.Precision, _ = stats.Mean(precisions)
	r.Macro.Recall, _ = stats.Mean(recalls)
	r.Macro.F1, _ = stats.Mean(f1s)
	if r.Support > 0 {
		r.Weighted.Precision = weightedMean(precisions, supports)
		r.Weighted.Recall = weightedMean(recalls, supports)
		r.Weighted.F1 = weightedMean(f1s, supports)
	}
	return r
}

func weightedMean(xs, weights stats.Float64Data) float64 {
	var sum, total float64
	for i, x := range xs {
		sum += x * weights[i]
		total += weights[i]
	}
	return sum / total
}
