package training

import (
	"github.com/takuma-ynd/fever-baselines/fever-golib/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// PlotHistory draws the training loss and dev accuracy per epoch into an
// image at path; the format follows the extension.
func PlotHistory(h History, path string) error {
	if h.Epochs() == 0 {
		return errors.New("no epochs to plot")
	}
	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = "training curve"
	p.X.Label.Text = "epoch"

	lines := []interface{}{"train loss", points(h.Loss)}
	if len(h.DevAccuracy) > 0 {
		lines = append(lines, "dev accuracy", points(h.DevAccuracy))
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return err
	}
	if h.BestEpoch > 0 {
		best, err := plotter.NewScatter(plotter.XYs{{X: float64(h.BestEpoch), Y: h.DevAccuracy[h.BestEpoch-1]}})
		if err != nil {
			return err
		}
		p.Add(best)
		p.Legend.Add("best epoch", best)
	}
	return errors.WrapfOrNil(p.Save(8*vg.Inch, 5*vg.Inch, path), "error saving training curve %s", path)
}

func points(ys []float64) plotter.XYs {
	xys := make(plotter.XYs, len(ys))
	for i, y := range ys {
		xys[i].X = float64(i + 1)
		xys[i].Y = y
	}
	return xys
}
