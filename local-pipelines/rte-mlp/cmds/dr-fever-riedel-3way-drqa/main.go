package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/alexflint/go-arg"
	humanize "github.com/dustin/go-humanize"
	"github.com/kr/pretty"
	"github.com/takuma-ynd/fever-baselines/fever-go/evaluation"
	"github.com/takuma-ynd/fever-baselines/fever-go/retrieval/docdb"
	"github.com/takuma-ynd/fever-baselines/fever-go/rte/dataset"
	"github.com/takuma-ynd/fever-baselines/fever-go/rte/features"
	"github.com/takuma-ynd/fever-baselines/fever-go/rte/riedel"
	"github.com/takuma-ynd/fever-baselines/fever-go/runkey"
	"github.com/takuma-ynd/fever-baselines/fever-go/training"
	"github.com/takuma-ynd/fever-baselines/fever-golib/errors"
	"github.com/takuma-ynd/fever-baselines/fever-golib/fileutil"
	"github.com/takuma-ynd/fever-baselines/fever-golib/runlog"
	"github.com/takuma-ynd/fever-baselines/fever-golib/sparse"
)

func fail(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

type options struct {
	MaxDoc    int `arg:"positional,required" help:"pages retrieved per dev/test claim"`
	NSDocSize int `arg:"positional,required" help:"pages sampled per NOT ENOUGH INFO training claim"`

	DataDir     string  `help:"directory holding drqa.db and the jsonl splits"`
	ModelDir    string  `help:"directory for model checkpoints"`
	FeatureDir  string  `help:"directory for feature caches"`
	Seed        int64   `help:"seed of every rng"`
	Epochs      int     `help:"maximum number of epochs"`
	LR          float64 `help:"learning rate"`
	BatchSize   int     `help:"training batch size"`
	Patience    int     `help:"epochs without dev improvement before stopping, 0 for the default"`
	Hidden      int     `help:"hidden layer width"`
	Dropout     float64 `help:"dropout probability"`
	Unigrams    int     `help:"vocabulary size of the term-frequency features"`
	Stem        bool    `help:"stem tokens before counting"`
	Device      string  `help:"auto, cpu or parallel"`
	Curve       string  `help:"write the training curve to this image file"`
	Predictions string  `help:"write per-instance dev and test predictions as csv into this directory"`
	Progress    bool    `help:"show progress bars"`
}

func defaultOptions() options {
	layout := runkey.DefaultLayout()
	params := training.DefaultParams()
	return options{
		DataDir:    layout.DataDir,
		ModelDir:   layout.ModelDir,
		FeatureDir: layout.FeatureDir,
		Seed:       params.Seed,
		Epochs:     params.Epochs,
		LR:         params.LR,
		BatchSize:  params.BatchSize,
		Patience:   training.DefaultPatience,
		Hidden:     100,
		Dropout:    0.6,
		Unigrams:   riedel.DefaultLimUnigram,
		Device:     "auto",
	}
}

func main() {
	opts := defaultOptions()
	arg.MustParse(&opts)
	fail(run(opts, os.Stdout, runlog.Basic))
}

// run trains or loads the model of the run identified by opts and writes the
// dev and test evaluations to out.
func run(opts options, out io.Writer, logger *runlog.Logger) (err error) {
	key := runkey.Key{MaxDoc: opts.MaxDoc, NSDocSize: opts.NSDocSize}
	if err := key.Validate(); err != nil {
		return err
	}
	logger.SetRun(key.Name())
	logger.Printf("options: %# v", pretty.Formatter(opts))

	layout := runkey.Layout{DataDir: opts.DataDir, ModelDir: opts.ModelDir, FeatureDir: opts.FeatureDir}
	device, err := training.SelectDevice(opts.Device)
	if err != nil {
		return err
	}

	done := logger.Durations.Track("docdb")
	db, err := docdb.Open(layout.DocDBPath())
	if err != nil {
		return err
	}
	defer errors.Defer(&err, db.Close)
	idx, err := db.Index()
	if err != nil {
		return err
	}
	done()
	logger.Printf("indexed %s documents of %s", humanize.Comma(int64(idx.Len())), db.Path())

	done = logger.Durations.Track("datasets")
	schema := riedel.FEVERLabelSchema()
	reader := dataset.JSONLineReader{}
	train := &dataset.DataSet{File: layout.TrainPath(key), Reader: reader, Formatter: riedel.GoldFormatter{Index: idx, Schema: schema}}
	dev := &dataset.DataSet{File: layout.DevPath(key), Reader: reader, Formatter: riedel.PredictionsFormatter{Index: idx, Schema: schema}}
	test := &dataset.DataSet{File: layout.TestPath(key), Reader: reader, Formatter: riedel.PredictionsFormatter{Index: idx, Schema: schema}}
	for _, ds := range []*dataset.DataSet{train, dev, test} {
		if err := ds.Read(); err != nil {
			return err
		}
		logger.Printf("read %s instances from %s, skipped %d", humanize.Comma(int64(ds.Len())), ds.File, ds.Skipped)
	}
	done()

	done = logger.Durations.Track("features")
	ff := riedel.NewTermFrequencyFeatureFunction(db, key.Name())
	ff.LimUnigram = opts.Unigrams
	ff.Stem = opts.Stem
	ff.Progress = opts.Progress
	feats := features.New(ff)
	feats.Log = logger
	cache, err := features.OpenCache(layout.FeatureCachePath(feats.Name()))
	if err != nil {
		return err
	}
	defer errors.Defer(&err, cache.Close)
	feats.Cache = cache
	trainSet, devSet, testSet, err := feats.Load(train, dev, test)
	if err != nil {
		return err
	}
	done()
	logger.Printf("%d features", trainSet.Width())

	model, err := training.NewSimpleMLP(trainSet.Width(), opts.Hidden, schema.Len(), opts.Dropout, training.NewRand(opts.Seed))
	if err != nil {
		return err
	}
	model.To(device)

	store := training.NewCheckpointStore()
	path := layout.CheckpointPath(key)
	exists, err := store.Exists(path)
	if err != nil {
		return err
	}
	if exists {
		done = logger.Durations.Track("load")
		if err := store.Load(path, model, feats.Name()); err != nil {
			return err
		}
		done()
		logger.Printf("loaded model from %s", path)
	} else {
		done = logger.Durations.Track("train")
		params := training.Params{
			Epochs:      opts.Epochs,
			LR:          opts.LR,
			BatchSize:   opts.BatchSize,
			WeightDecay: training.DefaultParams().WeightDecay,
			Seed:        opts.Seed,
			Progress:    opts.Progress,
		}
		logger.Printf("training on %s with %s instances", device, humanize.Comma(int64(trainSet.Len())))
		history, err := training.Train(model, trainSet, params, &devSet, training.NewEarlyStopping(opts.Patience), logger)
		if err != nil {
			return err
		}
		done()

		if err := store.Save(path, model, feats.Name()); err != nil {
			return err
		}
		size, err := fileutil.Size(fileutil.OS, path)
		if err != nil {
			return err
		}
		logger.Printf("saved model to %s (%s)", path, humanize.Bytes(uint64(size)))

		if opts.Curve != "" {
			if err := training.PlotHistory(history, opts.Curve); err != nil {
				return err
			}
		}
	}

	done = logger.Durations.Track("evaluation")
	for _, split := range []struct {
		name string
		data *dataset.DataSet
		set  sparse.Labeled
	}{{"dev", dev, devSet}, {"test", test, testSet}} {
		fmt.Fprintf(out, "%s\n", split.name)
		preds, err := evaluation.Print(out, model, split.set, schema.Labels)
		if err != nil {
			return errors.Wrapf(err, "error evaluating %s", split.name)
		}
		if opts.Predictions == "" {
			continue
		}
		ids := make([]int, split.data.Len())
		for i, inst := range split.data.Data {
			ids[i] = inst.ID
		}
		rows, err := evaluation.Predictions(ids, split.set.Y, preds, schema.Labels)
		if err != nil {
			return err
		}
		path := filepath.Join(opts.Predictions, fmt.Sprintf("%s.%s.csv", key.Name(), split.name))
		if err := evaluation.WritePredictions(fileutil.OS, path, rows); err != nil {
			return err
		}
	}
	done()

	logger.Durations.Flush(logger)
	return nil
}
