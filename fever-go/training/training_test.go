package training

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/golang/snappy"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takuma-ynd/fever-baselines/fever-golib/errors"
	"github.com/takuma-ynd/fever-baselines/fever-golib/runlog"
	"github.com/takuma-ynd/fever-baselines/fever-golib/sparse"
	"github.com/tinylib/msgp/msgp"
)

var quiet = runlog.New(discard{}, "")

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// toySet has one active feature per row; the active feature modulo 3 is the
// class, the remaining columns carry a constant bias feature.
func toySet(t *testing.T, n, width int) sparse.Labeled {
	x := sparse.NewMatrix(width)
	var y []int
	for i := 0; i < n; i++ {
		f := i % (width - 1)
		v := sparse.Vector{Indices: []int{f, width - 1}, Values: []float64{1, 0.5}}
		require.NoError(t, x.AppendRow([]int{width}, v))
		y = append(y, f%3)
	}
	return sparse.Labeled{X: x, Y: y}
}

func TestDeviceRun(t *testing.T) {
	for _, d := range []Device{CPU, Parallel(3), Parallel(8), Parallel(0)} {
		var mu sync.Mutex
		seen := make([]int, 20)
		require.NoError(t, d.run(len(seen), func(lo, hi int) {
			mu.Lock()
			defer mu.Unlock()
			for i := lo; i < hi; i++ {
				seen[i]++
			}
		}))
		for i, n := range seen {
			assert.Equal(t, 1, n, "%s index %d", d, i)
		}
	}
}

func TestSelectDevice(t *testing.T) {
	d, err := SelectDevice("cpu")
	require.NoError(t, err)
	assert.Equal(t, CPU, d)

	d, err = SelectDevice("auto")
	require.NoError(t, err)
	assert.True(t, d.Shards >= 1)

	_, err = SelectDevice("cuda")
	assert.Error(t, err)
}

func TestNewSimpleMLP(t *testing.T) {
	_, err := NewSimpleMLP(0, 100, 3, 0.6, NewRand(1))
	assert.True(t, errors.Is(err, ErrShapeMismatch))
	_, err = NewSimpleMLP(10, 100, 3, 1, NewRand(1))
	assert.Error(t, err)

	m, err := NewSimpleMLP(16, 4, 3, 0.6, NewRand(1))
	require.NoError(t, err)
	for _, x := range m.W1.RawMatrix().Data {
		assert.True(t, math.Abs(x) <= 0.25)
	}
	for _, x := range m.B2 {
		assert.True(t, math.Abs(x) <= 0.5)
	}
}

func meanLoss(m *SimpleMLP, set sparse.Labeled, rows []int) float64 {
	out, err := m.logits(set.X, rows)
	if err != nil {
		panic(err)
	}
	var loss float64
	for r, i := range rows {
		loss -= softmax(out.RawRowView(r), set.Y[i])
	}
	return loss / float64(len(rows))
}

func TestBackwardMatchesFiniteDifferences(t *testing.T) {
	set := toySet(t, 6, 5)
	m, err := NewSimpleMLP(5, 4, 3, 0, NewRand(3))
	require.NoError(t, err)

	rows := []int{0, 1, 2, 3, 4, 5}
	ones := make([]float64, len(rows)*m.Hidden)
	m.dropoutMask(nil, ones)
	grads := m.newGradients()
	loss, err := m.backward(set.X, set.Y, rows, ones, ones, grads)
	require.NoError(t, err)
	assert.InDelta(t, meanLoss(m, set, rows), loss, 1e-12)

	const eps = 1e-6
	for pi, p := range m.params() {
		for k := range p {
			orig := p[k]
			p[k] = orig + eps
			up := meanLoss(m, set, rows)
			p[k] = orig - eps
			down := meanLoss(m, set, rows)
			p[k] = orig
			assert.InDelta(t, (up-down)/(2*eps), grads[pi][k], 1e-5, "param %d index %d", pi, k)
		}
	}
}

func trainToy(t *testing.T, d Device, epochs int) (*SimpleMLP, History) {
	set := toySet(t, 60, 10)
	m, err := NewSimpleMLP(10, 8, 3, 0.2, NewRand(7))
	require.NoError(t, err)
	m.To(d)

	params := DefaultParams()
	params.Epochs = epochs
	params.BatchSize = 9
	h, err := Train(m, set, params, &set, nil, quiet)
	require.NoError(t, err)
	return m, h
}

func TestTrainLearns(t *testing.T) {
	set := toySet(t, 60, 10)
	m, h := trainToy(t, CPU, 60)
	assert.Equal(t, 60, h.Epochs())
	require.Len(t, h.DevAccuracy, 60)
	assert.True(t, h.Loss[59] < h.Loss[0])

	preds, err := m.Predict(set.X, PredictBatchSize)
	require.NoError(t, err)
	var correct int
	for i, p := range preds {
		if p == set.Y[i] {
			correct++
		}
	}
	assert.True(t, correct >= 54, "got %d/60 right", correct)
}

func TestParallelMatchesCPU(t *testing.T) {
	cpu, hc := trainToy(t, CPU, 5)
	par, hp := trainToy(t, Parallel(4), 5)
	assert.Equal(t, hc.Loss, hp.Loss)
	assert.Equal(t, cpu.params(), par.params())
}

func TestTrainRejectsMismatchedWidth(t *testing.T) {
	m, err := NewSimpleMLP(4, 3, 3, 0.6, NewRand(1))
	require.NoError(t, err)
	_, err = Train(m, toySet(t, 6, 5), DefaultParams(), nil, nil, quiet)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	_, err = m.Predict(toySet(t, 2, 5).X, 10)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestEarlyStopping(t *testing.T) {
	m, err := NewSimpleMLP(2, 2, 3, 0, NewRand(1))
	require.NoError(t, err)
	es := &EarlyStopping{Patience: 2}
	assert.False(t, es.Restore(m))

	assert.False(t, es.Step(m, 0.4))
	m.B2[0] = 42
	assert.False(t, es.Step(m, 0.6))
	m.B2[0] = 7
	assert.False(t, es.Step(m, 0.5))
	assert.False(t, es.Step(m, 0.55))
	assert.True(t, es.Step(m, 0.59), "epoch 5 > best epoch 2 + patience 2")

	best, acc := es.Best()
	assert.Equal(t, 2, best)
	assert.Equal(t, 0.6, acc)
	require.True(t, es.Restore(m))
	assert.Equal(t, 42.0, m.B2[0])

	assert.Equal(t, DefaultPatience, NewEarlyStopping(0).Patience)
	assert.Equal(t, DefaultPatience, NewEarlyStopping(-1).Patience)
	assert.Equal(t, 3, NewEarlyStopping(3).Patience)

	// ties move the best epoch forward
	es = NewEarlyStopping(1)
	es.Step(m, 0.5)
	es.Step(m, 0.5)
	best, _ = es.Best()
	assert.Equal(t, 2, best)
}

func TestTrainWithEarlyStopping(t *testing.T) {
	set := toySet(t, 30, 10)
	m, err := NewSimpleMLP(10, 8, 3, 0.2, NewRand(7))
	require.NoError(t, err)
	params := DefaultParams()
	params.BatchSize = 9

	es := &EarlyStopping{Patience: 3}
	h, err := Train(m, set, params, &set, es, quiet)
	require.NoError(t, err)
	require.True(t, h.BestEpoch > 0)
	best := maxOf(h.DevAccuracy)
	assert.Equal(t, best, h.DevAccuracy[h.BestEpoch-1])
	for _, acc := range h.DevAccuracy[h.BestEpoch:] {
		assert.True(t, acc < best, "ties move the best epoch forward")
	}
	assert.True(t, h.Epochs() == params.Epochs || h.Epochs() == h.BestEpoch+es.Patience+1)

	preds, err := m.Predict(set.X, PredictBatchSize)
	require.NoError(t, err)
	assert.Equal(t, best, accuracy(set.Y, preds), "the best parameters are restored")
}

func accuracy(y, preds []int) float64 {
	var correct int
	for i := range y {
		if y[i] == preds[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y))
}

func maxOf(xs []float64) float64 {
	best := xs[0]
	for _, x := range xs {
		best = math.Max(best, x)
	}
	return best
}

const toyFeatures = "TermFrequencyFeatureFunction-pred3wdrqa-p5-p1"

func TestCheckpointRoundTrip(t *testing.T) {
	set := toySet(t, 30, 10)
	m, _ := trainToy(t, CPU, 3)
	store := CheckpointStore{Fs: afero.NewMemMapFs()}
	path := "models/pred3wdrqa-p5-p1.model"

	ok, err := store.Exists(path)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(path, m, toyFeatures))
	ok, err = store.Exists(path)
	require.NoError(t, err)
	assert.True(t, ok)

	loaded, err := NewSimpleMLP(10, 8, 3, 0.2, NewRand(99))
	require.NoError(t, err)
	require.NoError(t, store.Load(path, loaded, toyFeatures))
	assert.Equal(t, m.params(), loaded.params())
	assert.Equal(t, 0.2, loaded.Dropout)

	want, err := m.Predict(set.X, PredictBatchSize)
	require.NoError(t, err)
	got, err := loaded.Predict(set.X, 7)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	other, err := NewSimpleMLP(11, 8, 3, 0.2, NewRand(99))
	require.NoError(t, err)
	assert.True(t, errors.Is(store.Load(path, other, toyFeatures), ErrShapeMismatch))
	assert.Error(t, store.Load("models/missing.model", loaded, toyFeatures))
}

func TestCheckpointFeaturesMismatch(t *testing.T) {
	m, err := NewSimpleMLP(10, 8, 3, 0, NewRand(1))
	require.NoError(t, err)
	store := CheckpointStore{Fs: afero.NewMemMapFs()}
	require.NoError(t, store.Save("m.model", m, toyFeatures))

	loaded, err := NewSimpleMLP(10, 8, 3, 0, NewRand(2))
	require.NoError(t, err)
	before := loaded.snapshot()
	err = store.Load("m.model", loaded, toyFeatures+"-stem")
	assert.True(t, errors.Is(err, ErrFeaturesMismatch))
	assert.Equal(t, before, loaded.snapshot(), "a rejected checkpoint leaves the model untouched")
}

func TestCheckpointHugeHeader(t *testing.T) {
	fs := afero.NewMemMapFs()
	f, err := fs.Create("corrupt.model")
	require.NoError(t, err)
	sw := snappy.NewBufferedWriter(f)
	mw := msgp.NewWriter(sw)
	require.NoError(t, mw.WriteArrayHeader(checkpointFields))
	require.NoError(t, mw.WriteString(toyFeatures))
	for _, d := range []int{1 << 40, 1 << 20, 3} {
		require.NoError(t, mw.WriteInt(d))
	}
	require.NoError(t, mw.Flush())
	require.NoError(t, sw.Close())
	require.NoError(t, f.Close())

	m, err := NewSimpleMLP(10, 8, 3, 0, NewRand(1))
	require.NoError(t, err)
	err = CheckpointStore{Fs: fs}.Load("corrupt.model", m, toyFeatures)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestPlotHistory(t *testing.T) {
	dir, err := os.MkdirTemp("", "curve")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	assert.Error(t, PlotHistory(History{}, filepath.Join(dir, "empty.png")))

	h := History{Loss: []float64{1.1, 0.9, 0.8}, DevAccuracy: []float64{0.4, 0.5, 0.45}, BestEpoch: 2}
	path := filepath.Join(dir, "curve.png")
	require.NoError(t, PlotHistory(h, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.Size() > 0)
}
