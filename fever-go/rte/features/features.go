// Package features computes and caches the feature matrices of the train,
// dev and test splits.
package features

import (
	"bytes"
	"encoding/binary"
	"strings"

	spooky "github.com/dgryski/go-spooky"
	humanize "github.com/dustin/go-humanize"
	"github.com/takuma-ynd/fever-baselines/fever-go/rte/dataset"
	"github.com/takuma-ynd/fever-baselines/fever-golib/errors"
	"github.com/takuma-ynd/fever-baselines/fever-golib/runlog"
	"github.com/takuma-ynd/fever-baselines/fever-golib/sparse"
)

// ErrWidthMismatch is returned when splits end up with different widths.
var ErrWidthMismatch = errors.New("feature widths differ between splits")

// FeatureFunction is fitted on the splits and then maps instances to rows.
type FeatureFunction interface {
	Name() string
	Inform(train, dev, test []dataset.Instance) error
	Lookup(data []dataset.Instance) (*sparse.Matrix, error)
	State() ([]byte, error)
	Restore(state []byte) error
}

var splits = []string{"train", "dev", "test"}

// Features combines feature functions column-wise.
type Features struct {
	Functions []FeatureFunction
	Cache     *Cache
	Log       runlog.Interface
}

// New returns a feature set over fns without a cache.
func New(fns ...FeatureFunction) *Features {
	return &Features{Functions: fns, Log: runlog.Basic}
}

// Name joins the names of the feature functions; it names the cache.
func (f *Features) Name() string {
	names := make([]string, len(f.Functions))
	for i, fn := range f.Functions {
		names[i] = fn.Name()
	}
	return strings.Join(names, "-")
}

func (f *Features) logf(format string, args ...interface{}) {
	if f.Log != nil {
		f.Log.Printf(format, args...)
	}
}

// Fingerprint hashes the feature names and the content of the three splits.
func Fingerprint(name string, sets ...*dataset.DataSet) uint64 {
	var buf bytes.Buffer
	buf.WriteString(name)
	var n [8]byte
	writeInt := func(x int) {
		binary.LittleEndian.PutUint64(n[:], uint64(x))
		buf.Write(n[:])
	}
	for _, ds := range sets {
		buf.WriteString("\x00" + ds.File + "\x00")
		writeInt(len(ds.Data))
		for _, inst := range ds.Data {
			writeInt(inst.ID)
			writeInt(inst.Label)
			buf.WriteString(inst.Claim)
			for _, p := range inst.Pages {
				buf.WriteString("\x1f" + p)
			}
			buf.WriteByte('\x1e')
		}
	}
	return spooky.Hash64(buf.Bytes())
}

// Load returns the features of the three splits, from the cache when it was
// written for the same feature names and inputs, computing them otherwise.
func (f *Features) Load(train, dev, test *dataset.DataSet) (sparse.Labeled, sparse.Labeled, sparse.Labeled, error) {
	var out [3]sparse.Labeled
	fp := Fingerprint(f.Name(), train, dev, test)

	loaded, err := f.loadCached(fp, &out)
	if err != nil {
		return out[0], out[1], out[2], err
	}
	if !loaded {
		if err := f.compute(fp, train, dev, test, &out); err != nil {
			return out[0], out[1], out[2], err
		}
	}

	for i, l := range out {
		if l.Width() != out[0].Width() {
			return out[0], out[1], out[2], errors.Wrapf(ErrWidthMismatch, "%s has %d columns, train has %d", splits[i], l.Width(), out[0].Width())
		}
	}
	return out[0], out[1], out[2], nil
}

func (f *Features) loadCached(fp uint64, out *[3]sparse.Labeled) (bool, error) {
	if f.Cache == nil {
		return false, nil
	}
	cached, ok, err := f.Cache.Fingerprint()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if cached != fp {
		f.logf("feature cache %s was built from different inputs, recomputing", f.Cache.Path())
		return false, nil
	}

	for _, fn := range f.Functions {
		state, ok, err := f.Cache.State(fn.Name())
		if err != nil || !ok {
			return false, err
		}
		if err := fn.Restore(state); err != nil {
			return false, err
		}
	}
	for i, split := range splits {
		l, ok, err := f.Cache.Split(split)
		if err != nil || !ok {
			return false, err
		}
		out[i] = l
	}
	f.logf("loaded features from %s", f.Cache.Path())
	return true, nil
}

func (f *Features) compute(fp uint64, train, dev, test *dataset.DataSet, out *[3]sparse.Labeled) error {
	for _, fn := range f.Functions {
		f.logf("informing %s on %s training instances", fn.Name(), humanize.Comma(int64(train.Len())))
		if err := fn.Inform(train.Data, dev.Data, test.Data); err != nil {
			return errors.Wrapf(err, "error informing %s", fn.Name())
		}
	}

	for i, ds := range []*dataset.DataSet{train, dev, test} {
		var blocks []*sparse.Matrix
		for _, fn := range f.Functions {
			m, err := fn.Lookup(ds.Data)
			if err != nil {
				return errors.Wrapf(err, "error computing %s features with %s", splits[i], fn.Name())
			}
			blocks = append(blocks, m)
		}
		x, err := sparse.HStack(blocks...)
		if err != nil {
			return err
		}
		out[i] = sparse.Labeled{X: x, Y: ds.Labels()}
	}

	if f.Cache == nil {
		return nil
	}
	states := make(map[string][]byte, len(f.Functions))
	for _, fn := range f.Functions {
		state, err := fn.State()
		if err != nil {
			return err
		}
		states[fn.Name()] = state
	}
	sets := make(map[string]sparse.Labeled, len(splits))
	for i, split := range splits {
		sets[split] = out[i]
	}
	if err := f.Cache.Write(fp, states, sets); err != nil {
		return err
	}
	f.logf("saved features to %s", f.Cache.Path())
	return nil
}
