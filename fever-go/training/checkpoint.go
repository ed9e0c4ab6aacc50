package training

import (
	"io"

	"github.com/golang/snappy"
	"github.com/spf13/afero"
	"github.com/takuma-ynd/fever-baselines/fever-golib/errors"
	"github.com/takuma-ynd/fever-baselines/fever-golib/fileutil"
	"github.com/tinylib/msgp/msgp"
)

// ErrFeaturesMismatch is returned when a checkpoint was trained on another
// feature set than the one the caller uses.
var ErrFeaturesMismatch = errors.New("checkpoint was trained on other features")

const checkpointFields = 8

// CheckpointStore saves and loads model parameters. A checkpoint is a snappy
// framed msgpack array: features, in, hidden, out, W1, B1, W2, B2.
type CheckpointStore struct {
	Fs afero.Fs
}

// NewCheckpointStore returns a store on the OS filesystem.
func NewCheckpointStore() CheckpointStore {
	return CheckpointStore{Fs: fileutil.OS}
}

// Exists reports whether a checkpoint exists at path.
func (s CheckpointStore) Exists(path string) (bool, error) {
	return fileutil.Exists(s.Fs, path)
}

// Save writes the parameters of model, trained on the named feature set, to
// path, creating the parent directory. The file only appears once it is
// complete.
func (s CheckpointStore) Save(path string, model *SimpleMLP, features string) error {
	err := fileutil.WriteAtomic(s.Fs, path, func(w io.Writer) error {
		sw := snappy.NewBufferedWriter(w)
		mw := msgp.NewWriter(sw)
		if err := encodeCheckpoint(mw, model, features); err != nil {
			return err
		}
		if err := mw.Flush(); err != nil {
			return err
		}
		return sw.Close()
	})
	return errors.WrapfOrNil(err, "error saving checkpoint %s", path)
}

// Load reads the checkpoint at path into model. The checkpoint must have the
// dimensions of model and have been trained on the named feature set; model
// is left untouched otherwise.
func (s CheckpointStore) Load(path string, model *SimpleMLP, features string) error {
	f, err := s.Fs.Open(path)
	if err != nil {
		return errors.Wrapf(err, "error opening checkpoint %s", path)
	}
	defer f.Close()

	err = decodeCheckpoint(msgp.NewReader(snappy.NewReader(f)), model, features)
	return errors.WrapfOrNil(err, "error reading checkpoint %s", path)
}

func encodeCheckpoint(en *msgp.Writer, m *SimpleMLP, features string) error {
	if err := en.WriteArrayHeader(checkpointFields); err != nil {
		return err
	}
	if err := en.WriteString(features); err != nil {
		return err
	}
	for _, d := range []int{m.In, m.Hidden, m.Out} {
		if err := en.WriteInt(d); err != nil {
			return err
		}
	}
	for _, p := range m.params() {
		if err := en.WriteArrayHeader(uint32(len(p))); err != nil {
			return err
		}
		for _, x := range p {
			if err := en.WriteFloat64(x); err != nil {
				return err
			}
		}
	}
	return nil
}

// decodeCheckpoint checks the header against m before reading any parameter,
// so buffers are only ever sized from m.
func decodeCheckpoint(dc *msgp.Reader, m *SimpleMLP, features string) error {
	sz, err := dc.ReadArrayHeader()
	if err != nil {
		return err
	}
	if sz != checkpointFields {
		return errors.Errorf("expected %d checkpoint fields, got %d", checkpointFields, sz)
	}
	saved, err := dc.ReadString()
	if err != nil {
		return err
	}
	if saved != features {
		return errors.Wrapf(ErrFeaturesMismatch, "trained on %s, run uses %s", saved, features)
	}
	var dims [3]int
	for i := range dims {
		if dims[i], err = dc.ReadInt(); err != nil {
			return err
		}
	}
	if dims != [3]int{m.In, m.Hidden, m.Out} {
		return errors.Wrapf(ErrShapeMismatch, "checkpoint is %dx%dx%d, model is %dx%dx%d",
			dims[0], dims[1], dims[2], m.In, m.Hidden, m.Out)
	}

	params := m.params()
	decoded := make([][]float64, len(params))
	for i, p := range params {
		n, err := dc.ReadArrayHeader()
		if err != nil {
			return err
		}
		if int(n) != len(p) {
			return errors.Wrapf(ErrShapeMismatch, "parameter of %d values, expected %d", n, len(p))
		}
		decoded[i] = make([]float64, len(p))
		for j := range decoded[i] {
			if decoded[i][j], err = dc.ReadFloat64(); err != nil {
				return err
			}
		}
	}
	m.load(decoded)
	return nil
}
