package sparse

import (
	"github.com/takuma-ynd/fever-baselines/fever-golib/errors"
	"github.com/tinylib/msgp/msgp"
)

// EncodeMsg implements msgp.Encodable
func (m *Matrix) EncodeMsg(en *msgp.Writer) error {
	if err := en.WriteArrayHeader(4); err != nil {
		return err
	}
	if err := en.WriteInt(m.Cols); err != nil {
		return err
	}
	if err := writeInts(en, m.Indptr); err != nil {
		return err
	}
	if err := writeInts(en, m.Indices); err != nil {
		return err
	}
	if err := en.WriteArrayHeader(uint32(len(m.Values))); err != nil {
		return err
	}
	for _, v := range m.Values {
		if err := en.WriteFloat64(v); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsg implements msgp.Decodable
func (m *Matrix) DecodeMsg(dc *msgp.Reader) error {
	sz, err := dc.ReadArrayHeader()
	if err != nil {
		return err
	}
	if sz != 4 {
		return errors.Errorf("expected 4 matrix fields, got %d", sz)
	}
	if m.Cols, err = dc.ReadInt(); err != nil {
		return err
	}
	if m.Indptr, err = readInts(dc); err != nil {
		return err
	}
	if m.Indices, err = readInts(dc); err != nil {
		return err
	}
	n, err := dc.ReadArrayHeader()
	if err != nil {
		return err
	}
	m.Values = make([]float64, n)
	for i := range m.Values {
		if m.Values[i], err = dc.ReadFloat64(); err != nil {
			return err
		}
	}
	return m.Validate()
}

// EncodeMsg implements msgp.Encodable
func (l *Labeled) EncodeMsg(en *msgp.Writer) error {
	if l.X == nil {
		return errors.New("labeled set has no feature matrix")
	}
	if err := en.WriteArrayHeader(2); err != nil {
		return err
	}
	if err := l.X.EncodeMsg(en); err != nil {
		return err
	}
	return writeInts(en, l.Y)
}

// DecodeMsg implements msgp.Decodable
func (l *Labeled) DecodeMsg(dc *msgp.Reader) error {
	sz, err := dc.ReadArrayHeader()
	if err != nil {
		return err
	}
	if sz != 2 {
		return errors.Errorf("expected 2 labeled fields, got %d", sz)
	}
	l.X = &Matrix{}
	if err := l.X.DecodeMsg(dc); err != nil {
		return err
	}
	if l.Y, err = readInts(dc); err != nil {
		return err
	}
	if len(l.Y) != l.X.Rows() {
		return errors.Errorf("corrupt labeled matrix: %d rows, %d labels", l.X.Rows(), len(l.Y))
	}
	return nil
}

func writeInts(en *msgp.Writer, xs []int) error {
	if err := en.WriteArrayHeader(uint32(len(xs))); err != nil {
		return err
	}
	for _, x := range xs {
		if err := en.WriteInt(x); err != nil {
			return err
		}
	}
	return nil
}

func readInts(dc *msgp.Reader) ([]int, error) {
	n, err := dc.ReadArrayHeader()
	if err != nil {
		return nil, err
	}
	xs := make([]int, n)
	for i := range xs {
		if xs[i], err = dc.ReadInt(); err != nil {
			return nil, err
		}
	}
	return xs, nil
}
