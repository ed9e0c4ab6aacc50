// Package dataset reads line-delimited JSON splits and turns their records
// into model instances through a Formatter.
package dataset

import (
	"strings"

	"github.com/spf13/afero"
	"github.com/takuma-ynd/fever-baselines/fever-golib/errors"
	"github.com/takuma-ynd/fever-baselines/fever-golib/fileutil"
	"github.com/takuma-ynd/fever-baselines/fever-golib/serialization"
)

// Record is one decoded JSON line.
type Record map[string]interface{}

// Instance is a formatted record: a claim, the pages whose text serves as
// evidence and the class id of its label.
type Instance struct {
	ID        int
	Claim     string
	Evidence  [][]string
	Pages     []string
	Label     int
	LabelText string
}

// Reader loads the records of a file.
type Reader interface {
	Read(path string) ([]Record, error)
}

// JSONLineReader reads one JSON object per line. The whole file is read
// eagerly; a malformed line fails the read.
type JSONLineReader struct {
	Fs afero.Fs
}

// Read implements Reader.
func (r JSONLineReader) Read(path string) ([]Record, error) {
	fs := r.Fs
	if fs == nil {
		fs = fileutil.OS
	}
	var records []Record
	err := serialization.Decode(fs, path, func(rec *Record) {
		records = append(records, *rec)
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Formatter turns a record into an instance; it returns nil for records that
// should be skipped. pos is the position of the record in its file.
type Formatter interface {
	FormatLine(rec Record, pos int) *Instance
}

// Format applies f to every record, keeping the non-nil instances.
func Format(f Formatter, records []Record) []Instance {
	instances := make([]Instance, 0, len(records))
	for i, rec := range records {
		if inst := f.FormatLine(rec, i); inst != nil {
			instances = append(instances, *inst)
		}
	}
	return instances
}

// LabelSchema maps label strings to class ids.
type LabelSchema struct {
	Labels []string
}

// NewLabelSchema builds a schema whose class ids follow the order of labels.
func NewLabelSchema(labels ...string) LabelSchema {
	return LabelSchema{Labels: labels}
}

// ID returns the class id of label, compared case-insensitively.
func (s LabelSchema) ID(label string) (int, bool) {
	for i, l := range s.Labels {
		if strings.EqualFold(l, strings.TrimSpace(label)) {
			return i, true
		}
	}
	return -1, false
}

// Name returns the label of class id.
func (s LabelSchema) Name(id int) string {
	if id < 0 || id >= len(s.Labels) {
		return ""
	}
	return s.Labels[id]
}

// Len returns the number of classes.
func (s LabelSchema) Len() int {
	return len(s.Labels)
}

// DataSet is a split read from File through Reader and Formatter.
type DataSet struct {
	File      string
	Reader    Reader
	Formatter Formatter
	Data      []Instance

	// Skipped counts records the formatter dropped.
	Skipped int
}

// Read loads and formats the whole file.
func (d *DataSet) Read() error {
	records, err := d.Reader.Read(d.File)
	if err != nil {
		return errors.Wrapf(err, "error reading dataset %s", d.File)
	}
	d.Data = Format(d.Formatter, records)
	d.Skipped = len(records) - len(d.Data)
	return nil
}

// Len returns the number of instances.
func (d *DataSet) Len() int {
	return len(d.Data)
}

// Labels returns the class id of every instance.
func (d *DataSet) Labels() []int {
	labels := make([]int, len(d.Data))
	for i, inst := range d.Data {
		labels[i] = inst.Label
	}
	return labels
}
