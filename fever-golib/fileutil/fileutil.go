// Package fileutil wraps the afero filesystem calls the pipelines need, so
// that code writing checkpoints and reading datasets can run against an
// in-memory filesystem in tests.
package fileutil

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/takuma-ynd/fever-baselines/fever-golib/errors"
)

// OS is the filesystem used outside of tests.
var OS = afero.NewOsFs()

// Exists reports whether path exists on fs.
func Exists(fs afero.Fs, path string) (bool, error) {
	return afero.Exists(fs, path)
}

// Size returns the size in bytes of the file at path.
func Size(fs afero.Fs, path string) (int64, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var err error
	for i := len(r.closers) - 1; i >= 0; i-- {
		err = errors.Combine(err, r.closers[i].Close())
	}
	return err
}

// NewReader opens path for reading. Files ending in .gz are decompressed.
func NewReader(fs afero.Fs, path string) (io.ReadCloser, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %s", path)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "error decompressing %s", path)
	}
	return &readCloser{Reader: gz, closers: []io.Closer{f, gz}}, nil
}

// WriteAtomic creates the parent directory of path if needed, streams write
// into a temporary file next to path and renames it into place once write
// and the close succeed. A failed write never leaves a partial file at path.
func WriteAtomic(fs afero.Fs, path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrapf(err, "error creating %s", dir)
	}

	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".tmp")
	if err != nil {
		return errors.Wrapf(err, "error creating temp file for %s", path)
	}
	defer func() {
		if err != nil {
			fs.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "error writing %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "error closing %s", tmp.Name())
	}
	if err := fs.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "error moving %s to %s", tmp.Name(), path)
	}
	return nil
}
