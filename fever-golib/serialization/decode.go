// Package serialization decodes line-delimited JSON files through typed
// handler functions.
package serialization

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"reflect"

	"github.com/spf13/afero"
	"github.com/takuma-ynd/fever-baselines/fever-golib/errors"
	"github.com/takuma-ynd/fever-baselines/fever-golib/fileutil"
)

// ErrStop is a special value returned from handlers to cease processing
var ErrStop = errors.New("stop processing requested")

// FEVER wiki pages can push single lines well past bufio's default limit
const maxLineSize = 64 << 20

// Decode loads one JSON object per line of the file at path and passes each
// to handler, which must be a func taking a single pointer argument and
// returning nothing or an error. Blank lines are skipped; a malformed line
// aborts decoding with an error naming the file and line. Files ending in
// .gz are decompressed.
//
//   var claims []*Claim
//   err := serialization.Decode(fs, "data/fever/dev.jsonl", func(c *Claim) {
//     claims = append(claims, c)
//   })
func Decode(fs afero.Fs, path string, handler interface{}) error {
	r, err := fileutil.NewReader(fs, path)
	if err != nil {
		return err
	}
	defer r.Close()
	return decodeLines(r, path, handler)
}

func decodeLines(r io.Reader, path string, handler interface{}) error {
	f := reflect.ValueOf(handler)
	if f.Kind() != reflect.Func {
		panic("expected a function as last parameter")
	}
	funcType := f.Type()
	if funcType.NumIn() != 1 {
		panic("expected a function with one input parameter")
	}
	if funcType.NumOut() > 1 {
		panic("expected a function with zero or one output parameter")
	}
	ptrType := funcType.In(0)
	if ptrType.Kind() != reflect.Ptr {
		panic("expected function parameter to be a pointer")
	}
	elemType := ptrType.Elem()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lineno int
	for scanner.Scan() {
		lineno++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		elem := reflect.New(elemType)
		if err := json.Unmarshal(line, elem.Interface()); err != nil {
			return errors.Wrapf(err, "error decoding %s line %d", path, lineno)
		}

		ret := f.Call([]reflect.Value{elem})
		if len(ret) == 0 || ret[0].IsNil() {
			continue
		}
		err := ret[0].Interface().(error)
		if err == ErrStop {
			return nil
		}
		return errors.Wrapf(err, "error handling %s line %d", path, lineno)
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "error reading %s", path)
	}
	return nil
}
