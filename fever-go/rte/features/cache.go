package features

import (
	"bytes"

	"github.com/golang/snappy"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/takuma-ynd/fever-baselines/fever-golib/errors"
	"github.com/takuma-ynd/fever-baselines/fever-golib/sparse"
	"github.com/tinylib/msgp/msgp"
)

// Cache persists fitted feature functions and computed feature matrices in
// a leveldb database. Each feature set gets its own directory, so caches of
// different runs never overwrite each other.
type Cache struct {
	path string
	db   *leveldb.DB
}

// OpenCache opens (creating if needed) the cache at path.
func OpenCache(path string) (*Cache, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening feature cache %s", path)
	}
	return &Cache{path: path, db: db}, nil
}

// Path returns the cache directory.
func (c *Cache) Path() string {
	return c.path
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) get(key string) ([]byte, bool, error) {
	val, err := c.db.Get([]byte(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "error reading %s from %s", key, c.path)
	}
	out, err := snappy.Decode(nil, val)
	if err != nil {
		return nil, false, errors.Wrapf(err, "error decompressing %s from %s", key, c.path)
	}
	return out, true, nil
}

// Fingerprint returns the fingerprint the cache was written with.
func (c *Cache) Fingerprint() (uint64, bool, error) {
	val, ok, err := c.get("fingerprint")
	if !ok || err != nil {
		return 0, ok, err
	}
	fp, _, err := msgp.ReadUint64Bytes(val)
	if err != nil {
		return 0, false, errors.Wrapf(err, "corrupt fingerprint in %s", c.path)
	}
	return fp, true, nil
}

// State returns the fitted state of the named feature function.
func (c *Cache) State(name string) ([]byte, bool, error) {
	return c.get("state/" + name)
}

// Split returns the cached features of a split.
func (c *Cache) Split(split string) (sparse.Labeled, bool, error) {
	val, ok, err := c.get("split/" + split)
	if !ok || err != nil {
		return sparse.Labeled{}, ok, err
	}
	var l sparse.Labeled
	if err := msgp.Decode(bytes.NewReader(val), &l); err != nil {
		return sparse.Labeled{}, false, errors.Wrapf(err, "corrupt %s features in %s", split, c.path)
	}
	return l, true, nil
}

// Write replaces the cache content with the fitted states, the features of
// the splits and the fingerprint of their inputs. Nothing is written unless
// everything is, so a failed or interrupted write leaves the previous content
// intact.
func (c *Cache) Write(fp uint64, states map[string][]byte, splits map[string]sparse.Labeled) error {
	var batch leveldb.Batch
	put := func(key string, val []byte) {
		batch.Put([]byte(key), snappy.Encode(nil, val))
	}
	for name, state := range states {
		put("state/"+name, state)
	}
	for split, l := range splits {
		var buf bytes.Buffer
		if err := msgp.Encode(&buf, &l); err != nil {
			return errors.Wrapf(err, "error encoding %s features for %s", split, c.path)
		}
		put("split/"+split, buf.Bytes())
	}
	put("fingerprint", msgp.AppendUint64(nil, fp))

	if err := c.db.Write(&batch, nil); err != nil {
		return errors.Wrapf(err, "error writing features to %s", c.path)
	}
	return nil
}
