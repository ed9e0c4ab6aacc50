// Package docdb reads the FEVER wikipedia dump stored in the DrQA sqlite
// format: a documents(id, text) table.
package docdb

import (
	"database/sql"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/jmoiron/sqlx"
	// sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/takuma-ynd/fever-baselines/fever-golib/errors"
	"github.com/takuma-ynd/fever-baselines/fever-golib/fileutil"
	"golang.org/x/text/unicode/norm"
)

// ErrNotFound is returned for document ids missing from the store.
var ErrNotFound = errors.New("document not found")

const defaultTextCacheSize = 1 << 16

// Normalize puts a document id into the NFD form the store keys use.
func Normalize(id string) string {
	return norm.NFD.String(id)
}

// Index is the set of valid document ids.
type Index map[string]struct{}

// NewIndex builds an index over ids.
func NewIndex(ids ...string) Index {
	idx := make(Index, len(ids))
	for _, id := range ids {
		idx[Normalize(id)] = struct{}{}
	}
	return idx
}

// Contains reports whether id names a document in the store.
func (idx Index) Contains(id string) bool {
	_, ok := idx[Normalize(id)]
	return ok
}

// Len returns the number of ids.
func (idx Index) Len() int {
	return len(idx)
}

// DB is a read-only handle on a DrQA document store.
type DB struct {
	path  string
	db    *sqlx.DB
	texts *lru.Cache
}

// Open opens the store at path. It fails if the file does not exist or does
// not hold a documents table; it never creates a database.
func Open(path string) (*DB, error) {
	ok, err := fileutil.Exists(fileutil.OS, path)
	if err != nil {
		return nil, errors.Wrapf(err, "error checking %s", path)
	}
	if !ok {
		return nil, errors.Errorf("document store %s does not exist", path)
	}

	db, err := sqlx.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %s", path)
	}

	var n int
	if err := db.Get(&n, "SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'documents'"); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "error reading %s", path)
	}
	if n == 0 {
		db.Close()
		return nil, errors.Errorf("%s has no documents table", path)
	}

	texts, err := lru.New(defaultTextCacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &DB{path: path, db: db, texts: texts}, nil
}

// Path returns the file the store was opened from.
func (d *DB) Path() string {
	return d.path
}

// Close releases the underlying connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// DocIDs returns every document id in the store.
func (d *DB) DocIDs() ([]string, error) {
	var ids []string
	if err := d.db.Select(&ids, "SELECT id FROM documents"); err != nil {
		return nil, errors.Wrapf(err, "error listing documents in %s", d.path)
	}
	return ids, nil
}

// Index materializes the set of document ids.
func (d *DB) Index() (Index, error) {
	ids, err := d.DocIDs()
	if err != nil {
		return nil, err
	}
	return NewIndex(ids...), nil
}

// Text returns the text of a document.
func (d *DB) Text(id string) (string, error) {
	id = Normalize(id)
	if v, ok := d.texts.Get(id); ok {
		return v.(string), nil
	}

	var text string
	err := d.db.Get(&text, "SELECT text FROM documents WHERE id = ?", id)
	switch {
	case err == sql.ErrNoRows:
		return "", errors.Wrapf(ErrNotFound, "%s", id)
	case err != nil:
		return "", errors.Wrapf(err, "error fetching %s", id)
	}
	d.texts.Add(id, text)
	return text, nil
}
