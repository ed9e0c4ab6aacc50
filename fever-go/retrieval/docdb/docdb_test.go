package docdb

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takuma-ynd/fever-baselines/fever-golib/errors"
)

// writeTestDB creates a DrQA style store in a temp dir and returns its path.
func writeTestDB(t *testing.T, docs map[string][2]string) string {
	dir, err := ioutil.TempDir("", "docdb")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "drqa.db")
	db, err := sqlx.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	db.MustExec("CREATE TABLE documents (id PRIMARY KEY, text, lines)")
	for id, doc := range docs {
		db.MustExec("INSERT INTO documents VALUES (?, ?, ?)", Normalize(id), doc[0], doc[1])
	}
	return path
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(os.TempDir(), "does-not-exist", "drqa.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestOpenWithoutDocuments(t *testing.T) {
	dir, err := ioutil.TempDir("", "docdb")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "other.db")
	db, err := sqlx.Open("sqlite3", path)
	require.NoError(t, err)
	db.MustExec("CREATE TABLE other (x)")
	db.Close()

	_, err = Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no documents table")
}

func TestIndexAndText(t *testing.T) {
	path := writeTestDB(t, map[string][2]string{
		"Nikolaj_Coster-Waldau": {"Nikolaj Coster-Waldau is a Danish actor .", "0\tNikolaj Coster-Waldau is a Danish actor .\n1\tHe was born in 1970 ."},
		"Beyoncé":               {"Beyoncé is a singer .", ""},
	})
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	idx, err := db.Index()
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.True(t, idx.Contains("Nikolaj_Coster-Waldau"))
	assert.True(t, idx.Contains("Beyoncé"), "lookups are normalized like the keys")
	assert.False(t, idx.Contains("Unknown_Page"))

	text, err := db.Text("Beyoncé")
	require.NoError(t, err)
	assert.Equal(t, "Beyoncé is a singer .", text)

	// served from the cache the second time
	text, err = db.Text("Beyoncé")
	require.NoError(t, err)
	assert.Equal(t, "Beyoncé is a singer .", text)

	_, err = db.Text("Unknown_Page")
	assert.True(t, errors.Is(err, ErrNotFound))
}
