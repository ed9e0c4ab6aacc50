package runkey

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaths(t *testing.T) {
	k := Key{MaxDoc: 5, NSDocSize: 1}
	l := DefaultLayout()

	assert.Equal(t, "pred3wdrqa-p5-p1", k.Name())
	assert.Equal(t, filepath.FromSlash("models/pred3wdrqa-p5-p1.model"), l.CheckpointPath(k))
	assert.Equal(t, filepath.FromSlash("data/fever/drqa.db"), l.DocDBPath())
	assert.Equal(t, filepath.FromSlash("data/fever/train.ns.pages.p1.jsonl"), l.TrainPath(k))
	assert.Equal(t, filepath.FromSlash("data/fever/dev.pages.p5.jsonl"), l.DevPath(k))
	assert.Equal(t, filepath.FromSlash("data/fever/test.pages.p5.jsonl"), l.TestPath(k))
	assert.Equal(t, filepath.FromSlash("features/x-pred3wdrqa-p5-p1"), l.FeatureCachePath("x-"+k.Name()))
}

func TestDeterministic(t *testing.T) {
	a := Key{MaxDoc: 3, NSDocSize: 7}
	b := Key{MaxDoc: 3, NSDocSize: 7}
	l := DefaultLayout()
	assert.Equal(t, l.CheckpointPath(a), l.CheckpointPath(b))

	// swapping the parameters names a different run
	assert.NotEqual(t, a.Name(), Key{MaxDoc: 7, NSDocSize: 3}.Name())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Key{MaxDoc: 1, NSDocSize: 1}.Validate())
	assert.Error(t, Key{MaxDoc: 0, NSDocSize: 1}.Validate())
	assert.Error(t, Key{MaxDoc: 1, NSDocSize: -2}.Validate())
}

func TestLayoutFromEnvironment(t *testing.T) {
	os.Setenv("FEVER_MODEL_DIR", "/scratch/models")
	defer os.Unsetenv("FEVER_MODEL_DIR")

	l := DefaultLayout()
	assert.Equal(t, filepath.Join("/scratch/models", "pred3wdrqa-p5-p1.model"), l.CheckpointPath(Key{MaxDoc: 5, NSDocSize: 1}))
	assert.Equal(t, filepath.Join("data", "fever"), l.DataDir)
}
