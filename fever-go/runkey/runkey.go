// Package runkey derives every path a run touches from the two retrieval
// parameters that identify it.
package runkey

import (
	"fmt"
	"path/filepath"

	"github.com/takuma-ynd/fever-baselines/fever-golib/envutil"
	"github.com/takuma-ynd/fever-baselines/fever-golib/errors"
)

// Key identifies a run: the number of pages retrieved per dev/test claim and
// the number of pages sampled for NOT ENOUGH INFO training claims.
type Key struct {
	MaxDoc    int
	NSDocSize int
}

// Validate rejects keys that cannot name a dataset file.
func (k Key) Validate() error {
	if k.MaxDoc <= 0 {
		return errors.Errorf("maxdoc must be positive, got %d", k.MaxDoc)
	}
	if k.NSDocSize <= 0 {
		return errors.Errorf("ns_docsize must be positive, got %d", k.NSDocSize)
	}
	return nil
}

// Name is the run name used for the checkpoint file and the feature cache.
func (k Key) Name() string {
	return fmt.Sprintf("pred3wdrqa-p%d-p%d", k.MaxDoc, k.NSDocSize)
}

func (k Key) String() string {
	return k.Name()
}

// Layout holds the directories a run reads from and writes to.
type Layout struct {
	DataDir    string
	ModelDir   string
	FeatureDir string
}

// DefaultLayout is relative to the working directory, as the experiments
// are run from the repository root. FEVER_DATA_DIR, FEVER_MODEL_DIR and
// FEVER_FEATURE_DIR override the directories.
func DefaultLayout() Layout {
	return Layout{
		DataDir:    envutil.GetenvDefault("FEVER_DATA_DIR", filepath.Join("data", "fever")),
		ModelDir:   envutil.GetenvDefault("FEVER_MODEL_DIR", "models"),
		FeatureDir: envutil.GetenvDefault("FEVER_FEATURE_DIR", "features"),
	}
}

// DocDBPath is the DrQA sqlite document store.
func (l Layout) DocDBPath() string {
	return filepath.Join(l.DataDir, "drqa.db")
}

// TrainPath is the training split with negative-sampled pages.
func (l Layout) TrainPath(k Key) string {
	return filepath.Join(l.DataDir, fmt.Sprintf("train.ns.pages.p%d.jsonl", k.NSDocSize))
}

// DevPath is the dev split with retrieved pages.
func (l Layout) DevPath(k Key) string {
	return filepath.Join(l.DataDir, fmt.Sprintf("dev.pages.p%d.jsonl", k.MaxDoc))
}

// TestPath is the test split with retrieved pages.
func (l Layout) TestPath(k Key) string {
	return filepath.Join(l.DataDir, fmt.Sprintf("test.pages.p%d.jsonl", k.MaxDoc))
}

// CheckpointPath is where the trained model of k is stored.
func (l Layout) CheckpointPath(k Key) string {
	return filepath.Join(l.ModelDir, k.Name()+".model")
}

// FeatureCachePath is the cache directory of a feature set. name is the
// feature set name, which embeds the run name.
func (l Layout) FeatureCachePath(name string) string {
	return filepath.Join(l.FeatureDir, name)
}
