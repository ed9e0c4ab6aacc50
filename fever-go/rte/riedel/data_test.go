package riedel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takuma-ynd/fever-baselines/fever-go/retrieval/docdb"
	"github.com/takuma-ynd/fever-baselines/fever-go/rte/dataset"
)

func record(t *testing.T, s string) dataset.Record {
	var rec dataset.Record
	require.NoError(t, json.Unmarshal([]byte(s), &rec))
	return rec
}

func TestGoldFormatter(t *testing.T) {
	f := GoldFormatter{Index: docdb.NewIndex("Savages_-LRB-2012_film-RRB-", "Oliver_Stone"), Schema: FEVERLabelSchema()}

	inst := f.FormatLine(record(t, `{"id": 75397, "verifiable": "VERIFIABLE", "label": "SUPPORTS",
		"claim": "Savages was directed by Oliver Stone.",
		"evidence": [[[92206, 104971, "Savages_-LRB-2012_film-RRB-", 0], [92206, 104971, "Oliver_Stone", 0]],
		             [[92207, 104972, "Savages_-LRB-2012_film-RRB-", 3]]]}`), 0)
	require.NotNil(t, inst)
	assert.Equal(t, 75397, inst.ID)
	assert.Equal(t, 0, inst.Label)
	assert.Equal(t, "SUPPORTS", inst.LabelText)
	assert.Len(t, inst.Evidence, 2)
	assert.Equal(t, []string{"Savages_-LRB-2012_film-RRB-", "Oliver_Stone"}, inst.Pages)
}

func TestGoldFormatterUnknownPages(t *testing.T) {
	f := GoldFormatter{Index: docdb.NewIndex("Oliver_Stone"), Schema: FEVERLabelSchema()}

	inst := f.FormatLine(record(t, `{"label": "NOT ENOUGH INFO", "claim": "x",
		"evidence": [[[1, null, null, null]], [[2, 3, "Deleted_Page", 0], [2, 3, "Oliver_Stone", 1]]]}`), 4)
	require.NotNil(t, inst, "unknown pages are dropped, the record is kept")
	assert.Equal(t, 4, inst.ID)
	assert.Equal(t, 2, inst.Label)
	assert.Equal(t, [][]string{{"Oliver_Stone"}}, inst.Evidence)

	inst = f.FormatLine(record(t, `{"label": "REFUTES", "claim": "x", "evidence": [[[2, 3, "Deleted_Page", 0]]]}`), 0)
	require.NotNil(t, inst)
	assert.Empty(t, inst.Pages)

	assert.Nil(t, f.FormatLine(record(t, `{"label": "MAYBE", "claim": "x"}`), 0))
}

func TestPredictionsFormatter(t *testing.T) {
	f := PredictionsFormatter{Index: docdb.NewIndex("A", "B"), Schema: FEVERLabelSchema()}

	inst := f.FormatLine(record(t, `{"id": 1, "label": "REFUTES", "claim": "c", "predicted_pages": ["A", "Missing", "B"]}`), 0)
	require.NotNil(t, inst)
	assert.Equal(t, 1, inst.Label)
	assert.Equal(t, []string{"A", "B"}, inst.Pages)

	inst = f.FormatLine(record(t, `{"id": 2, "label": "SUPPORTS", "claim": "c", "predicted_pages": [["B", 3.2], ["A", 1.0]]}`), 0)
	require.NotNil(t, inst)
	assert.Equal(t, []string{"B", "A"}, inst.Pages)

	inst = f.FormatLine(record(t, `{"id": 3, "verifiable": "NOT ENOUGH INFO", "claim": "c"}`), 0)
	require.NotNil(t, inst)
	assert.Equal(t, 2, inst.Label)
	assert.Empty(t, inst.Pages)
}
