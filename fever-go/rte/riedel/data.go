// Package riedel holds the FEVER pieces of the term-frequency MLP baseline:
// the label schema, the formatters that turn dataset lines into instances
// and the term-frequency feature function.
package riedel

import (
	"github.com/takuma-ynd/fever-baselines/fever-go/retrieval/docdb"
	"github.com/takuma-ynd/fever-baselines/fever-go/rte/dataset"
)

// FEVERLabelSchema returns the 3-way FEVER schema.
func FEVERLabelSchema() dataset.LabelSchema {
	return dataset.NewLabelSchema("supports", "refutes", "not enough info")
}

// label reads the label of a record, falling back to the verifiable field
// of unlabeled records.
func label(rec dataset.Record, schema dataset.LabelSchema) (int, string, bool) {
	text, _ := rec["label"].(string)
	if text == "" {
		text, _ = rec["verifiable"].(string)
	}
	id, ok := schema.ID(text)
	return id, text, ok
}

func recordID(rec dataset.Record, pos int) int {
	if id, ok := rec["id"].(float64); ok {
		return int(id)
	}
	return pos
}

// pages flattens evidence groups into the unique pages they mention, in
// order of first appearance.
func pages(groups [][]string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, group := range groups {
		for _, p := range group {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				out = append(out, p)
			}
		}
	}
	return out
}

// GoldFormatter formats training lines: evidence comes from the annotated
// evidence groups. Pages missing from Index are dropped.
type GoldFormatter struct {
	Index  docdb.Index
	Schema dataset.LabelSchema
}

// FormatLine implements dataset.Formatter.
func (f GoldFormatter) FormatLine(rec dataset.Record, pos int) *dataset.Instance {
	id, text, ok := label(rec, f.Schema)
	if !ok {
		return nil
	}
	claim, _ := rec["claim"].(string)

	var groups [][]string
	annotations, _ := rec["evidence"].([]interface{})
	for _, ann := range annotations {
		evs, _ := ann.([]interface{})
		var group []string
		for _, ev := range evs {
			fields, _ := ev.([]interface{})
			if len(fields) < 3 {
				continue
			}
			page, ok := fields[2].(string)
			if !ok || !f.Index.Contains(page) {
				continue
			}
			group = append(group, page)
		}
		if len(group) > 0 {
			groups = append(groups, group)
		}
	}

	return &dataset.Instance{
		ID:        recordID(rec, pos),
		Claim:     claim,
		Evidence:  groups,
		Pages:     pages(groups),
		Label:     id,
		LabelText: text,
	}
}

// PredictionsFormatter formats dev and test lines: evidence comes from the
// retrieved pages, the gold label is kept for evaluation. Pages missing from
// Index are dropped.
type PredictionsFormatter struct {
	Index  docdb.Index
	Schema dataset.LabelSchema
}

// FormatLine implements dataset.Formatter.
func (f PredictionsFormatter) FormatLine(rec dataset.Record, pos int) *dataset.Instance {
	id, text, ok := label(rec, f.Schema)
	if !ok {
		return nil
	}
	claim, _ := rec["claim"].(string)

	var group []string
	predicted, _ := rec["predicted_pages"].([]interface{})
	for _, p := range predicted {
		var page string
		switch p := p.(type) {
		case string:
			page = p
		case []interface{}:
			// [page, score]
			if len(p) > 0 {
				page, _ = p[0].(string)
			}
		}
		if page == "" || !f.Index.Contains(page) {
			continue
		}
		group = append(group, page)
	}

	var groups [][]string
	if len(group) > 0 {
		groups = [][]string{group}
	}
	return &dataset.Instance{
		ID:        recordID(rec, pos),
		Claim:     claim,
		Evidence:  groups,
		Pages:     pages(groups),
		Label:     id,
		LabelText: text,
	}
}
