// Package tfidf builds count vocabularies and term-frequency / inverse
// document frequency vectors over tokenized documents.
package tfidf

import (
	"sort"

	"github.com/takuma-ynd/fever-baselines/fever-golib/sparse"
)

// Vocabulary maps terms to column indices.
type Vocabulary struct {
	Terms []string
	index map[string]int
}

// NewVocabulary builds a vocabulary over the given terms, in order.
func NewVocabulary(terms []string) *Vocabulary {
	v := &Vocabulary{
		Terms: append([]string(nil), terms...),
		index: make(map[string]int, len(terms)),
	}
	for i, t := range v.Terms {
		v.index[t] = i
	}
	return v
}

// FitVocabulary keeps the maxFeatures most frequent terms across docs
// (all of them if maxFeatures <= 0). Ties are broken lexicographically and
// the resulting terms are sorted so column order does not depend on counts.
func FitVocabulary(docs [][]string, maxFeatures int) *Vocabulary {
	counts := make(map[string]int)
	for _, doc := range docs {
		for _, t := range doc {
			counts[t]++
		}
	}

	terms := make([]string, 0, len(counts))
	for t := range counts {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if maxFeatures > 0 && len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)
	return NewVocabulary(terms)
}

// Len returns the number of terms.
func (v *Vocabulary) Len() int {
	return len(v.Terms)
}

// Index returns the column of term t.
func (v *Vocabulary) Index(t string) (int, bool) {
	i, ok := v.index[t]
	return i, ok
}

// Counts returns the raw count vector of doc; out-of-vocabulary terms are
// ignored.
func (v *Vocabulary) Counts(doc []string) sparse.Vector {
	counts := make(map[int]float64)
	for _, t := range doc {
		if i, ok := v.index[t]; ok {
			counts[i]++
		}
	}
	return sparse.FromCounts(counts)
}

// TF returns the L2-normalized term frequency vector of doc.
func (v *Vocabulary) TF(doc []string) sparse.Vector {
	return v.Counts(doc).Normalized()
}
