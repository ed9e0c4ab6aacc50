package tfidf

import (
	"math"

	"github.com/takuma-ynd/fever-baselines/fever-golib/sparse"
)

// IDFCounter keeps the inverse document frequency weight of every
// vocabulary term.
type IDFCounter struct {
	Vocab   *Vocabulary
	Weights []float64
}

// TrainIDFCounter fits a vocabulary of at most maxFeatures terms over docs
// and computes smoothed idf weights: ln((1+n)/(1+df)) + 1.
func TrainIDFCounter(docs [][]string, maxFeatures int) *IDFCounter {
	vocab := FitVocabulary(docs, maxFeatures)
	df := make([]int, vocab.Len())
	for _, doc := range docs {
		seen := make(map[int]struct{})
		for _, t := range doc {
			if i, ok := vocab.Index(t); ok {
				if _, dup := seen[i]; !dup {
					seen[i] = struct{}{}
					df[i]++
				}
			}
		}
	}

	n := float64(len(docs))
	weights := make([]float64, vocab.Len())
	for i := range weights {
		weights[i] = math.Log((1+n)/(1+float64(df[i]))) + 1
	}
	return &IDFCounter{Vocab: vocab, Weights: weights}
}

// Weight returns the idf weight of term t, 0 if t is unknown.
func (c *IDFCounter) Weight(t string) float64 {
	if i, ok := c.Vocab.Index(t); ok {
		return c.Weights[i]
	}
	return 0
}

// TFIDF returns the L2-normalized tf-idf vector of doc.
func (c *IDFCounter) TFIDF(doc []string) sparse.Vector {
	v := c.Vocab.Counts(doc)
	for k, i := range v.Indices {
		v.Values[k] *= c.Weights[i]
	}
	return v.Normalized()
}
