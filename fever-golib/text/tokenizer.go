package text

import (
	"regexp"
	"strings"

	porterstemmer "github.com/kiteco/go-porterstemmer"
)

// TokenFunc defines a type of function that takes in an array of tokens and
// returns an array of tokens.
type TokenFunc func(Tokens) Tokens

// Tokens represents a slice of strings
type Tokens []string

// Processor consists of a list of text processing rules.
type Processor struct {
	filters []TokenFunc
}

// BagOfWordsProcessor lower-cases tokens and drops english stop words. It is
// the processor used to build count vectors.
var BagOfWordsProcessor = NewProcessor(Lower, RemoveStopWords)

// StemmedBagOfWordsProcessor is BagOfWordsProcessor followed by porter stemming.
var StemmedBagOfWordsProcessor = NewProcessor(Lower, RemoveStopWords, Stem)

// NewProcessor takes a list of TokenFuncs to instantiate a Processor.
func NewProcessor(funcs ...TokenFunc) *Processor {
	return &Processor{filters: append([]TokenFunc(nil), funcs...)}
}

// Apply applies a list of TokenFunc to transform the input tokens
func (f *Processor) Apply(ts Tokens) Tokens {
	for _, fn := range f.filters {
		ts = fn(ts)
	}
	return ts
}

// Tokenizer is generic interface for an object which breaks an input
// string into Tokens.
type Tokenizer interface {
	Tokenize(string) Tokens
}

// words of two or more letters, digits or underscores
var wordRegexp = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// WordTokenizer splits text into runs of at least two word characters;
// single characters and punctuation are dropped.
type WordTokenizer struct{}

// Tokenize satisfies the Tokenizer interface.
func (WordTokenizer) Tokenize(s string) Tokens {
	return Tokens(wordRegexp.FindAllString(s, -1))
}

// TokenizeWords is a shorthand for WordTokenizer{}.Tokenize.
func TokenizeWords(s string) Tokens {
	return WordTokenizer{}.Tokenize(s)
}

// RemoveStopWords removes stop words from a TokenStream
func RemoveStopWords(ts Tokens) Tokens {
	var filtered Tokens
	for _, t := range ts {
		if !IsStopWord(t) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// Lower converts all tokens to lower case
func Lower(ts Tokens) Tokens {
	for i, t := range ts {
		ts[i] = strings.ToLower(t)
	}
	return ts
}

// Stem extracts and returns the stems of each token in the input token stream
func Stem(ts Tokens) Tokens {
	for i, t := range ts {
		ts[i] = porterstemmer.StemString(t)
	}
	return ts
}
