package riedel

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sbwhitecap/tqdm"
	"github.com/sbwhitecap/tqdm/iterators"
	"github.com/takuma-ynd/fever-baselines/fever-go/retrieval/docdb"
	"github.com/takuma-ynd/fever-baselines/fever-go/rte/dataset"
	"github.com/takuma-ynd/fever-baselines/fever-golib/errors"
	"github.com/takuma-ynd/fever-baselines/fever-golib/sparse"
	"github.com/takuma-ynd/fever-baselines/fever-golib/text"
	"github.com/takuma-ynd/fever-baselines/fever-golib/tfidf"
	"github.com/tinylib/msgp/msgp"
)

// DefaultLimUnigram caps the bag-of-words and tf-idf vocabularies.
const DefaultLimUnigram = 5000

// TextSource resolves page ids to their text.
type TextSource interface {
	Text(id string) (string, error)
}

// TermFrequencyFeatureFunction turns a claim and the text of its evidence
// pages into [evidence TF | claim TF | tf-idf cosine(claim, evidence)].
// The bag-of-words vocabulary is fitted on the training claims and pages; the
// idf weights on claims and pages of all three splits.
type TermFrequencyFeatureFunction struct {
	DB         TextSource
	Naming     string
	LimUnigram int
	Stem       bool
	Progress   bool
	Tokenizer  text.Tokenizer

	bow *tfidf.Vocabulary
	idf *tfidf.IDFCounter
}

// NewTermFrequencyFeatureFunction returns a feature function reading page
// texts from db, whose cached state is namespaced by naming.
func NewTermFrequencyFeatureFunction(db TextSource, naming string) *TermFrequencyFeatureFunction {
	return &TermFrequencyFeatureFunction{
		DB:         db,
		Naming:     naming,
		LimUnigram: DefaultLimUnigram,
		Tokenizer:  text.WordTokenizer{},
	}
}

// Name identifies the function, its run and any non-default settings, so
// features computed with different settings are cached apart.
func (f *TermFrequencyFeatureFunction) Name() string {
	parts := []string{"TermFrequencyFeatureFunction"}
	if f.Naming != "" {
		parts = append(parts, f.Naming)
	}
	if f.LimUnigram != DefaultLimUnigram {
		parts = append(parts, fmt.Sprintf("u%d", f.LimUnigram))
	}
	if f.Stem {
		parts = append(parts, "stem")
	}
	return strings.Join(parts, "-")
}

// Width is the number of columns Lookup produces, 0 before Inform.
func (f *TermFrequencyFeatureFunction) Width() int {
	if f.bow == nil {
		return 0
	}
	return 2*f.bow.Len() + 1
}

func (f *TermFrequencyFeatureFunction) tokens(s string) []string {
	tok := f.Tokenizer
	if tok == nil {
		tok = text.WordTokenizer{}
	}
	toks := tok.Tokenize(text.Normalize(s))
	if f.Stem {
		return text.StemmedBagOfWordsProcessor.Apply(toks)
	}
	return text.BagOfWordsProcessor.Apply(toks)
}

// pageText returns the text of a page; pages the store does not know
// contribute nothing.
func (f *TermFrequencyFeatureFunction) pageText(page string) (string, error) {
	t, err := f.DB.Text(page)
	if errors.Is(err, docdb.ErrNotFound) {
		return "", nil
	}
	return t, err
}

// bodyText joins the texts of the pages of inst.
func (f *TermFrequencyFeatureFunction) bodyText(inst dataset.Instance) (string, error) {
	texts := make([]string, 0, len(inst.Pages))
	for _, p := range inst.Pages {
		t, err := f.pageText(p)
		if err != nil {
			return "", err
		}
		texts = append(texts, t)
	}
	return strings.Join(texts, " "), nil
}

// corpus returns the tokenized claims of data and of each distinct page
// data refers to.
func (f *TermFrequencyFeatureFunction) corpus(data []dataset.Instance, seen map[string]struct{}) ([][]string, error) {
	var docs [][]string
	for _, inst := range data {
		docs = append(docs, f.tokens(inst.Claim))
	}
	for _, inst := range data {
		for _, p := range inst.Pages {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			t, err := f.pageText(p)
			if err != nil {
				return nil, err
			}
			docs = append(docs, f.tokens(t))
		}
	}
	return docs, nil
}

// Inform fits the vocabulary on train and the idf weights on all splits.
func (f *TermFrequencyFeatureFunction) Inform(train, dev, test []dataset.Instance) error {
	seen := make(map[string]struct{})
	trainDocs, err := f.corpus(train, seen)
	if err != nil {
		return errors.Wrapf(err, "error reading training pages")
	}
	f.bow = tfidf.FitVocabulary(trainDocs, f.LimUnigram)

	allDocs := trainDocs
	for _, split := range [][]dataset.Instance{dev, test} {
		docs, err := f.corpus(split, seen)
		if err != nil {
			return errors.Wrapf(err, "error reading evaluation pages")
		}
		allDocs = append(allDocs, docs...)
	}
	f.idf = tfidf.TrainIDFCounter(allDocs, f.LimUnigram)
	return nil
}

func (f *TermFrequencyFeatureFunction) row(m *sparse.Matrix, inst dataset.Instance) error {
	body, err := f.bodyText(inst)
	if err != nil {
		return err
	}
	claimToks := f.tokens(inst.Claim)
	bodyToks := f.tokens(body)

	cos := sparse.Cosine(f.idf.TFIDF(claimToks), f.idf.TFIDF(bodyToks))
	n := f.bow.Len()
	return m.AppendRow([]int{n, n, 1},
		f.bow.TF(bodyToks),
		f.bow.TF(claimToks),
		sparse.Vector{Indices: []int{0}, Values: []float64{cos}},
	)
}

// Lookup computes one feature row per instance.
func (f *TermFrequencyFeatureFunction) Lookup(data []dataset.Instance) (*sparse.Matrix, error) {
	if f.bow == nil || f.idf == nil {
		return nil, errors.Errorf("%s: Lookup called before Inform", f.Name())
	}
	m := sparse.NewMatrix(f.Width())

	if !f.Progress {
		for _, inst := range data {
			if err := f.row(m, inst); err != nil {
				return nil, err
			}
		}
		return m, nil
	}

	var rowErr error
	err := tqdm.With(iterators.Interval(0, len(data)), fmt.Sprintf("%s lookup", f.Name()), func(v interface{}) (brk bool) {
		rowErr = f.row(m, data[v.(int)])
		return rowErr != nil
	})
	if rowErr != nil {
		return nil, rowErr
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// State serializes the fitted vocabulary and idf weights.
func (f *TermFrequencyFeatureFunction) State() ([]byte, error) {
	if f.bow == nil || f.idf == nil {
		return nil, errors.Errorf("%s: no state before Inform", f.Name())
	}
	var buf bytes.Buffer
	w := msgp.NewWriter(&buf)
	if err := w.WriteArrayHeader(5); err != nil {
		return nil, err
	}
	if err := w.WriteInt(f.LimUnigram); err != nil {
		return nil, err
	}
	if err := w.WriteBool(f.Stem); err != nil {
		return nil, err
	}
	for _, terms := range [][]string{f.bow.Terms, f.idf.Vocab.Terms} {
		if err := w.WriteArrayHeader(uint32(len(terms))); err != nil {
			return nil, err
		}
		for _, t := range terms {
			if err := w.WriteString(t); err != nil {
				return nil, err
			}
		}
	}
	if err := w.WriteArrayHeader(uint32(len(f.idf.Weights))); err != nil {
		return nil, err
	}
	for _, x := range f.idf.Weights {
		if err := w.WriteFloat64(x); err != nil {
			return nil, err
		}
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ErrSettingsMismatch is returned when restoring state fitted with other
// settings than the receiver's.
var ErrSettingsMismatch = errors.New("feature function settings differ from the restored state")

// Restore loads state produced by State. The state must have been fitted with
// the same LimUnigram and Stem.
func (f *TermFrequencyFeatureFunction) Restore(state []byte) error {
	r := msgp.NewReader(bytes.NewReader(state))
	sz, err := r.ReadArrayHeader()
	if err != nil {
		return errors.Wrapf(err, "error restoring %s", f.Name())
	}
	if sz != 5 {
		return errors.Errorf("error restoring %s: expected 5 fields, got %d", f.Name(), sz)
	}
	lim, err := r.ReadInt()
	if err != nil {
		return errors.Wrapf(err, "error restoring %s", f.Name())
	}
	stem, err := r.ReadBool()
	if err != nil {
		return errors.Wrapf(err, "error restoring %s", f.Name())
	}
	if lim != f.LimUnigram || stem != f.Stem {
		return errors.Wrapf(ErrSettingsMismatch, "%s: state has %d unigrams, stem %t; want %d unigrams, stem %t",
			f.Name(), lim, stem, f.LimUnigram, f.Stem)
	}

	var vocabs [2][]string
	for i := range vocabs {
		n, err := r.ReadArrayHeader()
		if err != nil {
			return errors.Wrapf(err, "error restoring %s", f.Name())
		}
		vocabs[i] = make([]string, n)
		for j := range vocabs[i] {
			if vocabs[i][j], err = r.ReadString(); err != nil {
				return errors.Wrapf(err, "error restoring %s", f.Name())
			}
		}
	}

	n, err := r.ReadArrayHeader()
	if err != nil {
		return errors.Wrapf(err, "error restoring %s", f.Name())
	}
	if int(n) != len(vocabs[1]) {
		return errors.Errorf("error restoring %s: %d idf weights for %d terms", f.Name(), n, len(vocabs[1]))
	}
	weights := make([]float64, n)
	for i := range weights {
		if weights[i], err = r.ReadFloat64(); err != nil {
			return errors.Wrapf(err, "error restoring %s", f.Name())
		}
	}

	f.bow = tfidf.NewVocabulary(vocabs[0])
	f.idf = &tfidf.IDFCounter{Vocab: tfidf.NewVocabulary(vocabs[1]), Weights: weights}
	return nil
}
