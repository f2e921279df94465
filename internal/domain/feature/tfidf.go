package feature

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"skill-match/internal/domain"

	"github.com/google/uuid"
)

type VectorizerConfig struct {
	// MinDF is an absolute document count.
	MinDF int
	// MaxDF is a ratio of documents; ignored for corpora smaller than two documents.
	MaxDF       float64
	MaxFeatures int
}

func DefaultVectorizerConfig() VectorizerConfig {
	return VectorizerConfig{MinDF: 1, MaxDF: 0.95, MaxFeatures: 5000}
}

// Vocabulary is a fitted, versioned TF-IDF model. It is read-only after construction.
type Vocabulary struct {
	ID                uuid.UUID
	Version           int
	Terms             []string
	IDF               []float64
	DocumentCount     int
	CorpusFingerprint string
	Config            VectorizerConfig
	FittedAt          time.Time
	Active            bool

	index map[string]int
}

// NewVocabulary rebuilds a vocabulary from stored terms and idf weights.
func NewVocabulary(terms []string, idf []float64) (*Vocabulary, error) {
	if len(terms) != len(idf) {
		return nil, fmt.Errorf("%w: vocabulary has %d terms but %d idf weights", domain.ErrValidation, len(terms), len(idf))
	}
	v := &Vocabulary{
		Terms: append([]string(nil), terms...),
		IDF:   append([]float64(nil), idf...),
		index: make(map[string]int, len(terms)),
	}
	for i, t := range v.Terms {
		v.index[t] = i
	}
	return v, nil
}

func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Terms)
}

// TermVector is a sparse, L2-normalised vector over a vocabulary with ascending indices.
type TermVector struct {
	Indices []int
	Values  []float64
}

func (t TermVector) IsZero() bool {
	for _, v := range t.Values {
		if v != 0 {
			return false
		}
	}
	return true
}

// FitVocabulary learns the term set and idf weights of a corpus.
func FitVocabulary(docs []string, cfg VectorizerConfig) (*Vocabulary, error) {
	n := len(docs)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty corpus", domain.ErrInsufficientData)
	}
	if cfg.MinDF < 1 {
		cfg.MinDF = 1
	}

	df := make(map[string]int)
	for _, d := range docs {
		seen := make(map[string]struct{})
		for _, term := range Terms(d) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	type entry struct {
		term string
		df   int
	}
	kept := make([]entry, 0, len(df))
	for term, c := range df {
		if c < cfg.MinDF {
			continue
		}
		if n >= 2 && cfg.MaxDF > 0 && cfg.MaxDF < 1 && float64(c) > cfg.MaxDF*float64(n) {
			continue
		}
		kept = append(kept, entry{term: term, df: c})
	}

	if cfg.MaxFeatures > 0 && len(kept) > cfg.MaxFeatures {
		sort.Slice(kept, func(i, j int) bool {
			if kept[i].df == kept[j].df {
				return kept[i].term < kept[j].term
			}
			return kept[i].df > kept[j].df
		})
		kept = kept[:cfg.MaxFeatures]
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: no terms survive document frequency cutoffs", domain.ErrInsufficientData)
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].term < kept[j].term })

	terms := make([]string, len(kept))
	idf := make([]float64, len(kept))
	for i, e := range kept {
		terms[i] = e.term
		idf[i] = math.Log(float64(1+n)/float64(1+e.df)) + 1
	}

	v, err := NewVocabulary(terms, idf)
	if err != nil {
		return nil, err
	}
	v.DocumentCount = n
	v.Config = cfg
	v.CorpusFingerprint = CorpusFingerprint(docs, cfg)
	return v, nil
}

// Transform projects doc into the vocabulary. Unknown terms are ignored.
func (v *Vocabulary) Transform(doc string) TermVector {
	if v.Len() == 0 {
		return TermVector{}
	}
	if v.index == nil {
		rebuilt, err := NewVocabulary(v.Terms, v.IDF)
		if err != nil {
			return TermVector{}
		}
		v = rebuilt
	}

	counts := make(map[int]float64)
	for _, term := range Terms(doc) {
		if i, ok := v.index[term]; ok {
			counts[i]++
		}
	}
	if len(counts) == 0 {
		return TermVector{}
	}

	idx := make([]int, 0, len(counts))
	for i := range counts {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	vals := make([]float64, len(idx))
	norm := 0.0
	for k, i := range idx {
		vals[k] = counts[i] * v.IDF[i]
		norm += vals[k] * vals[k]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return TermVector{}
	}
	for k := range vals {
		vals[k] /= norm
	}
	return TermVector{Indices: idx, Values: vals}
}

// CorpusFingerprint identifies a corpus independent of document order.
func CorpusFingerprint(docs []string, cfg VectorizerConfig) string {
	if cfg.MinDF < 1 {
		cfg.MinDF = 1
	}
	sorted := append([]string(nil), docs...)
	sort.Strings(sorted)
	h := sha256.New()
	h.Write([]byte(strconv.Itoa(cfg.MinDF) + "|" + strconv.FormatFloat(cfg.MaxDF, 'f', -1, 64) + "|" + strconv.Itoa(cfg.MaxFeatures)))
	for _, d := range sorted {
		h.Write([]byte{0})
		h.Write([]byte(d))
	}
	return hex.EncodeToString(h.Sum(nil))
}
