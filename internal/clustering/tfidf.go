package clustering

import (
	"errors"
	"math"
	"sort"

	"github.com/spacesedan/narratives/internal/textutil"
	"gonum.org/v1/gonum/mat"
)

// ErrEmptyVocabulary is returned when no document in the batch contains a
// single non-stop-word token.
var ErrEmptyVocabulary = errors.New("empty vocabulary: documents contain only stop words")

// Vectorizer builds TF-IDF vectors over a batch. It keeps no state between
// calls to FitTransform: the vocabulary is fit fresh every time.
type Vectorizer struct {
	MaxFeatures int
}

// Vectors is the fitted TF-IDF matrix, one L2-normalised row per document.
type Vectors struct {
	Vocabulary []string
	Matrix     *mat.Dense
}

// FitTransform tokenizes docs, builds a vocabulary capped at MaxFeatures terms
// ranked by corpus frequency (ties alphabetical), and returns smooth-idf
// weighted, L2-normalised rows.
func (v Vectorizer) FitTransform(docs []string) (*Vectors, error) {
	termCounts := make([]map[string]int, len(docs))
	corpusFreq := make(map[string]int)
	docFreq := make(map[string]int)

	for i, doc := range docs {
		counts := make(map[string]int)
		for _, tok := range textutil.ContentTokens(doc) {
			counts[tok]++
		}
		for term, c := range counts {
			corpusFreq[term] += c
			docFreq[term]++
		}
		termCounts[i] = counts
	}

	if len(corpusFreq) == 0 {
		return nil, ErrEmptyVocabulary
	}

	vocab := selectVocabulary(corpusFreq, v.MaxFeatures)
	index := make(map[string]int, len(vocab))
	for i, term := range vocab {
		index[term] = i
	}

	n := float64(len(docs))
	idf := make([]float64, len(vocab))
	for i, term := range vocab {
		idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	m := mat.NewDense(len(docs), len(vocab), nil)
	for row, counts := range termCounts {
		for term, c := range counts {
			col, ok := index[term]
			if !ok {
				continue
			}
			m.Set(row, col, float64(c)*idf[col])
		}
		normalizeRow(m, row)
	}

	return &Vectors{Vocabulary: vocab, Matrix: m}, nil
}

func selectVocabulary(corpusFreq map[string]int, maxFeatures int) []string {
	terms := make([]string, 0, len(corpusFreq))
	for term := range corpusFreq {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	if maxFeatures > 0 && len(terms) > maxFeatures {
		sort.SliceStable(terms, func(i, j int) bool {
			return corpusFreq[terms[i]] > corpusFreq[terms[j]]
		})
		terms = terms[:maxFeatures]
		sort.Strings(terms)
	}
	return terms
}

func normalizeRow(m *mat.Dense, row int) {
	r := m.RawRowView(row)
	var sum float64
	for _, x := range r {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range r {
		r[i] /= norm
	}
}

// CosineDistances returns the pairwise cosine distance matrix of the rows.
// Rows are already unit length, so similarity is X·Xᵀ. All-zero rows are at
// distance 1 from everything but themselves.
func (vs *Vectors) CosineDistances() *mat.Dense {
	n, _ := vs.Matrix.Dims()
	var sim mat.Dense
	sim.Mul(vs.Matrix, vs.Matrix.T())

	dist := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			d := 1 - sim.At(i, j)
			dist.Set(i, j, math.Max(0, math.Min(2, d)))
		}
	}
	return dist
}
