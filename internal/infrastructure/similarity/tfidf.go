package similarity

import (
	"math"
	"sort"

	"github.com/gradeflow/gradeflow/internal/core/domain"
)

const defaultMaxFeatures = 10000

// VectorEngine scores the target (last) pool entry against every other entry
// in a shared TF-IDF vector space. It catches paraphrased-but-lexically-similar
// copying that slips past exact-overlap detection.
type VectorEngine struct {
	maxFeatures int
}

func NewVectorEngine(maxFeatures int) *VectorEngine {
	if maxFeatures <= 0 {
		maxFeatures = defaultMaxFeatures
	}
	return &VectorEngine{maxFeatures: maxFeatures}
}

// TargetSimilarities never fails: a degenerate pool or vocabulary comes back
// as a zero-similarity report with a diagnostic note.
func (e *VectorEngine) TargetSimilarities(pool []domain.PoolEntry) domain.VectorReport {
	var report domain.VectorReport
	if len(pool) < 2 {
		report.Note = "comparison pool too small to vectorize"
		return report
	}

	docs := make([][]string, len(pool))
	corpusFreq := make(map[string]int)
	docFreq := make(map[string]int)
	for i, entry := range pool {
		docs[i] = tokenizeTerms(entry.Text)
		seen := make(map[string]struct{}, len(docs[i]))
		for _, term := range docs[i] {
			corpusFreq[term]++
			if _, dup := seen[term]; !dup {
				seen[term] = struct{}{}
				docFreq[term]++
			}
		}
	}
	if len(corpusFreq) == 0 {
		report.Note = "empty vocabulary: documents may contain only stop words"
		return report
	}

	vocab := e.selectVocabulary(corpusFreq)
	report.VocabularySize = len(vocab)

	// Smoothed idf so terms present in every document still carry weight.
	n := float64(len(pool))
	idf := make([]float64, len(vocab))
	for term, idx := range vocab {
		idf[idx] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	vectors := make([]map[int]float64, len(pool))
	for i, terms := range docs {
		vectors[i] = vectorize(terms, vocab, idf)
	}

	target := vectors[len(pool)-1]
	report.Comparisons = make([]domain.PeerSimilarity, 0, len(pool)-1)
	for i := 0; i < len(pool)-1; i++ {
		score := dot(target, vectors[i])
		report.Comparisons = append(report.Comparisons, domain.PeerSimilarity{
			SubmissionID: pool[i].SubmissionID,
			Score:        score,
		})
		if score > report.MaxSimilarity {
			report.MaxSimilarity = score
		}
	}
	return report
}

// selectVocabulary keeps the maxFeatures most frequent corpus terms,
// tie-broken lexicographically for determinism.
func (e *VectorEngine) selectVocabulary(corpusFreq map[string]int) map[string]int {
	terms := make([]string, 0, len(corpusFreq))
	for term := range corpusFreq {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if corpusFreq[terms[i]] != corpusFreq[terms[j]] {
			return corpusFreq[terms[i]] > corpusFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > e.maxFeatures {
		terms = terms[:e.maxFeatures]
	}

	vocab := make(map[string]int, len(terms))
	for idx, term := range terms {
		vocab[term] = idx
	}
	return vocab
}

func vectorize(terms []string, vocab map[string]int, idf []float64) map[int]float64 {
	vec := make(map[int]float64, len(terms))
	for _, term := range terms {
		if idx, ok := vocab[term]; ok {
			vec[idx]++
		}
	}

	var norm float64
	for idx, tf := range vec {
		weight := tf * idf[idx]
		vec[idx] = weight
		norm += weight * weight
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range vec {
			vec[idx] /= norm
		}
	}
	return vec
}

// dot of two L2-normalized sparse vectors is their cosine similarity.
func dot(a, b map[int]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for idx, av := range a {
		if bv, ok := b[idx]; ok {
			sum += av * bv
		}
	}
	return sum
}
