package ranker

import (
	"math"
	"sort"
)

// ScoredDoc is one ranked candidate for a single-term query.
type ScoredDoc struct {
	Name          string  `json:"name"`
	Location      string  `json:"location"`
	TermFrequency int     `json:"term_frequency"`
	Score         float64 `json:"score"`
}

// IDF returns ln(totalDocs / docFreq) computed in floating point, or 0 when
// the term occurs nowhere.
func IDF(totalDocs, docFreq int) float64 {
	if docFreq <= 0 || totalDocs <= 0 {
		return 0
	}
	return math.Log(float64(totalDocs) / float64(docFreq))
}

// TFIDF scores a document from its raw term count and the term's IDF.
func TFIDF(termFreq int, idf float64) float64 {
	return float64(termFreq) * idf
}

// Rank orders docs by descending score and keeps the first limit entries.
// Equal scores keep their incoming order. A limit <= 0 keeps everything.
func Rank(docs []ScoredDoc, limit int) []ScoredDoc {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score > docs[j].Score
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs
}
