// Package index holds the presence-only inverted index: for every term, the
// set of documents containing it at least once. Frequencies are not stored;
// scoring re-reads candidate documents.
package index

import (
	"cmp"
	"iter"
	"slices"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/corpus"
)

// InvertedIndex maps a term to the set of documents that contain it.
// Documents are referenced by their ordinal in the corpus listing, which also
// fixes the order Lookup returns them in.
//
// The index is filled by Add while building and read-only afterwards; Add
// must not run concurrently with any other method.
type InvertedIndex struct {
	id       string
	docs     []corpus.Document
	postings map[string]map[int]struct{}
}

// New creates an empty index over the full corpus listing. TotalDocuments is
// len(docs) for the life of the index, whether or not every document is
// later added.
func New(docs []corpus.Document) *InvertedIndex {
	return &InvertedIndex{
		id:       uuid.NewString(),
		docs:     slices.Clone(docs),
		postings: make(map[string]map[int]struct{}),
	}
}

// Add records that the document at ordinal contains every term in terms.
// Repeated terms do not duplicate the document in a set.
func (x *InvertedIndex) Add(ordinal int, terms iter.Seq[string]) {
	for term := range terms {
		set, ok := x.postings[term]
		if !ok {
			set = make(map[int]struct{})
			x.postings[term] = set
		}
		set[ordinal] = struct{}{}
	}
}

// Lookup returns the documents containing term, in corpus order. An unknown
// term yields nil.
func (x *InvertedIndex) Lookup(term string) []corpus.Document {
	set, ok := x.postings[term]
	if !ok {
		return nil
	}
	ordinals := make([]int, 0, len(set))
	for ord := range set {
		ordinals = append(ordinals, ord)
	}
	slices.Sort(ordinals)
	result := make([]corpus.Document, len(ordinals))
	for i, ord := range ordinals {
		result[i] = x.docs[ord]
	}
	return result
}

// DocFreq returns how many documents contain term.
func (x *InvertedIndex) DocFreq(term string) int {
	return len(x.postings[term])
}

// Terms returns the number of distinct terms.
func (x *InvertedIndex) Terms() int {
	return len(x.postings)
}

// AllTerms iterates over every distinct term in no particular order.
func (x *InvertedIndex) AllTerms() iter.Seq[string] {
	return func(yield func(string) bool) {
		for term := range x.postings {
			if !yield(term) {
				return
			}
		}
	}
}

// TermFreq pairs a term with the number of documents containing it.
type TermFreq struct {
	Term    string `json:"term"`
	DocFreq int    `json:"doc_freq"`
}

// TopTerms returns the n terms found in the most documents, ties broken
// alphabetically. n <= 0 returns every term.
func (x *InvertedIndex) TopTerms(n int) []TermFreq {
	all := make([]TermFreq, 0, len(x.postings))
	for term, set := range x.postings {
		all = append(all, TermFreq{Term: term, DocFreq: len(set)})
	}
	slices.SortFunc(all, func(a, b TermFreq) int {
		if c := cmp.Compare(b.DocFreq, a.DocFreq); c != 0 {
			return c
		}
		return cmp.Compare(a.Term, b.Term)
	})
	if n > 0 && n < len(all) {
		all = all[:n]
	}
	return all
}

// TotalDocuments is the size of the corpus listing the index was built from.
func (x *InvertedIndex) TotalDocuments() int {
	return len(x.docs)
}

// ID identifies this build of the index. Two builds never share an ID, even
// over an unchanged corpus.
func (x *InvertedIndex) ID() string {
	return x.id
}
