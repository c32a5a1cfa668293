// Package tokenizer provides text tokenisation for the search engine.
// It lower-cases input and splits it on every rune outside [a-z], so digits,
// punctuation and non-ASCII letters all act as separators. There is no
// stemming and no stop-word list: "don't" yields "don" and "t".
package tokenizer

import (
	"bufio"
	"errors"
	"io"
	"iter"
	"slices"
	"strings"
	"unicode"
)

// Scanner yields the terms of a single document lazily. A Scanner is
// single-use; create a new one for every read of a document. Terms have no
// length limit.
type Scanner struct {
	r    *bufio.Reader
	term strings.Builder
	err  error
}

// NewScanner returns a Scanner reading terms from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

// Terms returns the sequence of normalised terms. Iteration stops early on a
// read error; check Err afterwards.
func (s *Scanner) Terms() iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			term, ok := s.next()
			if !ok || !yield(term) {
				return
			}
		}
	}
}

// next returns the following term, or false at end of input or on error.
func (s *Scanner) next() (string, bool) {
	s.term.Reset()
	for {
		r, _, err := s.r.ReadRune()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.err = err
			}
			if s.term.Len() > 0 && s.err == nil {
				return s.term.String(), true
			}
			return "", false
		}
		if b, ok := termByte(r); ok {
			s.term.WriteByte(b)
			continue
		}
		if s.term.Len() > 0 {
			return s.term.String(), true
		}
	}
}

// Err returns the first non-EOF error encountered while reading.
func (s *Scanner) Err() error {
	return s.err
}

// Tokenize breaks text into its normalised terms.
func Tokenize(text string) []string {
	return slices.Collect(NewScanner(strings.NewReader(text)).Terms())
}

// Normalize applies the same case folding as tokenisation to a raw query.
// It does not split: a query with separators in it matches nothing.
func Normalize(query string) string {
	return strings.ToLower(query)
}

// termByte lower-cases r and reports whether it is a term letter.
func termByte(r rune) (byte, bool) {
	r = unicode.ToLower(r)
	if r < 'a' || r > 'z' {
		return 0, false
	}
	return byte(r), true
}
