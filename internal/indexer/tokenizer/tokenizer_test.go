package tokenizer

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"simple", "the cat sat", []string{"the", "cat", "sat"}},
		{"mixed case and punctuation", "HELLO, World!!", []string{"hello", "world"}},
		{"contraction splits", "don't", []string{"don", "t"}},
		{"digits separate", "abc123def 42", []string{"abc", "def"}},
		{"accented letters separate", "Café au lait", []string{"caf", "au", "lait"}},
		{"kelvin sign folds to k", "Kelvin", []string{"kelvin"}},
		{"newlines and tabs", "one\ntwo\tthree\r\n", []string{"one", "two", "three"}},
		{"duplicates kept", "cat cat CAT", []string{"cat", "cat", "cat"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.text))
		})
	}
}

func TestTokenizeEmptyAndSeparatorsOnly(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("  123 -- !! ééé "))
}

func TestTokenizeIsIdempotent(t *testing.T) {
	text := "It's a truth universally acknowledged, that a single man (in 1813)..."
	assert.Equal(t, Tokenize(text), Tokenize(text))
}

func TestScannerHandlesRunesSplitAcrossReads(t *testing.T) {
	s := NewScanner(iotest.OneByteReader(strings.NewReader("naïve café Über alles")))
	var got []string
	for term := range s.Terms() {
		got = append(got, term)
	}
	require.NoError(t, s.Err())
	assert.Equal(t, []string{"na", "ve", "caf", "ber", "alles"}, got)
}

func TestScannerLongTerm(t *testing.T) {
	long := strings.Repeat("a", 200_000)
	got := Tokenize("x " + long + " y")
	require.Len(t, got, 3)
	assert.Len(t, got[1], 200_000)
}

func TestScannerTermLongerThanReadBuffer(t *testing.T) {
	long := strings.Repeat("a", 2<<20)
	s := NewScanner(strings.NewReader(long + " cat"))

	var got []string
	for term := range s.Terms() {
		got = append(got, term)
	}
	require.NoError(t, s.Err())
	require.Len(t, got, 2)
	assert.Len(t, got[0], 2<<20)
	assert.Equal(t, "cat", got[1])
}

func TestScannerReportsReadError(t *testing.T) {
	readErr := errors.New("disk unplugged")
	s := NewScanner(iotest.ErrReader(readErr))
	for range s.Terms() {
		t.Fatal("no terms expected")
	}
	assert.ErrorIs(t, s.Err(), readErr)
}

func TestScannerStopsWhenConsumerBreaks(t *testing.T) {
	s := NewScanner(strings.NewReader("a b c d"))
	var got []string
	for term := range s.Terms() {
		got = append(got, term)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "cat", Normalize("CaT"))
	assert.Equal(t, "don't", Normalize("Don't"))
	assert.Equal(t, "", Normalize(""))
}

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `Distributed search engines process queries across multiple shards to achieve
        horizontal scalability. Each shard maintains its own inverted index and responds
        to queries independently.`,
	"long": strings.Repeat(`Information retrieval systems form the backbone of modern search
        infrastructure. The inverted index maps each term to the documents containing it. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := Tokenize(text)
				_ = tokens
			}
		})
	}
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	sizes := []int{10, 100, 500, 1000, 5000}
	baseWord := "distributed search analytics platform indexing "
	for _, size := range sizes {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := Tokenize(text)
				_ = tokens
			}
		})
	}
}
