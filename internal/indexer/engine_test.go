package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/metrics"
)

func writeCorpus(t testing.TB, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func names(docs []corpus.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Name
	}
	return out
}

// memStore is an in-memory corpus; documents named in broken fail mid-read.
type memStore struct {
	docs    []corpus.Document
	content map[string]string
	broken  map[string]bool
	listErr error
}

func newMemStore(files map[string]string, broken ...string) *memStore {
	s := &memStore{content: files, broken: make(map[string]bool)}
	for name := range files {
		s.docs = append(s.docs, corpus.Document{Name: name, Location: "mem://" + name})
	}
	slices.SortFunc(s.docs, func(a, b corpus.Document) int { return strings.Compare(a.Name, b.Name) })
	for _, name := range broken {
		s.broken[name] = true
	}
	return s
}

func (s *memStore) List(ctx context.Context) ([]corpus.Document, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.docs, nil
}

func (s *memStore) Open(ctx context.Context, doc corpus.Document) (io.ReadCloser, error) {
	body := s.content[doc.Name]
	if s.broken[doc.Name] {
		return io.NopCloser(io.MultiReader(strings.NewReader(body), iotest.ErrReader(errors.New("bad sector")))), nil
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestBuildIndexScenario(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"d1.txt": "the cat sat",
		"d2.txt": "the cat ran",
		"d3.txt": "a dog barked",
	})

	idx, stats, err := BuildIndex(context.Background(), dir, config.IndexerConfig{Workers: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, idx.TotalDocuments())
	assert.Equal(t, []string{"d1.txt", "d2.txt"}, names(idx.Lookup("cat")))
	assert.Equal(t, []string{"d1.txt", "d2.txt"}, names(idx.Lookup("the")))
	assert.Equal(t, []string{"d3.txt"}, names(idx.Lookup("barked")))
	assert.Empty(t, idx.Lookup("zebra"))

	assert.Equal(t, 3, stats.Listed)
	assert.Equal(t, 3, stats.Indexed)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, idx.Terms(), stats.Terms)
}

func TestBuildIndexCompleteAndSound(t *testing.T) {
	files := map[string]string{
		"a.txt": "It's raining; it's POURING. The old man's snoring!",
		"b.txt": "Rain, rain, go away -- come again another day (2024)",
		"c.txt": "Über café naïve résumé",
		"d.txt": "",
	}
	dir := writeCorpus(t, files)
	idx, _, err := BuildIndex(context.Background(), dir, config.IndexerConfig{Workers: 3})
	require.NoError(t, err)

	for name, body := range files {
		for _, term := range tokenizer.Tokenize(body) {
			assert.Contains(t, names(idx.Lookup(term)), name, "term %q", term)
		}
	}
	for term := range idx.AllTerms() {
		for _, doc := range idx.Lookup(term) {
			assert.Contains(t, tokenizer.Tokenize(files[doc.Name]), term)
		}
	}
}

func TestBuildIndexesDocumentWithHugeTerm(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"big.txt":   strings.Repeat("a", 2<<20) + " cat",
		"small.txt": "cat",
	})

	idx, stats, err := BuildIndex(context.Background(), dir, config.IndexerConfig{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Indexed)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, []string{"big.txt", "small.txt"}, names(idx.Lookup("cat")))
	assert.Equal(t, 1, idx.DocFreq(strings.Repeat("a", 2<<20)))
}

func TestBuildSkipsUnreadableDocumentsButCountsThem(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"d1.txt": "the cat sat",
		"d2.txt": "the cat ran",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	idx, stats, err := BuildIndex(context.Background(), dir, config.IndexerConfig{Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, idx.TotalDocuments())
	assert.Equal(t, 2, stats.Indexed)
	assert.Equal(t, 1, stats.Failed)
}

func TestBuildDropsDocumentThatFailsMidRead(t *testing.T) {
	store := newMemStore(map[string]string{
		"good.txt":   "zebra crossing",
		"broken.txt": "zebra stripes",
	}, "broken.txt")

	idx, stats, err := NewEngine(store, config.IndexerConfig{Workers: 4}).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, idx.TotalDocuments())
	assert.Equal(t, []string{"good.txt"}, names(idx.Lookup("zebra")))
	assert.Empty(t, idx.Lookup("stripes"))
	assert.Equal(t, 1, stats.Failed)
}

func TestBuildReportsMetrics(t *testing.T) {
	store := newMemStore(map[string]string{
		"a.txt": "alpha beta",
		"b.txt": "beta gamma",
		"c.txt": "lost",
	}, "c.txt")
	m := metrics.New(prometheus.NewRegistry())

	_, _, err := NewEngine(store, config.IndexerConfig{Workers: 2}).WithMetrics(m).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocsIndexedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocsFailedTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.IndexTerms))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.IndexDocuments))
}

func TestBuildFailsWhenCorpusCannotBeListed(t *testing.T) {
	_, _, err := BuildIndex(context.Background(), filepath.Join(t.TempDir(), "missing"), config.IndexerConfig{Workers: 1})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCorpus)

	store := newMemStore(nil)
	store.listErr = fmt.Errorf("%w: bucket gone", apperrors.ErrInvalidCorpus)
	_, _, err = NewEngine(store, config.IndexerConfig{}).Build(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrInvalidCorpus)
}

func TestBuildHonoursCancellation(t *testing.T) {
	store := newMemStore(map[string]string{"a": "x", "b": "y"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewEngine(store, config.IndexerConfig{Workers: 1}).Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func BenchmarkBuild(b *testing.B) {
	sizes := []int{100, 1000}
	terms := []string{"distributed", "search", "analytics", "platform", "indexing", "query", "engine", "ranking"}
	for _, n := range sizes {
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			files := make(map[string]string, n)
			for i := 0; i < n; i++ {
				files[fmt.Sprintf("doc-%d", i)] = fmt.Sprintf("this document covers %s %s %s in production systems",
					terms[i%len(terms)], terms[(i+2)%len(terms)], terms[(i+3)%len(terms)])
			}
			store := newMemStore(files)
			engine := NewEngine(store, config.IndexerConfig{Workers: 4})

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, _, err := engine.Build(context.Background()); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
