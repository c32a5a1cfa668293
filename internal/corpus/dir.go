package corpus

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
)

// DirStore serves the entries of a single directory. Sub-directories are
// listed like any other entry but fail to open; there is no recursion.
type DirStore struct {
	dir string
}

// NewDirStore checks that dir exists and is a directory.
func NewDirStore(dir string) (*DirStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidCorpus, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", apperrors.ErrInvalidCorpus, dir)
	}
	return &DirStore{dir: dir}, nil
}

func (s *DirStore) List(ctx context.Context) ([]Document, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %v", apperrors.ErrInvalidCorpus, s.dir, err)
	}
	docs := make([]Document, 0, len(entries))
	for _, entry := range entries {
		docs = append(docs, Document{
			Name:     entry.Name(),
			Location: filepath.Join(s.dir, entry.Name()),
		})
	}
	return docs, nil
}

func (s *DirStore) Open(ctx context.Context, doc Document) (io.ReadCloser, error) {
	f, err := os.Open(doc.Location)
	if err != nil {
		return nil, apperrors.NewDocumentReadError(doc.Location, "open", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, apperrors.NewDocumentReadError(doc.Location, "stat", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, apperrors.NewDocumentReadError(doc.Location, "open", errIsDirectory)
	}
	return f, nil
}

func (s *DirStore) String() string {
	return s.dir
}
