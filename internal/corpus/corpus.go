// Package corpus enumerates and opens the documents a search index is built
// over. A corpus is flat: every entry of the listing is one document, and
// content is always streamed from the backing store, never held in memory.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
)

var errIsDirectory = errors.New("is a directory")

// Document is a handle to one unit of stored text. Location is its identity.
type Document struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Store lists and opens documents.
type Store interface {
	// List returns every entry of the corpus in a stable order. A failure
	// here means the corpus itself is unusable.
	List(ctx context.Context) ([]Document, error)
	// Open streams the content of a single document.
	Open(ctx context.Context, doc Document) (io.ReadCloser, error)
}

// Open picks a Store for location: an s3://bucket/prefix URL selects S3,
// anything else is treated as a local directory.
func Open(ctx context.Context, location string, cfg config.S3Config) (Store, error) {
	if location == "" {
		return nil, fmt.Errorf("%w: no location given", apperrors.ErrInvalidCorpus)
	}
	if strings.HasPrefix(location, s3Scheme) {
		bucket, prefix, err := parseS3URL(location)
		if err != nil {
			return nil, err
		}
		client, err := newS3Client(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidCorpus, err)
		}
		return NewS3Store(client, bucket, prefix), nil
	}
	return NewDirStore(location)
}

// WrapReadError turns a failure on doc into a DocumentReadError unless it
// already is one.
func WrapReadError(doc Document, op string, err error) error {
	if errors.Is(err, apperrors.ErrDocumentRead) {
		return err
	}
	return apperrors.NewDocumentReadError(doc.Location, op, err)
}
