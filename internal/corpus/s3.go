package corpus

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
)

const s3Scheme = "s3://"

// S3Store treats the objects directly under a bucket prefix as a flat
// corpus. Nested "folders" show up as entries that cannot be opened, the same
// way sub-directories do for DirStore.
type S3Store struct {
	client s3iface.S3API
	bucket string
	prefix string
}

func NewS3Store(client s3iface.S3API, bucket, prefix string) *S3Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Store) List(ctx context.Context) ([]Document, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(s.prefix),
		Delimiter: aws.String("/"),
	}
	var docs []Document
	err := s.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			if key == s.prefix {
				continue
			}
			docs = append(docs, s.document(key))
		}
		for _, cp := range page.CommonPrefixes {
			docs = append(docs, s.document(aws.StringValue(cp.Prefix)))
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %v", apperrors.ErrInvalidCorpus, s, err)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Name < docs[j].Name
	})
	return docs, nil
}

func (s *S3Store) Open(ctx context.Context, doc Document) (io.ReadCloser, error) {
	key := strings.TrimPrefix(doc.Location, s3Scheme+s.bucket+"/")
	if strings.HasSuffix(key, "/") {
		return nil, apperrors.NewDocumentReadError(doc.Location, "open", errIsDirectory)
	}
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, apperrors.NewDocumentReadError(doc.Location, "get", err)
	}
	return out.Body, nil
}

func (s *S3Store) String() string {
	return s3Scheme + s.bucket + "/" + s.prefix
}

func (s *S3Store) document(key string) Document {
	return Document{
		Name:     path.Base(strings.TrimSuffix(key, "/")),
		Location: s3Scheme + s.bucket + "/" + key,
	}
}

func parseS3URL(location string) (bucket, prefix string, err error) {
	rest := strings.TrimPrefix(location, s3Scheme)
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: missing bucket in %q", apperrors.ErrInvalidCorpus, location)
	}
	return bucket, prefix, nil
}

func newS3Client(cfg config.S3Config) (s3iface.S3API, error) {
	awsCfg := &aws.Config{
		S3ForcePathStyle: aws.Bool(cfg.ForcePathStyle),
	}
	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("creating aws session: %w", err)
	}
	return s3.New(sess), nil
}
