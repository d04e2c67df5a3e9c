package engine

import (
	"context"
	"io"

	"github.com/islishude/tarriball/internal/locator"
	s3store "github.com/islishude/tarriball/internal/storage/s3"
)

// ObjectStore is the S3 surface the runner needs. *s3store.Store is the
// production implementation.
type ObjectStore interface {
	OpenReader(ctx context.Context, ref locator.Ref) (io.ReadCloser, s3store.Metadata, error)
	ReadObject(ctx context.Context, ref locator.Ref) ([]byte, s3store.Metadata, error)
	List(ctx context.Context, ref locator.Ref) ([]s3store.Object, error)
	OpenWriter(ctx context.Context, ref locator.Ref, metadata map[string]string) (io.WriteCloser, error)
	UploadStream(ctx context.Context, ref locator.Ref, body io.Reader, metadata map[string]string) error
}

var _ ObjectStore = (*s3store.Store)(nil)
