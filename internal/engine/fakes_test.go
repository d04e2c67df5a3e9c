package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/islishude/tarriball/hostfs"
	"github.com/islishude/tarriball/internal/locator"
	s3store "github.com/islishude/tarriball/internal/storage/s3"
)

type chmodRecorder struct {
	hostfs.Host
	mode int64
}

func (c *chmodRecorder) Chmod(_ string, mode int64) error {
	c.mode = mode
	return nil
}

type fakeObject struct {
	data     []byte
	metadata map[string]string
	modified time.Time
}

// fakeStore is an in-memory ObjectStore keyed by bucket and key.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	now     time.Time
}

var _ ObjectStore = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]fakeObject{}, now: time.Unix(1700000000, 0)}
}

func objectKey(bucket, key string) string { return bucket + "/" + key }

func (s *fakeStore) put(bucket, key string, data []byte, metadata map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectKey(bucket, key)] = fakeObject{data: data, metadata: maps.Clone(metadata), modified: s.now}
}

func (s *fakeStore) get(bucket, key string) (fakeObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[objectKey(bucket, key)]
	return obj, ok
}

func (s *fakeStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.objects))
}

func (s *fakeStore) OpenReader(ctx context.Context, ref locator.Ref) (io.ReadCloser, s3store.Metadata, error) {
	data, meta, err := s.ReadObject(ctx, ref)
	if err != nil {
		return nil, s3store.Metadata{}, err
	}
	return io.NopCloser(bytes.NewReader(data)), meta, nil
}

func (s *fakeStore) ReadObject(_ context.Context, ref locator.Ref) ([]byte, s3store.Metadata, error) {
	obj, ok := s.get(ref.Bucket, ref.Key)
	if !ok {
		return nil, s3store.Metadata{}, fmt.Errorf("no such key: %s", ref.Key)
	}
	return obj.data, s3store.Metadata{
		Size:         int64(len(obj.data)),
		LastModified: obj.modified,
		UserMetadata: obj.metadata,
	}, nil
}

func (s *fakeStore) List(_ context.Context, ref locator.Ref) ([]s3store.Object, error) {
	prefix := objectKey(ref.Bucket, ref.Key)
	var out []s3store.Object
	for _, k := range s.keys() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		obj, _ := s.get(ref.Bucket, strings.TrimPrefix(k, ref.Bucket+"/"))
		out = append(out, s3store.Object{
			Key:          strings.TrimPrefix(k, ref.Bucket+"/"),
			Size:         int64(len(obj.data)),
			LastModified: obj.modified,
		})
	}
	return out, nil
}

func (s *fakeStore) OpenWriter(_ context.Context, ref locator.Ref, metadata map[string]string) (io.WriteCloser, error) {
	return &fakeWriter{store: s, ref: ref, metadata: metadata}, nil
}

func (s *fakeStore) UploadStream(_ context.Context, ref locator.Ref, body io.Reader, metadata map[string]string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.put(ref.Bucket, ref.Key, data, metadata)
	return nil
}

type fakeWriter struct {
	store    *fakeStore
	ref      locator.Ref
	metadata map[string]string
	buf      bytes.Buffer
}

func (w *fakeWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *fakeWriter) Close() error {
	w.store.put(w.ref.Bucket, w.ref.Key, w.buf.Bytes(), w.metadata)
	return nil
}
