package s3

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager"
	tmtypes "github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager/types"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/islishude/tarriball/internal/locator"
)

const envPrefix = "TARRIBALL_S3_"

type Store struct {
	client   *awss3.Client
	tm       *transfermanager.Client
	settings Settings
}

type Settings struct {
	PartSizeMB  int64
	Concurrency int
	SSE         string
	SSEKMSKeyID string
}

type Metadata struct {
	Size         int64
	ETag         string
	LastModified time.Time
	UserMetadata map[string]string
}

// Object is one entry of a prefix listing.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// LoadSettings reads the upload settings from TARRIBALL_S3_* variables.
func LoadSettings() Settings {
	settings := Settings{
		PartSizeMB:  16,
		Concurrency: 4,
		SSE:         strings.ToLower(strings.TrimSpace(defaultString(os.Getenv(envPrefix+"SSE"), "AES256"))),
		SSEKMSKeyID: strings.TrimSpace(os.Getenv(envPrefix + "SSE_KMS_KEY_ID")),
	}
	if v, ok := int64FromEnv(envPrefix + "PART_SIZE_MB"); ok && v > 0 {
		settings.PartSizeMB = v
	}
	if v, ok := intFromEnv(envPrefix + "CONCURRENCY"); ok && v > 0 {
		settings.Concurrency = v
	}
	return settings
}

func New(ctx context.Context) (*Store, error) {
	var loadOpts []func(*config.LoadOptions) error
	if retryMax, ok := intFromEnv(envPrefix + "MAX_RETRIES"); ok {
		loadOpts = append(loadOpts, config.WithRetryMaxAttempts(retryMax))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	settings := LoadSettings()
	client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		if strings.EqualFold(strings.TrimSpace(os.Getenv(envPrefix+"USE_PATH_STYLE")), "true") {
			o.UsePathStyle = true
		}
	})
	tm := transfermanager.New(client, func(o *transfermanager.Options) {
		o.PartSizeBytes = settings.PartSizeMB * 1024 * 1024
		o.Concurrency = settings.Concurrency
	})
	return &Store{client: client, tm: tm, settings: settings}, nil
}

func (s *Store) OpenReader(ctx context.Context, ref locator.Ref) (io.ReadCloser, Metadata, error) {
	if ref.Kind != locator.KindS3 {
		return nil, Metadata{}, fmt.Errorf("ref %q is not s3", ref.Raw)
	}
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{Bucket: aws.String(ref.Bucket), Key: aws.String(ref.Key)})
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("get s3://%s/%s: %w", ref.Bucket, ref.Key, err)
	}
	meta := Metadata{
		Size:         aws.ToInt64(out.ContentLength),
		ETag:         aws.ToString(out.ETag),
		LastModified: aws.ToTime(out.LastModified),
		UserMetadata: out.Metadata,
	}
	return out.Body, meta, nil
}

// ReadObject downloads one object into memory.
func (s *Store) ReadObject(ctx context.Context, ref locator.Ref) ([]byte, Metadata, error) {
	body, meta, err := s.OpenReader(ctx, ref)
	if err != nil {
		return nil, Metadata{}, err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("read s3://%s/%s: %w", ref.Bucket, ref.Key, err)
	}
	return data, meta, nil
}

// List returns every object below the prefix of ref, in key order.
func (s *Store) List(ctx context.Context, ref locator.Ref) ([]Object, error) {
	if ref.Kind != locator.KindS3 {
		return nil, fmt.Errorf("ref %q is not s3", ref.Raw)
	}
	var objects []Object
	p := awss3.NewListObjectsV2Paginator(s.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(ref.Bucket),
		Prefix: aws.String(ref.Key),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", ref.Bucket, ref.Key, err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, Object{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return objects, nil
}

func (s *Store) OpenWriter(ctx context.Context, ref locator.Ref, metadata map[string]string) (io.WriteCloser, error) {
	if ref.Kind != locator.KindS3 {
		return nil, fmt.Errorf("ref %q is not s3", ref.Raw)
	}
	pr, pw := io.Pipe()
	errCh := make(chan error, 1)
	in := s.uploadInput(ref, pr, metadata)
	go func() {
		_, err := s.tm.UploadObject(ctx, in)
		_ = pr.CloseWithError(err)
		errCh <- err
		close(errCh)
	}()
	return &uploadWriter{pw: pw, errCh: errCh}, nil
}

func (s *Store) UploadStream(ctx context.Context, ref locator.Ref, body io.Reader, metadata map[string]string) error {
	if ref.Kind != locator.KindS3 {
		return fmt.Errorf("ref %q is not s3", ref.Raw)
	}
	if _, err := s.tm.UploadObject(ctx, s.uploadInput(ref, body, metadata)); err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", ref.Bucket, ref.Key, err)
	}
	return nil
}

func (s *Store) uploadInput(ref locator.Ref, body io.Reader, metadata map[string]string) *transfermanager.UploadObjectInput {
	in := &transfermanager.UploadObjectInput{
		Bucket:      aws.String(ref.Bucket),
		Key:         aws.String(ref.Key),
		Body:        body,
		Metadata:    metadata,
		ContentType: aws.String(contentTypeForKey(ref.Key)),
	}
	applyEncryption(in, s.settings)
	return in
}

func applyEncryption(in *transfermanager.UploadObjectInput, settings Settings) {
	switch settings.SSE {
	case "aws:kms", "sse-kms":
		in.ServerSideEncryption = tmtypes.ServerSideEncryptionAwsKms
		if settings.SSEKMSKeyID != "" {
			in.SSEKMSKeyID = aws.String(settings.SSEKMSKeyID)
		}
	case "none":
	default:
		in.ServerSideEncryption = tmtypes.ServerSideEncryptionAes256
	}
}

func contentTypeForKey(key string) string {
	switch ext := strings.ToLower(path.Ext(key)); ext {
	case ".gz", ".tgz":
		return "application/gzip"
	case ".bz2", ".tbz", ".tbz2":
		return "application/x-bzip2"
	case ".xz", ".txz":
		return "application/x-xz"
	case ".zst", ".tzst":
		return "application/zstd"
	case ".lz4":
		return "application/x-lz4"
	case ".tar":
		return "application/x-tar"
	case "":
		return "application/octet-stream"
	default:
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
		return "application/octet-stream"
	}
}

type uploadWriter struct {
	pw    *io.PipeWriter
	errCh <-chan error
}

func (w *uploadWriter) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *uploadWriter) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	if err, ok := <-w.errCh; ok && err != nil {
		return err
	}
	return nil
}

func intFromEnv(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	x, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return x, true
}

func int64FromEnv(key string) (int64, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	x, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return x, true
}

func defaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
