package locator

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	awsarn "github.com/aws/aws-sdk-go-v2/aws/arn"
)

type Kind string

const (
	KindLocal Kind = "local"
	KindStdio Kind = "stdio"
	KindS3    Kind = "s3"
)

// Ref is a parsed archive, member or target location.
type Ref struct {
	Kind     Kind
	Raw      string
	Path     string
	Bucket   string
	Key      string
	Metadata map[string]string
}

// IsPrefix reports whether an S3 ref names a key prefix rather than one
// object.
func (r Ref) IsPrefix() bool {
	return r.Kind == KindS3 && (r.Key == "" || strings.HasSuffix(r.Key, "/"))
}

// ParseArchive parses the -f value: "-" for stdio, an s3:// URI, an S3
// object ARN, or a local path.
func ParseArchive(v string) (Ref, error) {
	if v == "-" {
		return Ref{Kind: KindStdio, Raw: v}, nil
	}
	return parse(v)
}

// ParseMember parses a create-mode member. "-" is a local file name here.
func ParseMember(v string) (Ref, error) {
	return parse(v)
}

// ParseTarget parses the -C value. An S3 target is always a key prefix.
func ParseTarget(v string) (Ref, error) {
	ref, err := parse(v)
	if err != nil {
		return Ref{}, err
	}
	if ref.Kind == KindS3 && ref.Key != "" && !strings.HasSuffix(ref.Key, "/") {
		ref.Key += "/"
	}
	return ref, nil
}

func parse(v string) (Ref, error) {
	switch {
	case strings.HasPrefix(v, "s3://"):
		return parseS3URI(v)
	case strings.HasPrefix(v, "arn:"):
		return parseS3ARN(v)
	default:
		return Ref{Kind: KindLocal, Raw: v, Path: v}, nil
	}
}

func parseS3URI(v string) (Ref, error) {
	u, err := url.Parse(v)
	if err != nil {
		return Ref{}, fmt.Errorf("invalid s3 uri %q: %w", v, err)
	}
	if u.Scheme != "s3" {
		return Ref{}, fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return Ref{}, fmt.Errorf("s3 uri must include bucket")
	}
	return Ref{
		Kind:     KindS3,
		Raw:      v,
		Bucket:   u.Host,
		Key:      strings.TrimPrefix(u.Path, "/"),
		Metadata: parseQueryMetadata(u.Query()),
	}, nil
}

func parseS3ARN(v string) (Ref, error) {
	a, err := awsarn.Parse(v)
	if err != nil {
		return Ref{}, fmt.Errorf("invalid arn: %w", err)
	}
	if a.Service != "s3" {
		return Ref{}, fmt.Errorf("unsupported arn service %q", a.Service)
	}

	if strings.HasPrefix(a.Resource, "accesspoint/") {
		ap, key, ok := strings.Cut(a.Resource, "/object/")
		if !ok || key == "" {
			return Ref{}, fmt.Errorf("unsupported accesspoint arn, expected /object/<key>")
		}
		bucketARN := fmt.Sprintf("arn:%s:%s:%s:%s:%s", a.Partition, a.Service, a.Region, a.AccountID, ap)
		return Ref{Kind: KindS3, Raw: v, Bucket: bucketARN, Key: key}, nil
	}

	resource := strings.TrimPrefix(a.Resource, ":::")
	resource = strings.TrimPrefix(resource, "bucket/")
	bucket, key, ok := strings.Cut(resource, "/")
	if !ok || bucket == "" || key == "" {
		return Ref{}, fmt.Errorf("unsupported s3 arn, expected object arn with bucket and key")
	}
	return Ref{Kind: KindS3, Raw: v, Bucket: bucket, Key: key}, nil
}

// JoinS3Prefix joins a key prefix and a member name with exactly one slash.
func JoinS3Prefix(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	name = strings.TrimPrefix(name, "/")
	if prefix == "" {
		return name
	}
	if name == "" {
		return prefix
	}
	return prefix + "/" + name
}

func parseQueryMetadata(q url.Values) map[string]string {
	if len(q) == 0 {
		return nil
	}
	out := make(map[string]string, len(q))
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		out[key] = strings.Join(q[k], ",")
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
