package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/islishude/tarriball"
	"github.com/islishude/tarriball/hostfs"
	"github.com/islishude/tarriball/internal/cli"
	"github.com/islishude/tarriball/internal/compress"
	"github.com/islishude/tarriball/internal/locator"
	localstore "github.com/islishude/tarriball/internal/storage/local"
	s3store "github.com/islishude/tarriball/internal/storage/s3"
)

const (
	ExitSuccess = 0
	ExitWarning = 1
	ExitFatal   = 2
)

type PermissionPolicy struct {
	SameOwner bool
	SamePerms bool
}

type Runner struct {
	local  *localstore.ArchiveStore
	s3     ObjectStore
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Runner)

// WithLogger sets the logger handed to the archive codec.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObjectStore replaces the S3 store built from the AWS environment.
func WithObjectStore(store ObjectStore) Option {
	return func(r *Runner) {
		r.s3 = store
	}
}

// WithStdin sets the stream read for "-f -". It defaults to os.Stdin.
func WithStdin(stdin io.Reader) Option {
	return func(r *Runner) {
		r.stdin = stdin
	}
}

// WithClock sets the time source for archive suffixes and members without
// a modification time.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

type RunResult struct {
	ExitCode int
	Err      error
}

func New(ctx context.Context, stdout io.Writer, stderr io.Writer, opts ...Option) (*Runner, error) {
	r := &Runner{
		stdin:  os.Stdin,
		stdout: stdout,
		stderr: stderr,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.local = &localstore.ArchiveStore{Stdin: r.stdin, Stdout: stdout}
	if r.s3 == nil {
		s3s, err := s3store.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("init s3: %w", err)
		}
		r.s3 = s3s
	}
	return r, nil
}

func (r *Runner) Run(ctx context.Context, opts cli.Options) RunResult {
	switch opts.Mode {
	case cli.ModeCreate:
		warnings, err := r.runCreate(ctx, opts)
		return classifyResult(err, warnings)
	case cli.ModeExtract:
		warnings, err := r.runExtract(ctx, opts)
		return classifyResult(err, warnings)
	case cli.ModeList:
		warnings, err := r.runList(ctx, opts)
		return classifyResult(err, warnings)
	default:
		return RunResult{ExitCode: ExitFatal, Err: fmt.Errorf("unsupported mode %q", opts.Mode)}
	}
}

func classifyResult(err error, warnings int) RunResult {
	if err != nil {
		return RunResult{ExitCode: ExitFatal, Err: err}
	}
	if warnings > 0 {
		return RunResult{ExitCode: ExitWarning}
	}
	return RunResult{ExitCode: ExitSuccess}
}

func (r *Runner) service(host hostfs.Host, opts cli.Options) *tarriball.Service {
	return tarriball.New(host,
		tarriball.WithLogger(r.logger),
		tarriball.WithClock(r.now),
		tarriball.WithChunkSize(opts.BlockSize),
		tarriball.WithVerifyChecksum(opts.VerifyChecksum),
	)
}

func chunkSize(opts cli.Options) int {
	if opts.BlockSize > 0 {
		return opts.BlockSize
	}
	return tarriball.DefaultChunkSize
}

func (r *Runner) runCreate(ctx context.Context, opts cli.Options) (warnings int, retErr error) {
	archiveRef, err := locator.ParseArchive(opts.Archive)
	if err != nil {
		return 0, err
	}
	archiveRef = applySuffix(archiveRef, opts.Suffix, r.now())

	excludes, err := loadExcludePatterns(opts.Exclude, opts.ExcludeFrom)
	if err != nil {
		return 0, err
	}

	// Entries are collected and validated before the archive is opened so
	// a rejected member leaves no partial output behind.
	svc := r.service(hostfs.NewOS(hostfs.WithBase(opts.Chdir)), opts)
	entries, err := r.collectEntries(ctx, svc, opts.Members, excludes)
	if err != nil {
		return 0, err
	}

	aw, err := r.openArchiveWriter(ctx, archiveRef)
	if err != nil {
		return 0, err
	}
	cw, err := compress.NewWriter(aw, compress.FromString(string(opts.Compression)), opts.CompressionLevel)
	if err != nil {
		_ = aw.Close()
		return 0, err
	}
	defer func() {
		// cw.Close() also closes the underlying archive writer.
		if cerr := cw.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("closing archive: %w", cerr)
		}
	}()

	var w io.Writer = cw
	var digester digest.Digester
	if opts.Digest {
		digester = digest.Canonical.Digester()
		w = io.MultiWriter(cw, digester.Hash())
	}
	if err := svc.WriteEntries(w, entries); err != nil {
		return 0, err
	}

	info := r.infoWriter(archiveRef)
	if opts.Verbose {
		for _, e := range entries {
			_, _ = fmt.Fprintln(info, e.Info().Path)
		}
	}
	if digester != nil {
		_, _ = fmt.Fprintln(info, digester.Digest())
	}
	return 0, nil
}

// infoWriter is where verbose names and digests go. It is stderr when the
// archive itself is written to stdout.
func (r *Runner) infoWriter(archiveRef locator.Ref) io.Writer {
	if archiveRef.Kind == locator.KindStdio {
		return r.stderr
	}
	return r.stdout
}

func applySuffix(ref locator.Ref, suffix string, now time.Time) locator.Ref {
	switch ref.Kind {
	case locator.KindLocal:
		ref.Path = filepath.FromSlash(AddTarSuffix(filepath.ToSlash(ref.Path), suffix, now))
	case locator.KindS3:
		ref.Key = AddTarSuffix(ref.Key, suffix, now)
	}
	return ref
}

func (r *Runner) collectEntries(ctx context.Context, svc *tarriball.Service, members []string, excludes []string) ([]tarriball.Entry, error) {
	var entries []tarriball.Entry
	for _, m := range members {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ref, err := locator.ParseMember(m)
		if err != nil {
			return nil, err
		}
		var found []tarriball.Entry
		switch ref.Kind {
		case locator.KindS3:
			found, err = r.s3Entries(ctx, ref)
		case locator.KindLocal:
			found, err = svc.EntriesFromPaths(ref.Path)
		default:
			err = fmt.Errorf("unsupported member reference %q", m)
		}
		if err != nil {
			return nil, err
		}
		for _, e := range found {
			if matchExclude(excludes, e.Info().Path) {
				r.logger.Debug("exclude", "path", e.Info().Path)
				continue
			}
			entries = append(entries, e)
		}
	}
	slices.SortStableFunc(entries, func(a, b tarriball.Entry) int {
		return strings.Compare(a.Info().Path, b.Info().Path)
	})
	return entries, nil
}

func (r *Runner) s3Entries(ctx context.Context, ref locator.Ref) ([]tarriball.Entry, error) {
	if !ref.IsPrefix() {
		e, err := r.s3Entry(ctx, ref)
		if err != nil {
			return nil, err
		}
		return []tarriball.Entry{e}, nil
	}
	objects, err := r.s3.List(ctx, ref)
	if err != nil {
		return nil, err
	}
	entries := make([]tarriball.Entry, 0, len(objects))
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e, err := r.s3Entry(ctx, locator.Ref{Kind: locator.KindS3, Raw: ref.Raw, Bucket: ref.Bucket, Key: obj.Key})
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *Runner) s3Entry(ctx context.Context, ref locator.Ref) (tarriball.Entry, error) {
	data, meta, err := r.s3.ReadObject(ctx, ref)
	if err != nil {
		return nil, err
	}
	info := entryInfoFromS3Metadata(strings.TrimPrefix(ref.Key, "/"), meta.UserMetadata, meta.LastModified)
	return tarriball.BufferEntry{EntryInfo: info, Data: data}, nil
}

func (r *Runner) runList(ctx context.Context, opts cli.Options) (int, error) {
	svc := r.service(hostfs.NewOS(), opts)
	return r.scanArchive(ctx, opts, svc, func(rec *tarriball.Record) (int, error) {
		if shouldSkipMember(opts.Members, rec.Path()) {
			return 0, nil
		}
		if opts.Verbose {
			_, _ = fmt.Fprintln(r.stdout, formatListing(rec))
		} else {
			_, _ = fmt.Fprintln(r.stdout, rec.Path())
		}
		return 0, nil
	})
}

// formatListing renders a record the way tar -tv does.
func formatListing(rec *tarriball.Record) string {
	name := rec.Path()
	if rec.Type() == tarriball.TypeSymlink {
		name += " -> " + rec.Linkname()
	} else if rec.Type() == tarriball.TypeLink {
		name += " link to " + rec.Linkname()
	}
	return fmt.Sprintf("%c%s %d/%d %9d %s %s",
		typeIndicator(rec), rec.Mode(), rec.UID(), rec.GID(), rec.Size(),
		rec.ModTime().UTC().Format("2006-01-02 15:04"), name)
}

func typeIndicator(rec *tarriball.Record) byte {
	if rec.IsDir() {
		return 'd'
	}
	switch rec.Type() {
	case tarriball.TypeSymlink:
		return 'l'
	case tarriball.TypeLink:
		return 'h'
	case tarriball.TypeChar:
		return 'c'
	case tarriball.TypeBlock:
		return 'b'
	case tarriball.TypeFifo:
		return 'p'
	default:
		return '-'
	}
}

func (r *Runner) runExtract(ctx context.Context, opts cli.Options) (int, error) {
	if opts.ToStdout {
		svc := r.service(hostfs.NewOS(), opts)
		return r.scanArchive(ctx, opts, svc, func(rec *tarriball.Record) (int, error) {
			if shouldSkipMember(opts.Members, rec.Path()) || rec.IsDir() || !rec.IsFile() {
				return 0, nil
			}
			if _, ok := stripPathComponents(rec.Path(), opts.StripComponents); !ok {
				return 0, nil
			}
			_, err := io.Copy(r.stdout, rec)
			return 0, err
		})
	}

	target := opts.Chdir
	if target == "" {
		target = "."
	}
	parsedTarget, err := locator.ParseTarget(target)
	if err != nil {
		return 0, err
	}
	switch parsedTarget.Kind {
	case locator.KindS3:
		return r.extractToS3(ctx, opts, parsedTarget)
	case locator.KindLocal:
		return r.extractToLocal(ctx, opts, parsedTarget.Path)
	default:
		return 0, fmt.Errorf("unsupported extract target %q", target)
	}
}

func (r *Runner) extractToS3(ctx context.Context, opts cli.Options, target locator.Ref) (int, error) {
	svc := r.service(hostfs.NewOS(), opts)
	return r.scanArchive(ctx, opts, svc, func(rec *tarriball.Record) (int, error) {
		if shouldSkipMember(opts.Members, rec.Path()) {
			return 0, nil
		}
		name, ok := stripPathComponents(rec.Path(), opts.StripComponents)
		if !ok {
			return 0, nil
		}
		name = strings.TrimPrefix(name, "./")
		// S3 has no real directories, and an empty name has no object.
		if name == "" || rec.IsDir() {
			return 0, nil
		}
		if opts.Verbose {
			_, _ = fmt.Fprintln(r.stdout, name)
		}

		warnings := 0
		obj := locator.Ref{Kind: locator.KindS3, Bucket: target.Bucket, Key: locator.JoinS3Prefix(target.Key, name)}
		meta, ok := headerToS3Metadata(rec.Header())
		meta = mergeMetadata(target.Metadata, meta)
		if !ok {
			warnings++
			_, _ = fmt.Fprintf(r.stderr, "tarriball: warning: metadata exceeds S3 metadata limit for %s\n", rec.Path())
		}
		var body io.Reader = rec
		if !rec.IsFile() {
			body = strings.NewReader("")
		}
		return warnings, r.s3.UploadStream(ctx, obj, body, meta)
	})
}

type pendingTime struct {
	path  string
	mtime time.Time
}

func (r *Runner) extractToLocal(ctx context.Context, opts cli.Options, base string) (int, error) {
	policy := resolvePolicy(opts)
	var host hostfs.Host = hostfs.NewOS(hostfs.WithBase(base))
	if !policy.SamePerms {
		host = umaskHost{Host: host, mask: currentUmask()}
	}
	svc := r.service(host, opts)
	chunk := chunkSize(opts)

	// Directory times are applied last; creating children would bump them.
	var dirTimes []pendingTime
	warnings, err := r.scanArchive(ctx, opts, svc, func(rec *tarriball.Record) (int, error) {
		if shouldSkipMember(opts.Members, rec.Path()) {
			return 0, nil
		}
		name, ok := stripPathComponents(rec.Path(), opts.StripComponents)
		if !ok {
			return 0, nil
		}
		if !rec.IsDir() && !rec.IsFile() {
			_, _ = fmt.Fprintf(r.stderr, "tarriball: %s: skipping unsupported member type %q\n", rec.Path(), rec.Type())
			return 1, nil
		}
		full, err := safeJoin(base, name)
		if err != nil {
			return 0, err
		}
		if opts.Verbose {
			_, _ = fmt.Fprintln(r.stdout, name)
		}

		if opts.StripComponents == 0 {
			err = rec.ExtractInto(".", chunk)
		} else {
			err = extractStripped(host, rec, name, chunk)
		}
		if err != nil {
			return 0, err
		}

		if policy.SameOwner {
			_ = os.Lchown(full, int(rec.UID()), int(rec.GID()))
		}
		if rec.IsDir() {
			dirTimes = append(dirTimes, pendingTime{path: full, mtime: rec.ModTime()})
		} else {
			_ = os.Chtimes(full, rec.ModTime(), rec.ModTime())
		}
		return 0, nil
	})
	for _, dt := range slices.Backward(dirTimes) {
		_ = os.Chtimes(dt.path, dt.mtime, dt.mtime)
	}
	return warnings, err
}

// extractStripped extracts rec at name, which has had leading components
// removed, relative to the host base.
func extractStripped(host hostfs.Host, rec *tarriball.Record, name string, chunk int) error {
	rel := filepath.FromSlash(name)
	dir := rel
	if !rec.IsDir() {
		dir = filepath.Dir(rel)
	}
	if err := host.MkdirAll(dir); err != nil {
		return &tarriball.OpError{Op: "create directory", Path: dir, Err: err}
	}
	return rec.ExtractTo(rel, chunk)
}

// umaskHost clears the process umask bits from every mode it applies.
type umaskHost struct {
	hostfs.Host
	mask int64
}

func (h umaskHost) Chmod(p string, mode int64) error {
	return h.Host.Chmod(p, mode&^h.mask)
}

func (r *Runner) scanArchive(ctx context.Context, opts cli.Options, svc *tarriball.Service, fn func(rec *tarriball.Record) (int, error)) (int, error) {
	archiveRef, err := locator.ParseArchive(opts.Archive)
	if err != nil {
		return 0, err
	}
	ar, err := r.openArchiveReader(ctx, archiveRef)
	if err != nil {
		return 0, err
	}
	defer ar.Close() //nolint:errcheck

	cr, _, err := compress.NewReader(ar, compress.FromString(string(opts.Compression)), opts.Archive)
	if err != nil {
		return 0, err
	}
	defer cr.Close() //nolint:errcheck

	warnings := 0
	err = svc.EachRecord(cr, func(rec *tarriball.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		w, err := fn(rec)
		warnings += w
		return err
	})
	return warnings, err
}

func (r *Runner) openArchiveReader(ctx context.Context, ref locator.Ref) (io.ReadCloser, error) {
	switch ref.Kind {
	case locator.KindLocal, locator.KindStdio:
		rc, _, err := r.local.OpenReader(ref)
		return rc, err
	case locator.KindS3:
		if strings.TrimSpace(ref.Key) == "" {
			return nil, fmt.Errorf("archive object key cannot be empty for -f")
		}
		rc, _, err := r.s3.OpenReader(ctx, ref)
		return rc, err
	default:
		return nil, fmt.Errorf("unsupported archive source %q", ref.Raw)
	}
}

func (r *Runner) openArchiveWriter(ctx context.Context, ref locator.Ref) (io.WriteCloser, error) {
	switch ref.Kind {
	case locator.KindLocal, locator.KindStdio:
		return r.local.OpenWriter(ref)
	case locator.KindS3:
		if strings.TrimSpace(ref.Key) == "" {
			return nil, fmt.Errorf("archive object key cannot be empty for -f")
		}
		return r.s3.OpenWriter(ctx, ref, ref.Metadata)
	default:
		return nil, fmt.Errorf("unsupported archive target %q", ref.Raw)
	}
}

func resolvePolicy(opts cli.Options) PermissionPolicy {
	isRoot := os.Geteuid() == 0
	policy := PermissionPolicy{SameOwner: isRoot, SamePerms: isRoot}
	if opts.SameOwner != nil {
		policy.SameOwner = *opts.SameOwner
	}
	if opts.SamePermissions != nil {
		policy.SamePerms = *opts.SamePermissions
	}
	return policy
}

func safeJoin(base, member string) (string, error) {
	base = filepath.Clean(base)
	member = strings.TrimPrefix(member, "/")
	candidate := filepath.Join(base, filepath.FromSlash(member))
	candidate = filepath.Clean(candidate)
	rel, err := filepath.Rel(base, candidate)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("refusing to write outside target directory: %s", member)
	}
	return candidate, nil
}

func stripPathComponents(name string, count int) (string, bool) {
	if count <= 0 {
		return name, true
	}
	clean := path.Clean(strings.TrimPrefix(name, "/"))
	parts := make([]string, 0)
	for p := range strings.SplitSeq(clean, "/") {
		if p == "" || p == "." {
			continue
		}
		parts = append(parts, p)
	}
	if len(parts) <= count {
		return "", false
	}
	return strings.Join(parts[count:], "/"), true
}
