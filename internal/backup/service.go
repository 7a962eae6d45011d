package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=backup
type Repository interface {
	// Snapshot writes a consistent copy of the live store to dst, which must
	// not exist yet.
	Snapshot(ctx context.Context, dst string) error
	// Quiesce waits for in-flight operations and closes every handle to the
	// live file. No store operation succeeds afterwards.
	Quiesce() error
	// Path is the live store file.
	Path() string
}

type Config struct {
	Dir          string
	Retention    int
	Interval     time.Duration
	InitialDelay time.Duration
}

// Service creates, lists and restores snapshots of the live store.
// Create, prune and Restore are serialized.
type Service struct {
	repo Repository
	cfg  Config
	now  func() time.Time

	mu sync.Mutex

	reload     chan struct{}
	reloadOnce sync.Once
}

func NewService(repo Repository, cfg Config) *Service {
	if cfg.Retention < 1 {
		cfg.Retention = 7
	}

	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}

	return &Service{
		repo:   repo,
		cfg:    cfg,
		now:    time.Now,
		reload: make(chan struct{}),
	}
}

// WithClock replaces the time source used to name snapshots.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Reloads is closed after a successful restore. The process must then exit
// so that it comes back up against the restored file.
func (s *Service) Reloads() <-chan struct{} {
	return s.reload
}

func (s *Service) signalReload() {
	s.reloadOnce.Do(func() { close(s.reload) })
}

// Create takes a snapshot and prunes the directory down to the retention
// count. A failed snapshot leaves no file behind.
func (s *Service) Create(ctx context.Context) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return Record{}, fmt.Errorf("creating backup directory: %w", err)
	}

	createdAt := s.now().UTC().Truncate(time.Millisecond)

	// Two snapshots within one millisecond would share a name; the later one
	// moves to the next free millisecond instead of replacing the earlier.
	name, final := "", ""
	for {
		name = Filename(createdAt)
		final = filepath.Join(s.cfg.Dir, name)

		_, err := os.Lstat(final)
		if errors.Is(err, os.ErrNotExist) {
			break
		}
		if err != nil {
			return Record{}, fmt.Errorf("checking snapshot name: %w", err)
		}

		createdAt = createdAt.Add(time.Millisecond)
	}

	tmp := filepath.Join(s.cfg.Dir, "."+name+".partial")

	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Record{}, fmt.Errorf("clearing stale snapshot: %w", err)
	}

	if err := s.repo.Snapshot(ctx, tmp); err != nil {
		os.Remove(tmp)
		return Record{}, fmt.Errorf("taking snapshot: %w", err)
	}

	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return Record{}, fmt.Errorf("publishing snapshot: %w", err)
	}

	info, err := os.Stat(final)
	if err != nil {
		return Record{}, fmt.Errorf("reading snapshot: %w", err)
	}

	slog.Info("backup created", "file", name, "size", info.Size())

	s.prune()

	return Record{Filename: name, SizeBytes: info.Size(), CreatedAt: createdAt}, nil
}

// prune removes every snapshot beyond the newest Retention. Failures are
// logged; the snapshot just taken is already safe.
func (s *Service) prune() {
	names, err := s.names()
	if err != nil {
		slog.Error("failed to list backups for pruning", "error", err)
		return
	}

	if len(names) <= s.cfg.Retention {
		return
	}

	for _, name := range names[s.cfg.Retention:] {
		if err := os.Remove(filepath.Join(s.cfg.Dir, name)); err != nil {
			slog.Error("failed to delete old backup", "file", name, "error", err)
			continue
		}

		slog.Info("deleted old backup", "file", name)
	}
}

// names returns the snapshot filenames in the directory, newest first.
func (s *Service) names() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var names []string

	for _, e := range entries {
		if e.Type().IsRegular() && ValidName(e.Name()) {
			names = append(names, e.Name())
		}
	}

	slices.SortFunc(names, func(a, b string) int { return strings.Compare(b, a) })

	return names, nil
}

// List returns every snapshot, newest first.
func (s *Service) List(_ context.Context) ([]Record, error) {
	names, err := s.names()
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(names))

	for _, name := range names {
		info, err := os.Stat(filepath.Join(s.cfg.Dir, name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}

			return nil, fmt.Errorf("reading backup %s: %w", name, err)
		}

		createdAt, err := ParseFilename(name)
		if err != nil {
			createdAt = info.ModTime().UTC()
		}

		records = append(records, Record{Filename: name, SizeBytes: info.Size(), CreatedAt: createdAt})
	}

	return records, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	names, err := s.names()
	if err != nil {
		return 0, err
	}

	return len(names), nil
}

var sqliteHeader = []byte("SQLite format 3\x00")

// Restore replaces the live store with the named snapshot. The name and the
// snapshot are checked and a copy is staged next to the live file before the
// store is touched, so any failure up to that point leaves it unchanged. On
// success Reloads is closed and this process must not serve the store again.
func (s *Service) Restore(ctx context.Context, filename string) error {
	if !ValidName(filename) {
		return ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	src := filepath.Join(s.cfg.Dir, filename)
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}

		return fmt.Errorf("reading backup: %w", err)
	}

	live := s.repo.Path()
	staged := live + ".restore"

	if err := stageCopy(ctx, src, staged); err != nil {
		os.Remove(staged)
		return err
	}

	if err := s.repo.Quiesce(); err != nil {
		os.Remove(staged)
		return fmt.Errorf("quiescing store: %w", err)
	}

	// Past this point the store is closed for good, so every path ends with
	// a reload.
	defer s.signalReload()

	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(live + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			os.Remove(staged)
			return fmt.Errorf("removing %s: %w", suffix, err)
		}
	}

	if err := os.Rename(staged, live); err != nil {
		os.Remove(staged)
		return fmt.Errorf("replacing live store: %w", err)
	}

	syncDir(filepath.Dir(live))

	slog.Info("database restored", "file", filename)

	return nil
}

func stageCopy(ctx context.Context, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening backup: %w", err)
	}
	defer in.Close()

	header := make([]byte, len(sqliteHeader))
	if _, err := io.ReadFull(in, header); err != nil || !bytes.Equal(header, sqliteHeader) {
		return fmt.Errorf("backup is not a database file: %w", ErrInvalidName)
	}

	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding backup: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("staging restore: %w", err)
	}

	if _, err := io.Copy(out, &ctxReader{ctx: ctx, r: in}); err != nil {
		out.Close()
		return fmt.Errorf("copying backup: %w", err)
	}

	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("syncing staged restore: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("closing staged restore: %w", err)
	}

	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()

	if err := d.Sync(); err != nil {
		slog.Warn("failed to sync directory", "dir", dir, "error", err)
	}
}
