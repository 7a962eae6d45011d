package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/elpasofurniture/invoicer/internal/database"
)

// Store takes snapshots of the live SQLite database and closes it for
// restore.
type Store struct {
	db *database.DB
}

func New(db *database.DB) *Store {
	return &Store{db: db}
}

// Snapshot uses VACUUM INTO, which reads inside a single transaction and
// therefore never sees a half-applied write.
func (s *Store) Snapshot(ctx context.Context, dst string) error {
	conn, release, err := s.db.Acquire()
	if err != nil {
		return err
	}
	defer release()

	if _, err := conn.ExecContext(ctx, `VACUUM INTO ?`, dst); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dst, err)
	}

	return nil
}

// Quiesce seals the database. A store that is already sealed is reported as
// database.ErrClosed; an error while closing the pool is only logged since
// the gate is shut either way.
func (s *Store) Quiesce() error {
	err := s.db.Seal()
	if err == nil {
		return nil
	}

	if errors.Is(err, database.ErrClosed) {
		return err
	}

	slog.Error("failed to close database cleanly", "error", err)

	return nil
}

func (s *Store) Path() string {
	return s.db.Path()
}
