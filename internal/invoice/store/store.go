package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/elpasofurniture/invoicer/internal/database"
	"github.com/elpasofurniture/invoicer/internal/invoice"
)

// timeLayout is fixed width so text order in SQLite matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Store struct {
	db *database.DB
}

func New(db *database.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanInvoice decodes the payload and lets the columns win for id and
// timestamps.
// Expected column order: id, data, created_at, updated_at
func scanInvoice(s scanner) (*invoice.Invoice, error) {
	var id, data, createdAt, updatedAt string

	if err := s.Scan(&id, &data, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var inv invoice.Invoice
	if err := json.Unmarshal([]byte(data), &inv); err != nil {
		return nil, fmt.Errorf("decoding invoice %s: %w", id, err)
	}

	inv.ID = id
	inv.CreatedAt = parseTime(createdAt)
	inv.UpdatedAt = parseTime(updatedAt)

	return &inv, nil
}

// parseTime accepts our own layout and the RFC 3339 strings written by older
// deployments.
func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}

	return time.Time{}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

const selectInvoiceColumns = `id, data, created_at, updated_at`

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	conn, release, err := s.db.Acquire()
	if err != nil {
		return err
	}
	defer release()

	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encoding invoice: %w", err)
	}

	query := `INSERT INTO invoices (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)`

	_, err = conn.ExecContext(ctx, query, inv.ID, string(data), formatTime(inv.CreatedAt), formatTime(inv.UpdatedAt))
	if err != nil {
		if isConstraintViolation(err) {
			return invoice.ErrDuplicateID
		}

		return fmt.Errorf("creating invoice: %w", err)
	}

	return nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (s *Store) GetInvoice(ctx context.Context, id string) (*invoice.Invoice, error) {
	conn, release, err := s.db.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	query := `SELECT ` + selectInvoiceColumns + ` FROM invoices WHERE id = ?`

	inv, err := scanInvoice(conn.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invoice.ErrNotFound
		}

		return nil, fmt.Errorf("getting invoice: %w", err)
	}

	return inv, nil
}

// ListInvoices orders by creation time, newest first. The date bounds compare
// against the invoice date inside the payload.
func (s *Store) ListInvoices(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	conn, release, err := s.db.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	query := `SELECT ` + selectInvoiceColumns + ` FROM invoices WHERE 1 = 1`

	var args []any

	if filter.StartDate != "" {
		query += ` AND json_extract(data, '$.date') >= ?`

		args = append(args, filter.StartDate)
	}

	if filter.EndDate != "" {
		query += ` AND json_extract(data, '$.date') <= ?`

		args = append(args, filter.EndDate)
	}

	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()

	invoices := []*invoice.Invoice{}

	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}

		invoices = append(invoices, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoices: %w", err)
	}

	return invoices, nil
}

// UpdateInvoice rewrites the payload and updated_at. created_at is never
// touched.
func (s *Store) UpdateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	conn, release, err := s.db.Acquire()
	if err != nil {
		return err
	}
	defer release()

	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encoding invoice: %w", err)
	}

	query := `UPDATE invoices SET data = ?, updated_at = ? WHERE id = ?`

	res, err := conn.ExecContext(ctx, query, string(data), formatTime(inv.UpdatedAt), inv.ID)
	if err != nil {
		return fmt.Errorf("updating invoice: %w", err)
	}

	return expectOneRow(res)
}

func (s *Store) DeleteInvoice(ctx context.Context, id string) error {
	conn, release, err := s.db.Acquire()
	if err != nil {
		return err
	}
	defer release()

	res, err := conn.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting invoice: %w", err)
	}

	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}

	if n == 0 {
		return invoice.ErrNotFound
	}

	return nil
}

// Count is used by the health report.
func (s *Store) Count(ctx context.Context) (int, error) {
	conn, release, err := s.db.Acquire()
	if err != nil {
		return 0, err
	}
	defer release()

	var n int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting invoices: %w", err)
	}

	return n, nil
}
