// Package client talks to a running invoicer API. The operator console uses
// it so the API process stays the only owner of the database file.
package client

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/elpasofurniture/invoicer/internal/backup"
	"github.com/elpasofurniture/invoicer/internal/invoice"
)

const defaultTimeout = 2 * time.Minute

// APIError is returned for any non-2xx answer.
type APIError struct {
	Status  int
	Message string

	body []byte
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.Status)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Status, e.Message)
}

type Health struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Timestamp   string `json:"timestamp"`
	BackupCount int    `json:"backupCount"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// WithHTTPClient swaps the transport, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

func (c *Client) ListInvoices(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	q := url.Values{}
	if filter.StartDate != "" {
		q.Set("start_date", filter.StartDate)
	}
	if filter.EndDate != "" {
		q.Set("end_date", filter.EndDate)
	}

	path := "/api/invoices"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []*invoice.Invoice
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}

	return out, nil
}

func (c *Client) DeleteInvoice(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/invoices/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("deleting invoice %s: %w", id, err)
	}
	return nil
}

// DownloadPDF saves the rendered invoice into dir and returns the written path.
func (c *Client) DownloadPDF(ctx context.Context, inv *invoice.Invoice, dir string) (string, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/invoices/"+url.PathEscape(inv.ID)+"/pdf", nil)
	if err != nil {
		return "", fmt.Errorf("downloading invoice %s: %w", inv.ID, err)
	}
	defer resp.Body.Close()

	return save(resp, dir, "Invoice_"+safeName(inv.InvoiceNumber))
}

type ExportResult struct {
	Path    string
	Summary string
}

// Export downloads the zip archive of every invoice matching filter into dir.
// The summary is read back from the archive.
func (c *Client) Export(ctx context.Context, filter invoice.ListFilter, dir string) (ExportResult, error) {
	data, err := json.Marshal(map[string]string{"start_date": filter.StartDate, "end_date": filter.EndDate})
	if err != nil {
		return ExportResult{}, fmt.Errorf("encoding request: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, "/api/export/download", bytes.NewReader(data))
	if err != nil {
		return ExportResult{}, fmt.Errorf("exporting invoices: %w", err)
	}
	defer resp.Body.Close()

	path, err := save(resp, dir, "invoices_"+time.Now().Format("20060102"))
	if err != nil {
		return ExportResult{}, err
	}

	summary, err := readSummary(path)
	if err != nil {
		return ExportResult{Path: path}, err
	}

	return ExportResult{Path: path, Summary: summary}, nil
}

func readSummary(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer zr.Close()

	f, err := zr.Open("summary.txt")
	if err != nil {
		return "", fmt.Errorf("reading summary: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("reading summary: %w", err)
	}

	return string(data), nil
}

func save(resp *http.Response, dir, fallback string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(dir, determineFilename(resp, fallback))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}

	return path, nil
}

func determineFilename(resp *http.Response, fallback string) string {
	// 1. Content-Disposition from the server.
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if filename, ok := params["filename"]; ok && filename != "" {
				return strings.ReplaceAll(filepath.Base(filename), " ", "_")
			}
		}
	}

	// 2. Fallback name with an extension matching the body.
	ext := ".pdf"
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if exts, _ := mime.ExtensionsByType(ct); len(exts) > 0 {
			ext = exts[0]
		}
	}

	return fallback + ext
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, s)
}

func (c *Client) ListBackups(ctx context.Context) ([]backup.Record, error) {
	var out []backup.Record
	if err := c.do(ctx, http.MethodGet, "/api/backups", nil, &out); err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	return out, nil
}

func (c *Client) CreateBackup(ctx context.Context) (backup.Record, error) {
	var out struct {
		Record backup.Record `json:"record"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/backup", nil, &out); err != nil {
		return backup.Record{}, fmt.Errorf("creating backup: %w", err)
	}
	return out.Record, nil
}

// Restore asks the service to replace its database with the named backup. On
// success the service shuts itself down, so the caller should expect the API
// to be briefly unreachable.
func (c *Client) Restore(ctx context.Context, filename string) (string, error) {
	body := map[string]any{"filename": filename, "confirm": true}

	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/restore", body, &out); err != nil {
		return "", fmt.Errorf("restoring %s: %w", filename, err)
	}
	return out.Message, nil
}

// Health reports the service status. A degraded service answers 503 with a
// body, which is returned alongside the error.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &out)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusServiceUnavailable && out.Status != "" {
		return out, err
	}
	if err != nil {
		return Health{}, fmt.Errorf("checking health: %w", err)
	}

	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && out != nil && apiErr.body != nil {
			_ = json.Unmarshal(apiErr.body, out)
		}
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(data, &payload)

	return nil, &APIError{Status: resp.StatusCode, Message: payload.Error, body: data}
}
