package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elpasofurniture/invoicer/internal/backup"
	backupstore "github.com/elpasofurniture/invoicer/internal/backup/store"
	"github.com/elpasofurniture/invoicer/internal/client"
	"github.com/elpasofurniture/invoicer/internal/database"
	"github.com/elpasofurniture/invoicer/internal/export"
	apihttp "github.com/elpasofurniture/invoicer/internal/http"
	backuphttp "github.com/elpasofurniture/invoicer/internal/http/backup"
	exporthttp "github.com/elpasofurniture/invoicer/internal/http/export"
	"github.com/elpasofurniture/invoicer/internal/http/health"
	invoicehttp "github.com/elpasofurniture/invoicer/internal/http/invoice"
	"github.com/elpasofurniture/invoicer/internal/invoice"
	invoicestore "github.com/elpasofurniture/invoicer/internal/invoice/store"
	"github.com/elpasofurniture/invoicer/internal/pdf"
)

type fixture struct {
	client   *client.Client
	invoices *invoice.Service
	backups  *backup.Service
}

func setup(t *testing.T) fixture {
	t.Helper()

	root := t.TempDir()

	db, err := database.New(filepath.Join(root, "invoices.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	invoices := invoice.NewService(invoicestore.New(db))
	renderer := pdf.NewRenderer(pdf.Shop{Name: "El Paso Furniture & Style"})
	backups := backup.NewService(backupstore.New(db), backup.Config{Dir: filepath.Join(root, "backups")})

	srv := httptest.NewServer(apihttp.New(
		apihttp.Options{Timeout: 10 * time.Second, CORSOrigins: []string{"*"}},
		invoicehttp.NewHandler(invoices, renderer),
		backuphttp.NewHandler(backups),
		exporthttp.NewHandler(export.NewService(invoices, renderer)),
		health.NewHandler(db, backups),
	))
	t.Cleanup(srv.Close)

	return fixture{
		client:   client.New(srv.URL + "/").WithHTTPClient(srv.Client()),
		invoices: invoices,
		backups:  backups,
	}
}

func seed(t *testing.T, svc *invoice.Service, id, date string) {
	t.Helper()

	_, err := svc.Create(context.Background(), &invoice.Invoice{
		ID:            id,
		InvoiceNumber: "INV-" + id,
		Date:          date,
		Customer:      invoice.Customer{Name: "Ana Ruiz"},
		Items:         []invoice.LineItem{{Description: "Sofa", Quantity: 1, Price: 100}},
	})
	require.NoError(t, err)
}

func TestClient_Invoices(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	seed(t, f.invoices, "a1", "2024-03-01")
	seed(t, f.invoices, "a2", "2024-04-15")

	all, err := f.client.ListInvoices(ctx, invoice.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	april, err := f.client.ListInvoices(ctx, invoice.ListFilter{StartDate: "2024-04-01", EndDate: "2024-04-30"})
	require.NoError(t, err)
	require.Len(t, april, 1)
	assert.Equal(t, "a2", april[0].ID)

	dir := filepath.Join(t.TempDir(), "pdfs")
	path, err := f.client.DownloadPDF(ctx, april[0], dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Invoice_INV-a2_Ana_Ruiz.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(data[:5]))

	require.NoError(t, f.client.DeleteInvoice(ctx, "a2"))

	err = f.client.DeleteInvoice(ctx, "a2")

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Invoice not found", apiErr.Message)
}

func TestClient_Backups(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	h, err := f.client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 0, h.BackupCount)

	rec, err := f.client.CreateBackup(ctx)
	require.NoError(t, err)
	assert.True(t, backup.ValidName(rec.Filename))

	records, err := f.client.ListBackups(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.Filename, records[0].Filename)

	_, err = f.client.Restore(ctx, "../invoices.db")

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	msg, err := f.client.Restore(ctx, rec.Filename)
	require.NoError(t, err)
	assert.Contains(t, msg, rec.Filename)

	select {
	case <-f.backups.Reloads():
	default:
		t.Fatal("expected reload after restore")
	}

	h, err = f.client.Health(ctx)
	require.Error(t, err)
	assert.Equal(t, "degraded", h.Status)
	assert.Equal(t, "unavailable", h.Database)
}

func TestClient_Export(t *testing.T) {
	f := setup(t)

	seed(t, f.invoices, "a1", "2024-03-01")
	seed(t, f.invoices, "a2", "2024-04-15")

	dir := t.TempDir()
	res, err := f.client.Export(context.Background(), invoice.ListFilter{StartDate: "2024-04-01"}, dir)
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(res.Path))
	assert.Equal(t, ".zip", filepath.Ext(res.Path))
	assert.Contains(t, res.Summary, "INV-a2")
	assert.NotContains(t, res.Summary, "INV-a1")
	assert.Contains(t, res.Summary, "1 invoices")
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := client.New(srv.URL).ListBackups(context.Background())
	assert.Error(t, err)
}
