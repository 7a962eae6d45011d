package export

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/elpasofurniture/invoicer/internal/encoding"
	"github.com/elpasofurniture/invoicer/internal/export"
	"github.com/elpasofurniture/invoicer/internal/http/httpx"
	"github.com/elpasofurniture/invoicer/internal/invoice"
)

type Handler struct {
	svc *export.Service
}

func NewHandler(svc *export.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.metadata)
	r.Post("/download", h.download)
}

type exportRequest struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

type exportedInvoice struct {
	ID            string  `json:"id"`
	InvoiceNumber string  `json:"invoiceNumber"`
	Date          string  `json:"date"`
	Customer      string  `json:"customer"`
	Total         float64 `json:"total"`
	File          string  `json:"file"`
}

type exportMetadataResponse struct {
	Invoices []exportedInvoice `json:"invoices"`
	Summary  string            `json:"summary"`
}

func toExportedInvoice(item export.Item) exportedInvoice {
	return exportedInvoice{
		ID:            item.Invoice.ID,
		InvoiceNumber: item.Invoice.InvoiceNumber,
		Date:          item.Invoice.Date,
		Customer:      item.Invoice.Customer.Name,
		Total:         item.Invoice.Total,
		File:          filepath.Base(item.FilePath),
	}
}

// run renders the requested invoices into a temporary directory. The caller
// owns cleanup.
func (h *Handler) run(w http.ResponseWriter, r *http.Request) (string, []export.Item, bool) {
	var req exportRequest
	if err := encoding.DecodeJSON(r.Body, &req); err != nil {
		httpx.BadRequest(w, err)
		return "", nil, false
	}

	tmpDir, err := os.MkdirTemp("", "invoicer-export-*")
	if err != nil {
		httpx.Fail(w, err, "Failed to prepare export")
		return "", nil, false
	}

	filter := invoice.ListFilter{StartDate: req.StartDate, EndDate: req.EndDate}

	items, err := h.svc.Export(r.Context(), filter, tmpDir)
	if err != nil {
		os.RemoveAll(tmpDir)
		httpx.Fail(w, err, "Failed to export invoices")

		return "", nil, false
	}

	return tmpDir, items, true
}

func (h *Handler) metadata(w http.ResponseWriter, r *http.Request) {
	tmpDir, items, ok := h.run(w, r)
	if !ok {
		return
	}
	defer os.RemoveAll(tmpDir)

	resp := exportMetadataResponse{
		Invoices: make([]exportedInvoice, 0, len(items)),
		Summary:  h.svc.GenerateSummary(items),
	}

	for _, item := range items {
		resp.Invoices = append(resp.Invoices, toExportedInvoice(item))
	}

	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	tmpDir, items, ok := h.run(w, r)
	if !ok {
		return
	}
	defer os.RemoveAll(tmpDir)

	if err := os.WriteFile(filepath.Join(tmpDir, "summary.txt"), []byte(h.svc.GenerateSummary(items)), 0o644); err != nil {
		httpx.Fail(w, err, "Failed to write summary")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"invoices_%s.zip\"", time.Now().Format("20060102")))

	zw := zip.NewWriter(w)

	if err := addDir(zw, tmpDir); err != nil {
		slog.Error("failed to create zip", "error", err)
	}

	if err := zw.Close(); err != nil {
		slog.Error("failed to finish zip", "error", err)
	}
}

func addDir(zw *zip.Writer, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		zf, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(zf, f)

		return err
	})
}
