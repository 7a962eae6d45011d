package invoice

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/elpasofurniture/invoicer/internal/encoding"
	"github.com/elpasofurniture/invoicer/internal/http/httpx"
	"github.com/elpasofurniture/invoicer/internal/invoice"
	"github.com/elpasofurniture/invoicer/internal/pdf"
)

type Handler struct {
	svc      *invoice.Service
	renderer *pdf.Renderer
}

func NewHandler(svc *invoice.Service, renderer *pdf.Renderer) *Handler {
	return &Handler{svc: svc, renderer: renderer}
}

// Routes registers the JSON endpoints. The PDF download is registered by
// PDFRoutes because it does not take a JSON body.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/totals", h.totals)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) PDFRoutes(r chi.Router) {
	r.Get("/{id}/pdf", h.download)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := invoice.ListFilter{
		StartDate: r.URL.Query().Get("start_date"),
		EndDate:   r.URL.Query().Get("end_date"),
	}

	invoices, err := h.svc.List(r.Context(), filter)
	if err != nil {
		httpx.Fail(w, err, "Failed to fetch invoices")
		return
	}

	httpx.JSON(w, http.StatusOK, invoices)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, err, "Failed to fetch invoice")
		return
	}

	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req invoice.Invoice
	if err := encoding.DecodeJSON(r.Body, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}

	inv, err := h.svc.Create(r.Context(), &req)
	if err != nil {
		httpx.Fail(w, err, "Failed to create invoice")
		return
	}

	httpx.JSON(w, http.StatusCreated, ackResponse{Success: true, ID: inv.ID})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req invoice.Invoice
	if err := encoding.DecodeJSON(r.Body, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}

	inv, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		httpx.Fail(w, err, "Failed to update invoice")
		return
	}

	httpx.JSON(w, http.StatusOK, ackResponse{Success: true, ID: inv.ID})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.Fail(w, err, "Failed to delete invoice")
		return
	}

	httpx.JSON(w, http.StatusOK, ackResponse{Success: true})
}

type totalsRequest struct {
	Items       []invoice.LineItem  `json:"items"`
	TaxLocation invoice.TaxLocation `json:"taxLocation"`
}

func (h *Handler) totals(w http.ResponseWriter, r *http.Request) {
	var req totalsRequest
	if err := encoding.DecodeJSON(r.Body, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}

	if req.TaxLocation == "" {
		req.TaxLocation = invoice.TaxLocationTexas
	}

	t := h.svc.Totals(req.Items, req.TaxLocation)

	httpx.JSON(w, http.StatusOK, toTotalsResponse(req.Items, req.TaxLocation, t))
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, err, "Failed to fetch invoice")
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, inv); err != nil {
		httpx.Fail(w, err, "Failed to generate PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdf.Filename(inv)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))

	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to write pdf", "id", inv.ID, "error", err)
	}
}
