package backup

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/elpasofurniture/invoicer/internal/backup"
	"github.com/elpasofurniture/invoicer/internal/encoding"
	"github.com/elpasofurniture/invoicer/internal/http/httpx"
)

type Handler struct {
	svc *backup.Service
}

func NewHandler(svc *backup.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/backups", h.list)
	r.Post("/backup", h.create)
	r.Post("/restore", h.restore)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.List(r.Context())
	if err != nil {
		httpx.Fail(w, err, "Failed to list backups")
		return
	}

	httpx.JSON(w, http.StatusOK, records)
}

type createResponse struct {
	Success bool          `json:"success"`
	Backup  string        `json:"backup"`
	Record  backup.Record `json:"record"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Create(r.Context())
	if err != nil {
		httpx.Fail(w, err, "Failed to create backup")
		return
	}

	httpx.JSON(w, http.StatusOK, createResponse{Success: true, Backup: rec.Filename, Record: rec})
}

type restoreRequest struct {
	Filename string `json:"filename"`
	Confirm  bool   `json:"confirm"`
}

type restoreResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// restore answers 202 once the live file has been replaced. The server then
// shuts down and relies on its supervisor to start it again.
func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := encoding.DecodeJSON(r.Body, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}

	if !req.Confirm {
		httpx.Error(w, http.StatusBadRequest, "Restore must be confirmed")
		return
	}

	if err := h.svc.Restore(r.Context(), req.Filename); err != nil {
		httpx.Fail(w, err, "Failed to restore backup")
		return
	}

	httpx.JSON(w, http.StatusAccepted, restoreResponse{
		Success: true,
		Message: "Database restored from " + req.Filename + ". Server restarting.",
	})
}
