package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/elpasofurniture/invoicer/internal/http/httpx"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type BackupCounter interface {
	Count(ctx context.Context) (int, error)
}

type Handler struct {
	db      Pinger
	backups BackupCounter
	now     func() time.Time
}

func NewHandler(db Pinger, backups BackupCounter) *Handler {
	return &Handler{db: db, backups: backups, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.health)
}

type healthResponse struct {
	Status      string    `json:"status"`
	Database    string    `json:"database"`
	Timestamp   time.Time `json:"timestamp"`
	BackupCount int       `json:"backupCount"`
}

// health reports 503 while the database is unreachable, e.g. during a
// restore.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Database:  "connected",
		Timestamp: h.now().UTC(),
	}
	status := http.StatusOK

	if err := h.db.PingContext(r.Context()); err != nil {
		slog.Warn("health check failed", "error", err)

		resp.Status = "degraded"
		resp.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}

	n, err := h.backups.Count(r.Context())
	if err != nil {
		slog.Error("failed to count backups", "error", err)
	}

	resp.BackupCount = n

	httpx.JSON(w, status, resp)
}
