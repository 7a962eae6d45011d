package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/elpasofurniture/invoicer/internal/http/backup"
	"github.com/elpasofurniture/invoicer/internal/http/export"
	"github.com/elpasofurniture/invoicer/internal/http/health"
	"github.com/elpasofurniture/invoicer/internal/http/invoice"
)

// MaxBodyBytes caps every request body.
const MaxBodyBytes = 10 << 20

type Options struct {
	Timeout     time.Duration
	CORSOrigins []string
}

func New(
	opts Options,
	invoices *invoice.Handler,
	backups *backup.Handler,
	exports *export.Handler,
	healthV1 *health.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestSize(MaxBodyBytes))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	if opts.Timeout > 0 {
		router.Use(middleware.Timeout(opts.Timeout))
	}

	router.Route("/api", func(r chi.Router) {
		r.Route("/invoices", func(r chi.Router) {
			invoices.PDFRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				invoices.Routes(r)
			})
		})

		r.Route("/export", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			exports.Routes(r)
		})

		backups.Routes(r)
		healthV1.Routes(r)
	})

	return router
}
