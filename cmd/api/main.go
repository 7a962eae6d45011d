package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/elpasofurniture/invoicer/internal/backup"
	backupStore "github.com/elpasofurniture/invoicer/internal/backup/store"
	"github.com/elpasofurniture/invoicer/internal/config"
	"github.com/elpasofurniture/invoicer/internal/database"
	"github.com/elpasofurniture/invoicer/internal/export"
	invoicerHttp "github.com/elpasofurniture/invoicer/internal/http"
	backupHandler "github.com/elpasofurniture/invoicer/internal/http/backup"
	exportHandler "github.com/elpasofurniture/invoicer/internal/http/export"
	healthHandler "github.com/elpasofurniture/invoicer/internal/http/health"
	invoiceHandler "github.com/elpasofurniture/invoicer/internal/http/invoice"
	"github.com/elpasofurniture/invoicer/internal/invoice"
	invoiceStore "github.com/elpasofurniture/invoicer/internal/invoice/store"
	"github.com/elpasofurniture/invoicer/internal/pdf"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DB.Path)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DB.Path, "error", err)
		os.Exit(1)
	}

	var (
		invoiceService = invoice.NewService(invoiceStore.New(db))
		renderer       = pdf.NewRenderer(pdf.Shop{
			Name:     cfg.Shop.Name,
			Address:  cfg.Shop.Address,
			Phone:    cfg.Shop.Phone,
			LogoPath: cfg.Shop.Logo,
		})
		backupService = backup.NewService(backupStore.New(db), backup.Config{
			Dir:          cfg.Backup.Dir,
			Retention:    cfg.Backup.Retention,
			Interval:     cfg.Backup.Interval,
			InitialDelay: cfg.Backup.InitialDelay,
		})
		exportService = export.NewService(invoiceService, renderer)
	)

	router := invoicerHttp.New(
		invoicerHttp.Options{Timeout: cfg.Server.Timeout, CORSOrigins: cfg.Server.CORSOrigins},
		invoiceHandler.NewHandler(invoiceService, renderer),
		backupHandler.NewHandler(backupService),
		exportHandler.NewHandler(exportService),
		healthHandler.NewHandler(db, backupService),
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", server.Addr, "db", db.Path(), "backups", cfg.Backup.Dir)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return backupService.Run(gctx)
	})

	// A completed restore leaves the database sealed. The process exits so its
	// supervisor starts a fresh one on the restored file.
	g.Go(func() error {
		select {
		case <-gctx.Done():
			slog.Info("shutting down")
		case <-backupService.Reloads():
			slog.Info("database restored, restarting")
			stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	})

	err = g.Wait()

	if cerr := db.Close(); cerr != nil && !errors.Is(cerr, database.ErrClosed) {
		slog.Error("failed to close database", "error", cerr)
	}

	if err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
