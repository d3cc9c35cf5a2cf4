package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vanshika/docstore/internal/config"
	"github.com/vanshika/docstore/internal/files"
	"github.com/vanshika/docstore/internal/logging"
	"github.com/vanshika/docstore/internal/server"
	"github.com/vanshika/docstore/internal/service"
	"github.com/vanshika/docstore/internal/storage"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the DocStore HTTP API.

Configuration is read from the environment (and optionally the YAML
file named by DOCSTORE_CONFIG). The server opens the SQLite database,
prepares the default document root, and runs until SIGINT or SIGTERM.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(cfg.Logging)

	// The default database path lives inside the default root, so the
	// registry must establish the root directory first.
	registry := files.NewRegistry(cfg.Files.DefaultRoot, logger)
	fileStore := files.NewStore(registry, cfg.Files.MaxUploadBytes, logger)

	store, err := storage.Open(cfg.Storage.Path, storage.Options{
		Logger:       logger,
		StrictDecode: cfg.Storage.StrictDecode,
	})
	if err != nil {
		logger.Error("failed to open record store", "path", cfg.Storage.Path, "error", err)
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing record store failed", "error", err)
		}
	}()

	records := service.NewRecordService(store)
	documents := service.NewFileService(registry, fileStore)
	apiHandlers := server.NewAPIHandlers(logger, records, documents)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           server.StoreHealthService{Store: store},
		API:              apiHandlers,
		AllowedOrigins:   parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	case <-cmd.Context().Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return err
	}
	return nil
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var origins []string
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
