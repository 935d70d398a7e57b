package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/vocabdeck/internal"
	"codeberg.org/snonux/vocabdeck/internal/models"
	"codeberg.org/snonux/vocabdeck/internal/processor"
	"codeberg.org/snonux/vocabdeck/internal/server"
	"codeberg.org/snonux/vocabdeck/internal/session"
)

// shutdownTimeout bounds how long in-flight requests may take to finish
const shutdownTimeout = 30 * time.Second

func runListModels(cmd *cobra.Command) error {
	lister := models.NewLister(GetOpenAIKey())
	return lister.ListAvailableModels(cmd.Context(), cmd.OutOrStdout())
}

func setup() (*Config, *slog.Logger) {
	cfg := LoadConfig()
	logger := NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger
}

func runGenerate(cmd *cobra.Command, flags *Flags) error {
	if flags.BatchFile == "" && flags.SessionID == "" && (flags.PDFFile == "" || flags.AudioFile == "") {
		return fmt.Errorf("generate needs --pdf and --audio, --session or --batch")
	}

	ctx := cmd.Context()
	cfg, logger := setup()
	out := cmd.OutOrStdout()

	deps, err := NewDependencies(ctx, cfg, logger, out)
	if err != nil {
		return err
	}
	defer deps.Close(context.Background())

	if flags.BatchFile != "" {
		results, err := deps.Processor.ProcessBatch(ctx, flags.BatchFile, cfg.Concurrency)
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.Err == nil {
				if err := copyOutputs(flags.OutputDir, cfg, r.Report); err != nil {
					return err
				}
			}
		}
		return nil
	}

	id := flags.SessionID
	if flags.PDFFile != "" || flags.AudioFile != "" {
		if id == "" {
			id = internal.GenerateSessionID(flags.PDFFile)
		}
		s, err := deps.Processor.Import(ctx, id, flags.PDFFile, flags.AudioFile)
		if err != nil {
			return err
		}
		id = s.ID
	}

	report, err := deps.Processor.Run(ctx, id)
	if err != nil {
		return err
	}
	if err := copyOutputs(flags.OutputDir, cfg, report); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nDone! %d cards saved to: %s\n", report.Cards, report.ZipPath)
	if report.URL != "" {
		fmt.Fprintf(out, "Uploaded to: %s\n", report.URL)
	}
	return nil
}

// copyOutputs copies the archive, and the APKG named after the deck, into
// dir. An empty dir leaves the outputs in the session.
func copyOutputs(dir string, cfg *Config, report *processor.Report) error {
	if dir == "" || report == nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := copyFile(report.ZipPath, filepath.Join(dir, filepath.Base(report.ZipPath))); err != nil {
		return err
	}
	if report.APKGPath != "" {
		name := internal.SanitizeFilename(cfg.DeckName) + ".apkg"
		if err := copyFile(report.APKGPath, filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}

func runServe(cmd *cobra.Command, flags *Flags) error {
	ctx := cmd.Context()
	cfg, logger := setup()

	logger.Info("starting vocabdeck API",
		slog.String("version", internal.Version),
		slog.Int("port", cfg.Port),
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
		slog.String("formatter", cfg.Formatter),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	deps, err := NewDependencies(ctx, cfg, logger, io.Discard)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.Close(context.Background())

	handlers := server.NewHandlers(deps.Processor, deps.Store, logger)
	router := server.NewRouter(handlers, logger, server.Config{
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        deps.Metrics,
		MetricsHandler: deps.Provider.Handler(),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 300 * time.Second, // Generation runs inside the request
		IdleTimeout:  60 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepLoop(sweepCtx, deps.Store, cfg.MaxAge, cfg.SweepInterval, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

// sweepLoop removes stale sessions every interval until ctx ends. A
// non-positive interval disables sweeping.
func sweepLoop(ctx context.Context, store *session.Store, maxAge, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 || maxAge <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepOnce(ctx, store, maxAge, logger)
		}
	}
}

func sweepOnce(ctx context.Context, store *session.Store, maxAge time.Duration, logger *slog.Logger) []string {
	removed, err := store.Sweep(ctx, maxAge)
	if err != nil {
		logger.Warn("session sweep failed", slog.String("error", err.Error()))
	}
	if len(removed) > 0 {
		logger.Info("removed stale sessions",
			slog.Int("count", len(removed)),
			slog.Duration("max_age", maxAge),
		)
	}
	return removed
}

func runSweep(cmd *cobra.Command, flags *Flags) error {
	cfg, logger := setup()

	store, err := session.NewStore(cfg.SessionsDir)
	if err != nil {
		return fmt.Errorf("create session store: %w", err)
	}

	removed := sweepOnce(cmd.Context(), store, cfg.MaxAge, logger)
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d sessions from %s\n", len(removed), store.Root())
	return nil
}
