// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/attach"
	"github.com/starford/raido/internal/catalog"
	"github.com/starford/raido/internal/classify"
	"github.com/starford/raido/internal/convert"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/pipeline"
	"github.com/starford/raido/internal/report"
	"github.com/starford/raido/internal/resolver"
	"github.com/starford/raido/internal/scan"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/watch"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg *Config, w *os.File) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// openVault ensures the vault directory exists and returns a storage
// provider rooted at it.
func openVault(cfg *Config) (storage.Provider, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return store, nil
}

// buildPipeline assembles the migration pipeline from configuration. The
// resolver is shared so callers can read broken references after a run.
func buildPipeline(cfg *Config, logger *slog.Logger, vault storage.Provider, res *resolver.Resolver, obs pipeline.Observer) *pipeline.Pipeline {
	scanner := scan.New(cfg.Source.Path, logger)
	converter := convert.New(res, convert.LinkStyle(cfg.Migration.LinkStyle))
	classifier := classify.New(cfg.Migration.FolderRules(), cfg.Migration.ArchiveAfter())

	popts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithClassifier(classifier),
	}
	if cfg.Migration.CopyAttachments {
		popts = append(popts, pipeline.WithCopier(attach.New(cfg.Source.Path, vault, logger)))
	}
	if obs != nil {
		popts = append(popts, pipeline.WithObserver(obs))
	}

	return pipeline.New(scanner, converter, vault, res, popts...)
}

// recordRun persists the outcome of one run to the catalog: the run row, the
// migrated documents, the reference graph edges, broken references and
// per-file failures.
func recordRun(db *catalog.DB, p *pipeline.Pipeline, res *pipeline.Result) error {
	run := catalog.RunRow{
		ID:                res.RunID,
		State:             string(res.State),
		FilesDiscovered:   res.FilesDiscovered,
		FilesSucceeded:    res.FilesSucceeded,
		FilesFailed:       res.FilesFailed,
		DocumentsParsed:   res.DocumentsParsed,
		DocumentsWritten:  res.DocumentsWritten,
		AttachmentsCopied: res.AttachmentsCopied,
		BrokenReferences:  res.BrokenReferences,
		Cancelled:         res.Cancelled,
		StartedAt:         res.StartedAt,
		Duration:          res.Duration,
	}

	now := time.Now().UTC()
	var docs []catalog.DocumentRow
	for _, w := range p.Written() {
		docs = append(docs, catalog.DocumentRow{
			Slug:       w.Slug,
			Title:      w.Doc.Title,
			SourcePath: w.Doc.SourcePath,
			Format:     string(w.Doc.Format),
			Folder:     w.Folder,
			Checksum:   w.Checksum,
			Tags:       w.Doc.Tags,
			Backlinks:  w.Doc.Backlinks,
			Body:       w.Content,
			UpdatedAt:  now,
		})
	}

	g := p.Graph()
	var links []catalog.LinkRow
	for _, source := range g.Nodes() {
		for _, target := range g.Outgoing(source) {
			links = append(links, catalog.LinkRow{Source: source, Target: target})
		}
	}

	var broken []catalog.BrokenRow
	for _, b := range p.BrokenReferences() {
		broken = append(broken, catalog.BrokenRow{Source: b.Source, Target: b.Target})
	}

	var failures []catalog.FailureRow
	for _, f := range res.Failures {
		failures = append(failures, catalog.FailureRow{Path: f.Path, Message: f.Message})
	}

	return db.ReplaceRun(run, docs, links, broken, failures)
}

// writeReport renders the migration report and stores it at the vault root.
func writeReport(vault storage.Provider, p *pipeline.Pipeline, res *pipeline.Result) error {
	md := report.Render(res, p.Graph(), p.BrokenReferences())
	if err := vault.Write(report.Filename, []byte(md)); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Migrate runs one migration end to end: scan, parse, resolve, write, then
// record the outcome in the catalog and drop a report at the vault root.
// SIGINT and SIGTERM cancel cooperatively; the partial result is still
// recorded.
func Migrate(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stdout)

	logger.Info("Starting migration",
		slog.String("source_path", cfg.Source.Path),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("catalog_path", cfg.Catalog.Path),
		slog.String("link_style", cfg.Migration.LinkStyle))

	store, err := openVault(cfg)
	if err != nil {
		return err
	}

	db, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("init catalog: %w", err)
	}
	defer db.Close()

	res := resolver.New()
	p := buildPipeline(cfg, logger, store, res, app.observer)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, runErr := p.Run(runCtx)

	if err := recordRun(db, p, result); err != nil {
		logger.Warn("failed to record run", slog.String("error", err.Error()))
	}
	if err := writeReport(store, p, result); err != nil {
		logger.Warn("failed to write report", slog.String("error", err.Error()))
	}

	logger.Info("Migration finished",
		slog.String("run_id", result.RunID),
		slog.String("state", string(result.State)),
		slog.Int("files_discovered", result.FilesDiscovered),
		slog.Int("files_succeeded", result.FilesSucceeded),
		slog.Int("files_failed", result.FilesFailed),
		slog.Int("documents_written", result.DocumentsWritten),
		slog.Int("broken_references", result.BrokenReferences),
		slog.Duration("duration", result.Duration))

	if runErr != nil {
		return fmt.Errorf("migration: %w", runErr)
	}
	if result.Cancelled {
		logger.Warn("Migration cancelled, partial results recorded")
		return nil
	}
	if !result.Success() {
		return fmt.Errorf("migration failed: %d of %d files failed", result.FilesFailed, result.FilesDiscovered)
	}
	return nil
}

// Serve runs an initial migration, then serves the inspection API and
// re-migrates whenever the source tree changes.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stdout)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("source_path", cfg.Source.Path),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("catalog_path", cfg.Catalog.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := openVault(cfg)
	if err != nil {
		return err
	}

	db, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("init catalog: %w", err)
	}
	defer db.Close()

	// SSE broker with default per-file throttle.
	broker := sse.NewBroker(0)

	res := resolver.New()
	observer := func(pr pipeline.Progress) {
		if app.observer != nil {
			app.observer(pr)
		}
		if pr.File != "" {
			broker.PublishFileEvent(pr.Index, pr.Total, pr.File)
			return
		}
		broker.PublishRunEvent("run.phase", map[string]string{
			"state":   string(pr.State),
			"message": pr.Message,
		})
	}
	p := buildPipeline(cfg, logger, store, res, observer)

	// runOnce serializes migrations: a watcher rerun never overlaps one in
	// flight.
	var runMu sync.Mutex
	runOnce := func(ctx context.Context) {
		runMu.Lock()
		defer runMu.Unlock()

		broker.PublishRunEvent("run.started", map[string]string{"source": cfg.Source.Path})
		result, err := p.Run(ctx)
		if err != nil {
			logger.Error("migration run failed", slog.String("error", err.Error()))
			broker.PublishRunEvent("run.failed", map[string]string{"error": err.Error()})
			return
		}
		if err := recordRun(db, p, result); err != nil {
			logger.Warn("failed to record run", slog.String("error", err.Error()))
		}
		if err := writeReport(store, p, result); err != nil {
			logger.Warn("failed to write report", slog.String("error", err.Error()))
		}
		broker.PublishRunEvent("run.completed", result)
		logger.Info("migration run finished",
			slog.String("run_id", result.RunID),
			slog.String("state", string(result.State)),
			slog.Int("files_succeeded", result.FilesSucceeded),
			slog.Int("files_failed", result.FilesFailed))
	}

	// Initial run before the server comes up.
	runOnce(ctx)

	// Build API service and router.
	svc := api.NewService(db, store)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the source tree and re-migrate on changes.
	g.Go(func() error {
		if err := watch.Watch(gCtx, cfg.Source.Path, watch.DefaultDebounce, logger, runOnce); err != nil {
			logger.Warn("source watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		broker.Close()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the migration catalog and vault over MCP on stdin/stdout.
// Logs go to stderr so the protocol stream stays clean.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stderr)

	store, err := openVault(cfg)
	if err != nil {
		return err
	}

	db, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("init catalog: %w", err)
	}
	defer db.Close()

	logger.Info("Starting MCP server",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("catalog_path", cfg.Catalog.Path))

	srv := mcpserver.New(store, db)
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
