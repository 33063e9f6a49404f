// Package internal provides the application wiring and the command runners.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/notepress/internal/api"
	"github.com/starford/notepress/internal/apperr"
	"github.com/starford/notepress/internal/extract"
	"github.com/starford/notepress/internal/mcpserver"
	"github.com/starford/notepress/internal/noteservice"
	"github.com/starford/notepress/internal/provider"
	"github.com/starford/notepress/internal/site"
	"github.com/starford/notepress/internal/sse"
	"github.com/starford/notepress/internal/storage"
	"github.com/starford/notepress/internal/store"
	"github.com/starford/notepress/internal/syncer"
)

// env is everything a command needs, opened once per invocation.
type env struct {
	cfg         *Config
	logger      *slog.Logger
	out         io.Writer
	version     string
	db          *store.DB
	attachments *storage.FS
	provider    provider.Provider
	syncer      *syncer.Syncer
	notes       *noteservice.Service
}

func setup(opts []Option) (*env, error) {
	app := &application{out: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := NewLogger(cfg.App, os.Stderr)
	slog.SetDefault(logger)

	logger.Debug("Configuration loaded",
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("attachments_path", cfg.Attachments.Path),
		slog.String("provider", cfg.Provider.Kind),
		slog.String("log_level", cfg.App.LogLevel.String()))

	attachments, err := storage.NewFS(cfg.Attachments.Path)
	if err != nil {
		return nil, fmt.Errorf("init attachments: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	p := NewProvider(cfg.Provider)
	ex := extract.New(attachments,
		extract.WithLogger(logger),
		extract.WithDedupe(cfg.Attachments.Dedupe))
	s := syncer.New(p, db, ex,
		syncer.WithLogger(logger),
		syncer.WithWorkers(cfg.Sync.Workers))

	return &env{
		cfg:         cfg,
		logger:      logger,
		out:         app.out,
		version:     app.version,
		db:          db,
		attachments: attachments,
		provider:    p,
		syncer:      s,
		notes:       noteservice.NewService(db),
	}, nil
}

func (e *env) close() {
	if err := e.db.Close(); err != nil {
		e.logger.Warn("close store failed", slog.String("error", err.Error()))
	}
}

// NewLogger builds the process logger on w from the app configuration.
func NewLogger(cfg ApplicationConfig, w io.Writer) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// NewProvider builds the configured notes provider.
func NewProvider(cfg ProviderConfig) provider.Provider {
	if cfg.Kind == ProviderFile {
		return provider.NewFile(cfg.ExportFile)
	}
	return provider.NewOsascript(cfg.ScratchDir)
}

func (e *env) collectionOr(collection string) string {
	if collection == "" {
		return e.cfg.Sync.DefaultCollection
	}
	return collection
}

// RunSync syncs one collection and prints a summary.
func RunSync(ctx context.Context, collection string, opts ...Option) error {
	e, err := setup(opts)
	if err != nil {
		return err
	}
	defer e.close()

	res, err := e.syncer.Sync(ctx, e.collectionOr(collection))
	if err != nil {
		return err
	}
	renderResult(e.out, res)
	return nil
}

// RunList prints the stored notes of a collection (all when empty).
func RunList(ctx context.Context, collection string, opts ...Option) error {
	e, err := setup(opts)
	if err != nil {
		return err
	}
	defer e.close()

	res, err := e.notes.ListNotes(ctx, collection)
	if err != nil {
		return err
	}
	renderNotes(e.out, res)
	return nil
}

// RunCollections prints the provider's collections.
func RunCollections(ctx context.Context, opts ...Option) error {
	e, err := setup(opts)
	if err != nil {
		return err
	}
	defer e.close()

	lister, ok := e.provider.(provider.CollectionLister)
	if !ok {
		return fmt.Errorf("list collections: %w", apperr.ErrUnsupported)
	}
	cols, err := lister.ListCollections(ctx)
	if err != nil {
		return &apperr.ProviderError{Op: "list collections", Err: err}
	}
	renderCollections(e.out, cols)
	return nil
}

// GenerateParams overrides the site configuration for one build.
type GenerateParams struct {
	Collection string
	OutputDir  string
	Theme      string
	NoSync     bool
}

// RunGenerate syncs a collection (unless NoSync) and renders it as a static site.
func RunGenerate(ctx context.Context, params GenerateParams, opts ...Option) error {
	e, err := setup(opts)
	if err != nil {
		return err
	}
	defer e.close()

	collection := e.collectionOr(params.Collection)
	outDir := params.OutputDir
	if outDir == "" {
		outDir = e.cfg.Site.OutputDir
	}
	themeName := params.Theme
	if themeName == "" {
		themeName = e.cfg.Site.Theme
	}
	theme, err := site.ThemeByName(themeName)
	if err != nil {
		return err
	}

	if !params.NoSync {
		res, err := e.syncer.Sync(ctx, collection)
		if err != nil {
			return err
		}
		renderResult(e.out, res)
		collection = res.Collection
	}

	rep, root, err := e.build(ctx, collection, outDir, theme)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Generated %d pages with %d images in %s\n", rep.Pages, rep.Images, root)
	return nil
}

// build renders the stored records of collection into outDir.
func (e *env) build(ctx context.Context, collection, outDir string, theme site.Theme) (*site.Report, string, error) {
	records, err := e.notes.Records(ctx, collection)
	if err != nil {
		return nil, "", err
	}
	output, err := storage.NewFS(outDir)
	if err != nil {
		return nil, "", fmt.Errorf("init output dir: %w", err)
	}
	rep, err := site.Generate(ctx, site.Options{
		SiteName:    collection,
		Theme:       theme,
		Output:      output,
		Attachments: e.attachments,
		Logger:      e.logger,
	}, records)
	if err != nil {
		return nil, "", err
	}
	return rep, output.Root(), nil
}

// RunWatch syncs once, then re-syncs whenever the export file changes until
// interrupted. Only the file provider can be watched.
func RunWatch(ctx context.Context, collection string, opts ...Option) error {
	e, err := setup(opts)
	if err != nil {
		return err
	}
	defer e.close()

	fp, ok := e.provider.(*provider.File)
	if !ok {
		return fmt.Errorf("watch requires the %q provider: %w", ProviderFile, apperr.ErrUnsupported)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collection = e.collectionOr(collection)
	res, err := e.syncer.Sync(ctx, collection)
	if err != nil {
		e.logger.Error("initial sync failed", slog.String("error", err.Error()))
	} else {
		renderResult(e.out, res)
	}

	return e.syncer.Watch(ctx, fp.Path(), collection, func(res *syncer.Result, err error) {
		if err == nil {
			renderResult(e.out, res)
		}
	})
}

// RunPreview serves the generated site and the stored notes on loopback
// until interrupted.
func RunPreview(ctx context.Context, opts ...Option) error {
	e, err := setup(opts)
	if err != nil {
		return err
	}
	defer e.close()
	logger := e.logger

	fp, watchExport := e.provider.(*provider.File)
	theme, err := site.ThemeByName(e.cfg.Site.Theme)
	if err != nil {
		return err
	}

	// Closed by the shutdown goroutine, which runs on every exit path below.
	broker := sse.NewBroker(2 * time.Second)

	httpServer := &http.Server{
		Addr:              e.cfg.Preview.Address(),
		Handler:           api.NewRouter(e.notes, e.attachments, e.cfg.Site.OutputDir, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	if watchExport {
		collection := e.cfg.Sync.DefaultCollection
		g.Go(func() error {
			err := e.syncer.Watch(gCtx, fp.Path(), collection, func(res *syncer.Result, err error) {
				if err != nil {
					broker.PublishSync(nil, false, err)
					return
				}
				changed := res.Updated > 0
				if changed {
					if _, _, err := e.build(gCtx, res.Collection, e.cfg.Site.OutputDir, theme); err != nil {
						logger.Error("preview: rebuild failed", slog.String("error", err.Error()))
						broker.PublishSync(nil, false, err)
						return
					}
				}
				broker.PublishSync(res, changed, nil)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting preview server", slog.String("address", "http://"+e.cfg.Preview.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		// Stop the watcher and close streams so Shutdown does not wait on SSE clients.
		cancel()
		broker.Close()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Preview server stopped")
	return nil
}

// RunMCP serves the MCP tools over stdio.
func RunMCP(_ context.Context, opts ...Option) error {
	e, err := setup(opts)
	if err != nil {
		return err
	}
	defer e.close()

	srv := mcpserver.New(e.notes, e.syncer, e.cfg.Sync.DefaultCollection, e.version)
	return srv.ServeStdio()
}
