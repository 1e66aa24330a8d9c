// Command notionredact publishes Notion pages as credential-free markdown
// and serves the image resolution API alongside them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hfi/notion-redactor/internal/audit"
	"github.com/hfi/notion-redactor/internal/blobstore"
	"github.com/hfi/notion-redactor/internal/config"
	"github.com/hfi/notion-redactor/internal/generator"
	"github.com/hfi/notion-redactor/internal/mapping"
	"github.com/hfi/notion-redactor/internal/notion"
	"github.com/hfi/notion-redactor/internal/pattern"
	"github.com/hfi/notion-redactor/internal/redact"
	"github.com/hfi/notion-redactor/internal/resolver"
	"github.com/hfi/notion-redactor/internal/server"
	"github.com/hfi/notion-redactor/internal/webhook"
	"github.com/hfi/notion-redactor/pkg/placeholder"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:           "notionredact",
		Short:         "Publish Notion pages with credentials redacted",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), generateCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("notionredact %s\n", Version)
			fmt.Printf("Git Commit: %s\n", GitCommit)
			fmt.Printf("Build Time: %s\n", BuildTime)
		},
	}
}

func generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <page-id>...",
		Short: "Redact and publish one or more pages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.close()

			ctx := cmd.Context()
			for _, pageID := range args {
				post, err := app.generator.Generate(ctx, pageID)
				if err != nil {
					return fmt.Errorf("generate %s: %w", pageID, err)
				}
				fmt.Printf("published %s (%d placeholders) -> %s\n",
					post.ID, len(post.Placeholders), post.Path)
			}
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the image resolution API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.close()

			var verifier *webhook.Verifier
			if app.cfg.Webhook.Secret != "" {
				verifier = webhook.NewVerifier(app.cfg.Webhook.Secret, app.cfg.Webhook.MaxSkew)
			} else {
				app.log.Warn().Msg("webhook secret not set, webhook deliveries will be rejected")
			}

			srv := server.New(&server.Config{
				Addr:           app.cfg.Server.Listen,
				MetricsPath:    app.cfg.Metrics.Endpoint,
				MetricsEnabled: app.cfg.Metrics.Enabled,
				Version:        Version,
			}, app.resolver, verifier, app.regenerate, app.log)
			srv.SetAuditLogger(app.auditLog)
			srv.RegisterHealthCheck("mapping_store", app.mappingCheck)
			srv.RegisterHealthCheck("image_cache", app.cacheCheck)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				app.log.Info().Str("addr", srv.Addr()).Msg("server listening")
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				app.log.Info().Msg("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Stop(shutdownCtx)
			}
		},
	}
}

// app wires the pipeline from config.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	auditLog  *audit.Logger
	mappings  mapping.Store
	cache     blobstore.Store
	resolver  *resolver.Resolver
	generator *generator.Generator
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	auditLog, err := audit.NewLogger(&audit.Config{
		Enabled: cfg.Logging.Audit.Enabled,
		Output:  cfg.Logging.Audit.Output,
		Format:  cfg.Logging.Audit.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	mappings, err := newMappingStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open mapping store: %w", err)
	}

	cache, err := blobstore.NewLocalStore(cfg.Cache.Dir, cfg.Cache.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("open image cache: %w", err)
	}

	rules := pattern.NewRuleSet()
	gen := placeholder.NewGenerator()
	redactor := redact.NewRedactor(rules, gen)
	if e := cfg.Redaction.Entropy; e.Enabled {
		redactor.SetEntropyVerifier(pattern.NewEntropyVerifier(e.Threshold, e.MinLength, e.MaxLength))
	}

	source := notion.NewClient(cfg.Notion.Token)
	gn := generator.New(source, redactor, mappings, cfg.Generator.OutputDir, log)
	gn.SetAuditLogger(auditLog)

	return &app{
		cfg:       cfg,
		log:       log,
		auditLog:  auditLog,
		mappings:  mappings,
		cache:     cache,
		resolver:  resolver.New(mappings, cache, gen, log),
		generator: gn,
	}, nil
}

func newMappingStore(cfg *config.Config) (mapping.Store, error) {
	switch cfg.Mappings.Type {
	case "", "file":
		return mapping.NewFileStore(cfg.Mappings.Dir)
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		r := cfg.Mappings.Redis
		return mapping.NewRedisStore(ctx, r.Address, r.Password, r.DB)
	case "memory":
		return mapping.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown mapping store type %q", cfg.Mappings.Type)
	}
}

// regenerate republishes a page in response to a webhook delivery.
func (a *app) regenerate(pageID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := a.generator.Generate(ctx, pageID); err != nil {
		a.log.Error().Err(err).Str("page_id", pageID).Msg("webhook regeneration failed")
		return
	}
	a.log.Info().Str("page_id", pageID).Msg("webhook regeneration completed")
}

// mappingCheck probes the mapping store for readiness.
func (a *app) mappingCheck() (bool, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := a.mappings.Load(ctx, "healthcheck")
	if err != nil && !errors.Is(err, mapping.ErrNotFound) {
		return false, err.Error()
	}
	return true, ""
}

// cacheCheck probes the durable cache index for readiness.
func (a *app) cacheCheck() (bool, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, _, err := a.cache.Exists(ctx, "healthcheck"); err != nil {
		return false, err.Error()
	}
	return true, ""
}

func (a *app) close() {
	if a.auditLog != nil {
		a.auditLog.Close()
	}
	if a.mappings != nil {
		a.mappings.Close()
	}
	if a.cache != nil {
		a.cache.Close()
	}
}
