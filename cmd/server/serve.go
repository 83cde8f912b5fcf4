package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-pages-app/internal/auth"
	"go-pages-app/internal/data"
	"go-pages-app/internal/handler"
	"go-pages-app/internal/importer"
	"go-pages-app/internal/middleware"
	"go-pages-app/internal/session"
	"go-pages-app/internal/view"
	"go-pages-app/web"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// --- Configuration Loading ---
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	// --- Pre-flight Checks ---
	if err := checkSecret(cfg); err != nil {
		return err
	}

	// --- Database, Cache and Services ---
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	log.Info("Database connection successful.")

	// --- Session Management Setup ---
	var store scs.Store
	switch cfg.DB.Driver {
	case data.DriverMySQL:
		store = mysqlstore.New(a.db.DB)
	default:
		store = sqlite3store.New(a.db.DB)
	}
	sessionManager := session.New(store, time.Duration(cfg.Session.Lifetime)*time.Hour, cfg.Server.TLS.Enabled)

	// --- Authentication and Authorization Setup ---
	log.Info("Initializing authentication and authorization...")
	var identity handler.IdentityProvider
	if cfg.OIDC.IssuerURL != "" {
		authenticator, err := auth.NewAuthenticator(cmd.Context(), &cfg.OIDC)
		if err != nil {
			return fmt.Errorf("failed to initialize authenticator: %w", err)
		}
		identity = authenticator
	}
	enforcer, err := auth.NewEnforcer(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to initialize enforcer: %w", err)
	}
	if err := auth.SeedDefaultPolicies(enforcer, log); err != nil {
		return err
	}

	// --- View Template Initialization ---
	viewService, err := view.New(web.TemplateFS)
	if err != nil {
		return fmt.Errorf("failed to initialize view templates: %w", err)
	}
	viewService.SetDefaults(handler.TemplateDefaults(sessionManager))
	static, err := web.Static()
	if err != nil {
		return err
	}

	// --- Handlers and Router ---
	router := handler.NewRouter(handler.Router{
		Pages:    handler.NewPageHandler(a.pages, a.users, viewService, sessionManager, log),
		Auth:     handler.NewAuthHandler(a.users, identity, cfg.Auth.RequireEmailConfirmation, viewService, sessionManager, log),
		API:      handler.NewAPIHandler(a.pages, log),
		SEO:      handler.NewSeoHandler(a.pages, cfg.Server.BaseURL, log),
		Authz:    middleware.Authorizer(enforcer, sessionManager, log),
		Errors:   middleware.Error(log, viewService),
		Sessions: sessionManager,
		Static:   static,
		Log:      log,
	})

	// --- Background Jobs ---
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	imp := a.importer()
	if cfg.Import.OnEmpty {
		go func() {
			if _, err := imp.RunIfEmpty(ctx, a.pageRepo); err != nil {
				log.Error(err, "Initial article import failed")
			}
		}()
	}
	scheduler := importer.NewScheduler(log)
	if cfg.Import.Enabled {
		if err := scheduler.AddImport(cfg.Import.Schedule, imp); err != nil {
			return fmt.Errorf("failed to schedule import: %w", err)
		}
	}
	if err := scheduler.AddJob("@hourly", "cache-cleanup", func(context.Context) error {
		n, err := a.cache.DeleteExpired()
		if err == nil && n > 0 {
			log.With(map[string]interface{}{"removed": n}).Debug("Expired cache entries removed")
		}
		return err
	}); err != nil {
		return err
	}
	scheduler.Start()

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			errCh <- server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			errCh <- server.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not start server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Warn("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	scheduler.Stop(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server exiting")
	return nil
}
