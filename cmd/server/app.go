package main

import (
	"errors"
	"fmt"
	"strings"

	"go-pages-app/internal/auth"
	"go-pages-app/internal/cache"
	"go-pages-app/internal/config"
	"go-pages-app/internal/data"
	"go-pages-app/internal/importer"
	"go-pages-app/internal/logger"
	"go-pages-app/internal/mail"
	"go-pages-app/internal/service"

	"github.com/jmoiron/sqlx"
)

// app is the wiring shared by every command.
type app struct {
	cfg   *config.Config
	log   logger.Logger
	db    *sqlx.DB
	cache *cache.Cache

	pageRepo *data.SQLPageRepository
	userRepo *data.UserRepository

	pages *service.PageService
	users *service.UserService
}

func loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, logger.New(cfg.Log, nil), nil
}

// checkSecret rejects a missing or placeholder session secret.
func checkSecret(cfg *config.Config) error {
	key := cfg.Session.SecretKey
	if key == "" || strings.HasPrefix(key, "CHANGE_ME") {
		return errors.New("session secret key not set: please set a secure PAGES_SESSION_SECRET_KEY environment variable")
	}
	return nil
}

// newApp migrates and opens the database, the render cache and the services on top of them.
func newApp(cfg *config.Config, log logger.Logger) (*app, error) {
	log.Info("Applying database migrations...")
	if err := data.ApplyMigrations(cfg.DB); err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	log.Info("Connecting to the database...")
	db, err := data.NewDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	c, err := cache.New(cfg.Cache)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		cache:    c,
		pageRepo: data.NewSQLPageRepository(db),
		userRepo: data.NewUserRepository(db),
	}

	a.pages = service.NewPageService(a.pageRepo, data.NewCategoryRepository(db), data.NewTagRepository(db),
		data.NewCommentRepository(db), c, log)
	a.pages.SetCacheTTL(cfg.Cache.TTL)

	tokens := auth.NewSignupTokens(cfg.Session.SecretKey, cfg.Auth.CodeTTL)
	a.users = service.NewUserService(a.userRepo, a.pageRepo, auth.NewHasher(), tokens, mail.NewSender(cfg.Mail, log), log)
	return a, nil
}

func (a *app) importer() *importer.Importer {
	return importer.New(a.cfg.Import, a.pages, a.userRepo, a.log)
}

func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		a.log.Error(err, "Failed to close cache")
	}
	if err := a.db.Close(); err != nil {
		a.log.Error(err, "Failed to close database")
	}
}
