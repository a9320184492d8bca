// Package app wires the client: credential store, event publisher, metrics,
// the session gateway, API services and the optional search index.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Skotchmaster/bookstore/internal/api"
	"github.com/Skotchmaster/bookstore/internal/catalogindex"
	"github.com/Skotchmaster/bookstore/internal/config"
	"github.com/Skotchmaster/bookstore/internal/credstore"
	"github.com/Skotchmaster/bookstore/internal/events"
	"github.com/Skotchmaster/bookstore/internal/gateway"
	"github.com/Skotchmaster/bookstore/pkg/authclient"
	"github.com/Skotchmaster/bookstore/pkg/db"
)

type App struct {
	Config   *config.Config
	Log      *slog.Logger
	Store    credstore.Store
	Events   events.Publisher
	Registry *prometheus.Registry
	Gateway  *gateway.Gateway
	API      *api.API

	closers []func() error
}

// New builds the client. nav receives the login target when a session ends;
// nil logs it instead.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger, nav gateway.Navigator) (*App, error) {
	a := &App{Config: cfg, Log: log, Registry: prometheus.NewRegistry()}

	store, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, closeStore)

	a.Events, err = NewPublisher(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.Events.Close)

	a.Gateway, err = gateway.New(gateway.Config{
		BaseURL:         cfg.APIBaseURL,
		RefreshPath:     cfg.RefreshPath,
		LoginPath:       cfg.LoginPath,
		PublicEndpoints: cfg.PublicEndpoints,
		RefreshTimeout:  cfg.RefreshTimeout,
		EventsTopic:     cfg.KafkaTopic,
	}, gateway.Deps{
		Store:      store,
		HTTPClient: authclient.NewHTTPClient(cfg.RequestTimeout),
		Navigator:  nav,
		Events:     a.Events,
		Metrics:    gateway.NewMetrics(a.Registry),
		Logger:     log,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	if cred, err := a.Gateway.Seed(ctx); err != nil {
		log.Warn("seed_credential_failed", "error", err)
	} else if cred != nil {
		log.Debug("session_restored", "email", cred.Email)
	}

	a.API = api.New(a.Gateway, a.Events, cfg.KafkaTopic)
	return a, nil
}

// OpenStore returns the credential store named by cfg and a func releasing it.
func OpenStore(ctx context.Context, cfg *config.Config) (credstore.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.CredentialStore {
	case config.StoreMemory:
		return credstore.NewMemoryStore(), noop, nil
	case config.StoreFile:
		return credstore.NewFileStore(cfg.CredentialPath, credstore.DefaultKey), noop, nil
	case config.StoreSQLite, config.StorePostgres:
		gdb, err := db.Open(ctx, cfg.CredentialDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open credential db: %w", err)
		}
		store, err := credstore.NewGormStore(ctx, gdb, credstore.DefaultKey)
		if err != nil {
			_ = db.Close(gdb)
			return nil, nil, err
		}
		return store, func() error { return db.Close(gdb) }, nil
	}
	return nil, nil, fmt.Errorf("unknown credential store %q", cfg.CredentialStore)
}

// NewPublisher returns a Kafka publisher when brokers are configured.
func NewPublisher(cfg *config.Config) (events.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NopPublisher{}, nil
	}
	p, err := events.NewKafkaPublisher(cfg.KafkaBrokers)
	if err != nil {
		return nil, fmt.Errorf("kafka publisher: %w", err)
	}
	return p, nil
}

// Indexer connects to Elasticsearch. It fails when ES_URL is unset.
func (a *App) Indexer() (*catalogindex.Indexer, error) {
	if a.Config.ESURL == "" {
		return nil, errors.New("ES_URL is not set")
	}
	return catalogindex.NewClient(catalogindex.Config{
		URL:      a.Config.ESURL,
		User:     a.Config.ESUser,
		Password: a.Config.ESPassword,
		Index:    a.Config.ESIndex,
	}, a.Log)
}

// Close releases everything New opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
