package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ethicalfinder/esg-api/internal/company"
	"github.com/ethicalfinder/esg-api/internal/esg"
	"github.com/ethicalfinder/esg-api/internal/lookup"
	"github.com/ethicalfinder/esg-api/internal/store"
	"github.com/ethicalfinder/esg-api/pkg/openfoodfacts"
)

// env bundles the wired services shared by the commands.
type env struct {
	Store     store.Store
	Catalog   openfoodfacts.Client
	Lookup    *lookup.Service
	Directory *company.Directory
	Engine    *esg.Engine
}

// initEnv opens the store, runs migrations, and wires the services.
func initEnv(ctx context.Context) (*env, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	catalog := openfoodfacts.NewClient(openfoodfacts.Config{
		Env:        cfg.Catalog.Env,
		BaseURL:    cfg.Catalog.BaseURL,
		UserAgent:  cfg.Catalog.UserAgent,
		Timeout:    cfg.Catalog.Timeout(),
		RatePerSec: cfg.Catalog.RatePerSec,
		RateBurst:  cfg.Catalog.RateBurst,
	})

	return &env{
		Store:     st,
		Catalog:   catalog,
		Lookup:    lookup.NewService(st, catalog, cfg.Cache.TTL()),
		Directory: company.NewDirectory(st),
		Engine:    esg.NewEngine(),
	}, nil
}

func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("store close failed", zap.Error(err))
	}
}
