package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prodline-labs/prodline-go/internal/platform/env"
	"github.com/prodline-labs/prodline-go/internal/platform/postgres"
	"github.com/prodline-labs/prodline-go/internal/repo"
	repopg "github.com/prodline-labs/prodline-go/internal/repo/postgres"
	"github.com/prodline-labs/prodline-go/internal/stageconfig"
)

// commandContext carries lazily opened resources shared by subcommands.
type commandContext struct {
	stagesFile string

	// openDB is replaced in tests.
	openDB func(ctx context.Context) (*sql.DB, error)
	// transactor is replaced in tests; by default it wraps openDB.
	transactor func(ctx context.Context) (repo.Transactor, func(), error)

	config *stageconfig.Config
}

func newCommandContext() *commandContext {
	c := &commandContext{
		stagesFile: env.String("TRACKER_STAGES_FILE", ""),
		openDB: func(ctx context.Context) (*sql.DB, error) {
			cfg, err := postgres.ConfigFromEnv()
			if err != nil {
				return nil, fmt.Errorf("database config: %w", err)
			}
			return postgres.Open(ctx, cfg)
		},
	}
	c.transactor = func(ctx context.Context) (repo.Transactor, func(), error) {
		db, err := c.openDB(ctx)
		if err != nil {
			return nil, nil, err
		}
		return repopg.NewTransactor(db), func() { _ = db.Close() }, nil
	}
	return c
}

func (c *commandContext) stages() (stageconfig.Config, error) {
	if c.config != nil {
		return *c.config, nil
	}
	cfg, err := stageconfig.Load(c.stagesFile)
	if err != nil {
		return stageconfig.Config{}, err
	}
	c.config = &cfg
	return cfg, nil
}
