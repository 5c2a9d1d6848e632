package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dbwizard/dbwizard/internal/config"
	"github.com/dbwizard/dbwizard/internal/database"
	"github.com/dbwizard/dbwizard/internal/models"
	"github.com/dbwizard/dbwizard/internal/planner"
	"github.com/dbwizard/dbwizard/internal/tools"
	"github.com/dbwizard/dbwizard/internal/wizard"
)

// loadConfig resolves configuration. An explicit --config path must
// exist; otherwise .dbwizard.yaml is searched upward from the working
// directory and defaults apply when nothing is found.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}
	return config.Load(wd)
}

func databaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		URL:              cfg.Database.ResolvedURL(),
		MaxOpenConns:     cfg.Database.MaxOpenConns,
		MaxIdleConns:     cfg.Database.MaxIdleConns,
		ConnMaxLifetime:  time.Duration(cfg.Database.ConnMaxLifetimeSec) * time.Second,
		AcquireTimeout:   time.Duration(cfg.Database.AcquireTimeoutSec) * time.Second,
		StatementTimeout: time.Duration(cfg.Database.StatementTimeoutSec) * time.Second,
		MaxResultRows:    cfg.Database.MaxResultRows,
	}
}

// openAdapter connects to the configured database and verifies the
// connection. checkConn false defers the check to the first statement.
func openAdapter(ctx context.Context, cfg *config.Config, checkConn bool) (*database.Adapter, error) {
	dbCfg := databaseConfig(cfg)
	if dbCfg.URL == "" {
		return nil, fmt.Errorf("no database URL configured: set database.url in .dbwizard.yaml or export DATABASE_URL")
	}

	if !checkConn {
		return database.OpenLazy(dbCfg)
	}

	adapter, err := database.Open(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return adapter, nil
}

// buildPlanner creates the reasoning engine named by the config.
func buildPlanner(cfg *config.Config) (planner.Planner, error) {
	switch cfg.Engine.Type {
	case "openai", "":
		key := cfg.Engine.APIKey()
		if key == "" {
			return nil, fmt.Errorf("no API key found: export %s or set engine.api_key_env", cfg.Engine.APIKeyEnv)
		}
		return planner.NewClient(planner.Config{
			BaseURL:     cfg.Engine.BaseURL,
			APIKey:      key,
			Model:       cfg.Engine.Model,
			Temperature: cfg.Engine.Temperature,
		}), nil
	case "mock":
		return demoPlanner(), nil
	default:
		return nil, fmt.Errorf("unknown engine type: %s", cfg.Engine.Type)
	}
}

// demoPlanner is the offline engine: it inspects the schema once and
// then answers. Useful for trying the loop without an API key.
func demoPlanner() planner.Planner {
	return planner.NewMockPlanner(
		planner.CallsProposal(models.ToolCall{Operation: "describe_database", Arguments: map[string]any{}}),
		planner.AnswerProposal("This is the mock engine. It inspected the schema but cannot reason about your question; configure engine.type: openai for real answers."),
	)
}

// buildWizard assembles the agent loop from the adapter, engine, and
// configured bounds. Zero-value bounds fall back to the wizard defaults.
func buildWizard(adapter *database.Adapter, p planner.Planner, cfg *config.Config) *wizard.Wizard {
	dispatcher := tools.NewDispatcher(tools.NewRegistry(), adapter.MaxResultRows())

	opts := []wizard.Option{
		wizard.WithMaxSteps(cfg.Wizard.MaxSteps),
		wizard.WithCycleLimit(cfg.Wizard.CycleLimit),
		wizard.WithPlannerRetries(cfg.Wizard.PlannerRetries),
	}
	if cfg.Wizard.LogDir != "" {
		opts = append(opts, wizard.WithLogDir(cfg.Wizard.LogDir))
	}

	return wizard.New(adapter, p, dispatcher, opts...)
}
