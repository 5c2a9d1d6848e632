package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbwizard/dbwizard/internal/config"
	"github.com/dbwizard/dbwizard/internal/database"
	"github.com/dbwizard/dbwizard/internal/models"
	"github.com/dbwizard/dbwizard/internal/planner"
)

func TestDatabaseConfig(t *testing.T) {
	cfg := config.New()
	cfg.Database = config.DatabaseConfig{
		URL:                 "postgres://localhost/demo",
		MaxOpenConns:        7,
		ConnMaxLifetimeSec:  60,
		StatementTimeoutSec: 5,
		MaxResultRows:       50,
	}

	dbCfg := databaseConfig(cfg)
	assert.Equal(t, "postgres://localhost/demo", dbCfg.URL)
	assert.Equal(t, 7, dbCfg.MaxOpenConns)
	assert.Equal(t, time.Minute, dbCfg.ConnMaxLifetime)
	assert.Equal(t, 5*time.Second, dbCfg.StatementTimeout)
	assert.Equal(t, 50, dbCfg.MaxResultRows)

	// Unset knobs stay zero so the adapter defaults apply.
	assert.Equal(t, 0, dbCfg.MaxIdleConns)
	assert.Equal(t, time.Duration(0), dbCfg.AcquireTimeout)
}

func TestBuildPlannerMock(t *testing.T) {
	cfg := config.New()
	cfg.Engine.Type = "mock"

	p, err := buildPlanner(cfg)
	require.NoError(t, err)
	require.NotNil(t, p)

	// The demo engine inspects the schema, then answers.
	proposal, err := p.Propose(context.Background(), &models.Transcript{}, nil)
	require.NoError(t, err)
	require.Len(t, proposal.ToolCalls, 1)
	assert.Equal(t, "describe_database", proposal.ToolCalls[0].Operation)

	proposal, err = p.Propose(context.Background(), &models.Transcript{}, nil)
	require.NoError(t, err)
	assert.True(t, proposal.IsFinal())
}

func TestBuildPlannerOpenAI(t *testing.T) {
	cfg := config.New()
	cfg.Engine.APIKeyEnv = "DBWIZARD_TEST_KEY"
	t.Setenv("DBWIZARD_TEST_KEY", "sk-test")

	p, err := buildPlanner(cfg)
	require.NoError(t, err)
	assert.IsType(t, &planner.Client{}, p)
}

func TestBuildPlannerMissingAPIKey(t *testing.T) {
	cfg := config.New()
	cfg.Engine.APIKeyEnv = "DBWIZARD_TEST_UNSET_KEY"

	_, err := buildPlanner(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DBWIZARD_TEST_UNSET_KEY")
}

func TestBuildPlannerUnknownEngine(t *testing.T) {
	cfg := config.New()
	cfg.Engine.Type = "psychic"

	_, err := buildPlanner(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "psychic")
}

func TestBuildWizard(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	adapter := database.New(db, database.Config{})

	cfg := config.New()
	cfg.Wizard.LogDir = t.TempDir()

	w := buildWizard(adapter, planner.NewMockPlanner(planner.AnswerProposal("ok")), cfg)
	require.NotNil(t, w)

	answer, err := w.Ask(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "ok", answer.Text)
}

func TestLoadConfigExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  type: mock\n"), 0o644))

	orig := configPath
	configPath = path
	t.Cleanup(func() { configPath = orig })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.Engine.Type)
}

func TestLoadConfigExplicitPathMissing(t *testing.T) {
	orig := configPath
	configPath = filepath.Join(t.TempDir(), "nope.yaml")
	t.Cleanup(func() { configPath = orig })

	_, err := loadConfig()
	require.Error(t, err)
}

func TestOpenAdapterNoURL(t *testing.T) {
	// Guard against an ambient DATABASE_URL leaking into the test.
	t.Setenv("DATABASE_URL", "")

	_, err := openAdapter(context.Background(), config.New(), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
