package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("test")
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "test", cfg.Version)
	assert.Equal(t, "http://localhost:8000", cfg.BaseURL)

	assert.InDelta(t, 0.85, cfg.Engine.HighConfThreshold, 1e-9)
	assert.InDelta(t, 0.65, cfg.Engine.ClarifyingThreshold, 1e-9)
	assert.InDelta(t, 0.15, cfg.Engine.ScoreMargin, 1e-9)
	assert.Equal(t, 5, cfg.Engine.TopK)
	assert.Equal(t, 3, cfg.Engine.MaxQuestions)
	assert.Len(t, cfg.Engine.Reviewers, 3)

	assert.Equal(t, "memory", cfg.Catalog.Backend)
	assert.True(t, cfg.Catalog.Seed)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ENGINE_TOP_K", "10")
	t.Setenv("ENGINE_REVIEWERS", "a@x.com, b@x.com")
	t.Setenv("CATALOG_BACKEND", "postgres")

	cfg, err := Load("test")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Engine.TopK)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, cfg.Engine.Reviewers)
	assert.Equal(t, "postgres", cfg.Catalog.Backend)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	t.Setenv("CATALOG_BACKEND", "cassandra")
	_, err := Load("test")
	require.Error(t, err)

	t.Setenv("CATALOG_BACKEND", "memory")
	t.Setenv("ENGINE_TOP_K", "0")
	_, err = Load("test")
	require.Error(t, err)
}

func TestParseReviewers(t *testing.T) {
	assert.Nil(t, parseReviewers(""))
	assert.Equal(t, []string{"a"}, parseReviewers("a"))
	assert.Equal(t, []string{"a", "b"}, parseReviewers(" a ,, b "))
}

func TestDatabaseURL(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p w", Database: "x", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p+w@db:5432/x?sslmode=disable", d.URL())
}
