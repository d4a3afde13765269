package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("PERSONACHAT_OPENAI_TOKEN", "sk-test-token")
	t.Setenv("PERSONACHAT_PUSHOVER_TOKEN", "po-token")
	t.Setenv("PERSONACHAT_PUSHOVER_USER", "po-user")

	cfg, err := LoadConfig("testdata/personachat.yaml")
	require.NoError(t, err)

	assert.Equal(t, "Ed Donner", cfg.Persona.Name)
	assert.Equal(t, "testdata/summary.txt", cfg.Persona.SummaryFile)

	require.Len(t, cfg.LLM.Providers, 1)
	assert.Equal(t, "sk-test-token", cfg.LLM.Providers[0].Token)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Providers[0].DefaultModel)

	assert.Equal(t, "po-token", cfg.Notify.Token)
	assert.Equal(t, "po-user", cfg.Notify.User)
	assert.Equal(t, 10, cfg.Agent.MaxRounds)
	assert.Equal(t, 50, cfg.Redis.MaxMessages)
}

func TestLoadConfig_NotFound(t *testing.T) {
	_, err := LoadConfig("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestRedacted(t *testing.T) {
	t.Setenv("PERSONACHAT_OPENAI_TOKEN", "sk-test-token")
	t.Setenv("PERSONACHAT_PUSHOVER_TOKEN", "po-token")
	t.Setenv("PERSONACHAT_PUSHOVER_USER", "po-user")

	cfg, err := LoadConfig("testdata/personachat.yaml")
	require.NoError(t, err)

	dump, err := cfg.Redacted()
	require.NoError(t, err)
	assert.NotContains(t, dump, "sk-test-token")
	assert.NotContains(t, dump, "po-token")
	assert.Contains(t, dump, "'*****'")
	assert.Contains(t, dump, "Ed Donner")

	// the original config is not mutated by the dump
	assert.Equal(t, "sk-test-token", cfg.LLM.Providers[0].Token)
	assert.Equal(t, "po-token", cfg.Notify.Token)
}

func TestNewService(t *testing.T) {
	t.Setenv("PERSONACHAT_OPENAI_TOKEN", "sk-test-token")
	t.Setenv("PERSONACHAT_PUSHOVER_TOKEN", "")
	t.Setenv("PERSONACHAT_PUSHOVER_USER", "")

	cfg, err := LoadConfig("testdata/personachat.yaml")
	require.NoError(t, err)

	svc, err := newService(cfg, false)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}
