package main

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/persona/persona"
	"github.com/effective-security/persona/pkg/llmfactory"
	"github.com/effective-security/persona/pkg/notify"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the application configuration, loaded from a YAML file with
// ${ENV} expansion for secrets.
type Config struct {
	// Persona describes who the agent speaks as.
	Persona persona.Config `json:"persona" yaml:"persona" validate:"required"`
	// LLM configures the model providers.
	LLM llmfactory.Config `json:"llm" yaml:"llm"`
	// Notify provides the Pushover credentials; empty disables notifications.
	Notify notify.Config `json:"notify,omitempty" yaml:"notify,omitempty"`
	// Agent tunes the turn loop.
	Agent AgentConfig `json:"agent,omitempty" yaml:"agent,omitempty"`
	// Redis enables the Redis-backed message store; empty keeps history in memory.
	Redis RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// AgentConfig tunes the turn loop.
type AgentConfig struct {
	// Model is the preferred model name, resolved via the factory.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	// MaxRounds caps the number of model calls in a single turn.
	MaxRounds int `json:"max_rounds,omitempty" yaml:"max_rounds,omitempty" validate:"gte=0"`
	// MaxTokens caps the number of tokens generated per model call.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" validate:"gte=0"`
	// Temperature is the sampling temperature, between 0 and 1.
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" validate:"gte=0,lte=1"`
}

// RedisConfig configures the Redis message store.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
	// Password is the Redis password, typically expanded from the environment.
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	// DB is the Redis database number.
	DB int `json:"db,omitempty" yaml:"db,omitempty" validate:"gte=0"`
	// Prefix is the key prefix for stored histories.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// MaxMessages is the number of most recent messages kept per chat.
	MaxMessages int `json:"max_messages,omitempty" yaml:"max_messages,omitempty" validate:"gte=0"`
	// TTL is how long an idle chat history is retained.
	TTL time.Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
}

// LoadConfig reads the configuration file, expands ${ENV} references and
// validates the result.
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.WithMessage(err, "invalid configuration")
	}
	if cfg.Persona.Name == "" {
		return nil, errors.New("persona name must be configured")
	}
	return cfg, nil
}

// Redacted returns the YAML rendering of the config with secrets masked,
// for the -dump-config flag.
func (c *Config) Redacted() (string, error) {
	dump := *c
	if dump.Notify.Token != "" {
		dump.Notify.Token = "*****"
	}
	if dump.Notify.User != "" {
		dump.Notify.User = "*****"
	}
	if dump.Redis.Password != "" {
		dump.Redis.Password = "*****"
	}
	providers := make([]*llmfactory.ProviderConfig, 0, len(c.LLM.Providers))
	for _, p := range c.LLM.Providers {
		cp := *p
		if cp.Token != "" {
			cp.Token = "*****"
		}
		providers = append(providers, &cp)
	}
	dump.LLM.Providers = providers

	bs, err := yaml.Marshal(&dump)
	if err != nil {
		return "", errors.WithMessage(err, "failed to render config")
	}
	return string(bs), nil
}
