package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/webguard/cache"
	"github.com/jonwraymond/webguard/observe"
	"github.com/jonwraymond/webguard/secret"
)

// Config is the root of a webguard configuration file.
type Config struct {
	Server       ServerConfig        `yaml:"server"`
	Observe      observe.Config      `yaml:"observe"`
	Secrets      SecretsConfig       `yaml:"secrets"`
	CredStore    *CredStoreConfig    `yaml:"credstore"`
	AuthCache    AuthCacheConfig     `yaml:"auth_cache"`
	FailureLimit *FailureLimitConfig `yaml:"failure_limit"`
	Chains       []ChainConfig       `yaml:"chains"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`             // Default ":8080"
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // Default 10s
	HealthTimeout   time.Duration `yaml:"health_timeout"`   // Default 5s
}

// SecretsConfig configures secret providers.
type SecretsConfig struct {
	// FileDir confines the file provider to a directory.
	FileDir string `yaml:"file_dir"`
}

// CredStoreConfig configures the SQL user store.
type CredStoreConfig struct {
	DSN          string         `yaml:"dsn"`
	EnsureSchema bool           `yaml:"ensure_schema"`
	Breaker      *BreakerConfig `yaml:"breaker"`

	// ConnectAttempts retries the first connection. Default 1 (no retry).
	ConnectAttempts int           `yaml:"connect_attempts"`
	ConnectBackoff  time.Duration `yaml:"connect_backoff"` // Default 500ms
}

// BreakerConfig configures the circuit breaker guarding user lookups.
type BreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// AuthCacheConfig configures caching of successful authentications.
// A zero TTL disables the cache.
type AuthCacheConfig struct {
	Kind       string        `yaml:"kind"` // memory|lru
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// FailureLimitConfig configures the per-client authentication failure budget.
type FailureLimitConfig struct {
	Rate  float64 `yaml:"rate"`  // failures forgiven per second
	Burst int     `yaml:"burst"` // failures allowed before 429
}

// ChainConfig describes one security filter chain.
type ChainConfig struct {
	Name          string           `yaml:"name"`
	Match         MatchConfig      `yaml:"match"`
	Extractors    []string         `yaml:"extractors"` // Default [basic]
	Authenticator ComponentConfig  `yaml:"authenticator"`
	Authorizer    ComponentConfig  `yaml:"authorizer"` // Default authenticated
	EntryPoint    EntryPointConfig `yaml:"entry_point"`
	FailureLimit  bool             `yaml:"failure_limit"`
}

// MatchConfig selects the requests a chain applies to. Empty matches all.
type MatchConfig struct {
	Paths   []string `yaml:"paths"`
	Methods []string `yaml:"methods"`
}

// ComponentConfig names a registered factory and its settings.
type ComponentConfig struct {
	Type   string         `yaml:"type"`
	Config map[string]any `yaml:"config"`
}

// EntryPointConfig selects the challenge written for unauthenticated requests.
type EntryPointConfig struct {
	Type  string `yaml:"type"` // basic|bearer
	Realm string `yaml:"realm"`
}

// CredStoreAuthenticator is the authenticator type backed by the SQL user store.
const CredStoreAuthenticator = "credstore"

var entryPointTypes = []string{"", "basic", "bearer"}

// Load reads, expands and validates the configuration at path.
func Load(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(ctx, data)
}

// Parse is Load for in-memory YAML.
func Parse(ctx context.Context, data []byte) (*Config, error) {
	expanded, err := secret.ExpandEnvStrict(string(data))
	if err != nil {
		return nil, fmt.Errorf("expand config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.resolveSecrets(ctx); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolveSecrets(ctx context.Context) error {
	fileProvider, err := secret.DefaultRegistry.Create("file", map[string]any{"dir": c.Secrets.FileDir})
	if err != nil {
		return err
	}
	envProvider, err := secret.DefaultRegistry.Create("env", nil)
	if err != nil {
		return err
	}
	resolver := secret.NewResolver(true, envProvider, fileProvider)
	// The file text has been expanded already.
	resolver.DisableEnvExpansion()
	defer resolver.Close()

	if c.CredStore != nil {
		dsn, err := resolver.ResolveValue(ctx, c.CredStore.DSN)
		if err != nil {
			return fmt.Errorf("credstore.dsn: %w", err)
		}
		c.CredStore.DSN = dsn
	}

	for i := range c.Chains {
		ch := &c.Chains[i]
		for _, comp := range []*ComponentConfig{&ch.Authenticator, &ch.Authorizer} {
			if comp.Config == nil {
				continue
			}
			resolved, err := resolver.ResolveAny(ctx, comp.Config)
			if err != nil {
				return fmt.Errorf("chains[%d].%s: %w", i, comp.Type, err)
			}
			comp.Config = resolved.(map[string]any)
		}
	}
	return nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.HealthTimeout <= 0 {
		c.Server.HealthTimeout = 5 * time.Second
	}
	if c.Observe.ServiceName == "" {
		c.Observe.ServiceName = "webguard"
	}
	if c.AuthCache.TTL > 0 && c.AuthCache.MaxEntries == 0 {
		c.AuthCache.MaxEntries = cache.DefaultPolicy().MaxEntries
	}
	for i := range c.Chains {
		ch := &c.Chains[i]
		if ch.Name == "" {
			ch.Name = fmt.Sprintf("chain-%d", i)
		}
		if len(ch.Extractors) == 0 {
			ch.Extractors = []string{"basic"}
		}
		if ch.Authorizer.Type == "" {
			ch.Authorizer.Type = "authenticated"
		}
	}
}

// Validate reports every problem found, joined and wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if err := c.Observe.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observe: %w", err))
	}
	if c.CredStore != nil && c.CredStore.DSN == "" {
		add("credstore.dsn is required")
	}
	if c.AuthCache.TTL > 0 && !slices.Contains([]string{"", "memory", "lru"}, c.AuthCache.Kind) {
		add("auth_cache.kind %q is not memory or lru", c.AuthCache.Kind)
	}
	if len(c.Chains) == 0 {
		add("at least one chain is required")
	}

	seen := make(map[string]bool)
	for i, ch := range c.Chains {
		if seen[ch.Name] {
			add("chains[%d]: duplicate name %q", i, ch.Name)
		}
		seen[ch.Name] = true

		if ch.Authenticator.Type == "" {
			add("chains[%d] (%s): authenticator.type is required", i, ch.Name)
		}
		if ch.Authenticator.Type == CredStoreAuthenticator && c.CredStore == nil {
			add("chains[%d] (%s): credstore authenticator needs a credstore section", i, ch.Name)
		}
		if !slices.Contains(entryPointTypes, ch.EntryPoint.Type) {
			add("chains[%d] (%s): unknown entry_point.type %q", i, ch.Name, ch.EntryPoint.Type)
		}
		if ch.FailureLimit && c.FailureLimit == nil {
			add("chains[%d] (%s): failure_limit needs a failure_limit section", i, ch.Name)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
