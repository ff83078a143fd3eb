// Package config loads the control plane's configuration from a YAML file
// overlaid with environment variables, the same layering r3e-network's
// pkg/config uses: defaults, then an optional config file, then env
// overrides via envdecode.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string `yaml:"host" env:"SERVER_HOST"`
	Port            int    `yaml:"port" env:"SERVER_PORT"`
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds" env:"SERVER_SHUTDOWN_TIMEOUT_SECONDS"`
}

// DatabaseConfig controls the Postgres store.
type DatabaseConfig struct {
	DSN             string `yaml:"dsn" env:"DATABASE_DSN"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetimeSeconds int `yaml:"conn_max_lifetime_seconds" env:"DATABASE_CONN_MAX_LIFETIME_SECONDS"`
	MigrateOnStart  bool   `yaml:"migrate_on_start" env:"DATABASE_MIGRATE_ON_START"`
	UseMemoryStore  bool   `yaml:"use_memory_store" env:"DATABASE_USE_MEMORY_STORE"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// SessionConfig controls the self-issued opaque session token (spec.md
// §4.2/§4.3): the HMAC signing secret, cookie attributes, and rolling
// refresh window.
type SessionConfig struct {
	SigningSecret          string `yaml:"-" env:"SESSION_SIGNING_SECRET"`
	CookieName             string `yaml:"cookie_name" env:"SESSION_COOKIE_NAME"`
	TTLSeconds             int    `yaml:"ttl_seconds" env:"SESSION_TTL_SECONDS"`
	RefreshThresholdSeconds int   `yaml:"refresh_threshold_seconds" env:"SESSION_REFRESH_THRESHOLD_SECONDS"`
	AllowInsecureCookies   bool   `yaml:"-" env:"ALLOW_INSECURE_COOKIES"`
}

// IdPConfig describes the optional upstream identity provider (a
// self-hosted Supabase/GoTrue instance) fronted by the auth callback
// endpoint. When Enabled is false the control plane accepts only its own
// previously-issued sessions.
type IdPConfig struct {
	Enabled      bool   `yaml:"enabled" env:"IDP_ENABLED"`
	JWTSecret    string `yaml:"-" env:"IDP_JWT_SECRET"`
	JWTAudience  string `yaml:"jwt_audience" env:"IDP_JWT_AUDIENCE"`
	JWKSURL      string `yaml:"jwks_url" env:"IDP_JWKS_URL"`
	GoTrueURL    string `yaml:"gotrue_url" env:"IDP_GOTRUE_URL"`
	TenantClaim  string `yaml:"tenant_claim" env:"IDP_TENANT_CLAIM"`
	RoleClaim    string `yaml:"role_claim" env:"IDP_ROLE_CLAIM"`
}

// UpstreamConfig is the per-application bearer token the proxy injects into
// requests forwarded to that app's workspace runtimes (spec.md §4.8). The
// token is never accepted from the caller; it is purely server-side.
type UpstreamConfig struct {
	AppID        string `yaml:"app_id"`
	BearerHeader string `yaml:"bearer_header" env:"UPSTREAM_BEARER_HEADER"`
	BearerToken  string `yaml:"-"`
	BearerTokenEnv string `yaml:"bearer_token_env"`
}

// AppConfigEntry is one registered application's branding/release
// identity (spec.md §3's AppConfig), as loaded from YAML.
type AppConfigEntry struct {
	AppID            string `yaml:"app_id"`
	Name             string `yaml:"name"`
	Logo             string `yaml:"logo"`
	DefaultReleaseID string `yaml:"default_release_id"`
}

// AppIdentityConfig maps inbound request hosts to application identities
// (spec.md §4.1). DefaultAppID is used when no host entry matches and a
// default is configured; otherwise an unmatched host is app_config_not_found.
type AppIdentityConfig struct {
	HostMap      map[string]string `yaml:"host_map"`
	DefaultAppID string            `yaml:"default_app_id"`
	Upstreams    []UpstreamConfig  `yaml:"upstreams"`
	Apps         []AppConfigEntry  `yaml:"apps"`
}

// CORSConfig mirrors infrastructure/middleware.CORSConfig's fields for
// file-driven configuration.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
}

// ProvisioningConfig controls the provisioning state machine's timeouts
// (spec.md §4.6) and the stale-job sweeper's cadence.
type ProvisioningConfig struct {
	StepTimeoutSeconds    int    `yaml:"step_timeout_seconds" env:"PROVISIONING_STEP_TIMEOUT_SECONDS"`
	MaxExecTimeoutSeconds int    `yaml:"max_exec_timeout_seconds" env:"PROVISIONING_MAX_EXEC_TIMEOUT_SECONDS"`
	ArtifactRoot          string `yaml:"artifact_root" env:"PROVISIONING_ARTIFACT_ROOT"`
	SweepCronSchedule     string `yaml:"sweep_cron_schedule" env:"PROVISIONING_SWEEP_CRON_SCHEDULE"`
}

// ProxyConfig controls the workspace proxy's stream accounting and target
// resolution. RuntimeURLTemplate is formatted with the workspace's sandbox
// name (spec.md §4.1's `sbx-{app_id}-{workspace_id}-{env}` convention) via
// fmt.Sprintf's single %s verb to produce the runtime's base URL.
type ProxyConfig struct {
	MaxStreamsPerWorkspace int    `yaml:"max_streams_per_workspace" env:"PROXY_MAX_STREAMS_PER_WORKSPACE"`
	RuntimeURLTemplate     string `yaml:"runtime_url_template" env:"PROXY_RUNTIME_URL_TEMPLATE"`
}

// Config is the top-level control-plane configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Logging      LoggingConfig      `yaml:"logging"`
	Session      SessionConfig      `yaml:"session"`
	IdP          IdPConfig          `yaml:"idp"`
	Identity     AppIdentityConfig  `yaml:"identity"`
	CORS         CORSConfig         `yaml:"cors"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	Proxy        ProxyConfig        `yaml:"proxy"`
	MetricsEnabled bool             `yaml:"metrics_enabled" env:"METRICS_ENABLED"`
}

// New returns a configuration populated with defaults, mirroring the
// teacher's config.New.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                   "0.0.0.0",
			Port:                   8080,
			ShutdownTimeoutSeconds: 15,
		},
		Database: DatabaseConfig{
			MaxOpenConns:           10,
			MaxIdleConns:           5,
			ConnMaxLifetimeSeconds: 300,
			MigrateOnStart:         true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Session: SessionConfig{
			CookieName:              "cp_session",
			TTLSeconds:              3600,
			RefreshThresholdSeconds: 300,
		},
		Provisioning: ProvisioningConfig{
			StepTimeoutSeconds:    30,
			MaxExecTimeoutSeconds: 300,
			ArtifactRoot:          "/var/lib/controlplane/artifacts",
			SweepCronSchedule:     "*/1 * * * *",
		},
		Proxy: ProxyConfig{
			MaxStreamsPerWorkspace: 10,
			RuntimeURLTemplate:     "https://%s.runtimes.internal",
		},
	}
}

// Load loads configuration from an optional .env file, an optional YAML
// config file (CONFIG_FILE or configs/config.yaml), then environment
// variable overrides, exactly the layering order the teacher's Load uses.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	} else {
		_ = loadFromFile("configs/config.yaml", cfg)
	}

	if err := envdecode.Decode(cfg); err != nil {
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	resolveUpstreamTokens(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// resolveUpstreamTokens reads each upstream's bearer token from the
// environment variable its config names, rather than ever storing a bearer
// token literal in a YAML file.
func resolveUpstreamTokens(cfg *Config) {
	for i := range cfg.Identity.Upstreams {
		u := &cfg.Identity.Upstreams[i]
		if u.BearerHeader == "" {
			u.BearerHeader = "X-Sprite-Bearer"
		}
		if u.BearerTokenEnv != "" {
			u.BearerToken = os.Getenv(u.BearerTokenEnv)
		}
	}
}

// requiredSecretMinLength is the minimum acceptable length for any
// server-held secret (session signing key, IdP JWT secret, upstream bearer
// tokens): short secrets make the HMAC/brute-force assumptions in
// infrastructure/security unsound.
const requiredSecretMinLength = 32

// Validate checks that every secret the control plane needs to start is
// present and long enough, aborting startup with the full list of problems
// rather than failing on the first missing one.
func (c *Config) Validate() error {
	var missing []string

	if len(c.Session.SigningSecret) < requiredSecretMinLength {
		missing = append(missing, fmt.Sprintf("SESSION_SIGNING_SECRET (min %d chars)", requiredSecretMinLength))
	}
	if c.IdP.Enabled && len(c.IdP.JWTSecret) < requiredSecretMinLength && c.IdP.JWKSURL == "" {
		missing = append(missing, "IDP_JWT_SECRET or IDP_JWKS_URL")
	}
	for _, u := range c.Identity.Upstreams {
		if len(u.BearerToken) < requiredSecretMinLength {
			missing = append(missing, fmt.Sprintf("bearer token for app %q (env %s, min %d chars)", u.AppID, u.BearerTokenEnv, requiredSecretMinLength))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("config: missing or insufficient secrets: %s", strings.Join(missing, "; "))
	}
	return nil
}
