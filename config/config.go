package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"novasport-checker/internal/schedule"
)

const (
	// MinInterval is the smallest allowed delay between two checking cycles, in seconds.
	MinInterval = 10
	// MinIntervalSpread is the smallest allowed gap between min_interval and max_interval.
	MinIntervalSpread = 5
)

// Config represents the overall application configuration.
type Config struct {
	NSAPI          string   `json:"ns_api" yaml:"ns_api"`
	APIURL         string   `json:"api_url" yaml:"api_url"` // Defaults to https://<ns_api>/graphql
	Logfile        string   `json:"logfile" yaml:"logfile"`
	LogLevel       string   `json:"log_level" yaml:"log_level"`
	MinInterval    int      `json:"min_interval" yaml:"min_interval"`
	MaxInterval    int      `json:"max_interval" yaml:"max_interval"`
	FixedInterval  int      `json:"fixed_interval" yaml:"fixed_interval"`
	UserAgents     []string `json:"user_agents" yaml:"user_agents"`
	AcceptLanguage string   `json:"accept_language" yaml:"accept_language"`
	AcceptEncoding string   `json:"accept_encoding" yaml:"accept_encoding"`

	ParamQueriesDefault map[string]string `json:"param_queries_default" yaml:"param_queries_default"`
	ParamQueries        []SportQuery      `json:"param_queries" yaml:"param_queries"`

	TokenSource TokenSourceConfig `json:"token_source" yaml:"token_source"`
	Client      ClientConfig      `json:"client" yaml:"client"`
	Server      ServerConfig      `json:"server" yaml:"server"`
	Database    DatabaseConfig    `json:"database" yaml:"database"`
	Push        PushConfig        `json:"push" yaml:"push"`
	WorkerPool  WorkerPoolConfig  `json:"worker_pool" yaml:"worker_pool"`
}

// SportQuery declares which sessions of one sport are wanted.
type SportQuery struct {
	Sport       string            `json:"sport" yaml:"sport"`
	Sessions    []schedule.Entry  `json:"sessions" yaml:"sessions"`
	Autobooking bool              `json:"autobooking" yaml:"autobooking"`
	Params      map[string]string `json:"params" yaml:"params"` // Overrides param_queries_default for this sport
}

// TokenSourceConfig points at the local token relay.
type TokenSourceConfig struct {
	URL             string        `json:"url" yaml:"url"`
	TimeoutSeconds  int           `json:"timeout_seconds" yaml:"timeout_seconds"`
	Timeout         time.Duration `json:"-" yaml:"-"`
	CacheTTLSeconds int           `json:"cache_ttl_seconds" yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `json:"-" yaml:"-"`
}

// ClientConfig tunes the outbound GraphQL client.
type ClientConfig struct {
	TimeoutSeconds    int           `json:"timeout_seconds" yaml:"timeout_seconds"`
	Timeout           time.Duration `json:"-" yaml:"-"`
	HTTPProxy         string        `json:"http_proxy" yaml:"http_proxy"`
	RequestsPerSecond float64       `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int           `json:"burst" yaml:"burst"`
	Breaker           BreakerConfig `json:"breaker" yaml:"breaker"`
}

// BreakerConfig configures the circuit breaker guarding the remote API.
type BreakerConfig struct {
	Enabled          bool          `json:"enabled" yaml:"enabled"`
	FailureThreshold uint32        `json:"failure_threshold" yaml:"failure_threshold"`
	OpenSeconds      int           `json:"open_seconds" yaml:"open_seconds"`
	OpenTimeout      time.Duration `json:"-" yaml:"-"`
}

// ServerConfig holds the token relay configuration.
type ServerConfig struct {
	Port                 int     `json:"port" yaml:"port"`
	Mail                 string  `json:"mail" yaml:"mail"`
	TokenIntervalSeconds int     `json:"token_interval_seconds" yaml:"token_interval_seconds"`
	RateLimitPerSec      float64 `json:"rate_limit_per_sec" yaml:"rate_limit_per_sec"`
	RateLimitBurst       int     `json:"rate_limit_burst" yaml:"rate_limit_burst"`
	CacheTTLSeconds      int     `json:"cache_ttl_seconds" yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `json:"dsn" yaml:"dsn"`
	MaxOpenConns           int    `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns           int    `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `json:"conn_max_lifetime_minutes" yaml:"conn_max_lifetime_minutes"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	PublicKey  string `json:"vapid_public_key" yaml:"vapid_public_key"`
	PrivateKey string `json:"vapid_private_key" yaml:"vapid_private_key"`
	Subject    string `json:"subject" yaml:"subject"`
	TTL        int    `json:"ttl" yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `json:"size" yaml:"size"`
}

// Load reads the configuration from the given path. Files ending in .json are
// decoded as JSON, everything else as YAML.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills unset values and clamps the polling intervals.
func (c *Config) ApplyDefaults() {
	if c.MinInterval < MinInterval {
		c.MinInterval = MinInterval
	}
	if c.MaxInterval < c.MinInterval+MinIntervalSpread {
		c.MaxInterval = c.MinInterval + MinIntervalSpread
	}
	if c.FixedInterval < 0 {
		c.FixedInterval = 0
	}
	if c.LogLevel == "" {
		c.LogLevel = "debug"
	}
	if c.AcceptLanguage == "" {
		c.AcceptLanguage = "fr,fr-FR;q=0.8"
	}
	if c.AcceptEncoding == "" {
		c.AcceptEncoding = "gzip, deflate"
	}
	if c.ParamQueriesDefault == nil {
		c.ParamQueriesDefault = map[string]string{}
	}

	if c.TokenSource.URL == "" {
		c.TokenSource.URL = "http://localhost:8080"
	}
	if c.TokenSource.TimeoutSeconds <= 0 {
		c.TokenSource.TimeoutSeconds = 5
	}
	c.TokenSource.Timeout = time.Duration(c.TokenSource.TimeoutSeconds) * time.Second
	if c.TokenSource.CacheTTLSeconds < 0 {
		c.TokenSource.CacheTTLSeconds = 0
	}
	c.TokenSource.CacheTTL = time.Duration(c.TokenSource.CacheTTLSeconds) * time.Second

	if c.Client.TimeoutSeconds <= 0 {
		c.Client.TimeoutSeconds = 30
	}
	c.Client.Timeout = time.Duration(c.Client.TimeoutSeconds) * time.Second
	if c.Client.RequestsPerSecond <= 0 {
		c.Client.RequestsPerSecond = 2
	}
	if c.Client.Burst <= 0 {
		c.Client.Burst = 1
	}
	if c.Client.Breaker.FailureThreshold == 0 {
		c.Client.Breaker.FailureThreshold = 5
	}
	if c.Client.Breaker.OpenSeconds <= 0 {
		c.Client.Breaker.OpenSeconds = 60
	}
	c.Client.Breaker.OpenTimeout = time.Duration(c.Client.Breaker.OpenSeconds) * time.Second

	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.Mail == "" {
		c.Server.Mail = "YOURMAIL@mail.com"
	}
	if c.Server.TokenIntervalSeconds <= 0 {
		c.Server.TokenIntervalSeconds = 10
	}
	if c.Server.RateLimitPerSec <= 0 {
		c.Server.RateLimitPerSec = 10
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 5
	}
	if c.Server.CacheTTLSeconds <= 0 {
		c.Server.CacheTTLSeconds = 300
	}

	if c.Database.DSN == "" {
		c.Database.DSN = "nscheck.db"
	}

	if c.Push.TTL <= 0 {
		c.Push.TTL = 3600
	}
	if c.WorkerPool.Size <= 0 {
		c.WorkerPool.Size = 1
	}
}

// Endpoint returns the GraphQL endpoint URL.
func (c *Config) Endpoint() string {
	if c.APIURL != "" {
		return c.APIURL
	}
	return "https://" + c.NSAPI + "/graphql"
}

// Validate checks what the checker loop needs before it can start.
func (c *Config) Validate() error {
	var errs []error
	if c.NSAPI == "" {
		errs = append(errs, errors.New("ns_api is required"))
	}
	if c.FixedInterval > 0 && c.FixedInterval < MinInterval {
		errs = append(errs, fmt.Errorf("fixed_interval must be 0 or at least %d seconds", MinInterval))
	}
	if len(c.ParamQueries) == 0 {
		errs = append(errs, errors.New("param_queries must declare at least one sport"))
	}
	for i, q := range c.ParamQueries {
		if strings.TrimSpace(q.Sport) == "" {
			errs = append(errs, fmt.Errorf("param_queries[%d]: sport is required", i))
		}
		if len(q.Sessions) == 0 {
			errs = append(errs, fmt.Errorf("param_queries[%d] (%s): sessions must not be empty", i, q.Sport))
		}
	}
	if c.Push.Enabled && (c.Push.PublicKey == "" || c.Push.PrivateKey == "") {
		errs = append(errs, errors.New("push is enabled but VAPID keys are missing"))
	}
	return errors.Join(errs...)
}
