package config

import (
	"errors"
	"fmt"
	"strings"
)

// Config holds every option the server and worker processes read at startup.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	API       APIConfig       `koanf:"api"`
	Supabase  SupabaseConfig  `koanf:"supabase"`
	Database  DatabaseConfig  `koanf:"database"`
	Cache     CacheConfig     `koanf:"cache"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Tasks     TasksConfig     `koanf:"tasks"`
	Blog      BlogConfig      `koanf:"blog"`
}

// ServerConfig collects the HTTP listener and logging knobs.
type ServerConfig struct {
	Listen                ListenConfig  `koanf:"listen"`
	Logging               LoggingConfig `koanf:"logging"`
	RequestTimeoutSeconds int           `koanf:"requestTimeoutSeconds"`
}

// ListenConfig instructs the HTTP listener about bind address and port.
type ListenConfig struct {
	Address string `koanf:"address"`
	Port    int    `koanf:"port"`
}

// LoggingConfig expresses log level and output format.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// APIConfig names the versioned API surface.
type APIConfig struct {
	ServiceName string `koanf:"serviceName"`
	Version     string `koanf:"version"`
	Prefix      string `koanf:"prefix"`
}

// SupabaseConfig carries the identity-provider credentials. The JWT secret is
// the symmetric key access tokens are signed with; the service role key is only
// used for storage downloads.
type SupabaseConfig struct {
	URL            string `koanf:"url"`
	Key            string `koanf:"key"`
	ServiceRoleKey string `koanf:"serviceRoleKey"`
	JWTSecret      string `koanf:"jwtSecret"`
}

// DatabaseConfig points at the Postgres instance backing blog content.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// CacheConfig selects the cache backend and its behavior.
type CacheConfig struct {
	Backend     string `koanf:"backend"`
	URL         string `koanf:"url"`
	TTLSeconds  int    `koanf:"ttlSeconds"`
	OpTimeoutMs int    `koanf:"opTimeoutMs"`
}

// RateLimitConfig declares the admission quotas applied before routing.
// Limits use the "N per minute|hour|day" form; every configured limit must
// hold for a request to be admitted.
type RateLimitConfig struct {
	Enabled    bool     `koanf:"enabled"`
	Limits     []string `koanf:"limits"`
	FailClosed bool     `koanf:"failClosed"`
}

// TasksConfig points the task client and worker at the shared queue.
type TasksConfig struct {
	URL   string `koanf:"url"`
	Queue string `koanf:"queue"`
}

// BlogConfig names the storage bucket blog markdown lives in.
type BlogConfig struct {
	Bucket string `koanf:"bucket"`
}

// DefaultConfig mirrors the defaults a bare local deployment expects.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Listen:                ListenConfig{Address: "0.0.0.0", Port: 5050},
			Logging:               LoggingConfig{Level: "info", Format: "json"},
			RequestTimeoutSeconds: 10,
		},
		API: APIConfig{
			ServiceName: "Flask Supabase Backend API",
			Version:     "1.0.0",
			Prefix:      "/api/v1",
		},
		Cache: CacheConfig{
			Backend:     "memory",
			URL:         "redis://localhost:6379/1",
			TTLSeconds:  3600,
			OpTimeoutMs: 250,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Limits:  []string{"60 per minute", "200 per day", "50 per hour"},
		},
		Tasks: TasksConfig{
			URL:   "redis://localhost:6379/0",
			Queue: "tasks",
		},
		Blog: BlogConfig{Bucket: "blog-content"},
	}
}

// Validate rejects configurations the processes cannot safely start with.
func (c Config) Validate() error {
	if c.Server.Listen.Port <= 0 || c.Server.Listen.Port > 65535 {
		return fmt.Errorf("config: listen port %d out of range", c.Server.Listen.Port)
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return errors.New("config: request timeout must be positive")
	}
	switch strings.ToLower(c.Cache.Backend) {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("config: unsupported cache backend %q", c.Cache.Backend)
	}
	if c.Cache.TTLSeconds <= 0 {
		return errors.New("config: cache ttl must be positive")
	}
	if c.RateLimit.Enabled && len(c.RateLimit.Limits) == 0 {
		return errors.New("config: rate limiting enabled with no limits")
	}
	if strings.TrimSpace(c.Tasks.Queue) == "" {
		return errors.New("config: task queue name required")
	}
	if c.API.Prefix == "" || !strings.HasPrefix(c.API.Prefix, "/") {
		return fmt.Errorf("config: api prefix %q must start with /", c.API.Prefix)
	}
	return nil
}
