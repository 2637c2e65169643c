// Package config loads client and server settings from the environment, an optional
// .env file and command-line flags. Flags win over the environment.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// DefaultAppID scopes collection paths when VIVID_APP_ID is unset.
const DefaultAppID = "default-app-id"

// MemoryDSN selects the in-process repositories.
const MemoryDSN = "memory://"

// Server configures cmd/server.
type Server struct {
	Addr         string        `env:"ADDR" envDefault:":8443"`
	DatabaseDSN  string        `env:"DATABASE_DSN" envDefault:"memory://"`
	Secret       string        `env:"SERVER_SECRET"`
	AccessTTL    time.Duration `env:"ACCESS_TTL" envDefault:"1h"`
	TLSCert      string        `env:"TLS_CERT"`
	TLSKey       string        `env:"TLS_KEY"`
	MaxFields    int           `env:"MAX_FIELDS" envDefault:"64"`
	MaxConns     int           `env:"DB_MAX_CONNS" envDefault:"0"`
	AnonWindow   time.Duration `env:"ANON_WINDOW" envDefault:"1h"`
	AnonMax      int           `env:"ANON_MAX" envDefault:"20"`
	TokenMaxFail int           `env:"CUSTOM_TOKEN_MAX_FAILS" envDefault:"5"`
	BlockFor     time.Duration `env:"LIMITER_BLOCK_FOR" envDefault:"15m"`
	Dev          bool          `env:"DEV"`
}

// Plaintext reports whether the server runs without TLS.
func (c *Server) Plaintext() bool { return c.TLSCert == "" && c.TLSKey == "" }

// LoadServer reads .env (if present), the environment, then args.
func LoadServer(args []string) (*Server, error) {
	_ = godotenv.Load()

	cfg := &Server{}
	if err := env.Parse(cfg, env.Options{Environment: nonEmptyEnv()}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	fs := flag.NewFlagSet("vivid-server", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.DatabaseDSN, "dsn", cfg.DatabaseDSN, "PostgreSQL DSN or memory://")
	fs.StringVar(&cfg.Secret, "secret", cfg.Secret, "server secret the signing keys derive from")
	fs.DurationVar(&cfg.AccessTTL, "access-ttl", cfg.AccessTTL, "access token TTL")
	fs.StringVar(&cfg.TLSCert, "tls-cert", cfg.TLSCert, "TLS certificate (PEM)")
	fs.StringVar(&cfg.TLSKey, "tls-key", cfg.TLSKey, "TLS private key (PEM)")
	fs.IntVar(&cfg.MaxFields, "max-fields", cfg.MaxFields, "max fields per document")
	fs.IntVar(&cfg.AnonMax, "anon-max", cfg.AnonMax, "anonymous sign-ins per address per window")
	fs.DurationVar(&cfg.AnonWindow, "anon-window", cfg.AnonWindow, "anonymous sign-in window")
	fs.BoolVar(&cfg.Dev, "dev", cfg.Dev, "development mode: reflection, dev secret, console logs")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Secret == "" {
		if !cfg.Dev {
			return nil, errors.New("config: SERVER_SECRET is required outside dev mode")
		}
		cfg.Secret = "dev-server-secret"
	}
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, errors.New("config: TLS_CERT and TLS_KEY must be set together")
	}
	if cfg.AccessTTL <= 0 || cfg.AnonWindow <= 0 || cfg.BlockFor <= 0 {
		return nil, errors.New("config: durations must be positive")
	}
	if cfg.MaxFields <= 0 || cfg.AnonMax <= 0 || cfg.TokenMaxFail <= 0 {
		return nil, errors.New("config: limits must be positive")
	}
	return cfg, nil
}

// Client configures the CLI. The three VIVID_* values are the host-supplied globals.
type Client struct {
	AppID       string `env:"VIVID_APP_ID" envDefault:"default-app-id"`
	StoreConfig string `env:"VIVID_STORE_CONFIG"`
	AuthToken   string `env:"VIVID_AUTH_TOKEN"`
	SessionFile string `env:"VIVID_SESSION_FILE"`
	Verbose     bool   `env:"VIVID_VERBOSE"`
}

// LoadClient reads .env (if present) and the environment. Flags are bound by the CLI.
func LoadClient() (*Client, error) {
	_ = godotenv.Load()

	cfg := &Client{}
	if err := env.Parse(cfg, env.Options{Environment: nonEmptyEnv()}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.AppID == "" {
		cfg.AppID = DefaultAppID
	}
	if cfg.SessionFile == "" {
		cfg.SessionFile = DefaultSessionFile()
	}
	return cfg, nil
}

// nonEmptyEnv is the process environment without empty values, so that
// ACCESS_TTL= in a .env file falls back to the default instead of zero.
func nonEmptyEnv() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// DefaultSessionFile is session.json under the user config directory.
func DefaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir, _ = os.UserHomeDir()
	}
	return filepath.Join(dir, "forever-vivid", "session.json")
}
