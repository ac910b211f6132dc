// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

// Package config loads Whisperbox settings from defaults, an optional YAML
// file, WHISPERBOX_* environment variables and command-line flags, in that
// order of increasing precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/whisperbox/whisperbox/internal/auth"
	"github.com/whisperbox/whisperbox/internal/logging"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "WHISPERBOX_"

// Mail providers.
const (
	MailProviderResend = "resend"
	MailProviderLog    = "log"
)

// Config is the complete runtime configuration.
type Config struct {
	HTTP      HTTPConfig      `koanf:"http"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Database  DatabaseConfig  `koanf:"database"`
	Session   SessionConfig   `koanf:"session"`
	Log       LogConfig       `koanf:"log"`
	Mail      MailConfig      `koanf:"mail"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
}

// HTTPConfig configures the public listener.
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	Pages           string        `koanf:"pages"`
	Origins         []string      `koanf:"origins"`
	ProxyHeader     string        `koanf:"proxyheader"`
	TrustedProxies  []string      `koanf:"trustedproxies"`
	ReadTimeout     time.Duration `koanf:"readtimeout"`
	WriteTimeout    time.Duration `koanf:"writetimeout"`
	ShutdownTimeout time.Duration `koanf:"shutdowntimeout"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig configures PostgreSQL access.
type DatabaseConfig struct {
	URL         string `koanf:"url"`
	MaxConns    int32  `koanf:"maxconns"`
	AutoMigrate bool   `koanf:"automigrate"`
}

// SessionConfig configures session tokens.
type SessionConfig struct {
	Secret string        `koanf:"secret"`
	TTL    time.Duration `koanf:"ttl"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// MailConfig selects and configures the verification email sender.
type MailConfig struct {
	Provider string `koanf:"provider"`
	APIKey   string `koanf:"apikey"`
	From     string `koanf:"from"`
}

// RateLimitConfig bounds sign-up and sign-in attempts per client IP.
type RateLimitConfig struct {
	Max    int           `koanf:"max"`
	Window time.Duration `koanf:"window"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":3000",
			Pages:           "./web",
			Origins:         []string{"*"},
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Database: DatabaseConfig{
			MaxConns: 10,
		},
		Session: SessionConfig{TTL: auth.DefaultSessionTTL},
		Log: LogConfig{
			Format: logging.FormatJSON,
			Level:  "info",
		},
		Mail: MailConfig{Provider: MailProviderLog},
		RateLimit: RateLimitConfig{
			Max:    10,
			Window: time.Minute,
		},
	}
}

// RegisterFlags defines one flag per setting on fs. Flag names are config
// keys with dots replaced by dashes.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("http-addr", d.HTTP.Addr, "public HTTP listen address")
	fs.String("http-pages", d.HTTP.Pages, "directory of static pages served behind the access gate")
	fs.StringSlice("http-origins", d.HTTP.Origins, "allowed CORS origins")
	fs.String("http-proxyheader", d.HTTP.ProxyHeader, "header carrying the client IP behind a reverse proxy, e.g. X-Forwarded-For")
	fs.StringSlice("http-trustedproxies", d.HTTP.TrustedProxies, "proxy addresses or CIDRs allowed to set the proxy header (empty = any)")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("database-url", d.Database.URL, "PostgreSQL connection URL (default: $DATABASE_URL)")
	fs.Int32("database-maxconns", d.Database.MaxConns, "maximum pooled database connections")
	fs.Bool("database-automigrate", d.Database.AutoMigrate, "apply pending migrations on startup")
	fs.Duration("session-ttl", d.Session.TTL, "session token lifetime")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("mail-provider", d.Mail.Provider, "verification email provider (resend or log)")
	fs.String("mail-from", d.Mail.From, "verification email sender address")
}

// Load layers the sources and returns the merged configuration. path may be
// empty; flags may be nil. The result is not validated.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "file").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "."), posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "unmarshal").Wrap(err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	return &cfg, nil
}

// envValue maps WHISPERBOX_MAIL_APIKEY to mail.apikey. List settings are
// comma separated.
func envValue(name, value string) (string, any) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "_", ".")
	switch key {
	case "http.origins", "http.trustedproxies":
		return key, strings.Split(value, ",")
	}
	return key, value
}

// Validate checks the settings needed to serve.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").With("key", "database.url").
			Errorf("database url is required (set %sDATABASE_URL or DATABASE_URL)", EnvPrefix)
	}
	if len(c.Session.Secret) < auth.MinSecretLength {
		return oops.Code("CONFIG_INVALID").With("key", "session.secret").
			Errorf("session secret must be at least %d bytes", auth.MinSecretLength)
	}
	if c.Session.TTL <= 0 {
		return oops.Code("CONFIG_INVALID").With("key", "session.ttl").Errorf("session ttl must be positive")
	}
	if c.Log.Format != logging.FormatJSON && c.Log.Format != logging.FormatText {
		return oops.Code("CONFIG_INVALID").With("key", "log.format").
			Errorf("log format must be %q or %q, got %q", logging.FormatJSON, logging.FormatText, c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "log.level").Wrap(err)
	}
	switch c.Mail.Provider {
	case MailProviderLog:
	case MailProviderResend:
		if c.Mail.APIKey == "" {
			return oops.Code("CONFIG_INVALID").With("key", "mail.apikey").
				Errorf("mail api key is required for the %s provider", MailProviderResend)
		}
	default:
		return oops.Code("CONFIG_INVALID").With("key", "mail.provider").
			Errorf("mail provider must be %q or %q, got %q", MailProviderResend, MailProviderLog, c.Mail.Provider)
	}
	if c.HTTP.Addr == "" {
		return oops.Code("CONFIG_INVALID").With("key", "http.addr").Errorf("http address is required")
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return oops.Code("CONFIG_INVALID").With("key", "ratelimit").Errorf("rate limit max and window must be positive")
	}
	return nil
}
