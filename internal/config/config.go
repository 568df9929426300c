// Package config loads the service configuration.
//
// SOURCES, LOWEST PRIORITY FIRST:
//  1. Defaults set in Load
//  2. An optional YAML file (CONFIG_FILE, or the path passed to Load)
//  3. Environment variables: USERS_SERVER_PORT, USERS_DB_PATH, ... plus the
//     short legacy names PORT, DB_PATH and JWT_SECRET
//
// A ".env" file in the working directory is read into the environment first,
// so local development can keep secrets out of the shell history.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "USERS"

type Server struct {
	Port int
}

type DB struct {
	Path string
}

type Log struct {
	Level  string // debug | info | warn | error
	Format string // text | json
}

// Auth configures login tokens and password hashing.
// An empty JWTSecret disables login and the authenticated delete route.
type Auth struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

type Users struct {
	TrialPeriod time.Duration
}

type Config struct {
	Server Server
	DB     DB
	Log    Log
	Auth   Auth
	Users  Users
}

// Load reads the configuration. path may be empty, in which case no file is
// read and only defaults and the environment apply.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("db.path", "data/users.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 15*time.Minute)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("users.trial_period", 14*24*time.Hour)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// legacy names, checked after the prefixed ones
	legacy := map[string]string{
		"server.port":     "PORT",
		"db.path":         "DB_PATH",
		"auth.jwt_secret": "JWT_SECRET",
	}
	for key, env := range legacy {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Server: Server{Port: v.GetInt("server.port")},
		DB:     DB{Path: v.GetString("db.path")},
		Log: Log{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		Auth: Auth{
			JWTSecret:  v.GetString("auth.jwt_secret"),
			TokenTTL:   v.GetDuration("auth.token_ttl"),
			BcryptCost: v.GetInt("auth.bcrypt_cost"),
		},
		Users: Users{TrialPeriod: v.GetDuration("users.trial_period")},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.DB.Path == "" {
		errs = append(errs, errors.New("db.path is required"))
	}
	if _, ok := levels[c.Log.Level]; !ok {
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 16 characters"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Users.TrialPeriod <= 0 {
		errs = append(errs, errors.New("users.trial_period must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// AuthEnabled reports whether a JWT secret is configured.
func (c *Config) AuthEnabled() bool {
	return c.Auth.JWTSecret != ""
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// NewLogger builds the process logger described by l.
func (l Log) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levels[l.Level]}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
