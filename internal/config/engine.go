package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "ENGINE"

type EngineConfig struct {
	LogLevel  string
	LogFormat string

	HasHeader           bool
	OverdraftProtection bool

	ListenAddr      string
	JWTSecret       string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// ServeEnabled reports whether the snapshot server should start after replay.
func (c *EngineConfig) ServeEnabled() bool {
	return c.ListenAddr != ""
}

// RegisterFlags declares the CLI flags that override configuration keys.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "optional config file (yaml, json, toml or .env)")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.String("log-format", "", "log encoding: json or console")
	fs.Bool("no-header", false, "input has no header row")
	fs.Bool("overdraft-protection", false, "reject withdrawals larger than the available balance")
	fs.String("listen", "", "serve the final snapshot over HTTP on this address")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("input.has_header", true)
	v.SetDefault("ledger.overdraft_protection", false)
	v.SetDefault("http.listen_addr", "")
	v.SetDefault("http.jwt_secret", "")
	v.SetDefault("http.allowed_origins", []string{})
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("log.level", "ENGINE_LOG_LEVEL")
	v.BindEnv("log.format", "ENGINE_LOG_FORMAT")
	v.BindEnv("input.has_header", "ENGINE_INPUT_HAS_HEADER")
	v.BindEnv("ledger.overdraft_protection", "ENGINE_OVERDRAFT_PROTECTION")
	v.BindEnv("http.listen_addr", "ENGINE_HTTP_LISTEN_ADDR")
	v.BindEnv("http.jwt_secret", "ENGINE_HTTP_JWT_SECRET")
	v.BindEnv("http.allowed_origins", "ENGINE_HTTP_ALLOWED_ORIGINS")
	v.BindEnv("http.shutdown_timeout", "ENGINE_HTTP_SHUTDOWN_TIMEOUT")
}

// bindFlags maps explicitly set flags onto their configuration keys. Flags
// left at their zero value do not shadow env or file settings.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	if fs == nil {
		return
	}
	for flagName, key := range map[string]string{
		"log-level":            "log.level",
		"log-format":           "log.format",
		"overdraft-protection": "ledger.overdraft_protection",
		"listen":               "http.listen_addr",
	} {
		if f := fs.Lookup(flagName); f != nil && f.Changed {
			v.BindPFlag(key, f)
		}
	}
	if f := fs.Lookup("no-header"); f != nil && f.Changed {
		noHeader, _ := fs.GetBool("no-header")
		v.Set("input.has_header", !noHeader)
	}
}

// LoadEngineConfig resolves configuration from defaults, an optional config
// file, ENGINE_* environment variables and flags, in increasing precedence.
func LoadEngineConfig(v *viper.Viper, fs *pflag.FlagSet) (*EngineConfig, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)
	bindEnv(v)

	if fs != nil {
		if path, _ := fs.GetString("config"); path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}
	bindFlags(v, fs)

	cfg := &EngineConfig{
		LogLevel:            v.GetString("log.level"),
		LogFormat:           v.GetString("log.format"),
		HasHeader:           v.GetBool("input.has_header"),
		OverdraftProtection: v.GetBool("ledger.overdraft_protection"),
		ListenAddr:          v.GetString("http.listen_addr"),
		JWTSecret:           v.GetString("http.jwt_secret"),
		AllowedOrigins:      v.GetStringSlice("http.allowed_origins"),
		ShutdownTimeout:     v.GetDuration("http.shutdown_timeout"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *EngineConfig) validate() error {
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q, must be 'json' or 'console'", c.LogFormat)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("http shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}
