// Package config loads agent and decision server settings from defaults,
// an optional config file, PROXY_* environment variables and flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. PROXY_SERVER_HOST.
const EnvPrefix = "PROXY"

// Config holds all agent and decision server configuration.
type Config struct {
	// Decision server endpoint
	ServerHost          string `mapstructure:"server_host"`
	BasePort            int    `mapstructure:"base_port"`
	UseSamePort         bool   `mapstructure:"use_same_port"`
	AddPortForRightSide bool   `mapstructure:"add_port_for_right_side"`
	Transport           string `mapstructure:"transport"`
	WSPath              string `mapstructure:"ws_path"`

	// Deadlines
	ActionsTimeout     time.Duration `mapstructure:"actions_timeout"`
	ArbitrationTimeout time.Duration `mapstructure:"arbitration_timeout"`
	ReconnectBackoff   time.Duration `mapstructure:"reconnect_backoff"`

	// Planner
	MaxDepth                int  `mapstructure:"max_depth"`
	MaxNodes                int  `mapstructure:"max_nodes"`
	CurveFirstLayer         bool `mapstructure:"curve_first_layer"`
	SecondaryOnShortCircuit bool `mapstructure:"secondary_on_short_circuit"`

	// Agent identity
	TeamName string `mapstructure:"team_name"`
	Unum     int    `mapstructure:"unum"`
	Goalie   bool   `mapstructure:"goalie"`
	Side     string `mapstructure:"side"`
	Cycles   int    `mapstructure:"cycles"`

	// Auth
	AuthSecret string        `mapstructure:"auth_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`

	// Sinks and stores
	JournalDSN string `mapstructure:"journal_dsn"`
	RedisURL   string `mapstructure:"redis_url"`
	TraceDir   string `mapstructure:"trace_dir"`
	ValueModel string `mapstructure:"value_model"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
}

// Default returns a config with sensible defaults.
func Default() *Config {
	return &Config{
		ServerHost:         "localhost",
		BasePort:           50051,
		UseSamePort:        true,
		Transport:          "grpc",
		WSPath:             "/ws",
		ActionsTimeout:     3 * time.Second,
		ArbitrationTimeout: 3 * time.Second,
		ReconnectBackoff:   time.Second,
		MaxDepth:           4,
		MaxNodes:           500,
		TeamName:           "proxy",
		Unum:               1,
		Side:               "left",
		Cycles:             6000,
		AuthSecret:         "dev-secret-change-me",
		TokenTTL:           15 * time.Minute,
		JournalDSN:         "sqlite://journal.db",
		LogLevel:           "info",
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ServerHost == "" {
		return fmt.Errorf("server_host is required")
	}
	if c.BasePort <= 0 || c.BasePort > 65535-40 {
		return fmt.Errorf("base_port %d out of range", c.BasePort)
	}
	switch c.Transport {
	case "grpc", "websocket":
	default:
		return fmt.Errorf("transport must be grpc or websocket, got %q", c.Transport)
	}
	if c.ActionsTimeout <= 0 || c.ArbitrationTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.ReconnectBackoff <= 0 {
		return fmt.Errorf("reconnect_backoff must be positive")
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be at least 1")
	}
	if c.MaxNodes < 1 {
		return fmt.Errorf("max_nodes must be at least 1")
	}
	if c.TeamName == "" {
		return fmt.Errorf("team_name is required")
	}
	if c.Unum < 1 || c.Unum > 11 {
		return fmt.Errorf("unum must be 1..11, got %d", c.Unum)
	}
	if c.Side != "left" && c.Side != "right" {
		return fmt.Errorf("side must be left or right, got %q", c.Side)
	}
	return nil
}

// Bind registers every default with v and enables PROXY_* environment
// overrides. Keys bound this way resolve even when no flag or file sets them.
func Bind(v *viper.Viper) {
	d := Default()
	for k, val := range map[string]any{
		"server_host":                d.ServerHost,
		"base_port":                  d.BasePort,
		"use_same_port":              d.UseSamePort,
		"add_port_for_right_side":    d.AddPortForRightSide,
		"transport":                  d.Transport,
		"ws_path":                    d.WSPath,
		"actions_timeout":            d.ActionsTimeout,
		"arbitration_timeout":        d.ArbitrationTimeout,
		"reconnect_backoff":          d.ReconnectBackoff,
		"max_depth":                  d.MaxDepth,
		"max_nodes":                  d.MaxNodes,
		"curve_first_layer":          d.CurveFirstLayer,
		"secondary_on_short_circuit": d.SecondaryOnShortCircuit,
		"team_name":                  d.TeamName,
		"unum":                       d.Unum,
		"goalie":                     d.Goalie,
		"side":                       d.Side,
		"cycles":                     d.Cycles,
		"auth_secret":                d.AuthSecret,
		"token_ttl":                  d.TokenTTL,
		"journal_dsn":                d.JournalDSN,
		"redis_url":                  d.RedisURL,
		"trace_dir":                  d.TraceDir,
		"value_model":                d.ValueModel,
		"log_level":                  d.LogLevel,
	} {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// BindFlags binds every flag in fs to the config key of the same name with
// dashes turned into underscores, so --base-port sets base_port.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err == nil {
			err = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		}
	})
	return err
}

// Load reads an optional config file into v and decodes the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	Bind(v)
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
