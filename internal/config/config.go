package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

const devSigningSecret = "dev-secret-change-in-production-min-32-chars"

type Config struct {
	Server   ServerConfig       `mapstructure:"server"`
	Database DatabaseConfig     `mapstructure:"database"`
	Catalog  CatalogConfig      `mapstructure:"catalog"`
	Limits   types.SystemLimits `mapstructure:"limits"`
	Pricing  PricingConfig      `mapstructure:"pricing"`
	Sessions SessionsConfig     `mapstructure:"sessions"`
	Quotes   QuotesConfig       `mapstructure:"quotes"`
}

type ServerConfig struct {
	GRPCPort        int           `mapstructure:"grpc_port"`
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig: quotes go to Postgres when Enabled, to memory otherwise.
type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type CatalogConfig struct {
	SearchPaths        []string          `mapstructure:"search_paths"`
	Watch              bool              `mapstructure:"watch"`
	DefaultQuantityMax int               `mapstructure:"default_quantity_max"`
	Markups            MarkupConfig      `mapstructure:"markups"`
	SlugMap            map[string]string `mapstructure:"slug_map"`
}

// MarkupConfig holds decimal multipliers as strings ("1.15").
type MarkupConfig struct {
	Retail    string `mapstructure:"retail"`
	Office    string `mapstructure:"office"`
	Warehouse string `mapstructure:"warehouse"`
}

type PricingConfig struct {
	BasePrice map[string]string `mapstructure:"base_price"`
}

type SessionsConfig struct {
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SweepSchedule string        `mapstructure:"sweep_schedule"`
}

type QuotesConfig struct {
	SigningSecretEnv string        `mapstructure:"signing_secret_env"`
	TokenTTL         time.Duration `mapstructure:"token_ttl"`
}

// Load reads the YAML file at path (optional when empty) and overlays
// ALARMCFG_* environment variables, e.g. ALARMCFG_SERVER_HTTP_PORT.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Environment Variables mit Prefix ALARMCFG_
	v.SetEnvPrefix("ALARMCFG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "alarmcfg")
	v.SetDefault("database.user", "alarmcfg")
	v.SetDefault("database.max_connections", 10)

	v.SetDefault("catalog.search_paths", []string{"./catalog"})
	v.SetDefault("catalog.watch", true)
	v.SetDefault("catalog.default_quantity_max", 10)
	v.SetDefault("catalog.markups.retail", "1.15")
	v.SetDefault("catalog.markups.office", "1.15")
	v.SetDefault("catalog.markups.warehouse", "1.30")

	v.SetDefault("limits.max_input_zones", 16)
	v.SetDefault("limits.input_zone_soft_threshold", 8)
	v.SetDefault("limits.max_power_milliamps", 1000)
	v.SetDefault("limits.max_keypads", 4)
	v.SetDefault("limits.max_touchscreens", 2)
	v.SetDefault("limits.touchscreen_soft_threshold", 1)

	v.SetDefault("pricing.base_price", map[string]string{"residential": "1295"})

	v.SetDefault("sessions.idle_timeout", "30m")
	v.SetDefault("sessions.sweep_schedule", "@every 1m")

	v.SetDefault("quotes.signing_secret_env", "QUOTE_SIGNING_SECRET")
	v.SetDefault("quotes.token_ttl", "72h")
}

// Validate rejects limits the rules engine cannot work with.
func (c *Config) Validate() error {
	l := c.Limits
	if l.MaxInputZones <= 0 || l.MaxPowerMilliAmps <= 0 || l.MaxKeypads <= 0 || l.MaxTouchscreens < 0 {
		return fmt.Errorf("invalid limits: %+v", l)
	}
	if l.InputZoneSoftThreshold < 0 || l.InputZoneSoftThreshold > l.MaxInputZones {
		return fmt.Errorf("input zone soft threshold %d must be within 0..%d",
			l.InputZoneSoftThreshold, l.MaxInputZones)
	}
	if l.TouchscreenSoftThreshold < 0 {
		return fmt.Errorf("touchscreen soft threshold must not be negative")
	}
	if len(c.Catalog.SearchPaths) == 0 {
		return fmt.Errorf("catalog.search_paths must not be empty")
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// SigningSecret loads the quote token secret from its environment variable.
func (q *QuotesConfig) SigningSecret() string {
	envVar := q.SigningSecretEnv
	if envVar == "" {
		envVar = "QUOTE_SIGNING_SECRET"
	}

	secret := os.Getenv(envVar)
	if secret == "" {
		// Development Fallback
		return devSigningSecret
	}
	return secret
}

func (q *QuotesConfig) IsProductionReady() bool {
	secret := q.SigningSecret()
	return secret != devSigningSecret && len(secret) >= 32
}
