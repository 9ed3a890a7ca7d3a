package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/example/gymbook/internal/domain/booking"
)

type Config struct {
	// portal
	PortalURL      string        `mapstructure:"portal_url"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// booking
	ClubID     int    `mapstructure:"club_id"`
	Weekdays   string `mapstructure:"weekdays"`
	TargetTime string `mapstructure:"target_time"`
	Studio     string `mapstructure:"studio"`
	DaysAhead  int    `mapstructure:"days_ahead"`
	Timezone   string `mapstructure:"timezone"`

	// scheduler
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	DayOffset  time.Duration `mapstructure:"day_offset"`

	// status server
	ListenAddr        string `mapstructure:"listen_addr"`
	AdminUsername     string `mapstructure:"admin_username"`
	AdminPasswordHash string `mapstructure:"admin_password_hash"`
	CookieHashKey     string `mapstructure:"cookie_hash_key"`
	CookieBlockKey    string `mapstructure:"cookie_block_key"`

	// optional sinks
	DatabaseURL  string `mapstructure:"database_url"`
	AMQPURL      string `mapstructure:"amqp_url"`
	AMQPExchange string `mapstructure:"amqp_exchange"`

	KeepaliveURL      string        `mapstructure:"keepalive_url"`
	KeepaliveInterval time.Duration `mapstructure:"keepalive_interval"`
}

// ValidationError describes one bad configuration value.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s value '%v': %s", e.Field, e.Value, e.Message)
}

const EnvPrefix = "GYMBOOK"

func setDefaults(v *viper.Viper) {
	v.SetDefault("portal_url", "https://www.goodlifefitness.com")
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("request_timeout", 30*time.Second)

	v.SetDefault("club_id", 268) // Richmond and John
	v.SetDefault("weekdays", "1,2,4,5")
	v.SetDefault("target_time", "7:30AM")
	v.SetDefault("studio", "Gym Floor")
	v.SetDefault("days_ahead", 7)
	v.SetDefault("timezone", "")

	v.SetDefault("max_retries", 5)
	v.SetDefault("retry_delay", time.Minute)
	v.SetDefault("day_offset", 30*time.Second)

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("admin_username", "admin")
	v.SetDefault("admin_password_hash", "")
	v.SetDefault("cookie_hash_key", "")
	v.SetDefault("cookie_block_key", "")

	v.SetDefault("database_url", "")
	v.SetDefault("amqp_url", "")
	v.SetDefault("amqp_exchange", "gymbook.events")

	v.SetDefault("keepalive_url", "")
	v.SetDefault("keepalive_interval", 20*time.Minute)
}

// New returns a viper instance with defaults and environment bindings.
// GYMBOOK_<KEY> overrides every key; the credentials also honour the
// BANKY_USERNAME and BANKY_PASSWORD names used by older deployments.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("username", EnvPrefix+"_USERNAME", "BANKY_USERNAME")
	_ = v.BindEnv("password", EnvPrefix+"_PASSWORD", "BANKY_PASSWORD")
	_ = v.BindEnv("database_url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	return v
}

// Load reads configFile (when non-empty) on top of defaults and env, then
// unmarshals and validates.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ClubID <= 0 {
		return ValidationError{Field: "club_id", Value: c.ClubID, Message: "must be positive"}
	}
	if _, err := booking.ParseWeekdays(c.Weekdays); err != nil {
		return ValidationError{Field: "weekdays", Value: c.Weekdays, Message: err.Error()}
	}
	if strings.TrimSpace(c.TargetTime) == "" {
		return ValidationError{Field: "target_time", Value: c.TargetTime, Message: "required"}
	}
	if c.DaysAhead <= 0 {
		return ValidationError{Field: "days_ahead", Value: c.DaysAhead, Message: "must be positive"}
	}
	if c.MaxRetries < 0 {
		return ValidationError{Field: "max_retries", Value: c.MaxRetries, Message: "must not be negative"}
	}
	if c.RetryDelay <= 0 {
		return ValidationError{Field: "retry_delay", Value: c.RetryDelay, Message: "must be positive"}
	}
	if c.DayOffset < 0 || c.DayOffset >= 24*time.Hour {
		return ValidationError{Field: "day_offset", Value: c.DayOffset, Message: "must be within [0, 24h)"}
	}
	if c.RequestTimeout <= 0 {
		return ValidationError{Field: "request_timeout", Value: c.RequestTimeout, Message: "must be positive"}
	}
	if _, err := c.Location(); err != nil {
		return ValidationError{Field: "timezone", Value: c.Timezone, Message: err.Error()}
	}
	if c.KeepaliveURL != "" && c.KeepaliveInterval <= 0 {
		return ValidationError{Field: "keepalive_interval", Value: c.KeepaliveInterval, Message: "must be positive"}
	}
	for field, val := range map[string]string{"cookie_hash_key": c.CookieHashKey, "cookie_block_key": c.CookieBlockKey} {
		if val == "" {
			continue
		}
		if _, err := decodeB64(val); err != nil {
			return ValidationError{Field: field, Value: "<redacted>", Message: err.Error()}
		}
	}
	return nil
}

// RequireCredentials is checked by commands that talk to the portal.
func (c Config) RequireCredentials() error {
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("portal credentials are required (%s_USERNAME/%s_PASSWORD or BANKY_USERNAME/BANKY_PASSWORD)", EnvPrefix, EnvPrefix)
	}
	return nil
}

func (c Config) ParsedWeekdays() booking.Weekdays {
	w, _ := booking.ParseWeekdays(c.Weekdays)
	return w
}

// Location resolves Timezone; empty means the process's local zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// CookieKeys decodes the session keys. Empty keys yield nil, and the caller
// generates per-process keys.
func (c Config) CookieKeys() (hashKey, blockKey []byte, err error) {
	if c.CookieHashKey != "" {
		if hashKey, err = decodeB64(c.CookieHashKey); err != nil {
			return nil, nil, fmt.Errorf("cookie_hash_key: %w", err)
		}
	}
	if c.CookieBlockKey != "" {
		if blockKey, err = decodeB64(c.CookieBlockKey); err != nil {
			return nil, nil, fmt.Errorf("cookie_block_key: %w", err)
		}
	}
	return hashKey, blockKey, nil
}

// decodeB64 accepts a literal value or a path to a file holding it, for
// secret mounts.
func decodeB64(s string) ([]byte, error) {
	if b, err := os.ReadFile(s); err == nil {
		s = string(b)
	}
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
