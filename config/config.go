package config

import (
	"errors"
	"strings"
	"time"

	"lipa/internal/domain"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Mpesa     MpesaConfig     `mapstructure:"mpesa"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Env             string        `mapstructure:"env"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// StoreConfig selects the intent store backend: memory, bolt or mysql.
type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	BoltPath string `mapstructure:"bolt_path"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// JWTConfig guards the payment-intent endpoints. An empty AccessSecret
// leaves them open.
type JWTConfig struct {
	AccessSecret string        `mapstructure:"access_secret"`
	AccessExpiry time.Duration `mapstructure:"access_expiry"`
	Issuer       string        `mapstructure:"issuer"`
}

// MpesaConfig for STK push. Provider is "stub" or "daraja".
type MpesaConfig struct {
	Provider        string        `mapstructure:"provider"`
	BaseURL         string        `mapstructure:"base_url"`
	ConsumerKey     string        `mapstructure:"consumer_key"`
	ConsumerSecret  string        `mapstructure:"consumer_secret"`
	ShortCode       string        `mapstructure:"short_code"`
	PassKey         string        `mapstructure:"pass_key"`
	PartyB          string        `mapstructure:"party_b"`
	TransactionType string        `mapstructure:"transaction_type"`
	Timeout         time.Duration `mapstructure:"timeout"`
	InitiateTimeout time.Duration `mapstructure:"initiate_timeout"`
	CallbackBaseURL string        `mapstructure:"callback_base_url"` // callback is CallbackBaseURL + /api/v1/webhooks/mpesa
}

type RateLimitConfig struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	IdleTTL           time.Duration `mapstructure:"idle_ttl"`
}

var defaults = map[string]any{
	"server.port":             "8099",
	"server.env":              "development",
	"server.read_timeout":     10 * time.Second,
	"server.write_timeout":    10 * time.Second,
	"server.shutdown_timeout": 10 * time.Second,

	"log.level":  "info",
	"log.format": "json",

	"store.driver":    domain.StoreDriverMemory,
	"store.bolt_path": "lipa.db",

	"database.dsn":               "",
	"database.max_idle_conns":    10,
	"database.max_open_conns":    100,
	"database.conn_max_lifetime": time.Hour,

	"jwt.access_secret": "",
	"jwt.access_expiry": 15 * time.Minute,
	"jwt.issuer":        "lipa",

	"mpesa.provider":          domain.ProviderStub,
	"mpesa.base_url":          "https://sandbox.safaricom.co.ke",
	"mpesa.consumer_key":      "",
	"mpesa.consumer_secret":   "",
	"mpesa.short_code":        "174379",
	"mpesa.pass_key":          "",
	"mpesa.party_b":           "",
	"mpesa.transaction_type":  domain.TransactionTypePayBill,
	"mpesa.timeout":           30 * time.Second,
	"mpesa.initiate_timeout":  45 * time.Second,
	"mpesa.callback_base_url": "http://localhost:8099",

	"rate_limit.requests_per_second": 10.0,
	"rate_limit.burst":               20,
	"rate_limit.idle_ttl":            5 * time.Minute,
}

// Load reads configuration from defaults, the optional YAML file at path and
// LIPA_-prefixed environment variables, in increasing precedence
// (mpesa.consumer_key is LIPA_MPESA_CONSUMER_KEY).
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix("LIPA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case domain.StoreDriverMemory, domain.StoreDriverBolt:
	case domain.StoreDriverMySQL:
		if c.Database.DSN == "" {
			return errors.New("config: store.driver mysql needs database.dsn")
		}
	default:
		return errors.New("config: unknown store.driver " + c.Store.Driver)
	}
	switch c.Mpesa.Provider {
	case domain.ProviderStub:
	case domain.ProviderDaraja:
		if c.Mpesa.ConsumerKey == "" || c.Mpesa.ConsumerSecret == "" || c.Mpesa.PassKey == "" {
			return errors.New("config: mpesa provider daraja needs consumer_key, consumer_secret and pass_key")
		}
	default:
		return errors.New("config: unknown mpesa.provider " + c.Mpesa.Provider)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}
