// Package config, servis ayarlarını yükler: önce varsayılanlar, sonra dosya, sonra ortam değişkenleri.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")
)

// Shipping fee policies.
const (
	FeeCashOnDeliveryOnly = "cod_only"
	FeeWheneverNonEmpty   = "non_empty"
)

// Storage drivers.
const (
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Config, tüm servis ayarları.
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	CMS      CMSConfig      `json:"cms" yaml:"cms"`
	Storage  StorageConfig  `json:"storage" yaml:"storage"`
	Shop     ShopConfig     `json:"shop" yaml:"shop"`
	Mail     MailConfig     `json:"mail" yaml:"mail"`
	Log      LogConfig      `json:"log" yaml:"log"`
	Security SecurityConfig `json:"security" yaml:"security"`
}

type ServerConfig struct {
	Port           int      `json:"port" yaml:"port"`
	Mode           string   `json:"mode" yaml:"mode"`
	TrustedProxies []string `json:"trusted_proxies" yaml:"trusted_proxies"`
	TLSPort        int      `json:"tls_port" yaml:"tls_port"`
	TLSSelfSigned  bool     `json:"tls_self_signed" yaml:"tls_self_signed"`
	TLSCertFile    string   `json:"tls_cert_file" yaml:"tls_cert_file"`
	TLSKeyFile     string   `json:"tls_key_file" yaml:"tls_key_file"`
	CookieSecure   bool     `json:"cookie_secure" yaml:"cookie_secure"`
	// Bellekte tutulan ziyaretçi profilleri için sınırlar.
	VisitorIdleTTL time.Duration `json:"visitor_idle_ttl" yaml:"visitor_idle_ttl"`
	MaxVisitors    int           `json:"max_visitors" yaml:"max_visitors"`
}

type CMSConfig struct {
	BaseURL  string        `json:"base_url" yaml:"base_url"`
	APIToken string        `json:"api_token" yaml:"api_token"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
}

type StorageConfig struct {
	Driver    string        `json:"driver" yaml:"driver"`
	FilePath  string        `json:"file_path" yaml:"file_path"`
	RedisURL  string        `json:"redis_url" yaml:"redis_url"`
	Namespace string        `json:"namespace" yaml:"namespace"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
}

type ShopConfig struct {
	ShippingFee     decimal.Decimal `json:"shipping_fee" yaml:"-"`
	FeePolicy       string          `json:"fee_policy" yaml:"fee_policy"`
	Currency        string          `json:"currency" yaml:"currency"`
	AdminRole       string          `json:"admin_role" yaml:"admin_role"`
	DefaultLanguage string          `json:"default_language" yaml:"default_language"`
}

type MailConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	From     string `json:"from" yaml:"from"`
}

// Enabled, SMTP bilgileri tamamsa true döner.
func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.User != "" && m.Password != ""
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

type SecurityConfig struct {
	LogFile string `json:"log_file" yaml:"log_file"`
}

// Option, Config üzerinde değişiklik yapar.
type Option func(*Config) error

// Default, geliştirme ortamı için makul varsayılanları döndürür.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8082,
			Mode:           "release",
			TrustedProxies: []string{"127.0.0.1", "::1"},
			TLSPort:        8443,
			VisitorIdleTTL: 30 * time.Minute,
			MaxVisitors:    10000,
		},
		CMS: CMSConfig{
			BaseURL: "http://localhost:1337",
			Timeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Driver:    StorageFile,
			FilePath:  "./data.json",
			Namespace: "drog",
			Timeout:   2 * time.Second,
		},
		Shop: ShopConfig{
			ShippingFee:     decimal.NewFromInt(50),
			FeePolicy:       FeeCashOnDeliveryOnly,
			Currency:        "EGP",
			AdminRole:       "admin",
			DefaultLanguage: "ar",
		},
		Mail: MailConfig{
			Port: 587,
			From: "noreply@drog.shop",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Security: SecurityConfig{
			LogFile: "security.log",
		},
	}
}

// yamlShop, decimal alanını yaml'dan okuyabilmek için kullanılır.
type yamlShop struct {
	ShippingFee *string `yaml:"shipping_fee"`
}

type yamlDoc struct {
	Shop yamlShop `yaml:"shop"`
}

// LoadFromFile, .yaml/.yml/.json uzantılı dosyadan ayarları okur.
// Dosyada olmayan alanlar olduğu gibi kalır.
func (c *Config) LoadFromFile(path string) error {
	clean := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(clean))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config file extension %q: %w", ext, ErrInvalidConfiguration)
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", clean, err)
	}

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse JSON config: %v: %w", err, ErrInvalidConfiguration)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse YAML config: %v: %w", err, ErrInvalidConfiguration)
		}
		var doc yamlDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse YAML config: %v: %w", err, ErrInvalidConfiguration)
		}
		if doc.Shop.ShippingFee != nil {
			fee, err := decimal.NewFromString(*doc.Shop.ShippingFee)
			if err != nil {
				return fmt.Errorf("shop.shipping_fee: %v: %w", err, ErrInvalidConfiguration)
			}
			c.Shop.ShippingFee = fee
		}
	}
	return nil
}

// LoadFromEnv, DROG_* ortam değişkenlerini uygular. PORT (Render vb.) de okunur.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT=%q: %w", v, ErrInvalidConfiguration)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("DROG_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DROG_PORT=%q: %w", v, ErrInvalidConfiguration)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("DROG_MODE"); v != "" {
		c.Server.Mode = v
	}
	if v := os.Getenv("DROG_TLS_SELF_SIGNED"); v != "" {
		c.Server.TLSSelfSigned = parseBool(v)
	}
	if v := os.Getenv("DROG_TLS_CERT_FILE"); v != "" {
		c.Server.TLSCertFile = v
	}
	if v := os.Getenv("DROG_TLS_KEY_FILE"); v != "" {
		c.Server.TLSKeyFile = v
	}
	if v := os.Getenv("DROG_COOKIE_SECURE"); v != "" {
		c.Server.CookieSecure = parseBool(v)
	}
	if v := os.Getenv("DROG_VISITOR_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DROG_VISITOR_TTL=%q: %w", v, ErrInvalidConfiguration)
		}
		c.Server.VisitorIdleTTL = d
	}
	if v := os.Getenv("DROG_MAX_VISITORS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DROG_MAX_VISITORS=%q: %w", v, ErrInvalidConfiguration)
		}
		c.Server.MaxVisitors = n
	}

	if v := os.Getenv("DROG_CMS_URL"); v != "" {
		c.CMS.BaseURL = v
	}
	if v := os.Getenv("DROG_CMS_TOKEN"); v != "" {
		c.CMS.APIToken = v
	}
	if v := os.Getenv("DROG_CMS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DROG_CMS_TIMEOUT=%q: %w", v, ErrInvalidConfiguration)
		}
		c.CMS.Timeout = d
	}

	if v := os.Getenv("DROG_STORAGE"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("DROG_STORAGE_FILE"); v != "" {
		c.Storage.FilePath = v
	}
	if v := os.Getenv("DROG_REDIS_URL"); v != "" {
		c.Storage.RedisURL = v
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.Storage.RedisURL = v
	}

	if v := os.Getenv("DROG_SHIPPING_FEE"); v != "" {
		fee, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("DROG_SHIPPING_FEE=%q: %w", v, ErrInvalidConfiguration)
		}
		c.Shop.ShippingFee = fee
	}
	if v := os.Getenv("DROG_FEE_POLICY"); v != "" {
		c.Shop.FeePolicy = v
	}
	if v := os.Getenv("DROG_ADMIN_ROLE"); v != "" {
		c.Shop.AdminRole = v
	}
	if v := os.Getenv("DROG_LANGUAGE"); v != "" {
		c.Shop.DefaultLanguage = v
	}

	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.Mail.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SMTP_PORT=%q: %w", v, ErrInvalidConfiguration)
		}
		c.Mail.Port = port
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		c.Mail.User = v
	}
	if v := os.Getenv("SMTP_PASS"); v != "" {
		c.Mail.Password = v
	}
	if v := os.Getenv("SMTP_FROM"); v != "" {
		c.Mail.From = v
	}

	if v := os.Getenv("DROG_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("DROG_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("DROG_SECURITY_LOG"); v != "" {
		c.Security.LogFile = v
	}
	return nil
}

// Validate, ayarların tutarlılığını kontrol eder.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d: %w", c.Server.Port, ErrInvalidConfiguration)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown server mode %q: %w", c.Server.Mode, ErrInvalidConfiguration)
	}
	if c.CMS.BaseURL == "" {
		return fmt.Errorf("cms base url is required: %w", ErrMissingConfiguration)
	}
	switch c.Storage.Driver {
	case StorageFile:
		if c.Storage.FilePath == "" {
			return fmt.Errorf("storage file path is required: %w", ErrMissingConfiguration)
		}
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("redis url is required for redis storage: %w", ErrMissingConfiguration)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage driver %q: %w", c.Storage.Driver, ErrInvalidConfiguration)
	}
	switch c.Shop.FeePolicy {
	case FeeCashOnDeliveryOnly, FeeWheneverNonEmpty:
	default:
		return fmt.Errorf("unknown fee policy %q: %w", c.Shop.FeePolicy, ErrInvalidConfiguration)
	}
	if c.Shop.ShippingFee.IsNegative() {
		return fmt.Errorf("shipping fee must not be negative: %w", ErrInvalidConfiguration)
	}
	if c.Server.TLSCertFile != "" && c.Server.TLSKeyFile == "" {
		return fmt.Errorf("tls key file is required with a cert file: %w", ErrMissingConfiguration)
	}
	return nil
}

// Load, varsayılanlar + dosya (varsa) + ortam + seçenekler sırasıyla yükler ve doğrular.
func Load(path string, opts ...Option) (*Config, error) {
	c := Default()
	if path != "" {
		if err := c.LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := c.LoadFromEnv(); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// WithPort overrides the HTTP port.
func WithPort(port int) Option {
	return func(c *Config) error {
		c.Server.Port = port
		return nil
	}
}

// WithCMS overrides the CMS base URL.
func WithCMS(baseURL string) Option {
	return func(c *Config) error {
		c.CMS.BaseURL = baseURL
		return nil
	}
}

// WithStorage selects the storage driver.
func WithStorage(driver string) Option {
	return func(c *Config) error {
		c.Storage.Driver = driver
		return nil
	}
}

// WithFeePolicy selects the shipping fee policy.
func WithFeePolicy(policy string) Option {
	return func(c *Config) error {
		c.Shop.FeePolicy = policy
		return nil
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
