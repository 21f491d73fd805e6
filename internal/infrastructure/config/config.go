package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SYNC_DATABASE_PASSWORD
const EnvPrefix = "SYNC"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Telemetry TelemetryConfig
	Profiling ProfilingConfig
	Webhook   WebhookConfig
	Platforms PlatformsConfig
	Tenants   []TenantConfig
	Archive   ArchiveConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name    string
	Env     string
	Port    string
	Version string
}

// IsProduction reports whether the app runs in production
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	MaxHeaderBytes   int
	TrustedProxies   []string
	// InternalNetworks may call the operational /api/v1 endpoints
	InternalNetworks []string
}

// DefaultInternalNetworks covers loopback and private address ranges
var DefaultInternalNetworks = []string{
	"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "fc00::/7",
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	AutoMigrate     bool
	SlowThreshold   time.Duration
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// RedisConfig holds settings of the applied event cache
type RedisConfig struct {
	Enabled     bool
	Host        string
	Port        int
	Password    string
	DB          int
	KeyPrefix   string
	DialTimeout time.Duration
	// AllowFallback selects the in-memory cache when Redis is unreachable
	AllowFallback bool
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTEL Collector gRPC endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	Insecure          bool // development only
	MetricsInterval   time.Duration
	LogsEnabled       bool // export zap logs through the OTLP log pipeline
	DBTraceEnabled    bool
	DBLogFullSQL      bool // dev only
	DBSlowQueryThresh time.Duration
}

// ProfilingConfig holds Pyroscope continuous profiling settings
type ProfilingConfig struct {
	Enabled           bool
	ServerAddress     string // e.g. "http://pyroscope:4040"
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
}

// WebhookConfig holds ingestion pipeline settings
type WebhookConfig struct {
	DownstreamTimeout  time.Duration
	LogRetryAttempts   int
	LogRetryInterval   time.Duration
	LogFallbackEnabled bool
	IdempotencyTTL     time.Duration
	MaxBodyBytes       int64
	// UnattributedOrganizationID receives log entries of deliveries whose shop
	// maps to no organization. Empty selects the built-in default.
	UnattributedOrganizationID string
}

// UnattributedOrganization parses UnattributedOrganizationID, falling back
// to integration.DefaultUnattributedOrganizationID when unset
func (w WebhookConfig) UnattributedOrganization() (uuid.UUID, error) {
	if strings.TrimSpace(w.UnattributedOrganizationID) == "" {
		return integration.DefaultUnattributedOrganizationID, nil
	}
	id, err := uuid.Parse(w.UnattributedOrganizationID)
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, errors.New("nil UUID")
	}
	return id, nil
}

// PlatformsConfig holds per-platform webhook credentials
type PlatformsConfig struct {
	Shopee   ShopeeConfig
	Momo     MomoConfig
	Shopline ShoplineConfig
}

// ShopeeConfig holds Shopee credentials
type ShopeeConfig struct {
	PartnerKey string
}

// MomoConfig holds momo credentials
type MomoConfig struct {
	SecretKey string
}

// ShoplineConfig holds Shopline credentials
type ShoplineConfig struct {
	WebhookSecret string
	VerifyToken   string
}

// Secrets returns the signing secret of every webhook platform keyed by
// platform code. An empty value means verification is skipped.
func (p PlatformsConfig) Secrets() map[string]string {
	return map[string]string{
		"shopee":   p.Shopee.PartnerKey,
		"momo":     p.Momo.SecretKey,
		"shopline": p.Shopline.WebhookSecret,
	}
}

// TenantConfig binds a platform shop to an organization
type TenantConfig struct {
	Platform       string `mapstructure:"platform"`
	ShopID         string `mapstructure:"shop_id"`
	OrganizationID string `mapstructure:"organization_id"`
}

// Archive drivers
const (
	ArchiveDriverS3     = "s3"
	ArchiveDriverMemory = "memory"
)

// ArchiveConfig holds raw payload archive settings. The s3 driver targets
// S3-compatible storage; the memory driver keeps at most MemoryCapacity
// payloads in process and is meant for development.
type ArchiveConfig struct {
	Enabled        bool
	Driver         string
	MemoryCapacity int
	Bucket         string
	Prefix         string
	Endpoint       string
	Region         string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	UsePathStyle   bool
	CreateBucket   bool
}

// Load loads configuration from config.toml and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with SYNC_ prefix (e.g., SYNC_DATABASE_PASSWORD)
// 2. config.toml in ".", "./config" or "/app"
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return load(v)
}

// LoadFile loads configuration from the given TOML file and environment variables
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans that default to true cannot be told apart from an explicit
	// false after decoding, so they are registered with viper directly.
	v.SetDefault("webhook.log_fallback_enabled", true)
	v.SetDefault("redis.allow_fallback", true)
	v.SetDefault("database.auto_migrate", true)

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			Version: v.GetString("app.version"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			InternalNetworks: v.GetStringSlice("http.internal_networks"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Redis: RedisConfig{
			Enabled:       v.GetBool("redis.enabled"),
			Host:          v.GetString("redis.host"),
			Port:          v.GetInt("redis.port"),
			Password:      v.GetString("redis.password"),
			DB:            v.GetInt("redis.db"),
			KeyPrefix:     v.GetString("redis.key_prefix"),
			DialTimeout:   v.GetDuration("redis.dial_timeout"),
			AllowFallback: v.GetBool("redis.allow_fallback"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Profiling: ProfilingConfig{
			Enabled:           v.GetBool("profiling.enabled"),
			ServerAddress:     v.GetString("profiling.server_address"),
			ApplicationName:   v.GetString("profiling.application_name"),
			BasicAuthUser:     v.GetString("profiling.basic_auth_user"),
			BasicAuthPassword: v.GetString("profiling.basic_auth_password"),
		},
		Webhook: WebhookConfig{
			DownstreamTimeout:          v.GetDuration("webhook.downstream_timeout"),
			LogRetryAttempts:           v.GetInt("webhook.log_retry_attempts"),
			LogRetryInterval:           v.GetDuration("webhook.log_retry_interval"),
			LogFallbackEnabled:         v.GetBool("webhook.log_fallback_enabled"),
			IdempotencyTTL:             v.GetDuration("webhook.idempotency_ttl"),
			MaxBodyBytes:               v.GetInt64("webhook.max_body_bytes"),
			UnattributedOrganizationID: v.GetString("webhook.unattributed_organization_id"),
		},
		Platforms: PlatformsConfig{
			Shopee:   ShopeeConfig{PartnerKey: v.GetString("platforms.shopee.partner_key")},
			Momo:     MomoConfig{SecretKey: v.GetString("platforms.momo.secret_key")},
			Shopline: ShoplineConfig{
				WebhookSecret: v.GetString("platforms.shopline.webhook_secret"),
				VerifyToken:   v.GetString("platforms.shopline.verify_token"),
			},
		},
		Archive: ArchiveConfig{
			Enabled:        v.GetBool("archive.enabled"),
			Driver:         v.GetString("archive.driver"),
			MemoryCapacity: v.GetInt("archive.memory_capacity"),
			Bucket:         v.GetString("archive.bucket"),
			Prefix:         v.GetString("archive.prefix"),
			Endpoint:       v.GetString("archive.endpoint"),
			Region:         v.GetString("archive.region"),
			AccessKey:      v.GetString("archive.access_key"),
			SecretKey:      v.GetString("archive.secret_key"),
			UseSSL:         v.GetBool("archive.use_ssl"),
			UsePathStyle:   v.GetBool("archive.use_path_style"),
			CreateBucket:   v.GetBool("archive.create_bucket"),
		},
	}

	if err := v.UnmarshalKey("tenants", &cfg.Tenants); err != nil {
		return nil, fmt.Errorf("invalid tenants table: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "commercesync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}

	if len(cfg.HTTP.InternalNetworks) == 0 {
		cfg.HTTP.InternalNetworks = append([]string(nil), DefaultInternalNetworks...)
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "commercesync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 200 * time.Millisecond
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "commercesync:applied:"
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}

	if cfg.Profiling.ApplicationName == "" {
		cfg.Profiling.ApplicationName = cfg.Telemetry.ServiceName
	}

	if cfg.Webhook.DownstreamTimeout == 0 {
		cfg.Webhook.DownstreamTimeout = 3 * time.Second
	}
	if cfg.Webhook.LogRetryAttempts == 0 {
		cfg.Webhook.LogRetryAttempts = 1
	}
	if cfg.Webhook.LogRetryInterval == 0 {
		cfg.Webhook.LogRetryInterval = 100 * time.Millisecond
	}
	if cfg.Webhook.IdempotencyTTL == 0 {
		cfg.Webhook.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Webhook.MaxBodyBytes == 0 {
		cfg.Webhook.MaxBodyBytes = 64 << 10 // 64KiB
	}

	if cfg.Platforms.Shopline.VerifyToken == "" {
		cfg.Platforms.Shopline.VerifyToken = "shopline_verify"
	}

	if cfg.Archive.Driver == "" {
		cfg.Archive.Driver = ArchiveDriverS3
	}
	if cfg.Archive.MemoryCapacity <= 0 {
		cfg.Archive.MemoryCapacity = 10000
	}
	if cfg.Archive.Region == "" {
		cfg.Archive.Region = "us-east-1"
	}
}

func validNetwork(entry string) error {
	entry = strings.TrimSpace(entry)
	if strings.Contains(entry, "/") {
		if _, _, err := net.ParseCIDR(entry); err != nil {
			return err
		}
		return nil
	}
	if net.ParseIP(entry) == nil {
		return fmt.Errorf("invalid IP %q", entry)
	}
	return nil
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Profiling.Enabled && c.Profiling.ServerAddress == "" {
		return fmt.Errorf("profiling.server_address is required when profiling is enabled")
	}
	if c.Webhook.LogRetryAttempts < 0 {
		return fmt.Errorf("webhook.log_retry_attempts cannot be negative")
	}
	if c.Webhook.DownstreamTimeout < 0 {
		return fmt.Errorf("webhook.downstream_timeout cannot be negative")
	}
	if c.Webhook.MaxBodyBytes < 0 {
		return fmt.Errorf("webhook.max_body_bytes cannot be negative")
	}
	if _, err := c.Webhook.UnattributedOrganization(); err != nil {
		return fmt.Errorf("webhook.unattributed_organization_id is not a UUID: %w", err)
	}
	for _, entry := range c.HTTP.InternalNetworks {
		if err := validNetwork(entry); err != nil {
			return fmt.Errorf("http.internal_networks: %w", err)
		}
	}
	for i, t := range c.Tenants {
		if strings.TrimSpace(t.Platform) == "" || strings.TrimSpace(t.ShopID) == "" {
			return fmt.Errorf("tenants[%d]: platform and shop_id are required", i)
		}
		if _, err := uuid.Parse(t.OrganizationID); err != nil {
			return fmt.Errorf("tenants[%d]: organization_id is not a UUID: %w", i, err)
		}
	}
	switch c.Archive.Driver {
	case ArchiveDriverS3:
		if c.Archive.Enabled && c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required when archive is enabled")
		}
	case ArchiveDriverMemory:
	default:
		return fmt.Errorf("archive.driver must be %q or %q, got %q", ArchiveDriverS3, ArchiveDriverMemory, c.Archive.Driver)
	}

	if c.App.IsProduction() {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for platform, secret := range c.Platforms.Secrets() {
			if secret == "" {
				return fmt.Errorf("webhook secret of platform %s is required in production", platform)
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}
	return nil
}
