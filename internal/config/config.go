// Package config loads the portal configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PORTAL_DATABASE_SQL_DSN.
const EnvPrefix = "PORTAL"

// Config mirrors configs/config.yaml.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Log          LogConfig          `mapstructure:"log"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	MinIO        MinIOConfig        `mapstructure:"minio"`
	Upload       UploadConfig       `mapstructure:"upload"`
	Viewer       ViewerConfig       `mapstructure:"viewer"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Notification NotificationConfig `mapstructure:"notification"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	// MaxMultipartMemoryMB bounds how much of a multipart body gin keeps in memory.
	MaxMultipartMemoryMB int64 `mapstructure:"max_multipart_memory_mb"`
	ShutdownTimeout      int   `mapstructure:"shutdown_timeout_seconds"`
}

type DatabaseConfig struct {
	SQL   SQLConfig   `mapstructure:"sql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// SQLConfig selects the driver (mysql, postgres or sqlite) and pool sizes.
type SQLConfig struct {
	Driver                 string `mapstructure:"driver"`
	DSN                    string `mapstructure:"dsn"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
	AutoMigrate            bool   `mapstructure:"auto_migrate"`
	LogQueries             bool   `mapstructure:"log_queries"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig configures the storage cleanup queue. With Enabled false,
// cleanup tasks are logged and dropped.
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// BrokerList splits the comma separated broker string.
func (k KafkaConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
	Folder          string `mapstructure:"folder"`
	// PublicBaseURL, when set, is used to build stored file URLs instead of the endpoint.
	PublicBaseURL        string `mapstructure:"public_base_url"`
	PresignExpiryMinutes int    `mapstructure:"presign_expiry_minutes"`
}

// PresignExpiry returns the lifetime of presigned download links.
func (m MinIOConfig) PresignExpiry() time.Duration {
	return time.Duration(m.PresignExpiryMinutes) * time.Minute
}

type UploadConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
}

// ViewerConfig holds the URL template PDFs are opened through; %s receives the escaped file URL.
type ViewerConfig struct {
	PDFURLTemplate string `mapstructure:"pdf_url_template"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MaxNotificationListLimit caps how many notifications one list call returns.
const MaxNotificationListLimit = 50

type NotificationConfig struct {
	ListLimit             int `mapstructure:"list_limit"`
	UnreadCacheTTLSeconds int `mapstructure:"unread_cache_ttl_seconds"`
}

// UnreadCacheTTL returns how long an unread count stays cached in Redis.
func (n NotificationConfig) UnreadCacheTTL() time.Duration {
	return time.Duration(n.UnreadCacheTTLSeconds) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.max_multipart_memory_mb", 16)
	v.SetDefault("server.shutdown_timeout_seconds", 5)

	v.SetDefault("database.sql.driver", "mysql")
	v.SetDefault("database.sql.dsn", "")
	v.SetDefault("database.sql.max_idle_conns", 10)
	v.SetDefault("database.sql.max_open_conns", 100)
	v.SetDefault("database.sql.conn_max_lifetime_minutes", 60)
	v.SetDefault("database.sql.auto_migrate", true)
	v.SetDefault("database.sql.log_queries", false)
	v.SetDefault("database.redis.addr", "localhost:6379")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_token_expire_hours", 24)
	v.SetDefault("jwt.refresh_token_expire_days", 7)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "storage-cleanup")
	v.SetDefault("kafka.group_id", "resource-portal-janitor")

	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket_name", "college-resources")
	v.SetDefault("minio.folder", "college-resources")
	v.SetDefault("minio.public_base_url", "")
	v.SetDefault("minio.presign_expiry_minutes", 60)

	v.SetDefault("upload.max_size_bytes", 10<<20)

	v.SetDefault("viewer.pdf_url_template", "https://docs.google.com/viewer?url=%s&embedded=true")

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("notification.list_limit", 50)
	v.SetDefault("notification.unread_cache_ttl_seconds", 60)
}

// Load reads the YAML file at path, applies PORTAL_* environment overrides
// and validates the result. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	switch c.Database.SQL.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("database.sql.driver must be mysql, postgres or sqlite, got %q", c.Database.SQL.Driver)
	}
	if c.Database.SQL.DSN == "" {
		return errors.New("database.sql.dsn is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.Upload.MaxSizeBytes <= 0 {
		return errors.New("upload.max_size_bytes must be positive")
	}
	if c.Notification.ListLimit <= 0 || c.Notification.ListLimit > MaxNotificationListLimit {
		return fmt.Errorf("notification.list_limit must be between 1 and %d", MaxNotificationListLimit)
	}
	return nil
}
