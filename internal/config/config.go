package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server      Server       `mapstructure:"server"`
	Storage     Storage      `mapstructure:"storage"`
	Retention   Retention    `mapstructure:"retention"`
	StatusStore StatusStore  `mapstructure:"status_store"`
	Database    Database     `mapstructure:"database"`
	Redis       Redis        `mapstructure:"redis"`
	Kafka       Kafka        `mapstructure:"kafka"`
	Archive     Archive      `mapstructure:"archive"`
	Retry       Retry        `mapstructure:"retry"`
	Runner      Runner       `mapstructure:"runner"`
	FFmpeg      FFmpeg       `mapstructure:"ffmpeg"`
	Video       VideoOptions `mapstructure:"option_video"`
	Image       ImageOptions `mapstructure:"option_image"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP port to listen on
}

// Storage holds the local directories of the three file populations.
type Storage struct {
	UploadsDir   string `mapstructure:"uploads_dir"`
	ProcessedDir string `mapstructure:"processed_dir"`
	StatusesDir  string `mapstructure:"statuses_dir"`
}

// Retention holds sweeper timing for every population.
type Retention struct {
	Interval     time.Duration `mapstructure:"interval"`
	UploadsTTL   time.Duration `mapstructure:"uploads_ttl"`
	ProcessedTTL time.Duration `mapstructure:"processed_ttl"`
	StatusesTTL  time.Duration `mapstructure:"statuses_ttl"`
}

// StatusStore selects the status record backend.
type StatusStore struct {
	Backend    string `mapstructure:"backend"` // file, memory, sqlite, postgres, redis
	SQLitePath string `mapstructure:"sqlite_path"`
}

// Database holds PostgreSQL connection parameters for the postgres backend.
type Database struct {
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	User    string `mapstructure:"user"`
	Pass    string `mapstructure:"pass"`
	Name    string `mapstructure:"name"`
	SSLMode string `mapstructure:"ssl_mode"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// Redis holds connection parameters for the redis backend.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Kafka holds configuration for the Kafka intake topic and the status events topic.
type Kafka struct {
	Enabled     bool     `mapstructure:"enabled"`
	GroupID     string   `mapstructure:"group_id"`     // Consumer group ID
	Topic       string   `mapstructure:"topic"`        // Intake topic name
	EventsTopic string   `mapstructure:"events_topic"` // Terminal status events
	Brokers     []string `mapstructure:"brokers"`      // List of Kafka broker addresses
}

// Archive holds configuration for the MinIO mirror of completed outputs.
type Archive struct {
	Enabled    bool   `mapstructure:"enabled"`
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// Runner holds job runner limits. Zero MaxConcurrent means unbounded.
type Runner struct {
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

// FFmpeg holds the locations of the external media tools.
type FFmpeg struct {
	FFmpegPath  string `mapstructure:"ffmpeg_path"`
	FFprobePath string `mapstructure:"ffprobe_path"`
	Preset      string `mapstructure:"preset"`
}

// DSN returns the PostgreSQL DSN string for connecting to the database.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Pass, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", ":8000")

	v.SetDefault("storage.uploads_dir", "uploads")
	v.SetDefault("storage.processed_dir", "processed")
	v.SetDefault("storage.statuses_dir", "task_statuses")

	v.SetDefault("retention.interval", 30*time.Second)
	v.SetDefault("retention.uploads_ttl", time.Hour)
	v.SetDefault("retention.processed_ttl", 5*time.Minute)
	v.SetDefault("retention.statuses_ttl", 5*time.Minute)

	v.SetDefault("status_store.backend", "file")
	v.SetDefault("status_store.sqlite_path", "task_statuses.db")

	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("kafka.group_id", "media-uniquer")
	v.SetDefault("kafka.topic", "media-uploads")
	v.SetDefault("kafka.events_topic", "media-task-status")

	v.SetDefault("archive.bucket_name", "media-uniquer")

	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", 500*time.Millisecond)
	v.SetDefault("retry.backoff", 2.0)

	v.SetDefault("ffmpeg.ffmpeg_path", "ffmpeg")
	v.SetDefault("ffmpeg.ffprobe_path", "ffprobe")
	v.SetDefault("ffmpeg.preset", "fast")

	v.SetDefault("option_video.contrast", 1.02)
	v.SetDefault("option_video.saturation", 1.02)
	v.SetDefault("option_video.gamma", 1.0)
	v.SetDefault("option_video.gamma_r", 1.0)
	v.SetDefault("option_video.gamma_g", 1.0)
	v.SetDefault("option_video.gamma_b", 1.0)
	v.SetDefault("option_video.gamma_weight", 0.4)
	v.SetDefault("option_video.vibrance", 0.05)
	v.SetDefault("option_video.eq", 0.07)
	v.SetDefault("option_video.fps", 24)
	v.SetDefault("option_video.rotate", 0)
	v.SetDefault("option_video.random_config", false)

	v.SetDefault("option_image.brightness", 0.1)
	v.SetDefault("option_image.contrast", 0.1)
	v.SetDefault("option_image.blur", 0.1)
}

// bindEnv binds secrets and connection settings to environment variables.
func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"database.host":        "DB_HOST",
		"database.port":        "DB_PORT",
		"database.user":        "DB_USER",
		"database.pass":        "DB_PASSWORD",
		"database.name":        "DB_NAME",
		"redis.password":       "REDIS_PASSWORD",
		"archive.access_key":   "ARCHIVE_ACCESS_KEY",
		"archive.secret_key":   "ARCHIVE_SECRET_KEY",
		"status_store.backend": "STATUS_STORE_BACKEND",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	return nil
}

// Load reads the YAML configuration at path, applies defaults and
// environment overrides, and clamps the transform options.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Video = cfg.Video.Clamp()
	cfg.Image = cfg.Image.Clamp()

	return &cfg, nil
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration file cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to load config")
	}

	return cfg
}
