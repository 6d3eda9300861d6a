package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Search    SearchConfig    `mapstructure:"search"`
	Render    RenderConfig    `mapstructure:"render"`
	Images    ImagesConfig    `mapstructure:"images"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// Search backends.
const (
	SearchBackendMemory  = "memory"
	SearchBackendPostGIS = "postgis"
)

type SearchConfig struct {
	Backend string `mapstructure:"backend"`
	// MaxRadius caps query radii in meters; 0 disables the cap.
	MaxRadius float64 `mapstructure:"max_radius"`
}

type RenderConfig struct {
	Format      string  `mapstructure:"format"`
	JPEGQuality int     `mapstructure:"jpeg_quality"`
	StrokeWidth float64 `mapstructure:"stroke_width"`
	MaxPixels   int     `mapstructure:"max_pixels"`
}

type ImagesConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxBytes int           `mapstructure:"max_bytes"`
	// FileRoot is the only directory stored image paths may be read from.
	// Empty disables local image files.
	FileRoot string        `mapstructure:"file_root"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: PARCELVIEW_DATABASE_HOST → database.host
	v.SetEnvPrefix("PARCELVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 1235)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "parcelview")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "parcelview")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "property-import")
	v.SetDefault("search.backend", SearchBackendMemory)
	v.SetDefault("search.max_radius", 50_000)
	v.SetDefault("render.format", "jpeg")
	v.SetDefault("render.jpeg_quality", 90)
	v.SetDefault("render.stroke_width", 3)
	v.SetDefault("render.max_pixels", 64_000_000)
	v.SetDefault("images.timeout", "15s")
	v.SetDefault("images.max_bytes", 32<<20)
	v.SetDefault("images.file_root", "")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Search.Backend != SearchBackendMemory && c.Search.Backend != SearchBackendPostGIS {
		errs = append(errs, fmt.Sprintf("search.backend must be %q or %q, got %q", SearchBackendMemory, SearchBackendPostGIS, c.Search.Backend))
	}
	if c.Search.MaxRadius < 0 {
		errs = append(errs, "search.max_radius must not be negative")
	}
	if f := strings.ToLower(c.Render.Format); f != "jpeg" && f != "png" {
		errs = append(errs, fmt.Sprintf("render.format must be jpeg or png, got %q", c.Render.Format))
	}
	if c.Render.JPEGQuality < 1 || c.Render.JPEGQuality > 100 {
		errs = append(errs, fmt.Sprintf("render.jpeg_quality must be 1-100, got %d", c.Render.JPEGQuality))
	}
	if c.Render.StrokeWidth <= 0 {
		errs = append(errs, "render.stroke_width must be positive")
	}
	if c.Render.MaxPixels <= 0 {
		errs = append(errs, "render.max_pixels must be positive")
	}
	if c.Images.Timeout <= 0 {
		errs = append(errs, "images.timeout must be positive")
	}
	if c.Images.MaxBytes <= 0 {
		errs = append(errs, "images.max_bytes must be positive")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
