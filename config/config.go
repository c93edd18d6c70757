package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Events    EventsConfig    `yaml:"events"`
	Auth      AuthConfig      `yaml:"auth"`
	Booking   BookingConfig   `yaml:"booking"`
	Worker    WorkerConfig    `yaml:"worker"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
}

type HTTPConfig struct {
	Address                string `yaml:"address"`
	SwaggerDir             string `yaml:"swagger_dir"`
	ReadTimeoutSeconds     int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `yaml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	Migrate  bool   `yaml:"migrate"`
}

// DSN prefers an explicit URL over the discrete connection fields.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type EventsConfig struct {
	Driver             string      `yaml:"driver"`
	BookingTopic       string      `yaml:"booking_topic"`
	NotificationsTopic string      `yaml:"notifications_topic"`
	Kafka              KafkaConfig `yaml:"kafka"`
	NATS               NATSConfig  `yaml:"nats"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"group_id"`
}

type NATSConfig struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

type AuthConfig struct {
	JWTSecret       string   `yaml:"jwt_secret"`
	TokenTTLMinutes int      `yaml:"token_ttl_minutes"`
	Issuer          string   `yaml:"issuer"`
	// AdminEmails sign up with the admin role.
	AdminEmails     []string `yaml:"admin_emails"`
}

type BookingConfig struct {
	SlotLockSeconds      int `yaml:"slot_lock_seconds"`
	DesksCacheTTLSeconds int `yaml:"desks_cache_ttl_seconds"`
}

type WorkerConfig struct {
	ArchiveSweepMinutes int `yaml:"archive_sweep_minutes"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

const (
	EventsDriverKafka = "kafka"
	EventsDriverNATS  = "nats"
)

// LoadConfig reads the yaml file at path (a missing file is not an error),
// applies variables from a local .env file and the process environment, and
// fills defaults for anything still unset.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Events.Driver {
	case EventsDriverKafka, EventsDriverNATS:
	default:
		return fmt.Errorf("unsupported events driver %q", c.Events.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.HTTP.Address, "HTTP_ADDRESS")
	setString(&cfg.GRPC.Address, "GRPC_ADDRESS")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Events.Driver, "EVENTS_DRIVER")
	setString(&cfg.Events.NATS.URL, "NATS_URL")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok && v != "" {
		cfg.Events.Kafka.Brokers = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("ADMIN_EMAILS"); ok && v != "" {
		cfg.Auth.AdminEmails = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("DATABASE_MIGRATE"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Database.Migrate = b
		}
	}
}

func applyDefaults(cfg *Config) {
	setDefault(&cfg.HTTP.Address, ":3000")
	setDefault(&cfg.HTTP.SwaggerDir, "docs")
	setDefaultInt(&cfg.HTTP.ReadTimeoutSeconds, 10)
	setDefaultInt(&cfg.HTTP.WriteTimeoutSeconds, 10)
	setDefaultInt(&cfg.HTTP.ShutdownTimeoutSeconds, 5)
	setDefault(&cfg.GRPC.Address, ":3001")
	setDefault(&cfg.Database.Host, "localhost")
	setDefaultInt(&cfg.Database.Port, 5432)
	setDefault(&cfg.Database.SSLMode, "disable")
	setDefault(&cfg.Redis.Addr, "localhost:6379")
	setDefault(&cfg.Events.Driver, EventsDriverKafka)
	setDefault(&cfg.Events.BookingTopic, "desk-bookings")
	setDefault(&cfg.Events.NotificationsTopic, "desk-notifications")
	setDefault(&cfg.Events.Kafka.GroupID, "hot-desking-worker")
	setDefault(&cfg.Events.NATS.URL, "nats://localhost:4222")
	setDefault(&cfg.Events.NATS.Queue, "hot-desking-worker")
	if len(cfg.Events.Kafka.Brokers) == 0 {
		cfg.Events.Kafka.Brokers = []string{"localhost:9092"}
	}
	setDefaultInt(&cfg.Auth.TokenTTLMinutes, 12*60)
	setDefault(&cfg.Auth.Issuer, "hot-desking")
	setDefaultInt(&cfg.Booking.SlotLockSeconds, 10)
	setDefaultInt(&cfg.Booking.DesksCacheTTLSeconds, 60)
	setDefaultInt(&cfg.Worker.ArchiveSweepMinutes, 60)
	setDefault(&cfg.Log.Level, "info")
	setDefaultInt(&cfg.RateLimit.RequestsPerMinute, 300)
	setDefaultInt(&cfg.RateLimit.Burst, 50)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"http://localhost:5173"}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setDefault(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func setDefaultInt(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}
