package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type OwnerConfig struct {
	Phone    string `yaml:"phone"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type AMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type StorageConfig struct {
	UploadDir   string `yaml:"upload_dir"`
	URLPrefix   string `yaml:"url_prefix"`
	S3Bucket    string `yaml:"s3_bucket"`
	S3Region    string `yaml:"s3_region"`
	S3Prefix    string `yaml:"s3_prefix"`
	S3PublicURL string `yaml:"s3_public_url"`
	MaxBytes    int64  `yaml:"max_bytes"`
}

type CanteenConfig struct {
	Open              bool    `yaml:"open"`
	Announcement      string  `yaml:"announcement"`
	StudentDiscount   float64 `yaml:"student_discount"`
	LowStockThreshold int     `yaml:"low_stock_threshold"`
}

type Config struct {
	Port            string         `yaml:"port"`
	BaseURL         string         `yaml:"base_url"`
	GinMode         string         `yaml:"gin_mode"`
	LogLevel        string         `yaml:"log_level"`
	SessionSecret   string         `yaml:"session_secret"`
	SessionSecure   bool           `yaml:"session_secure"`
	JWTSecret       string         `yaml:"jwt_secret"`
	JWTTTL          time.Duration  `yaml:"jwt_ttl"`
	CORSOrigins     []string       `yaml:"cors_origins"`
	AuthRatePerMin  int            `yaml:"auth_rate_per_min"`
	Database        DatabaseConfig `yaml:"database"`
	Owner           OwnerConfig    `yaml:"owner"`
	Gemini          GeminiConfig   `yaml:"gemini"`
	AMQP            AMQPConfig     `yaml:"amqp"`
	Storage         StorageConfig  `yaml:"storage"`
	Canteen         CanteenConfig  `yaml:"canteen"`
	ShutdownTimeout time.Duration  `yaml:"shutdown_timeout"`
}

// Default returns a config that runs locally against a sqlite file.
func Default() *Config {
	return &Config{
		Port:           "8080",
		BaseURL:        "http://localhost:8080",
		GinMode:        "debug",
		LogLevel:       "info",
		SessionSecret:  "canteenkart-dev-session-secret",
		JWTSecret:      "canteenkart-dev-secret",
		JWTTTL:         24 * time.Hour,
		CORSOrigins:    []string{"http://localhost:8080"},
		AuthRatePerMin: 20,
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "canteen.db",
		},
		Gemini: GeminiConfig{
			Model: "gemini-1.5-flash",
		},
		AMQP: AMQPConfig{
			Exchange: "canteen_events",
		},
		Storage: StorageConfig{
			UploadDir: "static/uploads",
			URLPrefix: "/static/uploads",
			MaxBytes:  5 << 20,
		},
		Canteen: CanteenConfig{
			Open:              true,
			LowStockThreshold: 5,
		},
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load builds the config from defaults, an optional .env file, an optional
// YAML file named by CONFIG_FILE, and finally environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.BaseURL = getEnv("BASE_URL", c.BaseURL)
	c.GinMode = getEnv("GIN_MODE", c.GinMode)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.SessionSecret = getEnv("SESSION_SECRET", c.SessionSecret)
	c.SessionSecure = getEnvBool("SESSION_SECURE", c.SessionSecure)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTTTL = getEnvDuration("JWT_TTL", c.JWTTTL)
	c.AuthRatePerMin = getEnvInt("AUTH_RATE_PER_MIN", c.AuthRatePerMin)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.CORSOrigins = splitList(origins)
	}

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_DSN", c.Database.DSN)

	c.Owner.Phone = getEnv("OWNER_PHONE", c.Owner.Phone)
	c.Owner.Name = getEnv("OWNER_NAME", c.Owner.Name)
	c.Owner.Password = getEnv("OWNER_PASSWORD", c.Owner.Password)

	c.Gemini.APIKey = getEnv("GEMINI_API_KEY", c.Gemini.APIKey)
	c.Gemini.Model = getEnv("GEMINI_MODEL", c.Gemini.Model)

	c.AMQP.URL = getEnv("AMQP_URL", c.AMQP.URL)
	c.AMQP.Exchange = getEnv("AMQP_EXCHANGE", c.AMQP.Exchange)

	c.Storage.UploadDir = getEnv("UPLOAD_DIR", c.Storage.UploadDir)
	c.Storage.URLPrefix = getEnv("UPLOAD_URL_PREFIX", c.Storage.URLPrefix)
	c.Storage.S3Bucket = getEnv("S3_BUCKET", c.Storage.S3Bucket)
	c.Storage.S3Region = getEnv("S3_REGION", c.Storage.S3Region)
	c.Storage.S3Prefix = getEnv("S3_PREFIX", c.Storage.S3Prefix)
	c.Storage.S3PublicURL = getEnv("S3_PUBLIC_URL", c.Storage.S3PublicURL)

	c.Canteen.Open = getEnvBool("CANTEEN_OPEN", c.Canteen.Open)
	c.Canteen.Announcement = getEnv("CANTEEN_ANNOUNCEMENT", c.Canteen.Announcement)
	c.Canteen.StudentDiscount = getEnvFloat("STUDENT_DISCOUNT", c.Canteen.StudentDiscount)
	c.Canteen.LowStockThreshold = getEnvInt("LOW_STOCK_THRESHOLD", c.Canteen.LowStockThreshold)
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("session secret is required")
	}
	if !(c.Canteen.StudentDiscount >= 0 && c.Canteen.StudentDiscount < 1) {
		return fmt.Errorf("student discount must be in [0, 1), got %v", c.Canteen.StudentDiscount)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
