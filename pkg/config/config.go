package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Webhook  WebhookConfig
	AI       AIConfig
	Capture  CaptureConfig
	Delivery DeliveryConfig
	Auth     AuthConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string   `envconfig:"HOST" default:"0.0.0.0"`
	Port            string   `envconfig:"PORT" default:"8080"`
	Environment     string   `envconfig:"ENVIRONMENT" default:"development"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout int      `envconfig:"SHUTDOWN_TIMEOUT" default:"10"`
}

// RedisConfig holds the durable local store configuration. An empty Addr
// falls back to the in-process store.
type RedisConfig struct {
	Addr      string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password  string `envconfig:"REDIS_PASSWORD" default:""`
	DB        int    `envconfig:"REDIS_DB" default:"0"`
	Namespace string `envconfig:"REDIS_NAMESPACE" default:"transcriptpro"`
}

// DatabaseConfig holds the meeting archive database configuration
type DatabaseConfig struct {
	Enabled     bool   `envconfig:"DB_ENABLED" default:"false"`
	Host        string `envconfig:"DB_HOST" default:"localhost"`
	Port        string `envconfig:"DB_PORT" default:"5432"`
	User        string `envconfig:"DB_USER" default:"postgres"`
	Password    string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name        string `envconfig:"DB_NAME" default:"transcriptpro"`
	SSLMode     string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns    int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns    int    `envconfig:"DB_MIN_CONNS" default:"5"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`
}

// StorageConfig holds the optional object-storage backup configuration
type StorageConfig struct {
	Enabled         bool   `envconfig:"STORAGE_ENABLED" default:"false"`
	Endpoint        string `envconfig:"STORAGE_ENDPOINT" default:"localhost:9000"`
	AccessKeyID     string `envconfig:"STORAGE_ACCESS_KEY" default:"minioadmin"`
	SecretAccessKey string `envconfig:"STORAGE_SECRET_KEY" default:"minioadmin"`
	BucketName      string `envconfig:"STORAGE_BUCKET" default:"transcripts"`
	UseSSL          bool   `envconfig:"STORAGE_USE_SSL" default:"false"`
}

// WebhookConfig seeds the stored webhook settings on first run
type WebhookConfig struct {
	URL            string        `envconfig:"WEBHOOK_URL" default:""`
	Enabled        bool          `envconfig:"WEBHOOK_ENABLED" default:"false"`
	BodyType       string        `envconfig:"WEBHOOK_BODY_TYPE" default:"simple"`
	RequestTimeout time.Duration `envconfig:"WEBHOOK_REQUEST_TIMEOUT" default:"30s"`
	MaxElapsedTime time.Duration `envconfig:"WEBHOOK_MAX_ELAPSED_TIME" default:"45s"`
}

// AIConfig holds the text-generation gateway configuration
type AIConfig struct {
	Endpoint       string        `envconfig:"AI_ENDPOINT" default:"https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"`
	APIKey         string        `envconfig:"AI_API_KEY" default:""`
	RequestTimeout time.Duration `envconfig:"AI_REQUEST_TIMEOUT" default:"60s"`
}

// CaptureConfig holds capture pipeline configuration
type CaptureConfig struct {
	// UIVariant selects the host-page control selector set: "icon-font" for
	// the older material-icons UI, "icon-set" for the google-symbols UI.
	UIVariant        string        `envconfig:"CAPTURE_UI_VARIANT" default:"icon-set"`
	OperationMode    string        `envconfig:"CAPTURE_OPERATION_MODE" default:"auto"`
	PollInterval     time.Duration `envconfig:"CAPTURE_POLL_INTERVAL" default:"100ms"`
	WaitTimeout      time.Duration `envconfig:"CAPTURE_WAIT_TIMEOUT" default:"1h"`
	TitleSettleDelay time.Duration `envconfig:"CAPTURE_TITLE_SETTLE_DELAY" default:"5s"`
	FlushDebounce    time.Duration `envconfig:"CAPTURE_FLUSH_DEBOUNCE" default:"300ms"`
	RecoveryTimeout  time.Duration `envconfig:"CAPTURE_RECOVERY_TIMEOUT" default:"1s"`
	SpoolDir         string        `envconfig:"CAPTURE_SPOOL_DIR" default:""`
}

// DeliveryConfig holds transcript file delivery configuration
type DeliveryConfig struct {
	DownloadDir string `envconfig:"DELIVERY_DOWNLOAD_DIR" default:"./downloads"`
	HistorySize int    `envconfig:"DELIVERY_HISTORY_SIZE" default:"10"`
}

// AuthConfig holds agent authentication configuration. An empty secret
// disables token checks (loopback deployments).
type AuthConfig struct {
	AgentTokenSecret string        `envconfig:"AGENT_TOKEN_SECRET" default:""`
	AgentTokenExpiry time.Duration `envconfig:"AGENT_TOKEN_EXPIRY" default:"24h"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Capture.UIVariant {
	case "icon-font", "icon-set":
	default:
		return fmt.Errorf("CAPTURE_UI_VARIANT must be icon-font or icon-set, got %q", c.Capture.UIVariant)
	}
	switch c.Capture.OperationMode {
	case "auto", "manual":
	default:
		return fmt.Errorf("CAPTURE_OPERATION_MODE must be auto or manual, got %q", c.Capture.OperationMode)
	}
	switch c.Webhook.BodyType {
	case "simple", "advanced":
	default:
		return fmt.Errorf("WEBHOOK_BODY_TYPE must be simple or advanced, got %q", c.Webhook.BodyType)
	}
	if c.Webhook.Enabled && c.Webhook.URL == "" {
		return fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_ENABLED is true")
	}
	if c.Delivery.HistorySize < 1 {
		return fmt.Errorf("DELIVERY_HISTORY_SIZE must be at least 1")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
