package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"

	BrokerLocal = "local"
	BrokerRedis = "redis"
	BrokerNATS  = "nats"
)

// Config is read once at startup and handed to constructors explicitly.
type Config struct {
	Port      string `envconfig:"PORT" default:"3033"`
	Env       string `envconfig:"APP_ENV" default:"dev"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS"`
	BodyLimit      int    `envconfig:"BODY_LIMIT" default:"1048576"`

	JWTSecret         string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL          time.Duration `envconfig:"TOKEN_TTL" default:"1h"`
	BcryptCost        int           `envconfig:"BCRYPT_COST" default:"10"`
	PasswordMinLength int           `envconfig:"PASSWORD_MIN_LENGTH" default:"6"`
	MaxMessageLength  int           `envconfig:"MAX_MESSAGE_LENGTH" default:"4000"`

	AESKey string `envconfig:"AES_KEY" default:"1234567890abcdef"`
	AESIV  string `envconfig:"AES_IV" default:"abcdef1234567890"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`
	DBHost      string `envconfig:"DB_HOST" default:"localhost"`
	DBPort      string `envconfig:"DB_PORT" default:"5432"`
	DBUser      string `envconfig:"DB_USER" default:"postgres"`
	DBPassword  string `envconfig:"DB_PASSWORD"`
	DBName      string `envconfig:"DB_NAME" default:"secure_group_messaging"`
	DBSSLMode   string `envconfig:"DB_SSLMODE" default:"disable"`

	MongoURI      string `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"secure-group-messaging"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	HistoryCache  bool   `envconfig:"HISTORY_CACHE" default:"false"`

	Broker  string `envconfig:"BROKER" default:"local"`
	NATSURL string `envconfig:"NATS_URL" default:"nats://127.0.0.1:4222"`

	OptimisticLocking     bool `envconfig:"OPTIMISTIC_LOCKING" default:"false"`
	WSRoomMembershipCheck bool `envconfig:"WS_ROOM_MEMBERSHIP_CHECK" default:"false"`

	RateLimitMax    int           `envconfig:"RATE_LIMIT_MAX" default:"100"`
	RateLimitWindow time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"15m"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch len(c.AESKey) {
	case 16, 24, 32:
	default:
		errs = append(errs, fmt.Errorf("AES_KEY must be 16, 24 or 32 bytes, got %d", len(c.AESKey)))
	}
	if len(c.AESIV) != 16 {
		errs = append(errs, fmt.Errorf("AES_IV must be 16 bytes, got %d", len(c.AESIV)))
	}
	switch c.StoreDriver {
	case StorePostgres, StoreMongo:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	switch c.Broker {
	case BrokerLocal, BrokerRedis, BrokerNATS:
	default:
		errs = append(errs, fmt.Errorf("unknown BROKER %q", c.Broker))
	}
	if c.PasswordMinLength < 1 {
		errs = append(errs, errors.New("PASSWORD_MIN_LENGTH must be positive"))
	}
	if c.MaxMessageLength < 1 {
		errs = append(errs, errors.New("MAX_MESSAGE_LENGTH must be positive"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

// Origins splits ALLOWED_ORIGINS into its non-empty entries.
func (c *Config) Origins() []string {
	if c.AllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}
