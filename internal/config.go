package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"http_server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Security     SecurityConfig     `mapstructure:"security" validate:"required"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Currency     CurrencyConfig     `mapstructure:"currency"`
	Notification NotificationConfig `mapstructure:"notification"`
	Alerts       AlertsConfig       `mapstructure:"alerts"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	ValidateRequests  bool          `mapstructure:"validate_requests"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	JWTAccessSecret      string        `mapstructure:"jwt_access_secret" validate:"required,min=32"`
	JWTRefreshSecret     string        `mapstructure:"jwt_refresh_secret" validate:"required,min=32"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration" validate:"required,min=1m,max=1h"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" validate:"required,min=1h"`
	BCryptCost           int           `mapstructure:"bcrypt_cost" validate:"required,min=10,max=15"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// CurrencyConfig drives the rate normalizer. StaticRates, when set, replace the HTTP source.
type CurrencyConfig struct {
	Base            string            `mapstructure:"base"`
	APIURL          string            `mapstructure:"api_url"`
	APIKey          string            `mapstructure:"api_key"`
	RefreshInterval time.Duration     `mapstructure:"refresh_interval"`
	Timeout         time.Duration     `mapstructure:"timeout"`
	StaticRates     map[string]string `mapstructure:"static_rates"`
}

const (
	NotificationDriverAMQP      = "amqp"
	NotificationDriverInProcess = "inprocess"
	NotificationDriverLog       = "log"
)

type NotificationConfig struct {
	Driver    string `mapstructure:"driver" validate:"oneof=amqp inprocess log"`
	URL       string `mapstructure:"url"`
	Exchange  string `mapstructure:"exchange"`
	Queue     string `mapstructure:"queue"`
	Workers   int    `mapstructure:"workers"`
	QueueSize int    `mapstructure:"queue_size"`
}

type AlertsConfig struct {
	Mode string `mapstructure:"mode" validate:"oneof=edge level"`
}

// ApplyDefaults fills the optional settings a config file may leave out.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Security.BCryptCost == 0 {
		c.Security.BCryptCost = 12
	}
	if c.Currency.Base == "" {
		c.Currency.Base = "USD"
	}
	c.Currency.Base = strings.ToUpper(c.Currency.Base)
	if c.Currency.Timeout == 0 {
		c.Currency.Timeout = 10 * time.Second
	}
	if c.Notification.Driver == "" {
		c.Notification.Driver = NotificationDriverInProcess
	}
	if c.Notification.Exchange == "" {
		c.Notification.Exchange = "budget-ledger"
	}
	if c.Notification.Queue == "" {
		c.Notification.Queue = "notifications"
	}
	if c.Notification.Workers == 0 {
		c.Notification.Workers = 4
	}
	if c.Alerts.Mode == "" {
		c.Alerts.Mode = "edge"
	}
}

// ----------------- ENVIRONMENT -----------------

// LoadConfigFromEnv builds the configuration for container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("PORT", 8080),
			BaseURL:           getEnv("BASE_URL", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", 15*time.Second),
			ValidateRequests:  getEnvAsBool("VALIDATE_REQUESTS", true),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Security: SecurityConfig{
			JWTAccessSecret:      getEnv("JWT_ACCESS_SECRET", ""),
			JWTRefreshSecret:     getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenDuration:  getEnvAsDuration("ACCESS_TOKEN_DURATION", 15*time.Minute),
			RefreshTokenDuration: getEnvAsDuration("REFRESH_TOKEN_DURATION", 7*24*time.Hour),
			BCryptCost:           getEnvAsInt("BCRYPT_COST", 12),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Currency: CurrencyConfig{
			Base:            getEnv("CURRENCY_BASE", "USD"),
			APIURL:          getEnv("CURRENCY_API_URL", ""),
			APIKey:          getEnv("CURRENCY_API_KEY", ""),
			RefreshInterval: getEnvAsDuration("CURRENCY_REFRESH_INTERVAL", time.Hour),
			Timeout:         getEnvAsDuration("CURRENCY_TIMEOUT", 10*time.Second),
			StaticRates:     parseRatePairs(getEnv("CURRENCY_STATIC_RATES", "")),
		},
		Notification: NotificationConfig{
			Driver:    getEnv("NOTIFICATION_DRIVER", NotificationDriverInProcess),
			URL:       getEnv("AMQP_URL", ""),
			Exchange:  getEnv("AMQP_EXCHANGE", "budget-ledger"),
			Queue:     getEnv("AMQP_QUEUE", "notifications"),
			Workers:   getEnvAsInt("NOTIFICATION_WORKERS", 4),
			QueueSize: getEnvAsInt("NOTIFICATION_QUEUE_SIZE", 100),
		},
		Alerts: AlertsConfig{
			Mode: getEnv("ALERT_MODE", "edge"),
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// parseRatePairs reads "EUR=0.92,GBP=0.79".
func parseRatePairs(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	rates := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		code, rate, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		rates[strings.ToUpper(strings.TrimSpace(code))] = strings.TrimSpace(rate)
	}
	return rates
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if err := c.Currency.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("currency config: %v", err))
	}

	if err := c.Notification.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("notification config: %v", err))
	}

	if err := c.Alerts.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("alerts config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	for _, origin := range c.Origins() {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid allowed origin %q", origin)
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

// Origins splits the comma-separated allowed_origins setting.
func (c *ServerConfig) Origins() []string {
	if strings.TrimSpace(c.AllowedOrigins) == "" {
		return nil
	}
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.JWTAccessSecret) < 32 {
		return errors.New("jwt_access_secret must be at least 32 characters")
	}
	if len(c.JWTRefreshSecret) < 32 {
		return errors.New("jwt_refresh_secret must be at least 32 characters")
	}
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return errors.New("access and refresh secrets must differ")
	}
	if c.AccessTokenDuration < time.Minute || c.AccessTokenDuration > time.Hour {
		return errors.New("access_token_duration must be between 1m and 1h")
	}
	if c.RefreshTokenDuration < time.Hour {
		return errors.New("refresh_token_duration must be at least 1h")
	}
	if c.BCryptCost < 10 || c.BCryptCost > 15 {
		return errors.New("bcrypt_cost must be between 10 and 15")
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %q", c.Level)
	}
	switch c.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	return nil
}

func (c *CurrencyConfig) Validate() error {
	if len(c.Base) != 3 {
		return fmt.Errorf("base %q is not a currency code", c.Base)
	}
	if len(c.StaticRates) == 0 && c.APIURL == "" {
		return errors.New("either api_url or static_rates is required")
	}
	if c.APIURL != "" {
		if _, err := url.ParseRequestURI(c.APIURL); err != nil {
			return fmt.Errorf("invalid api_url: %w", err)
		}
	}
	if c.RefreshInterval < 0 {
		return errors.New("refresh_interval must not be negative")
	}
	return nil
}

func (c *NotificationConfig) Validate() error {
	switch c.Driver {
	case NotificationDriverAMQP:
		if c.URL == "" {
			return errors.New("url is required for the amqp driver")
		}
		if c.Queue == "" {
			return errors.New("queue is required for the amqp driver")
		}
	case NotificationDriverInProcess, NotificationDriverLog:
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	return nil
}

func (c *AlertsConfig) Validate() error {
	if c.Mode != "edge" && c.Mode != "level" {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	return nil
}
