// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"APP_ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
	RevenueCat              `yaml:"revenuecat"`
	Stripe                  `yaml:"stripe"`
	LLM                     `yaml:"llm"`
	Assistant               `yaml:"assistant"`
	RateLimit               `yaml:"rate_limit"`
	Reconciler              `yaml:"reconciler"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"60s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для проверки jwt-токенов вызывающей стороны
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"1h"`
}

// RabbitMQ структура для подключения к брокеру сообщений
type RabbitMQ struct {
	RabbitMQURL   string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange      string        `yaml:"exchange" env-default:"contractor"`
	ConnRetries   int           `yaml:"retries" env-default:"5"`
	ConnRetryWait time.Duration `yaml:"retry_delay" env-default:"2s"`
	Workers       int           `yaml:"workers" env-default:"4"`
}

// SMTP структура для отправки подтверждённых писем
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"pass" env:"SMTP_PASS"`
}

// RevenueCat структура для REST API RevenueCat
type RevenueCat struct {
	RevenueCatBaseURL string        `yaml:"base_url" env-default:"https://api.revenuecat.com"`
	NativeAPIKey      string        `yaml:"native_api_key" env:"REVENUECAT_NATIVE_API_KEY"`
	WebAPIKey         string        `yaml:"web_api_key" env:"REVENUECAT_WEB_API_KEY"`
	WebhookAuth       string        `yaml:"webhook_auth" env:"REVENUECAT_WEBHOOK_AUTH"`
	RevenueCatTimeout time.Duration `yaml:"timeout" env-default:"10s"`
}

// Stripe структура для веб-биллинга через Stripe
type Stripe struct {
	StripeEnabled       bool   `yaml:"enabled"`
	StripeSecretKey     string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	StripeEntitlement   string `yaml:"entitlement_id" env-default:"pro"`
}

// LLM структура для подключения к языковой модели
type LLM struct {
	Provider   string        `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	APIKey     string        `yaml:"api_key" env:"LLM_API_KEY"`
	Model      string        `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	LLMBaseURL string        `yaml:"base_url"`
	MaxTokens  int           `yaml:"max_tokens" env-default:"1024"`
	LLMTimeout time.Duration `yaml:"timeout" env-default:"60s"`
}

// Assistant структура для настроек ассистентов
type Assistant struct {
	DraftTTL time.Duration `yaml:"draft_ttl" env-default:"30m"`
}

// RateLimit структура для ограничения частоты запросов на пользователя
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"1"`
	Burst int     `yaml:"burst" env-default:"5"`
}

// Reconciler структура для периодического обхода просроченных записей
type Reconciler struct {
	SweepInterval time.Duration `yaml:"sweep_interval" env-default:"1h"`
	SweepBatch    int           `yaml:"sweep_batch" env-default:"200"`
}

// MustLoad функция для загрузки конфига, возвращает конфиг, сгенерированный из config/config.go
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг по указанному пути и проверяет его.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет обязательные для запуска поля.
func (c *Config) Validate() error {
	var errs []error
	if c.StorageConnectionString == "" {
		errs = append(errs, errors.New("storage_connection_string is required"))
	}
	if c.JWTSecretKey == "" {
		errs = append(errs, errors.New("jwttoken.jwt_secret_key is required"))
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider))
	}
	if c.StripeEnabled && c.StripeSecretKey == "" {
		errs = append(errs, errors.New("stripe.secret_key is required when stripe is enabled"))
	}
	return errors.Join(errs...)
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"RabbitMQ:\n"+
			"  Exchange: %s\n"+
			"LLM:\n"+
			"  Provider: %s\n"+
			"  Model: %s\n"+
			"Stripe:\n"+
			"  Enabled: %t\n",
		c.Env,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.Exchange,
		c.LLM.Provider,
		c.Model,
		c.StripeEnabled,
	)
}
