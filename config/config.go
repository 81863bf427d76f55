package config

import (
	"fmt"
	"log"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv        string `env:"APP_ENV" env-default:"dev"`
	Port          string `env:"PORT" env-default:"8080"`
	DBURL         string `env:"DB_URL" env-required:"true"`
	SessionSecret string `env:"SESSION_SECRET" env-required:"true"`
	JWTSecret     string `env:"JWT_SECRET" env-required:"true"`
	CORSOrigin    string `env:"CORS_ORIGIN" env-default:"http://localhost:5173"`

	Stripe Stripe
	Google Google
}

type Stripe struct {
	SecretKey      string `env:"STRIPE_SECRET_KEY" env-required:"true"`
	PublishableKey string `env:"STRIPE_PUBLISHABLE_KEY"`
	WebhookSecret  string `env:"STRIPE_WEBHOOK_SECRET"`
	// Single recurring plan every subscriber is put on.
	PlanID string `env:"STRIPE_PLAN_ID" env-default:"REG_MONTHLY"`
}

type Google struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func (c *Config) IsProd() bool {
	return c.AppEnv == "prod"
}

// GoogleEnabled reports whether Google sign-in routes should be served.
func (c *Config) GoogleEnabled() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != "" && c.Google.RedirectURL != ""
}
