package config

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/Skotchmaster/phenofarm/pkg/config"
)

type ServiceConfig struct {
	config.Config
	Pricing Pricing
}

// Load reads .env when present, then the environment, then the pricing
// file named by PRICING_CONFIG. Missing required values abort startup.
func Load() (ServiceConfig, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := config.Load()

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustPositive(cfg.ServerPort, "SERVER_PORT")

	pricing, err := LoadPricing(cfg.PricingConfigPath)
	if err != nil {
		return ServiceConfig{}, err
	}

	return ServiceConfig{Config: cfg, Pricing: pricing}, nil
}
