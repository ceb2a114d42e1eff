package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8000"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	WebhookURL       string `envconfig:"WEBHOOK_URL"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY" required:"true"`
	OpenAIModel  string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY" required:"true"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	MerchantLogin     string `envconfig:"MERCHANT_LOGIN"`
	MerchantPassword1 string `envconfig:"MERCHANT_PASSWORD_1"`
	MerchantPassword2 string `envconfig:"MERCHANT_PASSWORD_2"`

	// MainBot distinguishes the public bot (payment offers) from the
	// premium instance.
	MainBot bool `envconfig:"IS_MAIN_BOT" default:"true"`

	InterpretMaxAttempts int `envconfig:"INTERPRET_MAX_ATTEMPTS" default:"8"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}
