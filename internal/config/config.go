package config

import (
	"fmt"
	"guild-battle-tracker/internal/analysis"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	DBPath     string `env:"DB_PATH" envDefault:"guildbattle.db"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	SheetsAPIKey  string `env:"GOOGLE_SHEETS_API_KEY"`
	VisionAPIKey  string `env:"GOOGLE_VISION_API_KEY"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	SheetsBaseURL string `env:"SHEETS_BASE_URL" envDefault:"https://sheets.googleapis.com"`
	VisionBaseURL string `env:"VISION_BASE_URL" envDefault:"https://vision.googleapis.com"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com"`

	SheetDamageUnit     string `env:"SHEET_DAMAGE_UNIT" envDefault:"billions"`
	DefaultPeriod       int    `env:"DEFAULT_PERIOD" envDefault:"1"`
	FallbackDatasetPath string `env:"FALLBACK_DATASET_PATH"`

	NATSURL     string `env:"NATS_URL"`
	NATSSubject string `env:"NATS_SUBJECT" envDefault:"guildbattle.analysis.completed"`

	ScreenshotConcurrency int   `env:"SCREENSHOT_CONCURRENCY" envDefault:"4"`
	MaxScreenshotBytes    int64 `env:"MAX_SCREENSHOT_BYTES" envDefault:"10485760"`
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("sheet_damage_unit", cfg.SheetDamageUnit).
		Int("default_period", cfg.DefaultPeriod).
		Bool("sheets_enabled", cfg.SheetsAPIKey != "").
		Bool("vision_enabled", cfg.VisionAPIKey != "").
		Bool("openai_enabled", cfg.OpenAIAPIKey != "").
		Bool("nats_enabled", cfg.NATSURL != "").
		Msg("configuration loaded")

	return &cfg, nil
}

// Validate checks the settings that env tags cannot express.
func (c Config) Validate() error {
	if _, err := analysis.ParseDamageUnit(c.SheetDamageUnit); err != nil {
		return fmt.Errorf("SHEET_DAMAGE_UNIT: %w", err)
	}
	if _, ok := analysis.RulesFor(analysis.SeasonSelector{Period: analysis.Period(c.DefaultPeriod)}); !ok {
		return fmt.Errorf("DEFAULT_PERIOD: %w: %d", analysis.ErrUnknownPeriod, c.DefaultPeriod)
	}
	if c.ScreenshotConcurrency < 1 {
		return fmt.Errorf("SCREENSHOT_CONCURRENCY must be at least 1, got %d", c.ScreenshotConcurrency)
	}
	if c.MaxScreenshotBytes < 1 {
		return fmt.Errorf("MAX_SCREENSHOT_BYTES must be positive, got %d", c.MaxScreenshotBytes)
	}
	return nil
}

// DamageUnit is the unit bare sheet numbers are written in.
func (c Config) DamageUnit() analysis.DamageUnit {
	u, err := analysis.ParseDamageUnit(c.SheetDamageUnit)
	if err != nil {
		return analysis.UnitBillions
	}
	return u
}

func (c Config) DefaultSelector() analysis.SeasonSelector {
	return analysis.SeasonSelector{Period: analysis.Period(c.DefaultPeriod)}
}
