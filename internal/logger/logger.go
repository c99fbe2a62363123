package logger

import (
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type options struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// New builds the process logger. It runs before configuration is loaded, so
// it reads LOG_LEVEL on its own.
func New() zerolog.Logger {
	_ = godotenv.Load()

	var opts options
	if err := env.Parse(&opts); err != nil {
		opts.Level = zerolog.InfoLevel.String()
	}
	return newLogger(os.Stdout, ParseLevel(opts.Level))
}

// ParseLevel maps a level name onto a zerolog level; unknown names are info.
func ParseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(name)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(w).
		With().
		Timestamp().
		Caller().
		Logger()

	return logger.Level(level)
}
