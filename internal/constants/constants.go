package constants

import "time"

const (
	ExternalAPITimeout   = 10 * time.Second
	TranscriptionTimeout = 60 * time.Second
	DatabaseTimeout      = 5 * time.Second
	RequestTimeout       = 90 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	BreakerMaxRequests      = 1
	BreakerInterval         = 1 * time.Minute
	BreakerTimeout          = 30 * time.Second
	BreakerFailureThreshold = 5
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	PlayerHistoryLimit = 50
	MaxRequestBytes    = 64 << 20
)
