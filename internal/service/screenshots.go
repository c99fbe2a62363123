package service

import (
	"context"
	"fmt"
	"guild-battle-tracker/internal/analysis"
	"guild-battle-tracker/internal/config"
	"guild-battle-tracker/internal/constants"
	"guild-battle-tracker/internal/domain"
	"guild-battle-tracker/internal/metrics"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Method string

const (
	// MethodVision reads screenshots with Google Vision OCR.
	MethodVision Method = "vision"
	// MethodOpenAI asks a vision chat model for a CSV transcript.
	MethodOpenAI Method = "openai"
)

func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodVision:
		return MethodVision, nil
	case MethodOpenAI:
		return MethodOpenAI, nil
	}
	return "", fmt.Errorf("%w: unknown method %q", ErrInvalidInput, s)
}

type TextRecognizer interface {
	RecognizeText(ctx context.Context, image []byte) (string, error)
}

type Transcriber interface {
	TranscribeCSV(ctx context.Context, image []byte, mimeType string) (string, error)
}

type ScreenshotService struct {
	vision      TextRecognizer
	transcriber Transcriber
	analyses    *AnalysisService
	fallback    FallbackDataset
	concurrency int
	maxBytes    int64
	logger      zerolog.Logger
}

func NewScreenshotService(vision TextRecognizer, transcriber Transcriber, analyses *AnalysisService, cfg *config.Config, logger zerolog.Logger) (*ScreenshotService, error) {
	fallback, err := LoadFallbackDataset(cfg.FallbackDatasetPath)
	if err != nil {
		return nil, err
	}
	if len(fallback) > 0 {
		logger.Info().Str("path", cfg.FallbackDatasetPath).Int("batches", len(fallback)).Msg("fallback dataset loaded")
	}

	return &ScreenshotService{
		vision:      vision,
		transcriber: transcriber,
		analyses:    analyses,
		fallback:    fallback,
		concurrency: cfg.ScreenshotConcurrency,
		maxBytes:    cfg.MaxScreenshotBytes,
		logger:      logger,
	}, nil
}

type screenshotRead struct {
	players   []domain.CanonicalPlayer
	confident bool
}

// Analyze transcribes every screenshot concurrently, sums the per-screenshot
// player sets and runs the stats pipeline over the result. Screenshot i is
// replaced by fallback batch i when it cannot be read with confidence.
func (s *ScreenshotService) Analyze(ctx context.Context, images [][]byte, method Method, opts Options) (*Outcome, error) {
	start := time.Now()

	mimeTypes, err := s.validate(images)
	if err != nil {
		metrics.RecordAnalysis(SourceScreenshots, err, 0, time.Since(start))
		return nil, err
	}

	s.logger.Info().
		Int("screenshots", len(images)).
		Str("method", string(method)).
		Str("season", opts.Selector.String()).
		Msg("analyzing screenshots")

	readCtx, cancel := context.WithTimeout(ctx, constants.TranscriptionTimeout)
	defer cancel()

	reads := make([]screenshotRead, len(images))
	g, gCtx := errgroup.WithContext(readCtx)
	g.SetLimit(s.concurrency)

	for i, img := range images {
		g.Go(func() error {
			read, err := s.read(gCtx, method, img, mimeTypes[i])
			if err != nil {
				s.logger.Error().Err(err).Int("screenshot", i).Str("method", string(method)).Msg("failed to read screenshot")
				return fmt.Errorf("failed to read screenshot %d: %w", i, err)
			}
			reads[i] = read
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		metrics.RecordAnalysis(SourceScreenshots, err, 0, time.Since(start))
		return nil, err
	}

	batches := make([][]domain.CanonicalPlayer, len(reads))
	var lowConfidence []int
	for i, read := range reads {
		if read.confident {
			batches[i] = read.players
			metrics.ScreenshotsTotal.WithLabelValues(string(method), "parsed").Inc()
			continue
		}

		lowConfidence = append(lowConfidence, i)
		if batch, ok := s.fallback.Batch(i); ok {
			s.logger.Warn().Int("screenshot", i).Int("players", len(batch)).Msg("using fallback data for screenshot")
			batches[i] = batch
			metrics.ScreenshotsTotal.WithLabelValues(string(method), "fallback").Inc()
			continue
		}
		s.logger.Warn().Int("screenshot", i).Msg("screenshot parsed with low confidence and no fallback is available")
		metrics.ScreenshotsTotal.WithLabelValues(string(method), "empty").Inc()
	}

	res := analysis.Analyze(analysis.MergeAdditive(batches...), opts.Selector)
	out := s.analyses.finish(ctx, SourceScreenshots, res, opts, start)
	out.FallbackScreenshots = lowConfidence
	out.LowConfidence = len(lowConfidence) > 0
	return out, nil
}

func (s *ScreenshotService) read(ctx context.Context, method Method, img []byte, mimeType string) (screenshotRead, error) {
	switch method {
	case MethodOpenAI:
		text, err := s.transcriber.TranscribeCSV(ctx, img, mimeType)
		if err != nil {
			return screenshotRead{}, err
		}
		players, ok := analysis.ParseTranscriptCSV(text, analysis.UnitBillions)
		return screenshotRead{players: players, confident: ok}, nil
	default:
		text, err := s.vision.RecognizeText(ctx, img)
		if err != nil {
			return screenshotRead{}, err
		}
		match, ok := analysis.MatchFreeformText(text)
		if ok {
			s.logger.Debug().Str("strategy", match.Strategy).Int("players", len(match.Players)).Msg("screenshot text matched")
		}
		return screenshotRead{players: match.Players, confident: ok}, nil
	}
}

// validate checks every image and returns the sniffed content types.
func (s *ScreenshotService) validate(images [][]byte) ([]string, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: at least one screenshot is required", ErrInvalidInput)
	}

	mimeTypes := make([]string, len(images))
	for i, img := range images {
		if len(img) == 0 {
			return nil, fmt.Errorf("%w: screenshot %d is empty", ErrInvalidInput, i)
		}
		if int64(len(img)) > s.maxBytes {
			return nil, fmt.Errorf("%w: screenshot %d is %d bytes, limit is %d", ErrInvalidInput, i, len(img), s.maxBytes)
		}
		mt := http.DetectContentType(img)
		if !strings.HasPrefix(mt, "image/") {
			return nil, fmt.Errorf("%w: screenshot %d is %s, not an image", ErrInvalidInput, i, mt)
		}
		mimeTypes[i] = mt
	}
	return mimeTypes, nil
}
