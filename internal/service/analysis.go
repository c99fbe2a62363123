package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"guild-battle-tracker/internal/analysis"
	"guild-battle-tracker/internal/config"
	"guild-battle-tracker/internal/constants"
	"guild-battle-tracker/internal/domain"
	"guild-battle-tracker/internal/events"
	"guild-battle-tracker/internal/export"
	"guild-battle-tracker/internal/metrics"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	SourceSheet       = "sheet"
	SourceWorkbook    = "workbook"
	SourceScreenshots = "screenshots"
	SourceText        = "text"
)

// DefaultGuild is used when a request does not name a guild.
const DefaultGuild = "default"

// ErrInvalidInput marks requests whose payload cannot be analysed at all.
var ErrInvalidInput = errors.New("invalid input")

type SheetFetcher interface {
	FetchGrid(ctx context.Context, spreadsheetID, rng string) ([][]string, error)
}

// AnalysisStore persists analyses. It is satisfied by
// repository.AnalysisRepository.
type AnalysisStore interface {
	Save(ctx context.Context, a *domain.Analysis) error
	LoadLatest(ctx context.Context, season, guild string) (*domain.Analysis, error)
	ListSeasons(ctx context.Context) ([]domain.Season, error)
	ListGuilds(ctx context.Context) ([]domain.Guild, error)
	PlayerHistory(ctx context.Context, guild, player string, limit int) ([]domain.BattleResult, error)
	ClearAnalyses(ctx context.Context, season, guild string) (int64, error)
}

// Options are shared by every analysis entry point.
type Options struct {
	Selector analysis.SeasonSelector
	Guild    string
	Save     bool
}

// Outcome is one finished analysis.
type Outcome struct {
	Analysis *domain.Analysis
	Saved    bool
	// FallbackScreenshots lists the screenshots whose text could not be
	// parsed with confidence.
	FallbackScreenshots []int
	// LowConfidence is set when some input could not be parsed with
	// confidence, so the players may be incomplete.
	LowConfidence bool
}

type AnalysisService struct {
	sheets SheetFetcher
	store  AnalysisStore
	events events.Publisher
	unit   analysis.DamageUnit
	logger zerolog.Logger
}

func NewAnalysisService(sheets SheetFetcher, store AnalysisStore, publisher events.Publisher, cfg *config.Config, logger zerolog.Logger) *AnalysisService {
	return &AnalysisService{
		sheets: sheets,
		store:  store,
		events: publisher,
		unit:   cfg.DamageUnit(),
		logger: logger,
	}
}

func (s *AnalysisService) AnalyzeSheet(ctx context.Context, spreadsheetID, rng string, opts Options) (*Outcome, error) {
	start := time.Now()
	s.logger.Info().
		Str("spreadsheet_id", spreadsheetID).
		Str("range", rng).
		Str("season", opts.Selector.String()).
		Msg("analyzing sheet")

	apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	grid, err := s.sheets.FetchGrid(apiCtx, spreadsheetID, rng)
	if err != nil {
		s.logger.Error().Err(err).Str("spreadsheet_id", spreadsheetID).Msg("failed to fetch sheet")
		metrics.RecordAnalysis(SourceSheet, err, 0, time.Since(start))
		return nil, fmt.Errorf("failed to fetch sheet: %w", err)
	}

	s.logger.Debug().Int("rows", len(grid)).Msg("sheet fetched")

	res := analysis.AnalyzeGrid(grid, analysis.DefaultLayout(s.unit), opts.Selector)
	return s.finish(ctx, SourceSheet, res, opts, start), nil
}

// AnalyzeWorkbook runs the structured pipeline over an uploaded xlsx file.
// An empty unit means the configured sheet unit.
func (s *AnalysisService) AnalyzeWorkbook(ctx context.Context, content []byte, sheet string, unit analysis.DamageUnit, opts Options) (*Outcome, error) {
	start := time.Now()
	if unit == "" {
		unit = s.unit
	}

	grid, err := export.ReadGrid(bytes.NewReader(content), sheet)
	if err != nil {
		s.logger.Warn().Err(err).Str("sheet", sheet).Msg("failed to read workbook")
		metrics.RecordAnalysis(SourceWorkbook, err, 0, time.Since(start))
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	res := analysis.AnalyzeGrid(grid, analysis.DefaultLayout(unit), opts.Selector)
	return s.finish(ctx, SourceWorkbook, res, opts, start), nil
}

// AnalyzeText parses already transcribed text. Freeform OCR output is tried
// first, then the CSV transcript layout. Text that neither reads with
// confidence yields a low confidence analysis with no players.
func (s *AnalysisService) AnalyzeText(ctx context.Context, text string, opts Options) (*Outcome, error) {
	start := time.Now()

	var players []domain.CanonicalPlayer
	lowConfidence := false
	if match, ok := analysis.MatchFreeformText(text); ok {
		s.logger.Debug().Str("strategy", match.Strategy).Int("players", len(match.Players)).Msg("freeform text matched")
		players = match.Players
	} else if parsed, ok := analysis.ParseTranscriptCSV(text, analysis.UnitBillions); ok {
		s.logger.Debug().Int("players", len(parsed)).Msg("text read as csv transcript")
		players = parsed
	} else {
		s.logger.Warn().Int("length", len(text)).Msg("text parsed with low confidence")
		lowConfidence = true
	}

	res := analysis.Analyze(players, opts.Selector)
	out := s.finish(ctx, SourceText, res, opts, start)
	out.LowConfidence = lowConfidence
	return out, nil
}

func (s *AnalysisService) finish(ctx context.Context, source string, res analysis.Result, opts Options, start time.Time) *Outcome {
	a := &domain.Analysis{
		Season:     opts.Selector.String(),
		Guild:      guildOrDefault(opts.Guild),
		Source:     source,
		Players:    res.Players,
		Stats:      res.Stats,
		Insights:   res.Insights,
		AnalyzedAt: time.Now().UTC(),
	}

	out := &Outcome{Analysis: a}
	if opts.Save {
		out.Saved = s.persist(ctx, a)
	}

	elapsed := time.Since(start)
	metrics.RecordAnalysis(source, nil, len(a.Players), elapsed)

	s.logger.Info().
		Str("source", source).
		Str("season", a.Season).
		Str("guild", a.Guild).
		Int("players", len(a.Players)).
		Int64("guild_score", a.Stats.GuildScore).
		Bool("saved", out.Saved).
		Dur("duration", elapsed).
		Msg("analysis finished")

	return out
}

// persist stores a and announces it. Storage is a cache for the caller, so
// failures are logged and reported as not saved.
func (s *AnalysisService) persist(ctx context.Context, a *domain.Analysis) bool {
	if len(a.Players) == 0 {
		s.logger.Debug().Str("source", a.Source).Msg("skipping save of empty analysis")
		return false
	}

	dbCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if err := s.store.Save(dbCtx, a); err != nil {
		s.logger.Warn().Err(err).Str("season", a.Season).Str("guild", a.Guild).Msg("failed to save analysis")
		return false
	}

	pubCtx, pubCancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer pubCancel()

	err := s.events.PublishAnalysisCompleted(pubCtx, events.AnalysisCompleted{
		AnalysisID:   a.ID,
		Season:       a.Season,
		Guild:        a.Guild,
		Source:       a.Source,
		TotalPlayers: a.Stats.TotalPlayers,
		GuildScore:   a.Stats.GuildScore,
		AnalyzedAt:   a.AnalyzedAt,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("analysis_id", a.ID).Msg("failed to publish analysis event")
	}
	return true
}

func (s *AnalysisService) LatestAnalysis(ctx context.Context, sel analysis.SeasonSelector, guild string) (*domain.Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	a, err := s.store.LoadLatest(ctx, sel.String(), guildOrDefault(guild))
	if err != nil {
		return nil, fmt.Errorf("failed to load latest analysis: %w", err)
	}
	return a, nil
}

// Export renders the latest stored analysis of a season and guild as xlsx.
func (s *AnalysisService) Export(ctx context.Context, sel analysis.SeasonSelector, guild string) ([]byte, *domain.Analysis, error) {
	a, err := s.LatestAnalysis(ctx, sel, guild)
	if err != nil {
		return nil, nil, err
	}

	content, err := export.Workbook(a)
	if err != nil {
		s.logger.Error().Err(err).Str("analysis_id", a.ID).Msg("failed to build workbook")
		return nil, nil, fmt.Errorf("failed to export analysis: %w", err)
	}
	return content, a, nil
}

func (s *AnalysisService) ListSeasons(ctx context.Context) ([]domain.Season, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.store.ListSeasons(ctx)
}

func (s *AnalysisService) ListGuilds(ctx context.Context) ([]domain.Guild, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.store.ListGuilds(ctx)
}

func (s *AnalysisService) PlayerHistory(ctx context.Context, guild, player string, limit int) ([]domain.BattleResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.store.PlayerHistory(ctx, guildOrDefault(guild), strings.TrimSpace(player), limit)
}

func (s *AnalysisService) ClearAnalyses(ctx context.Context, sel analysis.SeasonSelector, guild string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	n, err := s.store.ClearAnalyses(ctx, sel.String(), guildOrDefault(guild))
	if err != nil {
		return 0, err
	}
	s.logger.Info().Str("season", sel.String()).Str("guild", guildOrDefault(guild)).Int64("deleted", n).Msg("analyses cleared")
	return n, nil
}

func guildOrDefault(guild string) string {
	if g := strings.TrimSpace(guild); g != "" {
		return g
	}
	return DefaultGuild
}
