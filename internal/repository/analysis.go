package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"guild-battle-tracker/internal/constants"
	"guild-battle-tracker/internal/domain"
	"time"

	"github.com/goccy/go-json"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("not found")

type AnalysisRepository struct {
	queries *Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewAnalysisRepository(sqlDB *sql.DB, logger zerolog.Logger) *AnalysisRepository {
	return &AnalysisRepository{
		queries: NewQueries(sqlDB),
		db:      sqlDB,
		logger:  logger,
	}
}

// Save stores an analysis snapshot and its per-player battle results in one
// transaction. The season and guild rows are created on first use and the
// season becomes the active one. It fills in a.ID and a.AnalyzedAt.
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate analysis id: %w", err)
	}
	analyzedAt := time.Now().UTC()

	playersJSON, err := json.Marshal(a.Players)
	if err != nil {
		return fmt.Errorf("failed to encode players: %w", err)
	}
	statsJSON, err := json.Marshal(a.Stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	insightsJSON, err := json.Marshal(a.Insights)
	if err != nil {
		return fmt.Errorf("failed to encode insights: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	seasonID, err := qtx.UpsertSeason(ctx, a.Season)
	if err != nil {
		return fmt.Errorf("failed to upsert season %s: %w", a.Season, err)
	}
	if err := qtx.DeactivateOtherSeasons(ctx, seasonID); err != nil {
		return fmt.Errorf("failed to update active season: %w", err)
	}
	guildID, err := qtx.UpsertGuild(ctx, a.Guild)
	if err != nil {
		return fmt.Errorf("failed to upsert guild %s: %w", a.Guild, err)
	}

	err = qtx.InsertAnalysis(ctx, InsertAnalysisParams{
		ID:           id,
		SeasonID:     seasonID,
		GuildID:      guildID,
		Source:       a.Source,
		PlayersJSON:  playersJSON,
		StatsJSON:    statsJSON,
		InsightsJSON: insightsJSON,
		AnalyzedAt:   analyzedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	results := battleResults(id, seasonID, guildID, a.Players, analyzedAt)
	for i := 0; i < len(results); i += constants.DBBatchSize {
		end := min(i+constants.DBBatchSize, len(results))
		for _, br := range results[i:end] {
			if err := qtx.InsertBattleResult(ctx, br); err != nil {
				return fmt.Errorf("failed to insert battle result for %s: %w", br.PlayerName, err)
			}
		}
		r.logger.Debug().
			Str("analysis_id", id).
			Int("batch_start", i).
			Int("batch_end", end).
			Msg("battle results batch inserted")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	a.ID = id
	a.AnalyzedAt = analyzedAt

	r.logger.Info().
		Str("analysis_id", id).
		Str("season", a.Season).
		Str("guild", a.Guild).
		Int("players", len(a.Players)).
		Int("battle_results", len(results)).
		Msg("analysis saved")
	return nil
}

func battleResults(analysisID string, seasonID, guildID int64, players []domain.CanonicalPlayer, at time.Time) []InsertBattleResultParams {
	var out []InsertBattleResultParams
	for _, p := range players {
		for _, boss := range domain.Bosses {
			rec, ok := p.Bosses[boss]
			if !ok {
				continue
			}
			out = append(out, InsertBattleResultParams{
				AnalysisID:  analysisID,
				SeasonID:    seasonID,
				GuildID:     guildID,
				PlayerName:  p.PlayerName,
				Boss:        string(boss),
				Damage:      rec.Damage,
				BattlesUsed: int64(rec.BattlesUsed),
				PlayerRank:  int64(p.Rank),
				CreatedAt:   at,
			})
		}
	}
	return out
}

// LoadLatest returns the most recent analysis for a season and guild.
func (r *AnalysisRepository) LoadLatest(ctx context.Context, season, guild string) (*domain.Analysis, error) {
	row, err := r.queries.GetLatestAnalysis(ctx, season, guild)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis for %s/%s: %w", season, guild, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	}

	a := &domain.Analysis{
		ID:         row.ID,
		Season:     row.Season,
		Guild:      row.Guild,
		Source:     row.Source,
		AnalyzedAt: row.AnalyzedAt,
	}
	if err := json.Unmarshal([]byte(row.PlayersJSON), &a.Players); err != nil {
		return nil, fmt.Errorf("failed to decode players of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.StatsJSON), &a.Stats); err != nil {
		return nil, fmt.Errorf("failed to decode stats of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.InsightsJSON), &a.Insights); err != nil {
		return nil, fmt.Errorf("failed to decode insights of %s: %w", row.ID, err)
	}
	return a, nil
}

func (r *AnalysisRepository) ListSeasons(ctx context.Context) ([]domain.Season, error) {
	rows, err := r.queries.ListSeasons(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}

	seasons := make([]domain.Season, len(rows))
	for i, row := range rows {
		seasons[i] = domain.Season{
			ID:        row.ID,
			Name:      row.Name,
			IsActive:  row.IsActive,
			CreatedAt: row.CreatedAt,
		}
		if row.StartDate.Valid {
			seasons[i].StartDate = row.StartDate.Time
		}
	}
	return seasons, nil
}

func (r *AnalysisRepository) ListGuilds(ctx context.Context) ([]domain.Guild, error) {
	rows, err := r.queries.ListGuilds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list guilds: %w", err)
	}

	guilds := make([]domain.Guild, len(rows))
	for i, row := range rows {
		guilds[i] = domain.Guild{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt}
	}
	return guilds, nil
}

// PlayerHistory returns a player's stored boss results, newest first.
func (r *AnalysisRepository) PlayerHistory(ctx context.Context, guild, player string, limit int) ([]domain.BattleResult, error) {
	if limit <= 0 {
		limit = constants.PlayerHistoryLimit
	}
	rows, err := r.queries.GetPlayerHistory(ctx, guild, player, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to load history of %s: %w", player, err)
	}

	history := make([]domain.BattleResult, len(rows))
	for i, row := range rows {
		history[i] = domain.BattleResult{
			Season:      row.Season,
			Guild:       row.Guild,
			PlayerName:  row.PlayerName,
			Boss:        domain.Boss(row.Boss),
			Damage:      row.Damage,
			BattlesUsed: int(row.BattlesUsed),
			Rank:        int(row.PlayerRank),
			AnalysisID:  row.AnalysisID,
			CreatedAt:   row.CreatedAt,
		}
	}
	return history, nil
}

// ClearAnalyses deletes every stored analysis of a season and guild along
// with its battle results.
func (r *AnalysisRepository) ClearAnalyses(ctx context.Context, season, guild string) (int64, error) {
	n, err := r.queries.DeleteAnalyses(ctx, season, guild)
	if err != nil {
		return 0, fmt.Errorf("failed to clear analyses: %w", err)
	}
	r.logger.Info().Str("season", season).Str("guild", guild).Int64("deleted", n).Msg("analyses cleared")
	return n, nil
}
