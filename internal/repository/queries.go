package repository

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const upsertSeason = `
INSERT INTO seasons (name, is_active) VALUES (?, 1)
ON CONFLICT(name) DO UPDATE SET is_active = 1
RETURNING id`

func (q *Queries) UpsertSeason(ctx context.Context, name string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, upsertSeason, name).Scan(&id)
	return id, err
}

const deactivateOtherSeasons = `UPDATE seasons SET is_active = 0 WHERE id != ?`

func (q *Queries) DeactivateOtherSeasons(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deactivateOtherSeasons, id)
	return err
}

const upsertGuild = `
INSERT INTO guilds (name) VALUES (?)
ON CONFLICT(name) DO UPDATE SET name = excluded.name
RETURNING id`

func (q *Queries) UpsertGuild(ctx context.Context, name string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, upsertGuild, name).Scan(&id)
	return id, err
}

type InsertAnalysisParams struct {
	ID           string
	SeasonID     int64
	GuildID      int64
	Source       string
	PlayersJSON  []byte
	StatsJSON    []byte
	InsightsJSON []byte
	AnalyzedAt   time.Time
}

const insertAnalysis = `
INSERT INTO analyses (id, season_id, guild_id, source, players_json, stats_json, insights_json, analyzed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertAnalysis(ctx context.Context, arg InsertAnalysisParams) error {
	_, err := q.db.ExecContext(ctx, insertAnalysis,
		arg.ID, arg.SeasonID, arg.GuildID, arg.Source,
		string(arg.PlayersJSON), string(arg.StatsJSON), string(arg.InsightsJSON), arg.AnalyzedAt)
	return err
}

type InsertBattleResultParams struct {
	AnalysisID  string
	SeasonID    int64
	GuildID     int64
	PlayerName  string
	Boss        string
	Damage      int64
	BattlesUsed int64
	PlayerRank  int64
	CreatedAt   time.Time
}

const insertBattleResult = `
INSERT INTO battle_results (analysis_id, season_id, guild_id, player_name, boss, damage, battles_used, player_rank, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertBattleResult(ctx context.Context, arg InsertBattleResultParams) error {
	_, err := q.db.ExecContext(ctx, insertBattleResult,
		arg.AnalysisID, arg.SeasonID, arg.GuildID, arg.PlayerName, arg.Boss,
		arg.Damage, arg.BattlesUsed, arg.PlayerRank, arg.CreatedAt)
	return err
}

type AnalysisRow struct {
	ID           string
	Season       string
	Guild        string
	Source       string
	PlayersJSON  string
	StatsJSON    string
	InsightsJSON string
	AnalyzedAt   time.Time
}

const getLatestAnalysis = `
SELECT a.id, s.name, g.name, a.source, a.players_json, a.stats_json, a.insights_json, a.analyzed_at
FROM analyses a
JOIN seasons s ON s.id = a.season_id
JOIN guilds g ON g.id = a.guild_id
WHERE s.name = ? AND g.name = ?
ORDER BY a.analyzed_at DESC, a.rowid DESC
LIMIT 1`

func (q *Queries) GetLatestAnalysis(ctx context.Context, season, guild string) (AnalysisRow, error) {
	var row AnalysisRow
	err := q.db.QueryRowContext(ctx, getLatestAnalysis, season, guild).Scan(
		&row.ID, &row.Season, &row.Guild, &row.Source,
		&row.PlayersJSON, &row.StatsJSON, &row.InsightsJSON, &row.AnalyzedAt,
	)
	return row, err
}

type SeasonRow struct {
	ID        int64
	Name      string
	StartDate sql.NullTime
	IsActive  bool
	CreatedAt time.Time
}

const listSeasons = `SELECT id, name, start_date, is_active, created_at FROM seasons ORDER BY created_at DESC, id DESC`

func (q *Queries) ListSeasons(ctx context.Context) ([]SeasonRow, error) {
	rows, err := q.db.QueryContext(ctx, listSeasons)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SeasonRow
	for rows.Next() {
		var i SeasonRow
		if err := rows.Scan(&i.ID, &i.Name, &i.StartDate, &i.IsActive, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type GuildRow struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

const listGuilds = `SELECT id, name, created_at FROM guilds ORDER BY name`

func (q *Queries) ListGuilds(ctx context.Context) ([]GuildRow, error) {
	rows, err := q.db.QueryContext(ctx, listGuilds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []GuildRow
	for rows.Next() {
		var i GuildRow
		if err := rows.Scan(&i.ID, &i.Name, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type BattleResultRow struct {
	Season      string
	Guild       string
	PlayerName  string
	Boss        string
	Damage      int64
	BattlesUsed int64
	PlayerRank  int64
	AnalysisID  string
	CreatedAt   time.Time
}

const getPlayerHistory = `
SELECT s.name, g.name, br.player_name, br.boss, br.damage, br.battles_used, br.player_rank, br.analysis_id, br.created_at
FROM battle_results br
JOIN seasons s ON s.id = br.season_id
JOIN guilds g ON g.id = br.guild_id
WHERE g.name = ? AND br.player_name = ?
ORDER BY br.created_at DESC, br.id
LIMIT ?`

func (q *Queries) GetPlayerHistory(ctx context.Context, guild, player string, limit int64) ([]BattleResultRow, error) {
	rows, err := q.db.QueryContext(ctx, getPlayerHistory, guild, player, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []BattleResultRow
	for rows.Next() {
		var i BattleResultRow
		if err := rows.Scan(&i.Season, &i.Guild, &i.PlayerName, &i.Boss, &i.Damage,
			&i.BattlesUsed, &i.PlayerRank, &i.AnalysisID, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteAnalyses = `
DELETE FROM analyses
WHERE season_id = (SELECT id FROM seasons WHERE name = ?)
  AND guild_id = (SELECT id FROM guilds WHERE name = ?)`

func (q *Queries) DeleteAnalyses(ctx context.Context, season, guild string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteAnalyses, season, guild)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
