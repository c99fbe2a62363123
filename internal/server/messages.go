package server

import (
	"guild-battle-tracker/internal/analysis"
	"guild-battle-tracker/internal/domain"
	"time"
)

type AnalyzeSheetRequest struct {
	SpreadsheetID string `json:"spreadsheetId" validate:"required"`
	Range         string `json:"range"`
	Period        string `json:"period" validate:"omitempty,period"`
	Guild         string `json:"guild" validate:"max=64"`
	Save          bool   `json:"save"`
}

// AnalyzeWorkbookRequest carries an xlsx file; Content is base64 in JSON.
type AnalyzeWorkbookRequest struct {
	Content    []byte `json:"content" validate:"required"`
	Sheet      string `json:"sheet"`
	Period     string `json:"period" validate:"omitempty,period"`
	Guild      string `json:"guild" validate:"max=64"`
	DamageUnit string `json:"damageUnit" validate:"omitempty,damageunit"`
	Save       bool   `json:"save"`
}

type AnalyzeScreenshotsRequest struct {
	Images [][]byte `json:"images" validate:"required,min=1,max=20"`
	Method string   `json:"method" validate:"omitempty,oneof=vision openai"`
	Period string   `json:"period" validate:"omitempty,period"`
	Guild  string   `json:"guild" validate:"max=64"`
	Save   bool     `json:"save"`
}

type AnalyzeTextRequest struct {
	Text   string `json:"text" validate:"required"`
	Period string `json:"period" validate:"omitempty,period"`
	Guild  string `json:"guild" validate:"max=64"`
	Save   bool   `json:"save"`
}

type AnalysisResponse struct {
	AnalysisID          string                   `json:"analysisId,omitempty"`
	Season              string                   `json:"season"`
	Guild               string                   `json:"guild"`
	Source              string                   `json:"source"`
	Players             []domain.CanonicalPlayer `json:"players"`
	Reports             []analysis.PlayerReport  `json:"reports"`
	Stats               domain.GuildStatistics   `json:"stats"`
	Insights            []string                 `json:"insights"`
	FallbackScreenshots []int                    `json:"fallbackScreenshots"`
	LowConfidence       bool                     `json:"lowConfidence"`
	Saved               bool                     `json:"saved"`
	AnalyzedAt          string                   `json:"analyzedAt"`
}

// AnalysisRequest names one season and guild. It is shared by the lookup,
// export and clear procedures.
type AnalysisRequest struct {
	Period string `json:"period" validate:"omitempty,period"`
	Guild  string `json:"guild" validate:"max=64"`
}

type ExportAnalysisResponse struct {
	AnalysisID string `json:"analysisId"`
	Filename   string `json:"filename"`
	Content    []byte `json:"content"`
}

type ClearAnalysesResponse struct {
	Deleted int64 `json:"deleted"`
}

type ListSeasonsRequest struct{}

type Season struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"startDate,omitempty"`
	IsActive  bool   `json:"isActive"`
}

type ListSeasonsResponse struct {
	Seasons []Season `json:"seasons"`
}

type ListGuildsRequest struct{}

type Guild struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

type ListGuildsResponse struct {
	Guilds []Guild `json:"guilds"`
}

type PlayerHistoryRequest struct {
	Guild      string `json:"guild" validate:"max=64"`
	PlayerName string `json:"playerName" validate:"required,max=20"`
	Limit      int    `json:"limit" validate:"gte=0,lte=500"`
}

type BattleResult struct {
	AnalysisID  string `json:"analysisId"`
	Season      string `json:"season"`
	Boss        string `json:"bossName"`
	Damage      int64  `json:"damage"`
	BattlesUsed int    `json:"battlesUsed"`
	Rank        int    `json:"rank"`
	CreatedAt   string `json:"createdAt"`
}

type PlayerHistoryResponse struct {
	PlayerName string         `json:"playerName"`
	Results    []BattleResult `json:"results"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
