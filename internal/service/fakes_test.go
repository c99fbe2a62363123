package service

import (
	"context"
	"guild-battle-tracker/internal/config"
	"guild-battle-tracker/internal/domain"
	"guild-battle-tracker/internal/events"
	"guild-battle-tracker/internal/repository"
	"sync"
)

type fakeSheets struct {
	grid [][]string
	err  error
}

func (f *fakeSheets) FetchGrid(context.Context, string, string) ([][]string, error) {
	return f.grid, f.err
}

type fakeStore struct {
	mu      sync.Mutex
	saved   []*domain.Analysis
	saveErr error

	latestSeason, latestGuild string
}

func (f *fakeStore) Save(_ context.Context, a *domain.Analysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	a.ID = "analysis-1"
	f.saved = append(f.saved, a)
	return nil
}

func (f *fakeStore) LoadLatest(_ context.Context, season, guild string) (*domain.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latestSeason, f.latestGuild = season, guild
	for i := len(f.saved) - 1; i >= 0; i-- {
		if f.saved[i].Season == season && f.saved[i].Guild == guild {
			return f.saved[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) ListSeasons(context.Context) ([]domain.Season, error) {
	return []domain.Season{{ID: 1, Name: "20-1", IsActive: true}}, nil
}

func (f *fakeStore) ListGuilds(context.Context) ([]domain.Guild, error) {
	return []domain.Guild{{ID: 1, Name: "Nova"}}, nil
}

func (f *fakeStore) PlayerHistory(_ context.Context, guild, player string, _ int) ([]domain.BattleResult, error) {
	return []domain.BattleResult{{Guild: guild, PlayerName: player, Boss: domain.RedVelvetDragon}}, nil
}

func (f *fakeStore) ClearAnalyses(_ context.Context, season, guild string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []*domain.Analysis
	var n int64
	for _, a := range f.saved {
		if a.Season == season && a.Guild == guild {
			n++
			continue
		}
		kept = append(kept, a)
	}
	f.saved = kept
	return n, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.AnalysisCompleted
}

func (f *fakePublisher) PublishAnalysisCompleted(_ context.Context, ev events.AnalysisCompleted) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

// fakeVision answers with the text registered for an image's payload.
type fakeVision struct {
	mu    sync.Mutex
	texts map[string]string
	err   error
	calls int
}

func (f *fakeVision) RecognizeText(_ context.Context, image []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.texts[string(image[len(pngMagic):])], nil
}

type fakeTranscriber struct {
	mu        sync.Mutex
	csv       string
	mimeTypes []string
}

func (f *fakeTranscriber) TranscribeCSV(_ context.Context, _ []byte, mimeType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mimeTypes = append(f.mimeTypes, mimeType)
	return f.csv, nil
}

const pngMagic = "\x89PNG\r\n\x1a\n"

func png(payload string) []byte {
	return []byte(pngMagic + payload)
}

func testConfig() *config.Config {
	return &config.Config{
		SheetDamageUnit:       "billions",
		DefaultPeriod:         1,
		ScreenshotConcurrency: 2,
		MaxScreenshotBytes:    1 << 20,
	}
}

// sheetRow fills the Red Velvet Dragon and Living Abyss sections of a
// 25 column player row.
func sheetRow(rank, name, rvdDamage, rvdBattles, laDamage, laBattles string) []string {
	row := make([]string, 25)
	row[0] = rank
	if rvdDamage != "" {
		row[1], row[2], row[3] = name, rvdDamage, rvdBattles
	}
	if laDamage != "" {
		row[15], row[16], row[17] = name, laDamage, laBattles
	}
	return row
}

func sheetGrid() [][]string {
	return [][]string{
		{"Guild Battle 20-1"},
		{"#", "Red Velvet Dragon"},
		sheetRow("1", "Alice", "10.00", "9", "9.00", "9"),
		sheetRow("2", "Bob", "8.00", "9", "", ""),
		{"DAMAGE REQ", "6.00"},
	}
}
