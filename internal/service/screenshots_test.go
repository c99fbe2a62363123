package service

import (
	"context"
	"errors"
	"guild-battle-tracker/internal/api"
	"guild-battle-tracker/internal/domain"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

const rosterScreen = "Diverged Lv.61 x9 1,000 x3 2,000 x9 3,000\nKaze Lv.58 x9 4,000 N/A x5 500"

const secondScreen = "Kaze Lv.58 x9 6,000 N/A N/A\nMirae Lv.40 x4 700 N/A x2 300"

func newTestScreenshotService(t *testing.T, vision *fakeVision, transcriber *fakeTranscriber, fallbackPath string) (*ScreenshotService, *fakeStore) {
	t.Helper()
	cfg := testConfig()
	cfg.FallbackDatasetPath = fallbackPath

	store := &fakeStore{}
	analyses := NewAnalysisService(&fakeSheets{}, store, &fakePublisher{}, cfg, zerolog.Nop())
	svc, err := NewScreenshotService(vision, transcriber, analyses, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewScreenshotService: %v", err)
	}
	return svc, store
}

func playerByName(players []domain.CanonicalPlayer, name string) (domain.CanonicalPlayer, bool) {
	for _, p := range players {
		if p.PlayerName == name {
			return p, true
		}
	}
	return domain.CanonicalPlayer{}, false
}

func TestAnalyzeScreenshotsSumsAcrossImages(t *testing.T) {
	vision := &fakeVision{texts: map[string]string{"first": rosterScreen, "second": secondScreen}}
	svc, _ := newTestScreenshotService(t, vision, &fakeTranscriber{}, "")

	out, err := svc.Analyze(context.Background(), [][]byte{png("first"), png("second")}, MethodVision, Options{Selector: season20p1})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if vision.calls != 2 {
		t.Errorf("vision calls = %d, want 2", vision.calls)
	}
	if len(out.FallbackScreenshots) != 0 || out.LowConfidence {
		t.Errorf("unexpected fallback screenshots %v", out.FallbackScreenshots)
	}

	players := out.Analysis.Players
	if len(players) != 3 {
		t.Fatalf("players = %d, want 3", len(players))
	}
	kaze, _ := playerByName(players, "Kaze")
	rvd := kaze.Bosses[domain.RedVelvetDragon]
	if rvd.Damage != 10_000 || rvd.BattlesUsed != 18 {
		t.Errorf("Kaze RVD = %+v, want 10000 over 18 battles", rvd)
	}
	if players[0].PlayerName != "Kaze" || players[0].Rank != 1 {
		t.Errorf("top player = %s rank %d", players[0].PlayerName, players[0].Rank)
	}
	if out.Analysis.Source != SourceScreenshots {
		t.Errorf("source = %s", out.Analysis.Source)
	}
}

func TestAnalyzeScreenshotsUsesFallbackDataset(t *testing.T) {
	vision := &fakeVision{texts: map[string]string{"noise": "blurry", "roster": rosterScreen}}
	svc, _ := newTestScreenshotService(t, vision, &fakeTranscriber{}, filepath.Join("testdata", "fallback.json"))

	out, err := svc.Analyze(context.Background(), [][]byte{png("noise"), png("roster")}, MethodVision, Options{Selector: season20p1})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if diff := cmp.Diff([]int{0}, out.FallbackScreenshots); diff != "" {
		t.Errorf("fallback screenshots mismatch (-want +got):\n%s", diff)
	}

	diverged, ok := playerByName(out.Analysis.Players, "Diverged")
	if !ok {
		t.Fatal("Diverged missing")
	}
	rvd := diverged.Bosses[domain.RedVelvetDragon]
	if rvd.Damage != 20_000_001_000 || rvd.BattlesUsed != 18 {
		t.Errorf("Diverged RVD = %+v", rvd)
	}
	if diverged.GuildRank != domain.RankLeader {
		t.Errorf("Diverged guild rank = %s", diverged.GuildRank)
	}
	if _, ok := playerByName(out.Analysis.Players, "Mirae"); !ok {
		t.Error("fallback player Mirae missing")
	}
}

func TestAnalyzeScreenshotsWithoutFallbackData(t *testing.T) {
	vision := &fakeVision{texts: map[string]string{"roster": rosterScreen}}
	// Batch 1 of the dataset is empty, so screenshot 1 has nothing to substitute.
	svc, _ := newTestScreenshotService(t, vision, &fakeTranscriber{}, filepath.Join("testdata", "fallback.json"))

	out, err := svc.Analyze(context.Background(), [][]byte{png("roster"), png("noise")}, MethodVision, Options{Selector: season20p1})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if diff := cmp.Diff([]int{1}, out.FallbackScreenshots); diff != "" {
		t.Errorf("fallback screenshots mismatch (-want +got):\n%s", diff)
	}
	if !out.LowConfidence {
		t.Error("expected the outcome to be flagged low confidence")
	}
	if len(out.Analysis.Players) != 2 {
		t.Errorf("players = %d, want 2", len(out.Analysis.Players))
	}
}

func TestAnalyzeScreenshotsOpenAI(t *testing.T) {
	transcriber := &fakeTranscriber{csv: "```csv\nRank,Player Name,RVD Damage,RVD Unit,RVD Battles\n1,Diverged,53.70,Billion,9\n2,Kaze,41.2,B,9\n```"}
	svc, store := newTestScreenshotService(t, &fakeVision{}, transcriber, "")

	out, err := svc.Analyze(context.Background(), [][]byte{png("a")}, MethodOpenAI, Options{Selector: season20p1, Guild: "Nova", Save: true})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if diff := cmp.Diff([]string{"image/png"}, transcriber.mimeTypes); diff != "" {
		t.Errorf("mime types mismatch (-want +got):\n%s", diff)
	}
	if got := out.Analysis.Stats.GuildScore; got != 94_900_000_000 {
		t.Errorf("guild score = %d", got)
	}
	if !out.Saved || len(store.saved) != 1 {
		t.Error("expected the analysis to be saved")
	}
}

func TestAnalyzeScreenshotsPropagatesUpstreamErrors(t *testing.T) {
	vision := &fakeVision{err: api.ErrServiceUnavailable}
	svc, _ := newTestScreenshotService(t, vision, &fakeTranscriber{}, "")

	_, err := svc.Analyze(context.Background(), [][]byte{png("a"), png("b")}, MethodVision, Options{Selector: season20p1})
	if !errors.Is(err, api.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestAnalyzeScreenshotsValidation(t *testing.T) {
	svc, _ := newTestScreenshotService(t, &fakeVision{}, &fakeTranscriber{}, "")

	tests := []struct {
		name   string
		images [][]byte
		want   string
	}{
		{"no images", nil, "at least one screenshot"},
		{"empty image", [][]byte{png("a"), {}}, "screenshot 1 is empty"},
		{"not an image", [][]byte{[]byte("hello, world")}, "not an image"},
		{"too large", [][]byte{png(strings.Repeat("x", 1<<20))}, "limit is"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Analyze(context.Background(), tt.images, MethodVision, Options{Selector: season20p1})
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"", MethodVision, false},
		{"vision", MethodVision, false},
		{" OpenAI ", MethodOpenAI, false},
		{"tesseract", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMethod(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMethod(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLoadFallbackDataset(t *testing.T) {
	ds, err := LoadFallbackDataset(filepath.Join("testdata", "fallback.json"))
	if err != nil {
		t.Fatalf("LoadFallbackDataset: %v", err)
	}

	batch, ok := ds.Batch(0)
	if !ok || len(batch) != 2 {
		t.Fatalf("batch 0 = %v, %v", batch, ok)
	}
	batch[0].Bosses[domain.RedVelvetDragon] = domain.BossEncounterRecord{}
	again, _ := ds.Batch(0)
	if again[0].Bosses[domain.RedVelvetDragon].Damage != 20_000_000_000 {
		t.Error("Batch should hand out copies")
	}

	if _, ok := ds.Batch(1); ok {
		t.Error("empty batch should not be offered")
	}
	if _, ok := ds.Batch(5); ok {
		t.Error("out of range batch should not be offered")
	}

	if ds, err := LoadFallbackDataset(""); err != nil || ds != nil {
		t.Errorf("empty path = %v, %v", ds, err)
	}
	if _, err := LoadFallbackDataset(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for a missing file")
	}
}
