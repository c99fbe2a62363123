package analysis

import (
	"guild-battle-tracker/internal/domain"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGenerateInsights(t *testing.T) {
	ranked := Rank(roster())
	stats := ComputeStats(ranked, periodOne)

	got := GenerateInsights(ranked, stats, periodOne)
	want := []string{
		"Alice achieved the highest total damage with 24.0B",
		"3/3 players took part in boss battles (100%)",
		"Excellent guild participation with high battle engagement",
		"50/54 tickets used on Red Velvet Dragon and Living Abyss (average 16.7 of 18 per player)",
		"1/3 players used fewer than the minimum of 15 tickets",
		"3/3 participants meet the Red Velvet Dragon requirement (6.0B+)",
		"0/3 participants meet the Living Abyss requirement (12.0B+)",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GenerateInsights mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateInsightsProfileLines(t *testing.T) {
	players := roster()
	players[1].PlayerLevel = 61
	players[1].GuildRank = domain.RankLeader
	players[2].PlayerLevel = 58
	players[2].GuildRank = domain.RankOfficer
	players[0].PlayerLevel = 40
	players[0].GuildRank = domain.RankMember

	ranked := Rank(players)
	stats := ComputeStats(ranked, periodOne)
	got := GenerateInsights(ranked, stats, periodOne)

	if got[0] != "Alice (Lv.61) achieved the highest total damage with 24.0B" {
		t.Errorf("first insight = %q", got[0])
	}
	tail := got[len(got)-2:]
	want := []string{
		"Guild structure: 1 Leader, 1 Officer, 1 Members",
		"Average player level: 53",
	}
	if diff := cmp.Diff(want, tail); diff != "" {
		t.Errorf("profile insights mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateInsightsCompliance(t *testing.T) {
	players := []domain.CanonicalPlayer{
		player("Alice", record(domain.RedVelvetDragon, 10_000_000_000, 9), record(domain.LivingAbyss, 1, 9)),
		player("Bob", record(domain.RedVelvetDragon, 9_000_000_000, 9), record(domain.LivingAbyss, 1, 7)),
	}
	ranked := Rank(players)
	got := GenerateInsights(ranked, ComputeStats(ranked, periodOne), periodOne)

	found := false
	for _, line := range got {
		if line == "All 2 players used at least the minimum of 15 tickets" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected full compliance line in %q", got)
	}
}

func TestGenerateInsightsLowParticipation(t *testing.T) {
	players := append(roster(), player("Idle1"), player("Idle2"), player("Idle3"))
	ranked := Rank(players)
	got := GenerateInsights(ranked, ComputeStats(ranked, periodOne), periodOne)

	if got[1] != "3/6 players took part in boss battles (50%)" {
		t.Errorf("participation line = %q", got[1])
	}
	if !strings.HasPrefix(got[2], "Low participation rate") {
		t.Errorf("expected low participation verdict, got %q", got[2])
	}
}

func TestGenerateInsightsEmpty(t *testing.T) {
	got := GenerateInsights(nil, ComputeStats(nil, periodOne), periodOne)
	if diff := cmp.Diff([]string{"No player data available for this analysis"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestInsightsStopsEarly(t *testing.T) {
	ranked := Rank(roster())
	stats := ComputeStats(ranked, periodOne)

	var seen []string
	for line := range Insights(ranked, stats, periodOne) {
		seen = append(seen, line)
		if len(seen) == 2 {
			break
		}
	}
	if len(seen) != 2 {
		t.Fatalf("expected to stop after 2 insights, got %d", len(seen))
	}
	if !strings.Contains(seen[0], "highest total damage") {
		t.Errorf("first insight should name the top performer, got %q", seen[0])
	}
}

func TestInsightsArePlainText(t *testing.T) {
	ranked := Rank(roster())
	for _, line := range GenerateInsights(ranked, ComputeStats(ranked, periodOne), periodOne) {
		for _, r := range line {
			if r > 0x2000 {
				t.Errorf("insight %q contains non-text rune %U", line, r)
			}
		}
	}
}
