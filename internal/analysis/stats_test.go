package analysis

import (
	"guild-battle-tracker/internal/domain"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var periodOne = SeasonSelector{Season: 20, Period: 1}

// roster is three players whose period 1 tickets are 18, 18 and 14.
func roster() []domain.CanonicalPlayer {
	return []domain.CanonicalPlayer{
		player("Carol",
			record(domain.RedVelvetDragon, 6_000_000_000, 9),
			record(domain.LivingAbyss, 5_000_000_000, 5)),
		player("Alice",
			record(domain.RedVelvetDragon, 10_000_000_000, 9),
			record(domain.AvatarOfDestiny, 5_000_000_000, 3),
			record(domain.LivingAbyss, 9_000_000_000, 9)),
		player("Bob",
			record(domain.RedVelvetDragon, 8_000_000_000, 9),
			record(domain.LivingAbyss, 9_500_000_000, 9)),
	}
}

func TestRank(t *testing.T) {
	in := roster()
	got := Rank(in)

	names := make([]string, len(got))
	for i, p := range got {
		names[i] = p.PlayerName
		if p.Rank != i+1 {
			t.Errorf("%s: rank = %d, want %d", p.PlayerName, p.Rank, i+1)
		}
	}
	if diff := cmp.Diff([]string{"Alice", "Bob", "Carol"}, names); diff != "" {
		t.Errorf("rank order mismatch (-want +got):\n%s", diff)
	}
	if in[0].Rank != 0 {
		t.Error("Rank mutated its input")
	}
}

func TestRankTiesKeepInputOrder(t *testing.T) {
	got := Rank([]domain.CanonicalPlayer{
		player("Zed", record(domain.RedVelvetDragon, 100, 1)),
		player("Amy", record(domain.AvatarOfDestiny, 100, 1)),
		player("Max", record(domain.LivingAbyss, 200, 1)),
	})
	want := []string{"Max", "Zed", "Amy"}
	for i, name := range want {
		if got[i].PlayerName != name || got[i].Rank != i+1 {
			t.Errorf("position %d: got %s rank %d, want %s rank %d", i, got[i].PlayerName, got[i].Rank, name, i+1)
		}
	}
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats(roster(), periodOne)

	if stats.TotalPlayers != 3 {
		t.Errorf("TotalPlayers = %d, want 3", stats.TotalPlayers)
	}
	if stats.GuildScore != 52_500_000_000 {
		t.Errorf("GuildScore = %d, want 52500000000", stats.GuildScore)
	}
	if stats.HighestDamage != 24_000_000_000 {
		t.Errorf("HighestDamage = %d, want 24000000000", stats.HighestDamage)
	}
	if stats.AverageDamage != 17_500_000_000 {
		t.Errorf("AverageDamage = %d, want 17500000000", stats.AverageDamage)
	}
	if stats.TotalBattlesDone != 53 {
		t.Errorf("TotalBattlesDone = %d, want 53", stats.TotalBattlesDone)
	}
	if len(stats.TopPerformers) != 3 || stats.TopPerformers[0].PlayerName != "Alice" {
		t.Errorf("unexpected top performers: %+v", stats.TopPerformers)
	}

	wantBosses := map[domain.Boss]domain.BossStats{
		domain.RedVelvetDragon: {TotalDamage: 24_000_000_000, AverageDamage: 8_000_000_000, Participants: 3},
		domain.AvatarOfDestiny: {TotalDamage: 5_000_000_000, AverageDamage: 5_000_000_000, Participants: 1},
		domain.LivingAbyss:     {TotalDamage: 23_500_000_000, AverageDamage: 7_833_333_333, Participants: 3},
		domain.MachineGod:      {},
	}
	if diff := cmp.Diff(wantBosses, stats.BossStats); diff != "" {
		t.Errorf("BossStats mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeStatsTickets(t *testing.T) {
	ts := ComputeStats(roster(), periodOne).TicketStats

	want := domain.TicketStats{
		TotalTicketsUsed:    50,
		TotalTicketsMissed:  4,
		PlayersBelowMinimum: 1,
		AverageTicketsUsed:  50.0 / 3.0,
		MaxTickets:          18,
		MinTickets:          15,
		PerBoss: map[domain.Boss]domain.BossTicketStats{
			domain.RedVelvetDragon: {TicketsUsed: 27, TicketsMissed: 0, Participants: 3, PlayersAtCap: 3},
			domain.LivingAbyss:     {TicketsUsed: 23, TicketsMissed: 4, Participants: 3, PlayersAtCap: 2},
		},
	}
	if diff := cmp.Diff(want, ts); diff != "" {
		t.Errorf("TicketStats mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeStatsClampsTicketsPerBoss(t *testing.T) {
	players := []domain.CanonicalPlayer{
		player("Greedy", record(domain.RedVelvetDragon, 100, 14), record(domain.LivingAbyss, 100, 2)),
	}
	ts := ComputeStats(players, periodOne).TicketStats
	if ts.TotalTicketsUsed != 11 {
		t.Errorf("TotalTicketsUsed = %d, want 11", ts.TotalTicketsUsed)
	}
	if ts.PlayersBelowMinimum != 1 {
		t.Errorf("PlayersBelowMinimum = %d, want 1", ts.PlayersBelowMinimum)
	}
	if got := TicketsUsed(players[0], periodOne); got != 11 {
		t.Errorf("TicketsUsed = %d, want 11", got)
	}
}

func TestComputeStatsSecondPeriod(t *testing.T) {
	sel := SeasonSelector{Season: 20, Period: 2}
	ts := ComputeStats(roster(), sel).TicketStats

	if ts.TotalTicketsUsed != 3 {
		t.Errorf("TotalTicketsUsed = %d, want 3", ts.TotalTicketsUsed)
	}
	if ts.PlayersBelowMinimum != 3 {
		t.Errorf("PlayersBelowMinimum = %d, want 3", ts.PlayersBelowMinimum)
	}
	if _, ok := ts.PerBoss[domain.RedVelvetDragon]; ok {
		t.Error("inactive boss should not appear in per-boss ticket stats")
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats(nil, periodOne)
	if stats.TotalPlayers != 0 || stats.GuildScore != 0 || stats.AverageDamage != 0 || stats.HighestDamage != 0 {
		t.Errorf("expected zero stats, got %+v", stats)
	}
	if len(stats.TopPerformers) != 0 {
		t.Errorf("expected no top performers, got %d", len(stats.TopPerformers))
	}
	if stats.TicketStats.TotalTicketsMissed != 0 || stats.TicketStats.AverageTicketsUsed != 0 {
		t.Errorf("expected empty ticket stats, got %+v", stats.TicketStats)
	}
}

func TestComputeStatsUnknownPeriod(t *testing.T) {
	stats := ComputeStats(roster(), SeasonSelector{Period: 7})
	if stats.GuildScore != 52_500_000_000 {
		t.Errorf("damage figures should not depend on the period, got %d", stats.GuildScore)
	}
	if stats.TicketStats.MaxTickets != 0 || len(stats.TicketStats.PerBoss) != 0 {
		t.Errorf("expected empty ticket stats, got %+v", stats.TicketStats)
	}
}

func TestTopPerformersCapped(t *testing.T) {
	var players []domain.CanonicalPlayer
	for i, name := range []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7"} {
		players = append(players, player(name, record(domain.RedVelvetDragon, int64(100+i), 1)))
	}
	stats := ComputeStats(players, periodOne)
	if len(stats.TopPerformers) != TopPerformerCount {
		t.Fatalf("got %d top performers, want %d", len(stats.TopPerformers), TopPerformerCount)
	}
	if stats.TopPerformers[0].PlayerName != "a7" {
		t.Errorf("first top performer = %s, want a7", stats.TopPerformers[0].PlayerName)
	}
}

func TestPerformanceGrade(t *testing.T) {
	tests := []struct {
		damage, max int64
		want        string
	}{
		{100, 100, "S"},
		{90, 100, "S"},
		{85, 100, "A"},
		{70, 100, "B"},
		{65, 100, "C"},
		{50, 100, "D"},
		{10, 100, "F"},
		{10, 0, "F"},
	}
	for _, tt := range tests {
		if got := PerformanceGrade(tt.damage, tt.max); got != tt.want {
			t.Errorf("PerformanceGrade(%d, %d) = %s, want %s", tt.damage, tt.max, got, tt.want)
		}
	}
}

func TestEfficiencyAndRequirements(t *testing.T) {
	alice := roster()[1]
	if got := EfficiencyScore(alice); got != 24_000_000_000/21 {
		t.Errorf("EfficiencyScore = %d", got)
	}
	if got := EfficiencyScore(player("Nobody")); got != 0 {
		t.Errorf("EfficiencyScore with no battles = %d, want 0", got)
	}

	want := map[domain.Boss]bool{
		domain.RedVelvetDragon: true,
		domain.AvatarOfDestiny: true,
		domain.LivingAbyss:     false,
		domain.MachineGod:      false,
	}
	if diff := cmp.Diff(want, RequirementsCheck(alice)); diff != "" {
		t.Errorf("RequirementsCheck mismatch (-want +got):\n%s", diff)
	}
}

func TestPlayerReports(t *testing.T) {
	reports := PlayerReports(roster(), periodOne)

	want := []PlayerReport{
		{
			PlayerName:   "Carol",
			Grade:        "F",
			Efficiency:   11_000_000_000 / 14,
			TicketsUsed:  14,
			BelowMinimum: true,
			Requirements: map[domain.Boss]bool{
				domain.RedVelvetDragon: true,
				domain.AvatarOfDestiny: false,
				domain.LivingAbyss:     false,
				domain.MachineGod:      false,
			},
		},
		{
			PlayerName:  "Alice",
			Grade:       "S",
			Efficiency:  24_000_000_000 / 21,
			TicketsUsed: 18,
			Requirements: map[domain.Boss]bool{
				domain.RedVelvetDragon: true,
				domain.AvatarOfDestiny: true,
				domain.LivingAbyss:     false,
				domain.MachineGod:      false,
			},
		},
		{
			PlayerName:  "Bob",
			Grade:       "B",
			Efficiency:  17_500_000_000 / 18,
			TicketsUsed: 18,
			Requirements: map[domain.Boss]bool{
				domain.RedVelvetDragon: true,
				domain.AvatarOfDestiny: false,
				domain.LivingAbyss:     false,
				domain.MachineGod:      false,
			},
		},
	}
	if diff := cmp.Diff(want, reports); diff != "" {
		t.Errorf("PlayerReports mismatch (-want +got):\n%s", diff)
	}

	if got := PlayerReports(nil, periodOne); len(got) != 0 {
		t.Errorf("expected no reports, got %v", got)
	}
}
