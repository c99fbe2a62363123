package analysis

import (
	"cmp"
	"guild-battle-tracker/internal/domain"
	"slices"
)

const TopPerformerCount = 5

// DamageRequirements are the per-boss damage goals a member is expected to reach.
var DamageRequirements = map[domain.Boss]int64{
	domain.RedVelvetDragon: 6_000_000_000,
	domain.AvatarOfDestiny: 3_500_000_000,
	domain.LivingAbyss:     12_000_000_000,
	domain.MachineGod:      3_500_000_000,
}

// Rank returns a copy of players sorted by total damage, highest first, with
// ranks 1..n. Equal totals keep their input order.
func Rank(players []domain.CanonicalPlayer) []domain.CanonicalPlayer {
	type entry struct {
		player domain.CanonicalPlayer
		total  int64
	}
	entries := make([]entry, len(players))
	for i, p := range players {
		entries[i] = entry{player: p.Clone(), total: p.TotalDamage()}
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		return cmp.Compare(b.total, a.total)
	})

	out := make([]domain.CanonicalPlayer, len(entries))
	for i, e := range entries {
		e.player.Rank = i + 1
		out[i] = e.player
	}
	return out
}

// ComputeStats derives guild statistics. Headline damage figures use every
// boss; the season selector only drives ticket accounting.
func ComputeStats(players []domain.CanonicalPlayer, sel SeasonSelector) domain.GuildStatistics {
	ranked := Rank(players)
	n := len(ranked)

	stats := domain.GuildStatistics{
		TotalPlayers:  n,
		TopPerformers: ranked[:min(TopPerformerCount, n)],
		BossStats:     make(map[domain.Boss]domain.BossStats, len(domain.Bosses)),
		TicketStats:   computeTicketStats(ranked, sel),
	}

	for _, p := range ranked {
		total := p.TotalDamage()
		stats.GuildScore += total
		stats.TotalBattlesDone += p.TotalBattles()
		if total > stats.HighestDamage {
			stats.HighestDamage = total
		}
	}
	stats.AverageDamage = roundedMean(stats.GuildScore, n)

	for _, boss := range domain.Bosses {
		var bs domain.BossStats
		for _, p := range ranked {
			rec, ok := p.Bosses[boss]
			if !ok || rec.Damage <= 0 {
				continue
			}
			bs.TotalDamage += rec.Damage
			bs.Participants++
		}
		bs.AverageDamage = roundedMean(bs.TotalDamage, bs.Participants)
		stats.BossStats[boss] = bs
	}

	return stats
}

// computeTicketStats counts tickets spent on the period's active bosses.
// Each boss contributes at most TicketsPerBoss for one player.
func computeTicketStats(players []domain.CanonicalPlayer, sel SeasonSelector) domain.TicketStats {
	ts := domain.TicketStats{PerBoss: make(map[domain.Boss]domain.BossTicketStats)}
	rules, ok := RulesFor(sel)
	if !ok {
		return ts
	}

	n := len(players)
	perBoss := rules.TicketsPerBoss()
	ts.MaxTickets = rules.MaxTickets
	ts.MinTickets = rules.MinTickets

	for _, boss := range rules.ActiveBosses {
		ts.PerBoss[boss] = domain.BossTicketStats{TicketsMissed: n * perBoss}
	}

	for _, p := range players {
		used := 0
		for _, boss := range rules.ActiveBosses {
			rec, ok := p.Bosses[boss]
			if !ok {
				continue
			}
			tickets := min(rec.BattlesUsed, perBoss)
			used += tickets

			bt := ts.PerBoss[boss]
			bt.TicketsUsed += tickets
			bt.TicketsMissed -= tickets
			bt.Participants++
			if tickets >= perBoss {
				bt.PlayersAtCap++
			}
			ts.PerBoss[boss] = bt
		}
		ts.TotalTicketsUsed += used
		if used < rules.MinTickets {
			ts.PlayersBelowMinimum++
		}
	}

	ts.TotalTicketsMissed = n*rules.MaxTickets - ts.TotalTicketsUsed
	if n > 0 {
		ts.AverageTicketsUsed = float64(ts.TotalTicketsUsed) / float64(n)
	}
	return ts
}

// TicketsUsed is the number of quota tickets a player spent in the period.
func TicketsUsed(p domain.CanonicalPlayer, sel SeasonSelector) int {
	rules, ok := RulesFor(sel)
	if !ok {
		return 0
	}
	used := 0
	for _, boss := range rules.ActiveBosses {
		if rec, ok := p.Bosses[boss]; ok {
			used += min(rec.BattlesUsed, rules.TicketsPerBoss())
		}
	}
	return used
}

func BelowMinimum(p domain.CanonicalPlayer, sel SeasonSelector) bool {
	rules, ok := RulesFor(sel)
	return ok && TicketsUsed(p, sel) < rules.MinTickets
}

func roundedMean(total int64, n int) int64 {
	if n <= 0 {
		return 0
	}
	return (total + int64(n)/2) / int64(n)
}

// PerformanceGrade grades damage against the best damage in the guild.
func PerformanceGrade(damage, maxDamage int64) string {
	if maxDamage <= 0 {
		return "F"
	}
	pct := float64(damage) / float64(maxDamage) * 100
	switch {
	case pct >= 90:
		return "S"
	case pct >= 80:
		return "A"
	case pct >= 70:
		return "B"
	case pct >= 60:
		return "C"
	case pct >= 50:
		return "D"
	}
	return "F"
}

// EfficiencyScore is a player's average damage per battle.
func EfficiencyScore(p domain.CanonicalPlayer) int64 {
	battles := p.TotalBattles()
	if battles == 0 {
		return 0
	}
	return p.TotalDamage() / int64(battles)
}

func MeetsRequirement(p domain.CanonicalPlayer, boss domain.Boss) bool {
	req, ok := DamageRequirements[boss]
	if !ok {
		return false
	}
	return p.Bosses[boss].Damage >= req
}

func RequirementsCheck(p domain.CanonicalPlayer) map[domain.Boss]bool {
	out := make(map[domain.Boss]bool, len(domain.Bosses))
	for _, boss := range domain.Bosses {
		out[boss] = MeetsRequirement(p, boss)
	}
	return out
}

// PlayerReport bundles the per-player grading for one period.
type PlayerReport struct {
	PlayerName   string               `json:"playerName"`
	Grade        string               `json:"grade"`
	Efficiency   int64                `json:"efficiency"`
	TicketsUsed  int                  `json:"ticketsUsed"`
	BelowMinimum bool                 `json:"belowMinimum"`
	Requirements map[domain.Boss]bool `json:"requirements"`
}

// PlayerReports grades every player against the guild's best total damage.
func PlayerReports(players []domain.CanonicalPlayer, sel SeasonSelector) []PlayerReport {
	var best int64
	for _, p := range players {
		best = max(best, p.TotalDamage())
	}

	out := make([]PlayerReport, 0, len(players))
	for _, p := range players {
		out = append(out, PlayerReport{
			PlayerName:   p.PlayerName,
			Grade:        PerformanceGrade(p.TotalDamage(), best),
			Efficiency:   EfficiencyScore(p),
			TicketsUsed:  TicketsUsed(p, sel),
			BelowMinimum: BelowMinimum(p, sel),
			Requirements: RequirementsCheck(p),
		})
	}
	return out
}
