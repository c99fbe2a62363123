package analysis

import (
	"fmt"
	"guild-battle-tracker/internal/domain"
	"iter"
	"slices"
	"strings"
)

const (
	highParticipation = 80.0
	lowParticipation  = 60.0
)

// Insights lazily yields observations about an analysis run, top performer
// first. players are expected in rank order.
func Insights(players []domain.CanonicalPlayer, stats domain.GuildStatistics, sel SeasonSelector) iter.Seq[string] {
	return func(yield func(string) bool) {
		if len(players) == 0 || len(stats.TopPerformers) == 0 {
			yield("No player data available for this analysis")
			return
		}

		checks := []func() (string, bool){
			func() (string, bool) { return topPerformerLine(stats.TopPerformers[0]), true },
			func() (string, bool) { return participationLine(players) },
			func() (string, bool) { return participationVerdict(players) },
			func() (string, bool) { return ticketUsageLine(stats, sel) },
			func() (string, bool) { return complianceLine(stats, sel) },
		}
		if rules, ok := RulesFor(sel); ok {
			for _, boss := range rules.ActiveBosses {
				checks = append(checks, func() (string, bool) {
					return requirementLine(players, stats, boss), true
				})
			}
		}
		checks = append(checks,
			func() (string, bool) { return guildStructureLine(players) },
			func() (string, bool) { return averageLevelLine(players) },
		)

		for _, check := range checks {
			line, ok := check()
			if !ok {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}
}

// GenerateInsights collects Insights into a slice.
func GenerateInsights(players []domain.CanonicalPlayer, stats domain.GuildStatistics, sel SeasonSelector) []string {
	return slices.Collect(Insights(players, stats, sel))
}

func topPerformerLine(p domain.CanonicalPlayer) string {
	name := p.PlayerName
	if p.PlayerLevel > 0 {
		name = fmt.Sprintf("%s (Lv.%d)", p.PlayerName, p.PlayerLevel)
	}
	return fmt.Sprintf("%s achieved the highest total damage with %s", name, FormatDamage(p.TotalDamage()))
}

func participationRate(players []domain.CanonicalPlayer) (int, float64) {
	active := 0
	for _, p := range players {
		if p.TotalDamage() > 0 {
			active++
		}
	}
	return active, float64(active) / float64(len(players)) * 100
}

func participationLine(players []domain.CanonicalPlayer) (string, bool) {
	active, rate := participationRate(players)
	return fmt.Sprintf("%d/%d players took part in boss battles (%.0f%%)", active, len(players), rate), true
}

func participationVerdict(players []domain.CanonicalPlayer) (string, bool) {
	_, rate := participationRate(players)
	switch {
	case rate >= highParticipation:
		return "Excellent guild participation with high battle engagement", true
	case rate <= lowParticipation:
		return "Low participation rate - consider encouraging more active involvement", true
	}
	return "", false
}

func ticketUsageLine(stats domain.GuildStatistics, sel SeasonSelector) (string, bool) {
	rules, ok := RulesFor(sel)
	if !ok {
		return "", false
	}
	names := make([]string, len(rules.ActiveBosses))
	for i, b := range rules.ActiveBosses {
		names[i] = b.DisplayName()
	}
	ts := stats.TicketStats
	return fmt.Sprintf("%d/%d tickets used on %s (average %.1f of %d per player)",
		ts.TotalTicketsUsed, stats.TotalPlayers*ts.MaxTickets, strings.Join(names, " and "),
		ts.AverageTicketsUsed, ts.MaxTickets), true
}

func complianceLine(stats domain.GuildStatistics, sel SeasonSelector) (string, bool) {
	if _, ok := RulesFor(sel); !ok {
		return "", false
	}
	ts := stats.TicketStats
	if ts.PlayersBelowMinimum == 0 {
		return fmt.Sprintf("All %d players used at least the minimum of %d tickets", stats.TotalPlayers, ts.MinTickets), true
	}
	return fmt.Sprintf("%d/%d players used fewer than the minimum of %d tickets",
		ts.PlayersBelowMinimum, stats.TotalPlayers, ts.MinTickets), true
}

func requirementLine(players []domain.CanonicalPlayer, stats domain.GuildStatistics, boss domain.Boss) string {
	met := 0
	for _, p := range players {
		if MeetsRequirement(p, boss) {
			met++
		}
	}
	return fmt.Sprintf("%d/%d participants meet the %s requirement (%s+)",
		met, stats.BossStats[boss].Participants, boss.DisplayName(), FormatDamage(DamageRequirements[boss]))
}

func guildStructureLine(players []domain.CanonicalPlayer) (string, bool) {
	counts := make(map[domain.GuildRank]int)
	for _, p := range players {
		if p.GuildRank != "" {
			counts[p.GuildRank]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}
	return fmt.Sprintf("Guild structure: %d Leader, %d Officer, %d Members",
		counts[domain.RankLeader], counts[domain.RankOfficer], counts[domain.RankMember]), true
}

func averageLevelLine(players []domain.CanonicalPlayer) (string, bool) {
	sum, n := 0, 0
	for _, p := range players {
		if p.PlayerLevel > 0 {
			sum += p.PlayerLevel
			n++
		}
	}
	if n == 0 {
		return "", false
	}
	return fmt.Sprintf("Average player level: %d", (sum+n/2)/n), true
}
