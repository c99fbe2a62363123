package analysis

import (
	"guild-battle-tracker/internal/domain"
	"strings"
)

// Sighting is one observation of a player: profile details and, optionally,
// one boss result.
type Sighting struct {
	PlayerName string
	Level      int
	Title      string
	GuildRank  domain.GuildRank
	Record     *domain.BossEncounterRecord
}

// Merge folds the sightings of one snapshot into one player per name. Each
// boss slot is filled once; if a snapshot repeats a player for the same boss
// the stronger record is kept, so input order never changes the result.
// Players come back in order of first appearance.
func Merge(sightings []Sighting) []domain.CanonicalPlayer {
	index := make(map[string]int)
	var players []domain.CanonicalPlayer

	for _, s := range sightings {
		name := strings.TrimSpace(s.PlayerName)
		if name == "" {
			continue
		}

		i, ok := index[name]
		if !ok {
			players = append(players, domain.CanonicalPlayer{
				PlayerName: name,
				Bosses:     make(map[domain.Boss]domain.BossEncounterRecord),
			})
			i = len(players) - 1
			index[name] = i
		}

		p := &players[i]
		mergeProfile(p, s.Level, s.Title, s.GuildRank)

		if s.Record == nil || s.Record.Damage <= 0 {
			continue
		}
		rec := copyRecord(*s.Record)
		if existing, ok := p.Bosses[rec.Boss]; ok && !stronger(rec, existing) {
			continue
		}
		p.Bosses[rec.Boss] = rec
	}

	return players
}

// MergeAdditive combines player sets from independent sources (for example
// several screenshots). Results for the same player and boss are summed.
func MergeAdditive(batches ...[]domain.CanonicalPlayer) []domain.CanonicalPlayer {
	index := make(map[string]int)
	var players []domain.CanonicalPlayer

	for _, batch := range batches {
		for _, in := range batch {
			name := strings.TrimSpace(in.PlayerName)
			if name == "" {
				continue
			}

			i, ok := index[name]
			if !ok {
				p := in.Clone()
				p.PlayerName = name
				p.Rank = 0
				if p.Bosses == nil {
					p.Bosses = make(map[domain.Boss]domain.BossEncounterRecord)
				}
				players = append(players, p)
				index[name] = len(players) - 1
				continue
			}

			p := &players[i]
			mergeProfile(p, in.PlayerLevel, in.PlayerTitle, in.GuildRank)
			for boss, rec := range in.Bosses {
				existing, ok := p.Bosses[boss]
				if !ok {
					p.Bosses[boss] = copyRecord(rec)
					continue
				}
				existing.Damage += rec.Damage
				existing.BattlesUsed += rec.BattlesUsed
				existing.AvgDamagePerTicket = averagePerTicket(existing.Damage, existing.BattlesUsed)
				p.Bosses[boss] = existing
			}
		}
	}

	return players
}

func mergeProfile(p *domain.CanonicalPlayer, level int, title string, rank domain.GuildRank) {
	if level > p.PlayerLevel {
		p.PlayerLevel = level
	}
	// Longest title wins, ties broken lexically, so input order never matters.
	title = strings.TrimSpace(title)
	if len(title) > len(p.PlayerTitle) || (len(title) == len(p.PlayerTitle) && title < p.PlayerTitle) {
		p.PlayerTitle = title
	}
	p.GuildRank = p.GuildRank.Senior(rank)
}

func stronger(a, b domain.BossEncounterRecord) bool {
	if a.Damage != b.Damage {
		return a.Damage > b.Damage
	}
	if a.BattlesUsed != b.BattlesUsed {
		return a.BattlesUsed > b.BattlesUsed
	}
	return avgValue(a) > avgValue(b)
}

func avgValue(r domain.BossEncounterRecord) int64 {
	if r.AvgDamagePerTicket == nil {
		return -1
	}
	return *r.AvgDamagePerTicket
}

func averagePerTicket(damage int64, battles int) *int64 {
	if battles <= 0 {
		return nil
	}
	avg := damage / int64(battles)
	return &avg
}

func copyRecord(r domain.BossEncounterRecord) domain.BossEncounterRecord {
	if r.AvgDamagePerTicket != nil {
		avg := *r.AvgDamagePerTicket
		r.AvgDamagePerTicket = &avg
	}
	return r
}
