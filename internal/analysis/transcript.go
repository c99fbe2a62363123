package analysis

import (
	"encoding/csv"
	"errors"
	"guild-battle-tracker/internal/domain"
	"io"
	"strings"
)

// Column layout of the CSV the AI transcription is asked to produce:
// Rank, Player Name, then damage/unit/battles for three bosses, then guild rank.
const (
	transcriptNameCol      = 1
	transcriptFirstBossCol = 2
	transcriptBossWidth    = 3
	transcriptRankCol      = 11
)

var transcriptBosses = []domain.Boss{domain.RedVelvetDragon, domain.AvatarOfDestiny, domain.LivingAbyss}

// ParseTranscriptCSV parses the CSV an AI transcription returns for one
// screenshot. Bare damage numbers are read in unit. ok is false when fewer
// than MinFreeformPlayers valid players were found.
func ParseTranscriptCSV(text string, unit DamageUnit) ([]domain.CanonicalPlayer, bool) {
	r := csv.NewReader(strings.NewReader(stripCodeFences(text)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var sightings []Sighting
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			break
		}
		sightings = append(sightings, transcriptSightings(rec, unit)...)
	}

	players := Merge(sightings)
	if len(players) < MinFreeformPlayers {
		return nil, false
	}
	return players, true
}

func transcriptSightings(rec []string, unit DamageUnit) []Sighting {
	if len(rec) <= transcriptNameCol {
		return nil
	}
	name := strings.TrimSpace(rec[transcriptNameCol])
	if !ValidPlayerName(name) {
		return nil
	}

	profile := Sighting{PlayerName: name, GuildRank: NormalizeGuildRank(cell(rec, transcriptRankCol))}
	out := []Sighting{profile}

	for i, boss := range transcriptBosses {
		col := transcriptFirstBossCol + i*transcriptBossWidth
		damage := ParseDamageIn(cell(rec, col)+" "+cell(rec, col+1), unit)
		if damage <= 0 {
			continue
		}
		out = append(out, Sighting{
			PlayerName: name,
			Record: &domain.BossEncounterRecord{
				Boss:        boss,
				Damage:      damage,
				BattlesUsed: ParseCount(cell(rec, col+2)),
			},
		})
	}
	return out
}

// NormalizeGuildRank maps free text onto a guild rank; unknown text is "".
func NormalizeGuildRank(s string) domain.GuildRank {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "leader":
		return domain.RankLeader
	case "officer", "admin":
		return domain.RankOfficer
	case "member":
		return domain.RankMember
	}
	return ""
}

func stripCodeFences(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
