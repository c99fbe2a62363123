package analysis

import (
	"guild-battle-tracker/internal/domain"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MinFreeformPlayers is how many players a strategy must find to be trusted.
	MinFreeformPlayers = 2

	minNameLength = 2
	maxNameLength = 20
)

// placeholderNames are names transcription services invent when they cannot read one.
var placeholderNames = []string{"player name", "playername", "unknown player", "unknown", "player"}

// ValidPlayerName rejects names that are purely numeric, placeholders, or
// outside 2-20 characters.
func ValidPlayerName(name string) bool {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < minNameLength || n > maxNameLength {
		return false
	}
	lower := strings.ToLower(name)
	for _, p := range placeholderNames {
		if lower == p {
			return false
		}
	}
	for _, r := range name {
		if !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

const (
	namePart  = `([\p{L}\p{N}_]+)`
	levelPart = `Lv\.?\s*(\d+)`
	titlePart = `(.+?)`
	pairPart  = `(?:x(\d+)\s+(\d{1,3}(?:,\d{3})+|\d+)|N/A)`
	rankPart  = `(?:\s+(Leader|Officer|Member))?`
	barePart  = `(\d{1,3}(?:,\d{3})+|\d+)`
)

// pairBosses is the boss each damage/battle pair column belongs to.
var pairBosses = []domain.Boss{domain.RedVelvetDragon, domain.AvatarOfDestiny, domain.LivingAbyss}

type freeformStrategy struct {
	name    string
	pattern *regexp.Regexp
	level   bool
	title   bool
	pairs   int
}

// freeformStrategies run most specific first; the first one that finds
// MinFreeformPlayers players wins.
var freeformStrategies = []freeformStrategy{
	{
		name:    "name-level-title-3pairs",
		pattern: regexp.MustCompile(`^\s*` + namePart + `\s+` + levelPart + `\s+` + titlePart + `\s+` + pairPart + `\s+` + pairPart + `\s+` + pairPart + rankPart + `\s*$`),
		level:   true, title: true, pairs: 3,
	},
	{
		name:    "name-level-3pairs",
		pattern: regexp.MustCompile(`^\s*` + namePart + `\s+` + levelPart + `\s+` + pairPart + `\s+` + pairPart + `\s+` + pairPart + rankPart + `\s*$`),
		level:   true, pairs: 3,
	},
	{
		name:    "name-level-title-2pairs",
		pattern: regexp.MustCompile(`^\s*` + namePart + `\s+` + levelPart + `\s+` + titlePart + `\s+` + pairPart + `\s+` + pairPart + rankPart + `\s*$`),
		level:   true, title: true, pairs: 2,
	},
	{
		name:    "name-2numbers",
		pattern: regexp.MustCompile(`^\s*` + namePart + `\s+` + barePart + `\s+` + barePart + `(?:\s|$)`),
	},
}

// FreeformMatch is the outcome of a confident freeform parse.
type FreeformMatch struct {
	Players  []domain.CanonicalPlayer
	Strategy string
}

// MatchFreeformText parses OCR text. ok is false when no strategy found
// enough players; the caller decides what to substitute.
func MatchFreeformText(text string) (FreeformMatch, bool) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	thirdIsTotal := strings.Contains(strings.ToLower(text), "season total")

	for _, st := range freeformStrategies {
		var sightings []Sighting
		for _, line := range lines {
			m := st.pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			sightings = append(sightings, st.sightings(m, thirdIsTotal)...)
		}

		players := Merge(sightings)
		if len(players) >= MinFreeformPlayers {
			return FreeformMatch{Players: players, Strategy: st.name}, true
		}
	}
	return FreeformMatch{}, false
}

// ParseFreeformText returns the parsed players, or nil on low confidence.
func ParseFreeformText(text string) []domain.CanonicalPlayer {
	match, ok := MatchFreeformText(text)
	if !ok {
		return nil
	}
	return match.Players
}

func (st freeformStrategy) sightings(m []string, thirdIsTotal bool) []Sighting {
	name := m[1]
	if !ValidPlayerName(name) {
		return nil
	}

	profile := Sighting{PlayerName: name}
	next := 2
	if st.level {
		profile.Level = ParseCount(m[next])
		next++
	}
	if st.title {
		profile.Title = strings.TrimSpace(m[next])
		next++
	}

	var records []domain.BossEncounterRecord
	if st.pairs == 0 {
		for i, boss := range pairBosses[:2] {
			if dmg := ParseDamage(m[next+i]); dmg > 0 {
				records = append(records, domain.BossEncounterRecord{Boss: boss, Damage: dmg})
			}
		}
	} else {
		for i := 0; i < st.pairs; i++ {
			battles, damage := m[next+2*i], m[next+2*i+1]
			if i == 2 && thirdIsTotal {
				continue
			}
			if dmg := ParseDamage(damage); dmg > 0 {
				records = append(records, domain.BossEncounterRecord{
					Boss:        pairBosses[i],
					Damage:      dmg,
					BattlesUsed: ParseCount(battles),
				})
			}
		}
		if rank := m[next+2*st.pairs]; rank != "" {
			profile.GuildRank = domain.GuildRank(rank)
		}
	}

	if len(records) == 0 {
		return nil
	}

	out := []Sighting{profile}
	for i := range records {
		out = append(out, Sighting{PlayerName: name, Record: &records[i]})
	}
	return out
}
