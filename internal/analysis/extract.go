package analysis

import (
	"guild-battle-tracker/internal/domain"
	"strings"
)

// BossSection locates one boss's cells inside a player row.
type BossSection struct {
	Boss       domain.Boss
	NameCol    int
	DamageCol  int
	BattlesCol int
	AvgCol     int
}

// Layout describes how boss sections sit in a sheet row and which unit
// bare damage numbers are written in.
type Layout struct {
	Sections []BossSection
	Unit     DamageUnit
}

// sectionStarts are the first columns of each boss section, in domain.Bosses order.
var sectionStarts = []int{1, 8, 15, 22}

func DefaultLayout(unit DamageUnit) Layout {
	sections := make([]BossSection, len(domain.Bosses))
	for i, boss := range domain.Bosses {
		start := sectionStarts[i]
		sections[i] = BossSection{
			Boss:       boss,
			NameCol:    start,
			DamageCol:  start + 1,
			BattlesCol: start + 2,
			AvgCol:     start + 3,
		}
	}
	return Layout{Sections: sections, Unit: unit}
}

// ExtractBossSections reads every boss section of a row independently. A
// section yields a record only when its name cell is filled and its damage
// parses above zero.
func ExtractBossSections(row []string, layout Layout) []Sighting {
	var out []Sighting
	for _, s := range layout.Sections {
		name := strings.TrimSpace(cell(row, s.NameCol))
		if name == "" {
			continue
		}

		damage := ParseDamageIn(cell(row, s.DamageCol), layout.Unit)
		if damage <= 0 {
			continue
		}

		rec := domain.BossEncounterRecord{
			Boss:        s.Boss,
			Damage:      damage,
			BattlesUsed: ParseCount(cell(row, s.BattlesCol)),
		}
		if avg := ParseDamageIn(cell(row, s.AvgCol), layout.Unit); avg > 0 {
			rec.AvgDamagePerTicket = &avg
		}

		out = append(out, Sighting{PlayerName: name, Record: &rec})
	}
	return out
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
