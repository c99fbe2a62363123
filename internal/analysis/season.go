package analysis

import (
	"errors"
	"fmt"
	"guild-battle-tracker/internal/domain"
	"slices"
	"strconv"
	"strings"
)

var ErrUnknownPeriod = errors.New("unknown season period")

type Period int

// SeasonSelector picks a season and the period inside it, written "20-1".
type SeasonSelector struct {
	Season int
	Period Period
}

// SeasonRules says which bosses count toward ticket quotas in a period.
type SeasonRules struct {
	ActiveBosses []domain.Boss
	MaxTickets   int
	MinTickets   int
}

func (r SeasonRules) TicketsPerBoss() int {
	if len(r.ActiveBosses) == 0 {
		return 0
	}
	return r.MaxTickets / len(r.ActiveBosses)
}

func (r SeasonRules) IsActive(boss domain.Boss) bool {
	return slices.Contains(r.ActiveBosses, boss)
}

var seasonRules = map[Period]SeasonRules{
	1: {
		ActiveBosses: []domain.Boss{domain.RedVelvetDragon, domain.LivingAbyss},
		MaxTickets:   18,
		MinTickets:   15,
	},
	2: {
		ActiveBosses: []domain.Boss{domain.AvatarOfDestiny, domain.MachineGod},
		MaxTickets:   18,
		MinTickets:   15,
	},
}

// RulesFor looks up the ticket rules of the selector's period.
func RulesFor(sel SeasonSelector) (SeasonRules, bool) {
	r, ok := seasonRules[sel.Period]
	return r, ok
}

func Periods() []Period {
	out := make([]Period, 0, len(seasonRules))
	for p := range seasonRules {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// ParseSelector accepts "<season>-<period>" or a bare period.
func ParseSelector(s string) (SeasonSelector, error) {
	s = strings.TrimSpace(s)
	var sel SeasonSelector

	seasonPart, periodPart, found := strings.Cut(s, "-")
	if !found {
		periodPart, seasonPart = seasonPart, ""
	}

	if seasonPart != "" {
		n, err := strconv.Atoi(strings.TrimSpace(seasonPart))
		if err != nil || n < 0 {
			return SeasonSelector{}, fmt.Errorf("invalid season in %q", s)
		}
		sel.Season = n
	}

	p, err := strconv.Atoi(strings.TrimSpace(periodPart))
	if err != nil {
		return SeasonSelector{}, fmt.Errorf("invalid period in %q", s)
	}
	sel.Period = Period(p)

	if _, ok := seasonRules[sel.Period]; !ok {
		return SeasonSelector{}, fmt.Errorf("%w: %d", ErrUnknownPeriod, p)
	}
	return sel, nil
}

func (s SeasonSelector) String() string {
	if s.Season == 0 {
		return strconv.Itoa(int(s.Period))
	}
	return fmt.Sprintf("%d-%d", s.Season, s.Period)
}
