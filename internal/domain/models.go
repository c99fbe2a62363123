package domain

import (
	"time"
)

type Boss string

const (
	RedVelvetDragon Boss = "RedVelvetDragon"
	AvatarOfDestiny Boss = "AvatarOfDestiny"
	LivingAbyss     Boss = "LivingAbyss"
	MachineGod      Boss = "MachineGod"
)

// Bosses lists every boss in display order.
var Bosses = []Boss{RedVelvetDragon, AvatarOfDestiny, LivingAbyss, MachineGod}

func (b Boss) DisplayName() string {
	switch b {
	case RedVelvetDragon:
		return "Red Velvet Dragon"
	case AvatarOfDestiny:
		return "Avatar of Destiny"
	case LivingAbyss:
		return "Living Abyss"
	case MachineGod:
		return "Machine God"
	}
	return string(b)
}

func (b Boss) Valid() bool {
	for _, known := range Bosses {
		if b == known {
			return true
		}
	}
	return false
}

type GuildRank string

const (
	RankLeader  GuildRank = "Leader"
	RankOfficer GuildRank = "Officer"
	RankMember  GuildRank = "Member"
)

// weight orders guild ranks so merges can keep the most senior one.
func (r GuildRank) weight() int {
	switch r {
	case RankLeader:
		return 3
	case RankOfficer:
		return 2
	case RankMember:
		return 1
	}
	return 0
}

// Senior returns whichever of r and other is the higher guild rank.
func (r GuildRank) Senior(other GuildRank) GuildRank {
	if other.weight() > r.weight() {
		return other
	}
	return r
}

type BossEncounterRecord struct {
	Boss               Boss   `json:"bossName"`
	Damage             int64  `json:"damage"`
	BattlesUsed        int    `json:"battlesUsed"`
	AvgDamagePerTicket *int64 `json:"avgDamagePerTicket,omitempty"`
}

type CanonicalPlayer struct {
	PlayerName  string                       `json:"playerName"`
	Rank        int                          `json:"rank"`
	PlayerLevel int                          `json:"playerLevel,omitempty"`
	PlayerTitle string                       `json:"playerTitle,omitempty"`
	GuildRank   GuildRank                    `json:"guildRank,omitempty"`
	Bosses      map[Boss]BossEncounterRecord `json:"bosses"`
}

func (p CanonicalPlayer) TotalDamage() int64 {
	var total int64
	for _, r := range p.Bosses {
		total += r.Damage
	}
	return total
}

func (p CanonicalPlayer) TotalBattles() int {
	total := 0
	for _, r := range p.Bosses {
		total += r.BattlesUsed
	}
	return total
}

// Clone returns a copy that shares no map with p.
func (p CanonicalPlayer) Clone() CanonicalPlayer {
	out := p
	out.Bosses = make(map[Boss]BossEncounterRecord, len(p.Bosses))
	for b, r := range p.Bosses {
		if r.AvgDamagePerTicket != nil {
			avg := *r.AvgDamagePerTicket
			r.AvgDamagePerTicket = &avg
		}
		out.Bosses[b] = r
	}
	return out
}

type BossStats struct {
	TotalDamage   int64 `json:"totalDamage"`
	AverageDamage int64 `json:"averageDamage"`
	Participants  int   `json:"participants"`
}

type BossTicketStats struct {
	TicketsUsed   int `json:"ticketsUsed"`
	TicketsMissed int `json:"ticketsMissed"`
	Participants  int `json:"participants"`
	PlayersAtCap  int `json:"playersAtCap"`
}

type TicketStats struct {
	TotalTicketsUsed    int                      `json:"totalTicketsUsed"`
	TotalTicketsMissed  int                      `json:"totalTicketsMissed"`
	PlayersBelowMinimum int                      `json:"playersBelowMinimum"`
	AverageTicketsUsed  float64                  `json:"averageTicketsUsed"`
	MaxTickets          int                      `json:"maxTickets"`
	MinTickets          int                      `json:"minTickets"`
	PerBoss             map[Boss]BossTicketStats `json:"perBoss"`
}

type GuildStatistics struct {
	TotalPlayers     int                `json:"totalPlayers"`
	HighestDamage    int64              `json:"highestDamage"`
	AverageDamage    int64              `json:"averageDamage"`
	TotalBattlesDone int                `json:"totalBattlesDone"`
	TopPerformers    []CanonicalPlayer  `json:"topPerformers"`
	GuildScore       int64              `json:"guildScore"`
	BossStats        map[Boss]BossStats `json:"bossStats"`
	TicketStats      TicketStats        `json:"ticketStats"`
}

// Analysis is one stored analysis run.
type Analysis struct {
	ID         string
	Season     string
	Guild      string
	Source     string // "sheet", "workbook", "screenshots", "text"
	Players    []CanonicalPlayer
	Stats      GuildStatistics
	Insights   []string
	AnalyzedAt time.Time
}

type Season struct {
	ID        int64
	Name      string
	StartDate time.Time
	IsActive  bool
	CreatedAt time.Time
}

type Guild struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// BattleResult is one persisted boss result for one player in one season.
type BattleResult struct {
	Season      string
	Guild       string
	PlayerName  string
	Boss        Boss
	Damage      int64
	BattlesUsed int
	Rank        int
	AnalysisID  string
	CreatedAt   time.Time
}
