package analysis

import "guild-battle-tracker/internal/domain"

// Result is everything one analysis run produces.
type Result struct {
	Players  []domain.CanonicalPlayer `json:"players"`
	Stats    domain.GuildStatistics   `json:"stats"`
	Insights []string                 `json:"insights"`
}

// AnalyzeGrid runs the structured pipeline over a sheet grid.
func AnalyzeGrid(grid [][]string, layout Layout, sel SeasonSelector) Result {
	var sightings []Sighting
	for _, row := range SegmentRows(grid) {
		sightings = append(sightings, ExtractBossSections(row, layout)...)
	}
	return Analyze(Merge(sightings), sel)
}

// Analyze ranks an already merged player set and derives stats and insights.
func Analyze(players []domain.CanonicalPlayer, sel SeasonSelector) Result {
	ranked := Rank(players)
	stats := ComputeStats(ranked, sel)
	return Result{
		Players:  ranked,
		Stats:    stats,
		Insights: GenerateInsights(ranked, stats, sel),
	}
}
