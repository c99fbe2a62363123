package analysis

import "strings"

const (
	// HeaderRows are always skipped at the top of a sheet grid.
	HeaderRows = 2
	// MinColumns is the narrowest row that can hold all boss sections.
	MinColumns = 20
)

// SummaryMarkers end the player block when found in a row's first cell.
var SummaryMarkers = []string{"DAMAGE REQ", "DAMAGE GOAL", "Min Tickets"}

// SegmentRows returns the player rows of a sheet grid: everything after the
// header rows up to the first blank row, row without a first cell, or summary
// row. Rows narrower than MinColumns inside that run are skipped.
func SegmentRows(grid [][]string) [][]string {
	if len(grid) <= HeaderRows {
		return nil
	}

	var rows [][]string
	for _, row := range grid[HeaderRows:] {
		if isBlankRow(row) || strings.TrimSpace(row[0]) == "" || isSummaryCell(row[0]) {
			break
		}
		if len(row) < MinColumns {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func isSummaryCell(cell string) bool {
	upper := strings.ToUpper(cell)
	for _, marker := range SummaryMarkers {
		if strings.Contains(upper, strings.ToUpper(marker)) {
			return true
		}
	}
	return false
}
