// Package export moves analyses in and out of Excel workbooks.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"guild-battle-tracker/internal/analysis"
	"guild-battle-tracker/internal/domain"
	"io"
	"slices"

	"github.com/xuri/excelize/v2"
)

var ErrSheetNotFound = errors.New("sheet not found")

const (
	PlayersSheet = "Players"
	SummarySheet = "Summary"
)

// ReadGrid returns the displayed cell text of one worksheet. An empty sheet name
// selects the first worksheet.
func ReadGrid(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets: %w", ErrSheetNotFound)
	}
	if sheet == "" {
		sheet = sheets[0]
	} else if !slices.Contains(sheets, sheet) {
		return nil, fmt.Errorf("%q: %w", sheet, ErrSheetNotFound)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// Workbook renders an analysis as an xlsx file with a players sheet and a
// summary sheet.
func Workbook(a *domain.Analysis) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", PlayersSheet); err != nil {
		return nil, fmt.Errorf("failed to name players sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return nil, fmt.Errorf("failed to add summary sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// Analyses stored under an unknown period still export, without ticket figures.
	sel, _ := analysis.ParseSelector(a.Season)
	if err := writePlayers(f, a.Players, analysis.PlayerReports(a.Players, sel), bold); err != nil {
		return nil, err
	}
	if err := writeSummary(f, a, bold); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

func playerHeader() []any {
	header := []any{"Rank", "Player", "Level", "Title", "Guild Rank"}
	for _, boss := range domain.Bosses {
		name := boss.DisplayName()
		header = append(header, name+" Damage", name+" Battles", name+" Avg/Ticket")
	}
	return append(header, "Total Damage", "Total Battles", "Total", "Grade", "Efficiency", "Tickets Used", "Below Minimum")
}

func writePlayers(f *excelize.File, players []domain.CanonicalPlayer, reports []analysis.PlayerReport, headerStyle int) error {
	header := playerHeader()
	if err := setRow(f, PlayersSheet, 1, header); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(PlayersSheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style players header: %w", err)
	}

	for i, p := range players {
		row := []any{p.Rank, p.PlayerName, p.PlayerLevel, p.PlayerTitle, string(p.GuildRank)}
		for _, boss := range domain.Bosses {
			rec, ok := p.Bosses[boss]
			if !ok {
				row = append(row, nil, nil, nil)
				continue
			}
			var avg any
			if rec.AvgDamagePerTicket != nil {
				avg = *rec.AvgDamagePerTicket
			}
			row = append(row, rec.Damage, rec.BattlesUsed, avg)
		}
		r := reports[i]
		row = append(row, p.TotalDamage(), p.TotalBattles(), analysis.FormatDamage(p.TotalDamage()),
			r.Grade, r.Efficiency, r.TicketsUsed, yesNo(r.BelowMinimum))
		if err := setRow(f, PlayersSheet, i+2, row); err != nil {
			return err
		}
	}
	return f.SetPanes(PlayersSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeSummary(f *excelize.File, a *domain.Analysis, headerStyle int) error {
	s := a.Stats
	ts := s.TicketStats
	rows := [][]any{
		{"Season", a.Season},
		{"Guild", a.Guild},
		{"Source", a.Source},
		{"Total Players", s.TotalPlayers},
		{"Guild Score", s.GuildScore},
		{"Highest Damage", s.HighestDamage},
		{"Average Damage", s.AverageDamage},
		{"Total Battles", s.TotalBattlesDone},
		{"Tickets Used", ts.TotalTicketsUsed},
		{"Tickets Missed", ts.TotalTicketsMissed},
		{"Players Below Minimum", ts.PlayersBelowMinimum},
		{},
		{"Boss", "Total Damage", "Average Damage", "Participants"},
	}
	bossHeader := len(rows)
	for _, boss := range domain.Bosses {
		bs := s.BossStats[boss]
		rows = append(rows, []any{boss.DisplayName(), bs.TotalDamage, bs.AverageDamage, bs.Participants})
	}
	rows = append(rows, []any{}, []any{"Insights"})
	insightsHeader := len(rows)
	for _, line := range a.Insights {
		rows = append(rows, []any{line})
	}

	for i, row := range rows {
		if err := setRow(f, SummarySheet, i+1, row); err != nil {
			return err
		}
	}
	for _, r := range []int{bossHeader, insightsHeader} {
		first, _ := excelize.CoordinatesToCellName(1, r)
		last, _ := excelize.CoordinatesToCellName(4, r)
		if err := f.SetCellStyle(SummarySheet, first, last, headerStyle); err != nil {
			return fmt.Errorf("failed to style summary header: %w", err)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	if len(values) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}
