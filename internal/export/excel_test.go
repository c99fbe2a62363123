package export

import (
	"bytes"
	"errors"
	"guild-battle-tracker/internal/analysis"
	"guild-battle-tracker/internal/domain"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

func sheetWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "Guild"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Guild", cell, &row); err != nil {
			t.Fatalf("write row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// guildRow lays out one player row the way the guild sheet does: rank,
// then name/damage/battles/avg for each boss, seven columns apart.
func guildRow(rank int, name string, damage []float64, battles []int) []any {
	row := make([]any, 29)
	row[0] = rank
	for i := range damage {
		start := 1 + i*7
		row[start] = name
		row[start+1] = damage[i]
		row[start+2] = battles[i]
	}
	return row
}

func TestReadGridFeedsPipeline(t *testing.T) {
	content := sheetWorkbook(t, [][]any{
		{"Guild Battle 20-1"},
		{"#", "Red Velvet Dragon"},
		guildRow(1, "Alice", []float64{10, 5, 9, 0}, []int{9, 3, 9, 0}),
		guildRow(2, "Bob", []float64{8, 0, 9.5, 0}, []int{9, 0, 9, 0}),
		{"DAMAGE REQ", 6},
	})

	grid, err := ReadGrid(bytes.NewReader(content), "")
	if err != nil {
		t.Fatalf("ReadGrid: %v", err)
	}

	res := analysis.AnalyzeGrid(grid, analysis.DefaultLayout(analysis.UnitBillions), analysis.SeasonSelector{Period: 1})
	if len(res.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(res.Players))
	}
	if got := res.Players[0].TotalDamage(); got != 24_000_000_000 {
		t.Errorf("Alice total = %d", got)
	}
	if got := res.Players[1].TotalDamage(); got != 17_500_000_000 {
		t.Errorf("Bob total = %d", got)
	}
}

func TestReadGridKeepsRawDamage(t *testing.T) {
	content := sheetWorkbook(t, [][]any{
		{"Guild Battle 20-1"},
		{"#", "Red Velvet Dragon"},
		guildRow(1, "Alice", []float64{53701335417, 0, 0, 0}, []int{9, 0, 0, 0}),
		guildRow(2, "Bob", []float64{41.2, 0, 0, 0}, []int{9, 0, 0, 0}),
	})

	grid, err := ReadGrid(bytes.NewReader(content), "Guild")
	if err != nil {
		t.Fatalf("ReadGrid: %v", err)
	}

	res := analysis.AnalyzeGrid(grid, analysis.DefaultLayout(analysis.UnitBillions), analysis.SeasonSelector{Period: 1})
	if len(res.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(res.Players))
	}
	if got := res.Players[0].TotalDamage(); got != 53_701_335_417 {
		t.Errorf("Alice total = %d, want 53701335417", got)
	}
	if got := res.Players[1].TotalDamage(); got != 41_200_000_000 {
		t.Errorf("Bob total = %d, want 41200000000", got)
	}
}

func TestReadGridUnknownSheet(t *testing.T) {
	content := sheetWorkbook(t, [][]any{{"x"}})
	if _, err := ReadGrid(bytes.NewReader(content), "Missing"); !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("expected ErrSheetNotFound, got %v", err)
	}
}

func TestReadGridRejectsGarbage(t *testing.T) {
	if _, err := ReadGrid(bytes.NewReader([]byte("not a workbook")), ""); err == nil {
		t.Error("expected an error for non-xlsx content")
	}
}

func TestWorkbook(t *testing.T) {
	avg := int64(1_111_111_111)
	players := []domain.CanonicalPlayer{
		{
			PlayerName:  "Alice",
			PlayerLevel: 61,
			GuildRank:   domain.RankLeader,
			Bosses: map[domain.Boss]domain.BossEncounterRecord{
				domain.RedVelvetDragon: {Boss: domain.RedVelvetDragon, Damage: 10_000_000_000, BattlesUsed: 9, AvgDamagePerTicket: &avg},
			},
		},
		{
			PlayerName: "Bob",
			Bosses: map[domain.Boss]domain.BossEncounterRecord{
				domain.AvatarOfDestiny: {Boss: domain.AvatarOfDestiny, Damage: 5_000_000_000, BattlesUsed: 3},
			},
		},
	}
	res := analysis.Analyze(players, analysis.SeasonSelector{Season: 20, Period: 1})
	a := &domain.Analysis{Season: "20-1", Guild: "Nightfall", Source: "sheet", Players: res.Players, Stats: res.Stats, Insights: res.Insights}

	content, err := Workbook(a)
	if err != nil {
		t.Fatalf("Workbook: %v", err)
	}

	rows, err := ReadGrid(bytes.NewReader(content), PlayersSheet)
	if err != nil {
		t.Fatalf("ReadGrid players: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 player rows, got %d", len(rows))
	}
	if rows[0][1] != "Player" || rows[1][1] != "Alice" || rows[2][1] != "Bob" {
		t.Errorf("unexpected player rows %q", rows)
	}
	if rows[1][5] != "10000000000" || rows[1][7] != "1111111111" {
		t.Errorf("unexpected Alice damage cells %q", rows[1][5:8])
	}
	col := map[string]int{}
	for i, h := range rows[0] {
		col[h] = i
	}
	if got := rows[1][col["Total"]]; got != "10.0B" {
		t.Errorf("formatted total = %q, want 10.0B", got)
	}
	alice := []string{rows[1][col["Grade"]], rows[1][col["Efficiency"]], rows[1][col["Tickets Used"]], rows[1][col["Below Minimum"]]}
	if diff := cmp.Diff([]string{"S", "1111111111", "9", "Yes"}, alice); diff != "" {
		t.Errorf("Alice report cells mismatch (-want +got):\n%s", diff)
	}
	if got := rows[2][col["Grade"]]; got != "D" {
		t.Errorf("Bob grade = %q, want D", got)
	}

	summary, err := ReadGrid(bytes.NewReader(content), SummarySheet)
	if err != nil {
		t.Fatalf("ReadGrid summary: %v", err)
	}
	found := map[string]string{}
	for _, row := range summary {
		if len(row) >= 2 {
			found[row[0]] = row[1]
		}
	}
	if found["Guild"] != "Nightfall" || found["Guild Score"] != "15000000000" || found["Total Players"] != "2" {
		t.Errorf("unexpected summary %v", found)
	}
	if summary[len(summary)-1][0] != res.Insights[len(res.Insights)-1] {
		t.Errorf("last summary row should be the last insight, got %q", summary[len(summary)-1])
	}
}
