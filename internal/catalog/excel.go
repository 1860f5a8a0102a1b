package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/stanercelik/PolySleep-sub003/internal/domain"

	"github.com/xuri/excelize/v2"
)

const (
	SchedulesSheet = "Schedules"
	BlocksSheet    = "Blocks"

	descriptionPrefix = "Description ("
)

var blocksHeader = []string{"Key", "Start", "Duration (min)", "Core"}

// ExportWorkbook writes templates as an xlsx with a Schedules sheet and a Blocks sheet.
// Schedules columns: Key, Name, then one "Description (<locale>)" column per locale.
func ExportWorkbook(templates []Template) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SchedulesSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(BlocksSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	locales := collectLocales(templates)
	scheduleHeader := []string{"Key", "Name"}
	for _, l := range locales {
		scheduleHeader = append(scheduleHeader, descriptionPrefix+l+")")
	}
	if err := writeRow(f, SchedulesSheet, 1, toAny(scheduleHeader)); err != nil {
		return nil, err
	}
	if err := writeRow(f, BlocksSheet, 1, toAny(blocksHeader)); err != nil {
		return nil, err
	}
	if err := styleHeader(f, SchedulesSheet, len(scheduleHeader), headerStyle); err != nil {
		return nil, err
	}
	if err := styleHeader(f, BlocksSheet, len(blocksHeader), headerStyle); err != nil {
		return nil, err
	}

	blockRow := 2
	for i, t := range templates {
		row := []any{string(t.Key), t.Name}
		for _, l := range locales {
			row = append(row, t.Descriptions[l])
		}
		if err := writeRow(f, SchedulesSheet, i+2, row); err != nil {
			return nil, err
		}
		for _, b := range t.Blocks {
			coreFlag := "No"
			if b.IsCore {
				coreFlag = "Yes"
			}
			if err := writeRow(f, BlocksSheet, blockRow, []any{string(t.Key), formatClock(b.StartMinute), b.DurationMinutes, coreFlag}); err != nil {
				return nil, err
			}
			blockRow++
		}
	}

	if err := f.SetColWidth(SchedulesSheet, "A", "B", 20); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ImportWorkbook reads the layout produced by ExportWorkbook.
// Every template is validated; blocks referencing an unknown key are an error.
func ImportWorkbook(r io.Reader) ([]Template, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	scheduleRows, err := f.GetRows(SchedulesSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", SchedulesSheet, err)
	}
	if len(scheduleRows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", SchedulesSheet)
	}

	header := scheduleRows[0]
	descCols := map[int]string{}
	for i, h := range header {
		if strings.HasPrefix(h, descriptionPrefix) && strings.HasSuffix(h, ")") {
			descCols[i] = strings.TrimSuffix(strings.TrimPrefix(h, descriptionPrefix), ")")
		}
	}

	var out []Template
	byKey := map[domain.ScheduleType]int{}
	for rowIdx, row := range scheduleRows[1:] {
		if len(row) == 0 || strings.TrimSpace(cell(row, 0)) == "" {
			continue
		}
		t := Template{
			Key:          domain.ScheduleType(strings.TrimSpace(cell(row, 0))),
			Name:         strings.TrimSpace(cell(row, 1)),
			Descriptions: map[string]string{},
		}
		if _, dup := byKey[t.Key]; dup {
			return nil, fmt.Errorf("sheet %s row %d: duplicate key %q", SchedulesSheet, rowIdx+2, t.Key)
		}
		for col, locale := range descCols {
			if v := strings.TrimSpace(cell(row, col)); v != "" {
				t.Descriptions[locale] = v
			}
		}
		byKey[t.Key] = len(out)
		out = append(out, t)
	}

	blockRows, err := f.GetRows(BlocksSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", BlocksSheet, err)
	}
	for rowIdx, row := range blockRows {
		if rowIdx == 0 || len(row) == 0 || strings.TrimSpace(cell(row, 0)) == "" {
			continue
		}
		key := domain.ScheduleType(strings.TrimSpace(cell(row, 0)))
		idx, ok := byKey[key]
		if !ok {
			return nil, fmt.Errorf("sheet %s row %d: unknown key %q", BlocksSheet, rowIdx+1, key)
		}
		start, err := parseClock(cell(row, 1))
		if err != nil {
			return nil, fmt.Errorf("sheet %s row %d: %w", BlocksSheet, rowIdx+1, err)
		}
		dur, err := strconv.Atoi(strings.TrimSpace(cell(row, 2)))
		if err != nil {
			return nil, fmt.Errorf("sheet %s row %d: invalid duration %q", BlocksSheet, rowIdx+1, cell(row, 2))
		}
		out[idx].Blocks = append(out[idx].Blocks, BlockTemplate{
			StartMinute:     start,
			DurationMinutes: dur,
			IsCore:          parseYes(cell(row, 3)),
		})
	}

	for _, t := range out {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cellName, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetSheetRow(sheet, cellName, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func styleHeader(f *excelize.File, sheet string, cols int, style int) error {
	last, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}
	return nil
}

func collectLocales(templates []Template) []string {
	seen := map[string]struct{}{}
	for _, t := range templates {
		for l := range t.Descriptions {
			seen[l] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func formatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// parseClock accepts "HH:MM" or a plain minute count
func parseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	if h, m, ok := strings.Cut(s, ":"); ok {
		hh, err1 := strconv.Atoi(h)
		mm, err2 := strconv.Atoi(m)
		if err1 != nil || err2 != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
			return 0, fmt.Errorf("invalid start time %q", s)
		}
		return hh*60 + mm, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid start time %q", s)
	}
	return n, nil
}

func parseYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1", "core":
		return true
	}
	return false
}

// LoadFile imports templates from an xlsx on disk (CATALOG_FILE)
func LoadFile(path string) ([]Template, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer fh.Close()
	return ImportWorkbook(fh)
}
