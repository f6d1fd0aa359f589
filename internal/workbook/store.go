// Package workbook persists the history sheets in a local .xlsx file.
package workbook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"club_trophies/internal/table"
	"club_trophies/internal/trophies"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

const DefaultPath = "club_trophies.xlsx"

// Store loads and saves the workbook at path. Saving rewrites only the
// cells a run touched into the file that was loaded, so formatting added by
// hand survives.
type Store struct {
	path   string
	file   *excelize.File
	styles map[string]int
}

func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path, styles: make(map[string]int)}
}

func (s *Store) Path() string {
	return s.path
}

// Load opens the workbook, or starts a new one when the file does not exist.
// A file that exists but cannot be read is an error.
func (s *Store) Load(ctx context.Context) (*trophies.Workbook, error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		log.Info().Str("path", s.path).Msg("Workbook not found, starting a new one")
		return s.create()
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat workbook: %w", err)
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", s.path, err)
	}
	s.file = f

	wb := &trophies.Workbook{}
	if wb.Club, err = s.loadSheet(trophies.ClubSheet); err != nil {
		return nil, err
	}
	if wb.Members, err = s.loadSheet(trophies.MemberSheet); err != nil {
		return nil, err
	}
	wb.EnsureHeaders()

	log.Debug().
		Str("path", s.path).
		Int("club_rows", wb.Club.MaxRow()).
		Int("member_rows", wb.Members.MaxRow()).
		Int("member_columns", wb.Members.MaxCol()).
		Msg("Loaded workbook")
	return wb, nil
}

func (s *Store) create() (*trophies.Workbook, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), trophies.ClubSheet); err != nil {
		return nil, fmt.Errorf("failed to name club sheet: %w", err)
	}
	if _, err := f.NewSheet(trophies.MemberSheet); err != nil {
		return nil, fmt.Errorf("failed to create member sheet: %w", err)
	}
	s.file = f
	return trophies.NewWorkbook(), nil
}

// loadSheet reads a sheet into a grid, creating the sheet when the file
// lacks it.
func (s *Store) loadSheet(name string) (*table.Grid, error) {
	idx, err := s.file.GetSheetIndex(name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up sheet %q: %w", name, err)
	}
	if idx < 0 {
		log.Info().Str("sheet", name).Msg("Sheet missing from workbook, creating it")
		if _, err := s.file.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
		return table.New(), nil
	}

	rows, err := s.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
	}
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = make([]any, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}
	if len(values) > 0 {
		for j := 1; j < len(values[0]); j++ {
			if d, ok := s.headerDate(name, j+1, rows[0][j]); ok {
				values[0][j] = d
			}
		}
	}
	return table.FromRows(values), nil
}

// headerDate returns the date held by a header cell stored as a date serial
// rather than text, which is what Excel leaves after a header is retyped.
func (s *Store) headerDate(sheet string, col int, raw string) (time.Time, bool) {
	cell := table.CellName(1, col)
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		// cells of type "d" hold ISO 8601 text instead of a serial
		if typ, _ := s.file.GetCellType(sheet, cell); typ == excelize.CellTypeDate {
			if d, err := time.Parse(time.RFC3339, raw); err == nil {
				return d.UTC(), true
			}
		}
		return time.Time{}, false
	}
	if typ, err := s.file.GetCellType(sheet, cell); err != nil || typ != excelize.CellTypeDate {
		styleID, err := s.file.GetCellStyle(sheet, cell)
		if err != nil {
			return time.Time{}, false
		}
		style, err := s.file.GetStyle(styleID)
		if err != nil || !isDateFormat(style) {
			return time.Time{}, false
		}
	}
	d, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		log.Warn().Str("sheet", sheet).Str("cell", cell).Err(err).Msg("Unreadable date in header")
		return time.Time{}, false
	}
	return d, true
}

// isDateFormat reports whether a cell style displays its number as a date.
func isDateFormat(style *excelize.Style) bool {
	if style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		f := strings.ToLower(*style.CustomNumFmt)
		return strings.Contains(f, "y") || (strings.Contains(f, "d") && strings.Contains(f, "m"))
	}
	switch n := style.NumFmt; {
	case n >= 14 && n <= 17, n == 22, n >= 27 && n <= 36, n >= 50 && n <= 58:
		return true
	}
	return false
}

// Save writes the pending changes of wb and replaces the file atomically:
// the workbook goes to a temporary file next to the target which is then
// renamed over it.
func (s *Store) Save(ctx context.Context, wb *trophies.Workbook) error {
	if s.file == nil {
		return errors.New("workbook not loaded")
	}

	if err := s.applySheet(trophies.ClubSheet, wb.Club); err != nil {
		return err
	}
	if err := s.applySheet(trophies.MemberSheet, wb.Members); err != nil {
		return err
	}

	if err := s.writeAtomically(); err != nil {
		return err
	}

	wb.Club.MarkClean()
	wb.Members.MarkClean()
	log.Debug().Str("path", s.path).Msg("Saved workbook")
	return nil
}

func (s *Store) applySheet(name string, g *table.Grid) error {
	for _, ref := range g.DirtyCells() {
		if err := s.file.SetCellValue(name, ref.Name(), g.Cell(ref.Row, ref.Col)); err != nil {
			return fmt.Errorf("failed to write %s!%s: %w", name, ref.Name(), err)
		}
	}
	for _, ref := range g.DirtyFills() {
		styleID, err := s.fillStyle(g.Fill(ref.Row, ref.Col))
		if err != nil {
			return err
		}
		if err := s.file.SetCellStyle(name, ref.Name(), ref.Name(), styleID); err != nil {
			return fmt.Errorf("failed to style %s!%s: %w", name, ref.Name(), err)
		}
	}
	return nil
}

// fillStyle returns a solid-fill style for color, creating it once per
// workbook. An empty color maps to the default style.
func (s *Store) fillStyle(color string) (int, error) {
	if color == "" {
		return 0, nil
	}
	if id, ok := s.styles[color]; ok {
		return id, nil
	}
	id, err := s.file.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create fill style %s: %w", color, err)
	}
	s.styles[color] = id
	return id, nil
}

func (s *Store) writeAtomically() error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary workbook: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := s.file.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary workbook: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace workbook: %w", err)
	}
	return nil
}

// Close releases the temporary files excelize keeps for the open workbook.
func (s *Store) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
