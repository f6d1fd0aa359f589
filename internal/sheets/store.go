package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"club_trophies/internal/table"
	"club_trophies/internal/trophies"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"google.golang.org/api/sheets/v4"
)

// Store keeps the history sheets as tabs of a Google spreadsheet.
type Store struct {
	client        *Client
	spreadsheetID string
	tabs          map[string]SheetInfo
}

func NewStore(client *Client, spreadsheetID string) *Store {
	return &Store{client: client, spreadsheetID: spreadsheetID}
}

// Load reads both tabs, adding any that do not exist yet.
func (s *Store) Load(ctx context.Context) (*trophies.Workbook, error) {
	tabs, err := s.client.ListSheets(ctx, s.spreadsheetID)
	if err != nil {
		return nil, err
	}
	s.tabs = tabs

	wb := &trophies.Workbook{}
	if wb.Club, err = s.loadTab(ctx, trophies.ClubSheet); err != nil {
		return nil, err
	}
	if wb.Members, err = s.loadTab(ctx, trophies.MemberSheet); err != nil {
		return nil, err
	}
	wb.EnsureHeaders()

	log.Debug().
		Str("spreadsheet_id", s.spreadsheetID).
		Int("club_rows", wb.Club.MaxRow()).
		Int("member_rows", wb.Members.MaxRow()).
		Int("member_columns", wb.Members.MaxCol()).
		Msg("Loaded spreadsheet")
	return wb, nil
}

func (s *Store) loadTab(ctx context.Context, title string) (*table.Grid, error) {
	if _, ok := s.tabs[title]; !ok {
		log.Info().Str("sheet", title).Msg("Sheet missing from spreadsheet, creating it")
		info, err := s.client.AddSheet(ctx, s.spreadsheetID, title)
		if err != nil {
			return nil, err
		}
		s.tabs[title] = info
		return table.New(), nil
	}

	values, err := s.client.ReadSheet(ctx, s.spreadsheetID, quoteSheet(title))
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", title, err)
	}
	if len(values) > 0 {
		for j := 1; j < len(values[0]); j++ {
			if d, ok := serialDate(values[0][j]); ok {
				values[0][j] = d
			}
		}
	}
	return table.FromRows(values), nil
}

// serialDate converts a numeric header, which is how a header typed as a date
// reads back, into that date. Sheets counts days from the same epoch as
// Excel.
func serialDate(v any) (time.Time, bool) {
	serial, ok := v.(float64)
	if !ok || serial <= 0 {
		return time.Time{}, false
	}
	d, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Save writes the pending cells and fills of both tabs in a single batch
// update, growing a tab first when new rows or columns fall outside it.
func (s *Store) Save(ctx context.Context, wb *trophies.Workbook) error {
	if s.tabs == nil {
		return fmt.Errorf("spreadsheet not loaded")
	}

	var requests []*sheets.Request
	for _, tab := range []struct {
		title string
		grid  *table.Grid
	}{
		{trophies.ClubSheet, wb.Club},
		{trophies.MemberSheet, wb.Members},
	} {
		info := s.tabs[tab.title]
		requests = append(requests, growRequests(info, tab.grid)...)
		requests = append(requests, cellRequests(info.ID, tab.grid)...)
	}

	if len(requests) == 0 {
		log.Debug().Msg("No spreadsheet changes to save")
		return nil
	}
	if err := s.client.BatchUpdate(ctx, s.spreadsheetID, requests); err != nil {
		return err
	}

	wb.Club.MarkClean()
	wb.Members.MarkClean()
	log.Debug().
		Str("spreadsheet_id", s.spreadsheetID).
		Int("requests", len(requests)).
		Msg("Saved spreadsheet")
	return nil
}

func growRequests(info SheetInfo, g *table.Grid) []*sheets.Request {
	var requests []*sheets.Request
	if extra := int64(g.MaxRow()) - info.RowCount; info.RowCount > 0 && extra > 0 {
		requests = append(requests, &sheets.Request{AppendDimension: &sheets.AppendDimensionRequest{
			SheetId: info.ID, Dimension: "ROWS", Length: extra,
		}})
	}
	if extra := int64(g.MaxCol()) - info.ColumnCount; info.ColumnCount > 0 && extra > 0 {
		requests = append(requests, &sheets.Request{AppendDimension: &sheets.AppendDimensionRequest{
			SheetId: info.ID, Dimension: "COLUMNS", Length: extra,
		}})
	}
	return requests
}

// cellRequests turns every dirty cell and fill into an UpdateCells request.
// A cell whose value and fill both changed gets one request with both
// fields.
func cellRequests(sheetID int64, g *table.Grid) []*sheets.Request {
	type pending struct {
		value, fill bool
	}
	changes := make(map[table.Ref]*pending)
	var order []table.Ref
	touch := func(ref table.Ref) *pending {
		p, ok := changes[ref]
		if !ok {
			p = &pending{}
			changes[ref] = p
			order = append(order, ref)
		}
		return p
	}
	for _, ref := range g.DirtyCells() {
		touch(ref).value = true
	}
	for _, ref := range g.DirtyFills() {
		touch(ref).fill = true
	}

	requests := make([]*sheets.Request, 0, len(order))
	for _, ref := range order {
		p := changes[ref]
		cell := &sheets.CellData{}
		var fields []string
		if p.value {
			cell.UserEnteredValue = extendedValue(g.Cell(ref.Row, ref.Col))
			fields = append(fields, "userEnteredValue")
		}
		if p.fill {
			if color := g.Fill(ref.Row, ref.Col); color != "" {
				cell.UserEnteredFormat = &sheets.CellFormat{BackgroundColor: hexColor(color)}
			}
			fields = append(fields, "userEnteredFormat.backgroundColor")
		}
		requests = append(requests, &sheets.Request{UpdateCells: &sheets.UpdateCellsRequest{
			Start:  &sheets.GridCoordinate{SheetId: sheetID, RowIndex: int64(ref.Row - 1), ColumnIndex: int64(ref.Col - 1)},
			Rows:   []*sheets.RowData{{Values: []*sheets.CellData{cell}}},
			Fields: strings.Join(fields, ","),
		}})
	}
	return requests
}

// extendedValue maps a grid value to the API's typed cell value. Strings are
// sent as strings so dates and numeric-looking names are not reinterpreted.
func extendedValue(v any) *sheets.ExtendedValue {
	switch val := v.(type) {
	case nil:
		return nil
	case int:
		n := float64(val)
		return &sheets.ExtendedValue{NumberValue: &n}
	case int64:
		n := float64(val)
		return &sheets.ExtendedValue{NumberValue: &n}
	case float64:
		return &sheets.ExtendedValue{NumberValue: &val}
	case bool:
		return &sheets.ExtendedValue{BoolValue: &val}
	case time.Time:
		s := val.Format(trophies.DateLayout)
		return &sheets.ExtendedValue{StringValue: &s}
	default:
		s := table.StringValue(val)
		return &sheets.ExtendedValue{StringValue: &s}
	}
}

// hexColor converts an RRGGBB string to the API's 0..1 color channels.
func hexColor(hex string) *sheets.Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) == 8 {
		hex = hex[2:]
	}
	rgb, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || len(hex) != 6 {
		return nil
	}
	return &sheets.Color{
		Red:   float64((rgb>>16)&0xFF) / 255,
		Green: float64((rgb>>8)&0xFF) / 255,
		Blue:  float64(rgb&0xFF) / 255,
	}
}

// quoteSheet quotes a tab title for use as an A1 range.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
