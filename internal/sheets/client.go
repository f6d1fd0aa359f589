package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type Client struct {
	service *sheets.Service
}

// SheetInfo is the part of a tab's properties the store needs.
type SheetInfo struct {
	ID          int64
	Title       string
	RowCount    int64
	ColumnCount int64
}

func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	return NewClientWithOptions(ctx, option.WithCredentialsFile(credentialsFile))
}

func NewClientWithOptions(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{
		service: service,
	}, nil
}

// ReadSheet returns the values of range_ unformatted, so numbers come back
// as float64 rather than display strings. Date cells come back as serial
// numbers, not in the spreadsheet's locale format.
func (c *Client) ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error) {
	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, range_).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).
		Do()
	if err != nil {
		return nil, apiError("read sheet", err)
	}

	return resp.Values, nil
}

// ListSheets returns the tabs of the spreadsheet keyed by title.
func (c *Client) ListSheets(ctx context.Context, spreadsheetID string) (map[string]SheetInfo, error) {
	ss, err := c.service.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, apiError("get spreadsheet", err)
	}

	tabs := make(map[string]SheetInfo, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		info := SheetInfo{ID: sh.Properties.SheetId, Title: sh.Properties.Title}
		if gp := sh.Properties.GridProperties; gp != nil {
			info.RowCount = gp.RowCount
			info.ColumnCount = gp.ColumnCount
		}
		tabs[info.Title] = info
	}
	return tabs, nil
}

// AddSheet creates a tab and returns its properties.
func (c *Client) AddSheet(ctx context.Context, spreadsheetID, title string) (SheetInfo, error) {
	resp, err := c.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: title},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return SheetInfo{}, apiError(fmt.Sprintf("add sheet %q", title), err)
	}

	info := SheetInfo{Title: title}
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		props := resp.Replies[0].AddSheet.Properties
		info.ID = props.SheetId
		if props.GridProperties != nil {
			info.RowCount = props.GridProperties.RowCount
			info.ColumnCount = props.GridProperties.ColumnCount
		}
	}
	return info, nil
}

// BatchUpdate applies requests in one call. The API applies all of them or
// none.
func (c *Client) BatchUpdate(ctx context.Context, spreadsheetID string, requests []*sheets.Request) error {
	if len(requests) == 0 {
		return nil
	}
	_, err := c.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return apiError("batch update", err)
	}
	return nil
}

// apiError wraps err, naming the likely cause for the status codes a
// misconfigured spreadsheet produces.
func apiError(op string, err error) error {
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	var hint string
	switch gErr.Code {
	case http.StatusNotFound:
		hint = "spreadsheet or range not found"
	case http.StatusUnauthorized, http.StatusForbidden:
		hint = "credentials have no access, share the spreadsheet with the service account"
	case http.StatusTooManyRequests:
		hint = "rate limited"
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return fmt.Errorf("failed to %s (%s): %w", op, hint, err)
}
