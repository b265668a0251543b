// Package google writes report summaries to a Google spreadsheet, one tab
// per property and month.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"homeledger/internal/log"
	"homeledger/internal/report"
	"homeledger/internal/sheets"
)

var _ sheets.SummaryWriter = (*Client)(nil)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger

	mu   sync.Mutex
	tabs map[string]bool
}

// Credentials selects the service account used to talk to the Sheets API.
// JSON wins over File when both are set.
type Credentials struct {
	JSON string
	File string
}

// NewFromCredentials creates a Sheets client authenticated as a service
// account.
func NewFromCredentials(ctx context.Context, spreadsheetID string, creds Credentials, logger *log.Logger) (*Client, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(creds.JSON) != "":
		credentialsJSON = []byte(creds.JSON)
	case strings.TrimSpace(creds.File) != "":
		data, err := os.ReadFile(creds.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	return New(ctx, spreadsheetID, logger,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// New creates a client with explicit API options. Tests point it at a local
// endpoint.
func New(ctx context.Context, spreadsheetID string, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logger:        logger.WithComponent(log.ComponentSheets),
		tabs:          make(map[string]bool),
	}, nil
}

// WriteMonthlySummary implements sheets.SummaryWriter. The tab is created on
// first use and cleared before every write.
func (c *Client) WriteMonthlySummary(ctx context.Context, s report.MonthlySummary) (string, error) {
	tab := sheets.TabName(s.Property.ID, s.Period.Year, s.Period.Month)
	if err := c.ensureTab(ctx, tab); err != nil {
		return "", err
	}

	rows := sheets.Rows(s)
	clearRange := fmt.Sprintf("'%s'!A:F", tab)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", clearRange, err)
	}

	ref := fmt.Sprintf("'%s'!A1:F%d", tab, len(rows))
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, ref, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("update %s: %w", ref, err)
	}

	c.logger.InfoContext(ctx, "Monthly summary exported",
		log.FieldPropertyID, s.Property.ID,
		log.FieldYear, s.Period.Year,
		log.FieldMonth, s.Period.Month,
		"sheets_ref", ref)
	return ref, nil
}

func (c *Client) ensureTab(ctx context.Context, tab string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tabs[tab] {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			c.tabs[sh.Properties.Title] = true
		}
	}
	if c.tabs[tab] {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", tab, err)
	}
	c.tabs[tab] = true
	c.logger.DebugContext(ctx, "Created sheet tab", "tab", tab)
	return nil
}
