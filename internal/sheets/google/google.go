package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"fleetbudget/internal/core"
	"fleetbudget/internal/log"
	"fleetbudget/internal/ports"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// AlertSheet mirrors new budget alerts into a Google Sheets tab so fleet
// managers can follow them without access to the service.
type AlertSheet struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

var _ ports.AlertSink = (*AlertSheet)(nil)

// New creates the sink using a service account key file.
func New(ctx context.Context, spreadsheetID, sheetName, credentialsFile string) (*AlertSheet, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Budget alerts"
	}

	svc, err := newSheetsService(ctx, credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &AlertSheet{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        log.Default(log.ComponentSheets),
	}, nil
}

func newSheetsService(ctx context.Context, credentialsFile string) (*gsheet.Service, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// PublishAlerts appends one row per alert. Alerts whose id is already in the
// sheet are skipped, so a retried publish does not duplicate rows.
func (s *AlertSheet) PublishAlerts(ctx context.Context, alerts []core.BudgetAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	if s.svc == nil {
		return errors.New("sheets service not initialized")
	}

	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName+"!A:A").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read alert ids from %s: %w", s.sheetName, err)
	}

	rows := buildRows(resp.Values, alerts)
	if len(rows) == 0 {
		return nil
	}

	vr := &gsheet.ValueRange{Values: rows}
	_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.sheetName+"!A:I", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append alerts to %s: %w", s.sheetName, err)
	}

	s.logger.InfoContext(ctx, "Budget alerts appended to sheet",
		"sheet", s.sheetName,
		log.FieldAlertCount, len(rows))
	return nil
}
