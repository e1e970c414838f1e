// Package sheets publishes the budget summary to a Google spreadsheet so the
// finance team can consume it outside the dashboard.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"obras/internal/report"
)

type Publisher struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// New creates a publisher bound to one spreadsheet and sheet. Credentials come
// from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, sheetName string) (*Publisher, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Resumo"
	}
	svc, err := newService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Publisher{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newService(ctx context.Context) (*gsheet.Service, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentials []byte
	switch {
	case inline != "":
		credentials = []byte(inline)
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentials = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// PublishSummary replaces the sheet's contents with the given rows. The sheet
// always reflects the latest full recomputation, never an append log.
func (p *Publisher) PublishSummary(ctx context.Context, rows []report.SummaryRow) error {
	rangeName := fmt.Sprintf("%s!A1:D", p.sheetName)

	if _, err := p.svc.Spreadsheets.Values.
		Clear(p.spreadsheetID, rangeName, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	values := make([][]any, 0, len(rows)+1)
	values = append(values, []any{"Secretaria", "Orçamento Consolidado", "Gasto", "Restante"})
	for _, row := range rows {
		values = append(values, []any{
			row.Department,
			row.Consolidated.BRL(),
			row.Spent.BRL(),
			row.Remaining.BRL(),
		})
	}

	vr := &gsheet.ValueRange{Values: values}
	if _, err := p.svc.Spreadsheets.Values.
		Update(p.spreadsheetID, fmt.Sprintf("%s!A1", p.sheetName), vr).
		ValueInputOption("RAW").
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("update sheet: %w", err)
	}

	slog.InfoContext(ctx, "Summary published to spreadsheet",
		"spreadsheet_id", p.spreadsheetID,
		"sheet", p.sheetName,
		"rows", len(rows))
	return nil
}
