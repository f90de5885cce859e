// Package google appends monthly report rows to a Google Sheet using a
// service account. The export is append-only; the sheet is a log, not a
// source of truth.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"splitledger/internal/core"
)

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// New creates an exporter from a spreadsheet ID, target sheet name and
// service-account credentials given either as a key file path or inline JSON.
func New(ctx context.Context, spreadsheetID, sheetName, keyFile, keyJSON string) (*Exporter, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if strings.TrimSpace(sheetName) == "" {
		return nil, errors.New("missing sheet name")
	}

	var credentials []byte
	switch {
	case strings.TrimSpace(keyJSON) != "":
		credentials = []byte(keyJSON)
	case strings.TrimSpace(keyFile) != "":
		b, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("read service account key file: %w", err)
		}
		credentials = b
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// AppendMonthlyReport appends one total row plus one row per category.
// Amounts are written as decimal currency values.
func (e *Exporter) AppendMonthlyReport(ctx context.Context, user core.User, report core.MonthlyReport) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rows := [][]any{
		{user.DisplayName, "Total", report.TotalAmount.Float64(), report.AveragePerDay.Float64()},
	}
	categories := make([]string, 0, len(report.CategorySummary))
	for name := range report.CategorySummary {
		categories = append(categories, name)
	}
	sort.Strings(categories)
	for _, name := range categories {
		rows = append(rows, []any{user.DisplayName, name, report.CategorySummary[name].Float64(), ""})
	}

	rng := fmt.Sprintf("%s!A:D", e.sheetName)
	vr := &gsheet.ValueRange{Values: rows}
	_, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append report rows to %s: %w", e.sheetName, err)
	}
	return nil
}
