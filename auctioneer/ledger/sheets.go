package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	colPersonID = "ID"
	colName     = "Name"
	colBalance  = "POM Balance"
)

type SheetsConfig struct {
	CredentialsPath string `toml:"credentials_path"`
	SpreadsheetID   string `toml:"spreadsheet_id"`
	BalanceSheet    string `toml:"balance_sheet"`
	ResultsSheet    string `toml:"results_sheet"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
}

// CacheTTL is how long the adapter may serve cached balances, 5m default.
func (c SheetsConfig) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// SheetsClient reads and writes the budget spreadsheet via the Google
// Sheets API using a service account.
type SheetsClient struct {
	svc           *sheets.Service
	spreadsheetID string
	balanceSheet  string
	resultsSheet  string
}

func NewSheetsClient(ctx context.Context, cfg SheetsConfig) (*SheetsClient, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsPath),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	balanceSheet := cfg.BalanceSheet
	if balanceSheet == "" {
		balanceSheet = "POM Balance"
	}
	resultsSheet := cfg.ResultsSheet
	if resultsSheet == "" {
		resultsSheet = "Completed Auctions"
	}

	return &SheetsClient{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		balanceSheet:  balanceSheet,
		resultsSheet:  resultsSheet,
	}, nil
}

func (c *SheetsClient) ListBalances(ctx context.Context) ([]BudgetRecord, error) {
	rows, _, err := c.readBalanceRows(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]BudgetRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.BudgetRecord)
	}
	return records, nil
}

func (c *SheetsClient) SetBalance(ctx context.Context, personID string, newBalance int64) error {
	rows, cols, err := c.readBalanceRows(ctx)
	if err != nil {
		return err
	}

	for _, row := range rows {
		if row.PersonID != personID {
			continue
		}
		cellRange := fmt.Sprintf("%s!%s%d", c.balanceSheet, columnLetter(cols.balance), row.sheetRow)
		_, err := c.svc.Spreadsheets.Values.
			Update(c.spreadsheetID, cellRange, &sheets.ValueRange{
				Values: [][]interface{}{{newBalance}},
			}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to update balance cell %s: %w", cellRange, err)
		}
		return nil
	}
	return ErrPersonNotFound
}

func (c *SheetsClient) AppendCompletedAuction(ctx context.Context, record CompletedAuction) error {
	row := []interface{}{
		record.PlayerName,
		record.WinnerID,
		record.WinnerName,
		record.WinningBid,
		record.CompletedAt.UTC().Format("2006-01-02 15:04"),
	}

	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, c.resultsSheet+"!A:E", &sheets.ValueRange{
			Values: [][]interface{}{row},
		}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append completed auction: %w", err)
	}
	return nil
}

type balanceColumns struct {
	personID int
	name     int
	balance  int
}

// balanceRow pairs a record with the 1-based row it occupies on the sheet.
// Blank rows are skipped when reading, so slice indexes and physical rows
// can drift apart.
type balanceRow struct {
	BudgetRecord
	sheetRow int
}

func (c *SheetsClient) readBalanceRows(ctx context.Context) ([]balanceRow, balanceColumns, error) {
	resp, err := c.svc.Spreadsheets.Values.
		Get(c.spreadsheetID, c.balanceSheet+"!A:Z").
		Context(ctx).
		Do()
	if err != nil {
		return nil, balanceColumns{}, fmt.Errorf("failed to read balance sheet: %w", err)
	}
	return parseBalanceRows(resp.Values)
}

func parseBalanceRows(values [][]interface{}) ([]balanceRow, balanceColumns, error) {
	if len(values) == 0 {
		return nil, balanceColumns{}, nil
	}

	cols, err := locateColumns(values[0])
	if err != nil {
		return nil, balanceColumns{}, err
	}

	var records []balanceRow
	for i, row := range values[1:] {
		id := cellString(row, cols.personID)
		if id == "" {
			continue
		}
		records = append(records, balanceRow{
			BudgetRecord: BudgetRecord{
				PersonID:    id,
				DisplayName: cellString(row, cols.name),
				Balance:     cellInt(row, cols.balance),
			},
			// Row 1 is the header, data starts on row 2.
			sheetRow: i + 2,
		})
	}
	return records, cols, nil
}

func locateColumns(header []interface{}) (balanceColumns, error) {
	cols := balanceColumns{personID: -1, name: -1, balance: -1}
	for i, cell := range header {
		switch strings.TrimSpace(fmt.Sprint(cell)) {
		case colPersonID:
			cols.personID = i
		case colName:
			cols.name = i
		case colBalance:
			cols.balance = i
		}
	}
	if cols.personID < 0 || cols.balance < 0 {
		return cols, fmt.Errorf("balance sheet is missing required columns %q/%q", colPersonID, colBalance)
	}
	return cols, nil
}

func cellString(row []interface{}, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[idx]))
}

func cellInt(row []interface{}, idx int) int64 {
	s := cellString(row, idx)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	// Sheets sometimes hands back numbers formatted as floats.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

func columnLetter(idx int) string {
	letter := ""
	for idx >= 0 {
		letter = string(rune('A'+idx%26)) + letter
		idx = idx/26 - 1
	}
	return letter
}
