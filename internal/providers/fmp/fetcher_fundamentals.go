package fmp

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/seenimoa/incomeview/pkg/models"
)

// --- IncomeStatement fetcher ---

// IncomeStatements fetches every income statement FMP has for symbol in the
// given period, newest first as FMP returns them. One request, no retry.
// Any failure is returned as a *FetchError.
func (c *Client) IncomeStatements(ctx context.Context, symbol string, period Period) ([]models.FinancialRecord, error) {
	return c.fetchStatements(ctx, symbol, period, 0)
}

func (c *Client) fetchStatements(ctx context.Context, symbol string, period Period, limit int) ([]models.FinancialRecord, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, &FetchError{Period: period, Err: fmt.Errorf("missing symbol")}
	}
	if period == "" {
		period = PeriodAnnual
	}

	q := url.Values{}
	q.Set("period", string(period))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u := c.endpointURL("/income-statement/"+url.PathEscape(symbol), q)

	var records []models.FinancialRecord
	if err := c.fetchFMPJSON(ctx, u, &records); err != nil {
		return nil, &FetchError{Symbol: symbol, Period: period, Err: err}
	}
	if records == nil {
		// JSON null
		records = []models.FinancialRecord{}
	}
	return records, nil
}
