package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used by FMP statement dates.
const DateLayout = "2006-01-02"

// FinancialRecord is one fiscal period of a company's income statement as
// reported by Financial Modeling Prep.
//
// Amounts are NullDecimal so that a field FMP omits (or sends as null) stays
// distinguishable from a reported zero.
type FinancialRecord struct {
	Date             string `json:"date"`                       // e.g., "2024-09-28"
	Symbol           string `json:"symbol,omitempty"`           // e.g., "AAPL"
	ReportedCurrency string `json:"reportedCurrency,omitempty"` // e.g., "USD"
	CalendarYear     string `json:"calendarYear,omitempty"`
	Period           string `json:"period,omitempty"` // "FY", "Q1", ...

	Revenue         decimal.NullDecimal `json:"revenue"`
	NetIncome       decimal.NullDecimal `json:"netIncome"`
	GrossProfit     decimal.NullDecimal `json:"grossProfit"`
	OperatingIncome decimal.NullDecimal `json:"operatingIncome"`
	EPS             decimal.NullDecimal `json:"eps"`
}

// MarshalJSON writes amounts as JSON numbers in FMP's shape; missing
// amounts are written as null.
func (r FinancialRecord) MarshalJSON() ([]byte, error) {
	type wire struct {
		Date             string          `json:"date"`
		Symbol           string          `json:"symbol,omitempty"`
		ReportedCurrency string          `json:"reportedCurrency,omitempty"`
		CalendarYear     string          `json:"calendarYear,omitempty"`
		Period           string          `json:"period,omitempty"`
		Revenue          json.RawMessage `json:"revenue"`
		NetIncome        json.RawMessage `json:"netIncome"`
		GrossProfit      json.RawMessage `json:"grossProfit"`
		OperatingIncome  json.RawMessage `json:"operatingIncome"`
		EPS              json.RawMessage `json:"eps"`
	}
	return json.Marshal(wire{
		Date:             r.Date,
		Symbol:           r.Symbol,
		ReportedCurrency: r.ReportedCurrency,
		CalendarYear:     r.CalendarYear,
		Period:           r.Period,
		Revenue:          numberJSON(r.Revenue),
		NetIncome:        numberJSON(r.NetIncome),
		GrossProfit:      numberJSON(r.GrossProfit),
		OperatingIncome:  numberJSON(r.OperatingIncome),
		EPS:              numberJSON(r.EPS),
	})
}

func numberJSON(v decimal.NullDecimal) json.RawMessage {
	if !v.Valid {
		return json.RawMessage("null")
	}
	return json.RawMessage(v.Decimal.String())
}

// Day parses Date as a calendar day in UTC.
func (r FinancialRecord) Day() (time.Time, bool) {
	if r.Date == "" {
		return time.Time{}, false
	}
	// FMP occasionally returns "2024-09-28 00:00:00".
	s := r.Date
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Amount builds a present NullDecimal from an integer, for fixtures and tests.
func Amount(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

// AmountFloat builds a present NullDecimal from a float.
func AmountFloat(v float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(v))
}
