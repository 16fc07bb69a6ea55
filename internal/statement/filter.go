// Package statement implements the filter/sort pipeline applied to fetched
// income-statement records before display.
//
// The pipeline is pure: Apply never mutates its input and always returns a
// freshly allocated slice. Raw user input (form fields, query params, CLI
// flags) is validated up front by ParseFilter and ParseSort so that Apply
// itself cannot fail.
package statement

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/incomeview/pkg/models"
)

// FilterInput holds the raw text of each bound as the user typed it.
// Empty or whitespace-only strings mean "unconstrained".
type FilterInput struct {
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	MinRevenue   string `json:"min_revenue"`
	MaxRevenue   string `json:"max_revenue"`
	MinNetIncome string `json:"min_net_income"`
	MaxNetIncome string `json:"max_net_income"`
}

// DateRange is an inclusive calendar-day range. A zero Start or End leaves
// that side open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether day satisfies every set side of the range.
func (dr DateRange) Contains(day time.Time) bool {
	if !dr.Start.IsZero() && day.Before(dr.Start) {
		return false
	}
	if !dr.End.IsZero() && day.After(dr.End) {
		return false
	}
	return true
}

// Active reports whether either side is set.
func (dr DateRange) Active() bool {
	return !dr.Start.IsZero() || !dr.End.IsZero()
}

// AmountRange is an inclusive numeric range. An invalid Min or Max leaves
// that side open.
type AmountRange struct {
	Min decimal.NullDecimal
	Max decimal.NullDecimal
}

// Contains reports whether v satisfies every set side of the range.
func (ar AmountRange) Contains(v decimal.Decimal) bool {
	if ar.Min.Valid && v.LessThan(ar.Min.Decimal) {
		return false
	}
	if ar.Max.Valid && v.GreaterThan(ar.Max.Decimal) {
		return false
	}
	return true
}

// Active reports whether either side is set.
func (ar AmountRange) Active() bool {
	return ar.Min.Valid || ar.Max.Valid
}

// FilterSpec is a validated set of inclusive bounds. The zero value
// matches every record.
type FilterSpec struct {
	Date      DateRange
	Revenue   AmountRange
	NetIncome AmountRange
}

// Match reports whether r satisfies every active bound.
//
// A record whose field is missing (or whose date does not parse) fails any
// active bound on that field and passes when the field is unconstrained.
func (f FilterSpec) Match(r models.FinancialRecord) bool {
	if f.Date.Active() {
		day, ok := r.Day()
		if !ok || !f.Date.Contains(day) {
			return false
		}
	}
	if !matchAmount(f.Revenue, r.Revenue) {
		return false
	}
	return matchAmount(f.NetIncome, r.NetIncome)
}

func matchAmount(ar AmountRange, v decimal.NullDecimal) bool {
	if !ar.Active() {
		return true
	}
	return v.Valid && ar.Contains(v.Decimal)
}

// ParseFilter validates raw bound text into a FilterSpec. Dates must be
// YYYY-MM-DD; amounts must be plain decimal numbers (thousands separators
// "," and "_" are tolerated). Nothing is coerced: the first bad bound is
// returned as an *InvalidBoundError.
func ParseFilter(in FilterInput) (FilterSpec, error) {
	var (
		spec FilterSpec
		err  error
	)
	if spec.Date.Start, err = parseDateBound("start_date", in.StartDate); err != nil {
		return FilterSpec{}, err
	}
	if spec.Date.End, err = parseDateBound("end_date", in.EndDate); err != nil {
		return FilterSpec{}, err
	}
	if spec.Revenue.Min, err = parseAmountBound("min_revenue", in.MinRevenue); err != nil {
		return FilterSpec{}, err
	}
	if spec.Revenue.Max, err = parseAmountBound("max_revenue", in.MaxRevenue); err != nil {
		return FilterSpec{}, err
	}
	if spec.NetIncome.Min, err = parseAmountBound("min_net_income", in.MinNetIncome); err != nil {
		return FilterSpec{}, err
	}
	if spec.NetIncome.Max, err = parseAmountBound("max_net_income", in.MaxNetIncome); err != nil {
		return FilterSpec{}, err
	}
	return spec, nil
}

func parseDateBound(name, raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, &InvalidBoundError{Name: name, Value: raw, Reason: "expected YYYY-MM-DD"}
	}
	return t, nil
}

var amountCleaner = strings.NewReplacer(",", "", "_", "")

func parseAmountBound(name, raw string) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(amountCleaner.Replace(s))
	if err != nil {
		return decimal.NullDecimal{}, &InvalidBoundError{Name: name, Value: raw, Reason: "not a number"}
	}
	return decimal.NewNullDecimal(d), nil
}

// InvalidBoundError is returned when a filter bound cannot be parsed.
type InvalidBoundError struct {
	Name   string // e.g., "min_revenue"
	Value  string
	Reason string
}

func (e *InvalidBoundError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Name, e.Value, e.Reason)
}
