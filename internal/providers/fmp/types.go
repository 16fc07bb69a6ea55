package fmp

import (
	"fmt"
	"strings"
)

// Period is the FMP reporting period query value.
type Period string

const (
	PeriodAnnual  Period = "annual"
	PeriodQuarter Period = "quarter"
)

// ParsePeriod accepts "annual" and "quarter" ("quarterly" also accepted).
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "annual", "fy":
		return PeriodAnnual, nil
	case "quarter", "quarterly":
		return PeriodQuarter, nil
	}
	return "", fmt.Errorf("fmp: unknown period %q", s)
}
