package statement

import (
	"slices"

	"github.com/seenimoa/incomeview/pkg/models"
)

// Apply returns the records that satisfy filter, ordered by sort.
//
// The input slice is never modified. Sorting is stable, so records with equal
// keys keep their relative order from the input. With FieldNone the filtered
// records are returned in input order.
func Apply(records []models.FinancialRecord, filter FilterSpec, sort SortSpec) []models.FinancialRecord {
	out := make([]models.FinancialRecord, 0, len(records))
	for _, r := range records {
		if filter.Match(r) {
			out = append(out, r)
		}
	}
	if cmpFn := sort.compareFunc(); cmpFn != nil {
		slices.SortStableFunc(out, cmpFn)
	}
	return out
}

// Query bundles raw filter and sort input, as received from a form, query
// string or CLI flags.
type Query struct {
	FilterInput
	Sort  string `json:"sort"`
	Order string `json:"order"`
}

// Parse validates q into a FilterSpec and SortSpec.
func (q Query) Parse() (FilterSpec, SortSpec, error) {
	filter, err := ParseFilter(q.FilterInput)
	if err != nil {
		return FilterSpec{}, SortSpec{}, err
	}
	sort, err := ParseSort(q.Sort, q.Order)
	if err != nil {
		return FilterSpec{}, SortSpec{}, err
	}
	return filter, sort, nil
}
