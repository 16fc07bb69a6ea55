package statement

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/incomeview/pkg/models"
)

// Field selects the record field used as the sort key.
type Field string

const (
	FieldNone      Field = ""
	FieldDate      Field = "date"
	FieldRevenue   Field = "revenue"
	FieldNetIncome Field = "netIncome"
)

// Fields lists the sortable fields in display order.
var Fields = []Field{FieldDate, FieldRevenue, FieldNetIncome}

// Label returns the column heading for the field.
func (f Field) Label() string {
	switch f {
	case FieldDate:
		return "Date"
	case FieldRevenue:
		return "Revenue"
	case FieldNetIncome:
		return "Net Income"
	}
	return "None"
}

// Order is the sort direction.
type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// SortSpec selects the ordering applied after filtering.
type SortSpec struct {
	Field Field
	Order Order
}

// DefaultSort matches the initial view: oldest first.
var DefaultSort = SortSpec{Field: FieldDate, Order: Ascending}

// ParseField accepts "date", "revenue" and "netIncome" (case-insensitive,
// "net_income" also accepted). Empty input or "none" yields FieldNone.
func ParseField(raw string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none":
		return FieldNone, nil
	case "date":
		return FieldDate, nil
	case "revenue":
		return FieldRevenue, nil
	case "netincome", "net_income", "net-income":
		return FieldNetIncome, nil
	}
	return FieldNone, &InvalidSortError{Name: "sort", Value: raw}
}

// ParseOrder accepts "asc"/"ascending" and "desc"/"descending". Empty input
// yields Ascending.
func ParseOrder(raw string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return Ascending, &InvalidSortError{Name: "order", Value: raw}
}

// ParseSort combines ParseField and ParseOrder.
func ParseSort(field, order string) (SortSpec, error) {
	f, err := ParseField(field)
	if err != nil {
		return SortSpec{}, err
	}
	o, err := ParseOrder(order)
	if err != nil {
		return SortSpec{}, err
	}
	return SortSpec{Field: f, Order: o}, nil
}

// InvalidSortError is returned for an unknown sort field or direction.
type InvalidSortError struct {
	Name  string // "sort" or "order"
	Value string
}

func (e *InvalidSortError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Name, e.Value)
}

// keyFunc compares a and b on one field. aOK and bOK report whether each
// record has the key; missing keys are ordered by the caller.
type keyFunc func(a, b models.FinancialRecord) (c int, aOK, bOK bool)

var comparators = map[Field]keyFunc{
	FieldDate:      compareDates,
	FieldRevenue:   compareAmounts(func(r models.FinancialRecord) decimal.NullDecimal { return r.Revenue }),
	FieldNetIncome: compareAmounts(func(r models.FinancialRecord) decimal.NullDecimal { return r.NetIncome }),
}

func compareDates(a, b models.FinancialRecord) (int, bool, bool) {
	ad, aOK := a.Day()
	bd, bOK := b.Day()
	if !aOK || !bOK {
		return 0, aOK, bOK
	}
	return ad.Compare(bd), true, true
}

func compareAmounts(get func(models.FinancialRecord) decimal.NullDecimal) keyFunc {
	return func(a, b models.FinancialRecord) (int, bool, bool) {
		av, bv := get(a), get(b)
		if !av.Valid || !bv.Valid {
			return 0, av.Valid, bv.Valid
		}
		return av.Decimal.Cmp(bv.Decimal), true, true
	}
}

// compareFunc builds the comparator for s, or nil when no field is set.
// Missing keys sort after present ones in both directions.
func (s SortSpec) compareFunc() func(a, b models.FinancialRecord) int {
	key, ok := comparators[s.Field]
	if !ok {
		return nil
	}
	desc := s.Order == Descending
	return func(a, b models.FinancialRecord) int {
		c, aOK, bOK := key(a, b)
		switch {
		case aOK && bOK:
			if desc {
				return -c
			}
			return c
		case aOK != bOK:
			// present before missing
			return cmp.Compare(boolRank(aOK), boolRank(bOK))
		}
		return 0
	}
}

func boolRank(present bool) int {
	if present {
		return 0
	}
	return 1
}
