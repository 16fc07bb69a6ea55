// Package report renders income-statement records as tables: markdown,
// styled terminal output (glamour), JSON and an HTML page.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/seenimoa/incomeview/internal/statement"
	"github.com/seenimoa/incomeview/pkg/models"
	"github.com/seenimoa/incomeview/web"
)

// ════════════════════════════════════════════════════════════════════
// Formats & messages
// ════════════════════════════════════════════════════════════════════

// Format specifies the output format.
type Format string

const (
	FormatTerminal Format = "term"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
)

// ParseFormat accepts the Format names plus "md" and "terminal".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "term", "terminal":
		return FormatTerminal, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

const (
	// EmptyMessage is shown when filtering leaves nothing to display.
	EmptyMessage = "No data matches the filters."

	missing = "-"
)

// ErrorMessage formats a fetch error for display.
func ErrorMessage(msg string) string {
	return "Error: " + msg
}

// Columns are the table headings, in display order.
var Columns = []string{"Date", "Revenue", "Net Income", "Gross Profit", "EPS", "Operating Income"}

// ════════════════════════════════════════════════════════════════════
// Rows
// ════════════════════════════════════════════════════════════════════

// Row is one record formatted for display.
type Row struct {
	Date            string `json:"date"`
	Revenue         string `json:"revenue"`
	NetIncome       string `json:"net_income"`
	GrossProfit     string `json:"gross_profit"`
	EPS             string `json:"eps"`
	OperatingIncome string `json:"operating_income"`
}

func (r Row) cells() []string {
	return []string{r.Date, r.Revenue, r.NetIncome, r.GrossProfit, r.EPS, r.OperatingIncome}
}

// Rows formats records for display. Amounts get thousands separators;
// EPS is shown as reported.
func Rows(records []models.FinancialRecord) []Row {
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		date := r.Date
		if date == "" {
			date = missing
		}
		rows = append(rows, Row{
			Date:            date,
			Revenue:         FormatAmount(r.Revenue),
			NetIncome:       FormatAmount(r.NetIncome),
			GrossProfit:     FormatAmount(r.GrossProfit),
			EPS:             formatRaw(r.EPS),
			OperatingIncome: FormatAmount(r.OperatingIncome),
		})
	}
	return rows
}

// FormatAmount groups digits by thousands, e.g. 391035000000 → "391,035,000,000".
func FormatAmount(v decimal.NullDecimal) string {
	if !v.Valid {
		return missing
	}
	d := v.Decimal
	if d.IsInteger() && d.Abs().LessThan(maxExactInt) {
		return humanize.Comma(d.IntPart())
	}
	return humanize.CommafWithDigits(d.InexactFloat64(), 2)
}

var maxExactInt = decimal.New(1, 18)

func formatRaw(v decimal.NullDecimal) string {
	if !v.Valid {
		return missing
	}
	return v.Decimal.String()
}

// ════════════════════════════════════════════════════════════════════
// Markdown / Terminal
// ════════════════════════════════════════════════════════════════════

// Markdown renders records as a GitHub-flavored markdown table, or
// EmptyMessage when there are none.
func Markdown(records []models.FinancialRecord) string {
	if len(records) == 0 {
		return EmptyMessage + "\n"
	}
	var b strings.Builder
	b.WriteString("| " + strings.Join(Columns, " | ") + " |\n")
	b.WriteString("|:---|---:|---:|---:|---:|---:|\n")
	for _, row := range Rows(records) {
		b.WriteString("| " + strings.Join(row.cells(), " | ") + " |\n")
	}
	return b.String()
}

// TermOptions controls terminal rendering.
type TermOptions struct {
	Width int    // word-wrap width; <= 0 uses 120
	Style string // glamour style name ("dark", "light", "notty", ...); "" or "auto" detects
}

// Terminal renders the markdown table through glamour for display in a
// terminal.
func Terminal(title string, records []models.FinancialRecord, opts TermOptions) (string, error) {
	width := opts.Width
	if width <= 0 {
		width = 120
	}
	styleOpt := glamour.WithAutoStyle()
	if opts.Style != "" && opts.Style != "auto" {
		styleOpt = glamour.WithStandardStyle(opts.Style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("terminal renderer: %w", err)
	}

	md := Markdown(records)
	if title != "" {
		md = "# " + title + "\n\n" + md
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

// ════════════════════════════════════════════════════════════════════
// JSON
// ════════════════════════════════════════════════════════════════════

// Document is the JSON shape written by JSON.
type Document struct {
	Symbol    string                   `json:"symbol"`
	Count     int                      `json:"count"`
	FetchedAt time.Time                `json:"fetched_at"`
	Records   []models.FinancialRecord `json:"records"`
}

// JSON writes the records as an indented Document.
func JSON(w io.Writer, doc Document) error {
	if doc.Records == nil {
		doc.Records = []models.FinancialRecord{}
	}
	doc.Count = len(doc.Records)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ════════════════════════════════════════════════════════════════════
// HTML page
// ════════════════════════════════════════════════════════════════════

// Option is one entry of a select control.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Page is the data for the HTML view.
type Page struct {
	Title     string
	Symbol    string
	Query     statement.Query
	Rows      []Row
	Columns   []string
	Fields    []Option
	Orders    []Option
	FetchErr  string // fetch failure; suppresses the table
	InputErr  string // rejected filter/sort input
	FetchedAt string
	WSPath    string // live-update endpoint; empty disables the script
}

// NewPage builds page data for the given query and result.
func NewPage(symbol string, q statement.Query, records []models.FinancialRecord) Page {
	p := Page{
		Title:   "Financial Data",
		Symbol:  symbol,
		Query:   q,
		Rows:    Rows(records),
		Columns: Columns,
	}
	selected, _ := statement.ParseField(q.Sort)
	for _, f := range statement.Fields {
		p.Fields = append(p.Fields, Option{Value: string(f), Label: f.Label(), Selected: f == selected})
	}
	desc := strings.HasPrefix(strings.ToLower(q.Order), "desc")
	p.Orders = []Option{
		{Value: string(statement.Ascending), Label: "Ascending", Selected: !desc},
		{Value: string(statement.Descending), Label: "Descending", Selected: desc},
	}
	return p
}

// EmptyMessage exposes the constant to the template.
func (p Page) EmptyMessage() string { return EmptyMessage }

// pageTemplate is parsed from the embedded web/templates/page.html.
var pageTemplate = template.Must(template.ParseFS(web.TemplatesFS(), "page.html"))

// HTML renders the page.
func HTML(w io.Writer, p Page) error {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return fmt.Errorf("executing template: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}
