package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/seenimoa/incomeview/internal/statement"
	"github.com/seenimoa/incomeview/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

func sampleRecords() []models.FinancialRecord {
	return []models.FinancialRecord{
		{
			Date:            "2024-09-28",
			Revenue:         models.Amount(391035000000),
			NetIncome:       models.Amount(93736000000),
			GrossProfit:     models.Amount(180683000000),
			OperatingIncome: models.Amount(123216000000),
			EPS:             models.AmountFloat(6.11),
		},
		{
			Date:      "2023-09-30",
			Revenue:   models.Amount(383285000000),
			NetIncome: models.Amount(-1200),
			EPS:       models.AmountFloat(-0.5),
		},
	}
}

func parseHTML(t *testing.T, p Page) *goquery.Document {
	t.Helper()
	var buf bytes.Buffer
	if err := HTML(&buf, p); err != nil {
		t.Fatalf("HTML: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		t.Fatalf("parse HTML: %v", err)
	}
	return doc
}

// ════════════════════════════════════════════════════════════════════
// Rows
// ════════════════════════════════════════════════════════════════════

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   decimal.NullDecimal
		want string
	}{
		{models.Amount(391035000000), "391,035,000,000"},
		{models.Amount(-1200), "-1,200"},
		{models.Amount(0), "0"},
		{models.Amount(999), "999"},
		{models.AmountFloat(1234.5), "1,234.5"},
		{decimal.NullDecimal{}, "-"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.in); got != tt.want {
			t.Errorf("FormatAmount(%v): got %q, want %q", tt.in.Decimal, got, tt.want)
		}
	}
}

func TestRows(t *testing.T) {
	rows := Rows(sampleRecords())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	want := Row{
		Date:            "2024-09-28",
		Revenue:         "391,035,000,000",
		NetIncome:       "93,736,000,000",
		GrossProfit:     "180,683,000,000",
		EPS:             "6.11",
		OperatingIncome: "123,216,000,000",
	}
	if rows[0] != want {
		t.Errorf("rows[0]: got %+v, want %+v", rows[0], want)
	}
	if rows[1].GrossProfit != "-" || rows[1].OperatingIncome != "-" {
		t.Errorf("missing amounts should render as '-': %+v", rows[1])
	}
	if rows[1].EPS != "-0.5" {
		t.Errorf("rows[1].EPS: got %q", rows[1].EPS)
	}
}

// ════════════════════════════════════════════════════════════════════
// Markdown / Terminal
// ════════════════════════════════════════════════════════════════════

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleRecords())
	lines := strings.Split(strings.TrimSpace(md), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, separator and 2 rows, got %d lines:\n%s", len(lines), md)
	}
	if lines[0] != "| Date | Revenue | Net Income | Gross Profit | EPS | Operating Income |" {
		t.Errorf("header: got %q", lines[0])
	}
	if lines[2] != "| 2024-09-28 | 391,035,000,000 | 93,736,000,000 | 180,683,000,000 | 6.11 | 123,216,000,000 |" {
		t.Errorf("first row: got %q", lines[2])
	}
}

func TestMarkdownEmpty(t *testing.T) {
	if got := Markdown(nil); got != EmptyMessage+"\n" {
		t.Errorf("Markdown(nil): got %q", got)
	}
}

func TestTerminal(t *testing.T) {
	out, err := Terminal("AAPL income statements", sampleRecords(), TermOptions{Width: 200, Style: "notty"})
	if err != nil {
		t.Fatalf("Terminal: %v", err)
	}
	for _, want := range []string{"AAPL income statements", "Revenue", "2024-09-28", "391,035,000,000"} {
		if !strings.Contains(out, want) {
			t.Errorf("terminal output missing %q:\n%s", want, out)
		}
	}
}

func TestTerminalEmpty(t *testing.T) {
	out, err := Terminal("", nil, TermOptions{Style: "notty"})
	if err != nil {
		t.Fatalf("Terminal: %v", err)
	}
	if !strings.Contains(out, EmptyMessage) {
		t.Errorf("expected empty message, got %q", out)
	}
}

// ════════════════════════════════════════════════════════════════════
// JSON
// ════════════════════════════════════════════════════════════════════

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := JSON(&buf, Document{Symbol: "AAPL", FetchedAt: at, Records: sampleRecords()}); err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var got struct {
		Symbol  string `json:"symbol"`
		Count   int    `json:"count"`
		Records []struct {
			Date    string          `json:"date"`
			Revenue json.RawMessage `json:"revenue"`
		} `json:"records"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if got.Symbol != "AAPL" || got.Count != 2 {
		t.Errorf("header: got %+v", got)
	}
	if got.Records[0].Date != "2024-09-28" {
		t.Errorf("records[0].Date: got %q", got.Records[0].Date)
	}
	if string(got.Records[0].Revenue) != "391035000000" {
		t.Errorf("records[0].Revenue: got %s, want a bare JSON number", got.Records[0].Revenue)
	}
}

func TestJSONEmptyRecordsIsArray(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, Document{Symbol: "AAPL"}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if !strings.Contains(buf.String(), `"records": []`) {
		t.Errorf("expected empty array, got %s", buf.String())
	}
}

// ════════════════════════════════════════════════════════════════════
// HTML
// ════════════════════════════════════════════════════════════════════

func TestHTMLTable(t *testing.T) {
	q := statement.Query{
		FilterInput: statement.FilterInput{MinRevenue: "100"},
		Sort:        "revenue",
		Order:       "desc",
	}
	doc := parseHTML(t, NewPage("AAPL", q, sampleRecords()))

	if n := doc.Find("#records thead th").Length(); n != len(Columns) {
		t.Errorf("header cells: got %d, want %d", n, len(Columns))
	}
	rows := doc.Find("#records tbody tr")
	if rows.Length() != 2 {
		t.Fatalf("body rows: got %d, want 2", rows.Length())
	}
	first := rows.First().Find("td")
	if got := first.Eq(0).Text(); got != "2024-09-28" {
		t.Errorf("first date: got %q", got)
	}
	if got := first.Eq(1).Text(); got != "391,035,000,000" {
		t.Errorf("first revenue: got %q", got)
	}
	if _, hidden := doc.Find("#empty").Attr("hidden"); !hidden {
		t.Error("empty message should be hidden when rows exist")
	}

	if got, _ := doc.Find(`input[name="min_revenue"]`).Attr("value"); got != "100" {
		t.Errorf("min_revenue value: got %q", got)
	}
	if got, _ := doc.Find(`select[name="sort"] option[selected]`).Attr("value"); got != "revenue" {
		t.Errorf("selected sort: got %q", got)
	}
	if got, _ := doc.Find(`select[name="order"] option[selected]`).Attr("value"); got != "desc" {
		t.Errorf("selected order: got %q", got)
	}
}

func TestHTMLEmpty(t *testing.T) {
	doc := parseHTML(t, NewPage("AAPL", statement.Query{}, nil))
	if _, hidden := doc.Find("#records").Attr("hidden"); !hidden {
		t.Error("table should be hidden when there are no rows")
	}
	if got := strings.TrimSpace(doc.Find("#empty").Text()); got != EmptyMessage {
		t.Errorf("empty message: got %q", got)
	}
}

func TestHTMLFetchError(t *testing.T) {
	p := NewPage("AAPL", statement.Query{}, nil)
	p.FetchErr = "Network Error"
	p.WSPath = "/api/v1/ws"
	doc := parseHTML(t, p)

	if got := doc.Find("#fetch-error").Text(); got != "Error: Network Error" {
		t.Errorf("fetch error: got %q", got)
	}
	if doc.Find("#records").Length() != 0 {
		t.Error("table should not render on fetch error")
	}
	if doc.Find("script").Length() != 0 {
		t.Error("live script should not render on fetch error")
	}
}

func TestHTMLEscapesInput(t *testing.T) {
	q := statement.Query{FilterInput: statement.FilterInput{MinRevenue: `"><script>alert(1)</script>`}}
	p := NewPage("AAPL", q, nil)
	p.InputErr = `invalid min_revenue "<b>"`
	doc := parseHTML(t, p)

	if doc.Find("script").Length() != 0 {
		t.Error("user input produced a script element")
	}
	if got := doc.Find("#input-error").Text(); got != `invalid min_revenue "<b>"` {
		t.Errorf("input error: got %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"":         FormatTerminal,
		"terminal": FormatTerminal,
		"md":       FormatMarkdown,
		"JSON":     FormatJSON,
		"html":     FormatHTML,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q): got %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("expected error for pdf")
	}
}
