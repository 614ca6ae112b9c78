package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/erp/lotledger/internal/domain/report"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// printer renders command results as aligned tables or JSON
type printer struct {
	w      io.Writer
	p      *message.Printer
	title  cases.Caser
	asJSON bool
}

func newPrinter(w io.Writer, lang string, asJSON bool) *printer {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	return &printer{
		w:      w,
		p:      message.NewPrinter(tag),
		title:  cases.Title(tag),
		asJSON: asJSON,
	}
}

// money groups thousands per locale and keeps two decimals.
// Display only; the float conversion never feeds back into the ledger.
func (pr *printer) money(d decimal.Decimal) string {
	return pr.p.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
}

// qty trims trailing zeros: 50.0000 prints as 50
func (pr *printer) qty(d decimal.Decimal) string {
	places := 0
	if s := d.String(); strings.Contains(s, ".") {
		places = len(s) - strings.IndexByte(s, '.') - 1
	}
	return pr.p.Sprint(number.Decimal(d.InexactFloat64(), number.Scale(places)))
}

func (pr *printer) date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(report.DateLayout)
}

func (pr *printer) json(v interface{}) error {
	enc := json.NewEncoder(pr.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (pr *printer) heading(format string, args ...interface{}) {
	fmt.Fprintln(pr.w, pr.title.String(fmt.Sprintf(format, args...)))
}

func (pr *printer) line(format string, args ...interface{}) {
	fmt.Fprintf(pr.w, format+"\n", args...)
}

func (pr *printer) table(header []string, rows [][]string, totals []string) error {
	tw := tabwriter.NewWriter(pr.w, 0, 0, 2, ' ', tabwriter.AlignRight)
	write := func(cells []string) {
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	write(header)
	for _, r := range rows {
		write(r)
	}
	if len(totals) > 0 {
		write(totals)
	}
	return tw.Flush()
}

// reportTable localizes the amount columns of a report table
func (pr *printer) reportTable(t report.Table) error {
	format := func(cells []string) []string {
		out := make([]string, len(cells))
		for i, c := range cells {
			out[i] = c
			if d, err := decimal.NewFromString(c); err == nil && strings.Contains(c, ".") {
				out[i] = pr.money(d)
			}
		}
		return out
	}
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = format(r)
	}
	pr.heading("%s", t.Title)
	return pr.table(t.Header, rows, format(t.Totals))
}
