// Package export renders a quotation session as spreadsheet, PDF and CSV
// documents. Amounts are rounded to cents here and nowhere earlier.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"compras/internal/core/types"
	"compras/internal/domain/quotation"
)

// Format is an export document format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
	FormatCSV  Format = "csv"
)

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	}
	return "application/octet-stream"
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, bool) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatXLSX, FormatPDF, FormatCSV:
		return f, true
	}
	return "", false
}

// FileName returns the download name of an export.
func FileName(number string, f Format) string {
	if number == "" {
		number = "cotacao"
	}
	return fmt.Sprintf("%s.%s", number, f)
}

// Document is what gets exported.
type Document struct {
	// Number is the cycle number; empty for a session not yet submitted.
	Number  string
	Session *quotation.Session
	Preview quotation.Preview
}

// Write renders doc in format f.
func Write(w io.Writer, f Format, doc Document) error {
	switch f {
	case FormatXLSX:
		return ComparisonXLSX(w, doc)
	case FormatPDF:
		return SummaryPDF(w, doc)
	case FormatCSV:
		return AllocationCSV(w, doc.Preview.Allocation)
	}
	return fmt.Errorf("unknown export format %q", f)
}

// AllocationCSV writes the rateio rows with ';' as separator.
func AllocationCSV(w io.Writer, rows []quotation.AllocationRow) error {
	out := make([]quotation.AllocationRow, len(rows))
	for i, r := range rows {
		r.UnitPrice = types.Round2(r.UnitPrice)
		r.Total = types.Round2(r.Total)
		out[i] = r
	}

	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = ';'
	csvWriter.UseCRLF = true
	return gocsv.MarshalCSV(out, csvWriter)
}

func money(v types.Money) string {
	return "R$ " + types.Round2(v).StringFixed(2)
}

func supplierName(s *quotation.Session, key string) string {
	sup, ok := s.Supplier(key)
	if !ok {
		return key
	}
	if sup.Name != "" {
		return sup.Name
	}
	if sup.SupplierID != "" {
		return sup.SupplierID
	}
	return sup.Key
}
