// Package numerator defines the document series of the procurement flow
// and the generator that draws their numbers.
package numerator

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Document prefixes.
const (
	PrefixRequisition   = "REQ"
	PrefixQuotation     = "COT"
	PrefixPurchaseOrder = "PED"
)

// Series is one numbered document sequence of a company. Numbers restart
// every year and look like REQ-2026-00001.
type Series struct {
	Prefix    string
	CompanyID string
	// Width pads the counter; zero means 5.
	Width int
}

// Requisitions is the series shared by requisitions and quote cycles.
func Requisitions(companyID string) Series {
	return Series{Prefix: PrefixRequisition, CompanyID: companyID}
}

// Orders is the purchase order series.
func Orders(companyID string) Series {
	return Series{Prefix: PrefixPurchaseOrder, CompanyID: companyID}
}

// Key identifies the counter row of the series for the year of at.
func (s Series) Key(at time.Time) string {
	key := s.Prefix + "_" + at.Format("2006")
	if s.CompanyID != "" {
		key = s.CompanyID + ":" + key
	}
	return key
}

// Format renders counter value n.
func (s Series) Format(at time.Time, n int64) string {
	width := s.Width
	if width <= 0 {
		width = 5
	}
	return fmt.Sprintf("%s-%s-%0*d", s.Prefix, at.Format("2006"), width, n)
}

// Generator draws the next number of a series.
type Generator interface {
	Next(ctx context.Context, s Series, at time.Time) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, s Series, at time.Time) (string, error)

func (f GeneratorFunc) Next(ctx context.Context, s Series, at time.Time) (string, error) {
	return f(ctx, s, at)
}

// QuotationNumber turns a number drawn on the requisition series into a
// quote cycle number: REQ-2026-00042 becomes COT-2026-00042.
func QuotationNumber(requisitionNumber string) string {
	return strings.Replace(requisitionNumber, PrefixRequisition, PrefixQuotation, 1)
}
