package export

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"compras/internal/domain/quotation"
)

// SummaryPDF writes a one-page summary: header, supplier totals, winners per
// item and the best supplier.
func SummaryPDF(w io.Writer, doc Document) error {
	s := doc.Session
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	title := "Mapa de cotação"
	if doc.Number != "" {
		title += " " + doc.Number
	}
	pdf.SetFont("Arial", "B", 18)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(190, 12, tr(title), "", 1, "L", true, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(40, 6, tr("Data da cotação:"))
	pdf.Cell(50, 6, s.QuoteDate.Format("02/01/2006"))
	pdf.Cell(30, 6, "Data limite:")
	pdf.Cell(50, 6, s.Deadline.Format("02/01/2006"))
	pdf.Ln(6)
	pdf.Cell(40, 6, "Tipo:")
	pdf.Cell(50, 6, tr(string(s.Type)))
	pdf.Cell(30, 6, tr("Requisições:"))
	pdf.Cell(50, 6, fmt.Sprintf("%d", len(s.Requisitions)))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(190, 8, "Totais por fornecedor")
	pdf.Ln(9)
	widths := []float64{60, 26, 26, 26, 26, 26}
	header := []string{"Fornecedor", "Subtotal", "Frete", "Impostos", "Desconto", "Total"}
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(217, 225, 242)
	for i, h := range header {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	best := doc.Preview.Summary.BestSupplierKey
	for _, t := range doc.Preview.Summary.Suppliers {
		fill := t.SupplierKey == best
		pdf.SetFillColor(198, 239, 206)
		pdf.CellFormat(widths[0], 6, tr(supplierName(s, t.SupplierKey)), "1", 0, "L", fill, 0, "")
		for i, v := range []string{money(t.Subtotal), money(t.Freight), money(t.Tax), money(t.Discount), money(t.Total)} {
			pdf.CellFormat(widths[i+1], 6, v, "1", 0, "R", fill, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(190, 8, "Vencedores por item")
	pdf.Ln(9)
	pdf.SetFont("Arial", "", 9)
	for _, it := range s.SelectedItems() {
		winner := "-"
		value := ""
		for _, sup := range s.Suppliers {
			if c := s.Cell(sup.Key, it.Key); c != nil && c.Winner {
				winner = supplierName(s, sup.Key)
				value = money(quotation.CellValue(c))
				break
			}
		}
		pdf.CellFormat(90, 6, tr(it.MaterialName), "B", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, tr(winner), "B", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, value, "B", 1, "R", false, 0, "")
	}

	if best != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(190, 8, tr(fmt.Sprintf("Melhor fornecedor: %s (%s)", supplierName(s, best), money(doc.Preview.Summary.BestTotal))))
		if doc.Preview.Saving.IsPositive() {
			pdf.Ln(6)
			pdf.SetFont("Arial", "", 10)
			pdf.Cell(190, 8, tr("Economia sobre a maior oferta: "+money(doc.Preview.Saving)))
		}
	}

	pdf.SetY(-20)
	pdf.SetFont("Arial", "I", 8)
	pdf.Cell(190, 6, "Gerado em: "+time.Now().Format("02/01/2006 15:04"))

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
