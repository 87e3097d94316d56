package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"compras/internal/domain/quotation"
)

const (
	sheetMap        = "Mapa"
	sheetAllocation = "Rateio"
)

// ComparisonXLSX writes the comparison map: one row per selected item, one
// column per supplier with the offer value, winners highlighted, then the
// supplier totals; the rateio goes on a second sheet.
func ComparisonXLSX(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetMap)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	styles, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := writeMap(f, styles, doc); err != nil {
		return err
	}
	if err := writeAllocation(f, styles, doc.Preview.Allocation); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

type sheetStyles struct {
	title, header, winner int
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	var st sheetStyles
	var err error
	st.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14, Family: "Arial", Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "center",
		},
	})
	if err != nil {
		return st, fmt.Errorf("title style: %w", err)
	}
	st.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Family: "Arial"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}
	st.winner, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "#006100"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#C6EFCE"}, Pattern: 1},
		NumFmt: 4,
	})
	if err != nil {
		return st, fmt.Errorf("winner style: %w", err)
	}
	return st, nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func writeMap(f *excelize.File, st sheetStyles, doc Document) error {
	s := doc.Session
	title := "Mapa de cotação"
	if doc.Number != "" {
		title += " " + doc.Number
	}
	f.SetCellValue(sheetMap, "A1", title)
	f.SetCellValue(sheetMap, "A2", "Data")
	f.SetCellValue(sheetMap, "B2", s.QuoteDate.Format("02/01/2006"))
	f.SetCellValue(sheetMap, "C2", "Limite")
	f.SetCellValue(sheetMap, "D2", s.Deadline.Format("02/01/2006"))
	f.SetCellValue(sheetMap, "E2", "Tipo")
	f.SetCellValue(sheetMap, "F2", string(s.Type))

	const headerRow = 4
	lastCol := 3 + len(s.Suppliers)
	_ = f.SetCellStyle(sheetMap, "A1", cell(lastCol, 1), st.title)

	headers := []string{"Material", "Unidade", "Quantidade"}
	for _, sup := range s.Suppliers {
		headers = append(headers, supplierName(s, sup.Key))
	}
	for i, h := range headers {
		f.SetCellValue(sheetMap, cell(i+1, headerRow), h)
	}
	_ = f.SetCellStyle(sheetMap, cell(1, headerRow), cell(lastCol, headerRow), st.header)

	row := headerRow + 1
	for _, it := range s.SelectedItems() {
		f.SetCellValue(sheetMap, cell(1, row), it.MaterialName)
		f.SetCellValue(sheetMap, cell(2, row), it.Unit)
		f.SetCellValue(sheetMap, cell(3, row), it.TotalQuantity.InexactFloat64())
		for j, sup := range s.Suppliers {
			c := s.Cell(sup.Key, it.Key)
			if !c.Priced() {
				continue
			}
			ref := cell(4+j, row)
			f.SetCellValue(sheetMap, ref, quotation.CellValue(c).Round(2).InexactFloat64())
			if c.Winner {
				_ = f.SetCellStyle(sheetMap, ref, ref, st.winner)
			}
		}
		row++
	}

	row++
	totals := []struct {
		label string
		value func(quotation.SupplierTotal) float64
	}{
		{"Subtotal", func(t quotation.SupplierTotal) float64 { return t.Subtotal.Round(2).InexactFloat64() }},
		{"Frete", func(t quotation.SupplierTotal) float64 { return t.Freight.Round(2).InexactFloat64() }},
		{"Impostos", func(t quotation.SupplierTotal) float64 { return t.Tax.Round(2).InexactFloat64() }},
		{"Desconto", func(t quotation.SupplierTotal) float64 { return t.Discount.Round(2).InexactFloat64() }},
		{"Total", func(t quotation.SupplierTotal) float64 { return t.Total.Round(2).InexactFloat64() }},
	}
	for _, line := range totals {
		f.SetCellValue(sheetMap, cell(1, row), line.label)
		for j, t := range doc.Preview.Summary.Suppliers {
			f.SetCellValue(sheetMap, cell(4+j, row), line.value(t))
		}
		row++
	}
	_ = f.SetCellStyle(sheetMap, cell(1, row-1), cell(lastCol, row-1), st.header)

	if best := doc.Preview.Summary.BestSupplierKey; best != "" {
		row++
		f.SetCellValue(sheetMap, cell(1, row), "Melhor fornecedor")
		f.SetCellValue(sheetMap, cell(2, row), supplierName(s, best))
		f.SetCellValue(sheetMap, cell(3, row), doc.Preview.Summary.BestTotal.Round(2).InexactFloat64())
	}

	_ = f.SetColWidth(sheetMap, "A", "A", 40)
	if lastCol >= 4 {
		_ = f.SetColWidth(sheetMap, "D", colName(lastCol), 18)
	}
	return nil
}

func colName(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name
}

func writeAllocation(f *excelize.File, st sheetStyles, rows []quotation.AllocationRow) error {
	if _, err := f.NewSheet(sheetAllocation); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	headers := []string{"Requisição", "Material", "Centro de custo", "Projeto", "Fornecedor", "Quantidade", "Valor unitário", "Valor total"}
	for i, h := range headers {
		f.SetCellValue(sheetAllocation, cell(i+1, 1), h)
	}
	_ = f.SetCellStyle(sheetAllocation, "A1", cell(len(headers), 1), st.header)

	for i, r := range rows {
		row := i + 2
		values := []any{
			r.RequisitionNumber,
			r.MaterialName,
			r.CostCenterID,
			r.ProjectID,
			r.SupplierID,
			r.Quantity.InexactFloat64(),
			r.UnitPrice.Round(2).InexactFloat64(),
			r.Total.Round(2).InexactFloat64(),
		}
		if err := f.SetSheetRow(sheetAllocation, cell(1, row), &values); err != nil {
			return fmt.Errorf("write rateio row: %w", err)
		}
	}
	_ = f.SetColWidth(sheetAllocation, "B", "B", 40)
	return nil
}
