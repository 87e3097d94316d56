package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"compras/internal/core/id"
	"compras/internal/core/types"
	"compras/internal/domain/quotation"
	"compras/internal/domain/requisition"
)

func sampleDocument(t *testing.T) Document {
	t.Helper()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	s := quotation.NewSession(requisition.TypeReplenishment, day)
	s.Items = []*quotation.Item{{
		Key:             "M1:reposicao",
		MaterialID:      "M1",
		MaterialName:    "Cimento CP-II 50kg",
		RequisitionType: requisition.TypeReplenishment,
		Unit:            "sc",
		TotalQuantity:   types.MustMoney("5"),
		Lines: []quotation.OriginLine{{
			ItemID:            id.New(),
			RequisitionID:     id.New(),
			RequisitionNumber: "REQ-2026-00001",
			Quantity:          types.MustMoney("5"),
		}},
	}}
	s.SelectAll(true)

	_, err := s.AddSupplier(quotation.Supplier{Key: "A", SupplierID: "F-A", Name: "Alfa Construções"})
	require.NoError(t, err)
	_, err = s.AddSupplier(quotation.Supplier{Key: "B", SupplierID: "F-B", Name: "Beta"})
	require.NoError(t, err)
	require.NoError(t, s.SetCell("A", "M1:reposicao", quotation.Cell{Quantity: types.MustMoney("5"), UnitPrice: types.MustMoney("10.333")}))
	require.NoError(t, s.SetCell("B", "M1:reposicao", quotation.Cell{Quantity: types.MustMoney("5"), UnitPrice: types.MustMoney("12")}))
	require.NoError(t, s.SetWinner("M1:reposicao", "A", true))

	return Document{Number: "COT-2026-00042", Session: s, Preview: quotation.BuildPreview(context.Background(), s)}
}

func TestParseFormat(t *testing.T) {
	f, ok := ParseFormat("XLSX")
	assert.True(t, ok)
	assert.Equal(t, FormatXLSX, f)

	_, ok = ParseFormat("docx")
	assert.False(t, ok)

	assert.Equal(t, "COT-2026-00042.pdf", FileName("COT-2026-00042", FormatPDF))
	assert.Equal(t, "cotacao.csv", FileName("", FormatCSV))
}

func TestAllocationCSV(t *testing.T) {
	doc := sampleDocument(t)
	var buf bytes.Buffer

	require.NoError(t, AllocationCSV(&buf, doc.Preview.Allocation))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\r\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "item_id;material_id;material_nome;"))
	assert.NotContains(t, lines[0], "fornecedor_key")
	assert.Contains(t, lines[1], ";REQ-2026-00001;")
	assert.True(t, strings.HasSuffix(lines[1], ";F-A;5;10.33;51.67"), lines[1])
}

func TestComparisonXLSX(t *testing.T) {
	doc := sampleDocument(t)
	var buf bytes.Buffer

	require.NoError(t, Write(&buf, FormatXLSX, doc))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetMap, sheetAllocation}, f.GetSheetList())

	title, err := f.GetCellValue(sheetMap, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Mapa de cotação COT-2026-00042", title)

	supplier, err := f.GetCellValue(sheetMap, "D4")
	require.NoError(t, err)
	assert.Equal(t, "Alfa Construções", supplier)

	material, err := f.GetCellValue(sheetMap, "A5")
	require.NoError(t, err)
	assert.Equal(t, "Cimento CP-II 50kg", material)

	rows, err := f.GetRows(sheetAllocation)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestSummaryPDF(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Write(&buf, FormatPDF, sampleDocument(t)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
