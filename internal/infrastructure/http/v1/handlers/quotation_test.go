package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compras/internal/core/id"
	"compras/internal/core/types"
	"compras/internal/domain/quotation"
	"compras/internal/domain/requisition"
	"compras/internal/infrastructure/http/v1/dto"
	"compras/internal/infrastructure/http/v1/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testSession(t *testing.T) *quotation.Session {
	t.Helper()
	s := quotation.NewSession(requisition.TypeReplenishment, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	reqID := id.New()
	s.Requisitions = []quotation.RequisitionRef{{ID: reqID, Number: "REQ-2026-00001", Type: requisition.TypeReplenishment}}

	key := quotation.ItemKey("m1", requisition.TypeReplenishment)
	s.Items = []*quotation.Item{{
		Key:             key,
		MaterialID:      "m1",
		MaterialName:    "Parafuso",
		Unit:            "UN",
		RequisitionType: requisition.TypeReplenishment,
		TotalQuantity:   types.MustMoney("10"),
		Origins:         []string{"REQ-2026-00001"},
		Lines: []quotation.OriginLine{{
			ItemID:            id.New(),
			RequisitionID:     reqID,
			RequisitionNumber: "REQ-2026-00001",
			Quantity:          types.MustMoney("10"),
		}},
	}}
	s.SelectAll(true)

	for i, price := range []string{"5", "6"} {
		sup, err := s.AddSupplier(quotation.Supplier{Key: []string{"s1", "s2"}[i], SupplierID: []string{"f1", "f2"}[i]})
		require.NoError(t, err)
		require.NoError(t, s.SetCell(sup.Key, key, quotation.Cell{
			Quantity:  types.MustMoney("10"),
			UnitPrice: types.MustMoney(price),
		}))
	}
	return s
}

func quotationEngine() *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	h := NewQuotationHandler(NewBaseHandler(), QuotationHandlerConfig{})
	h.RegisterRoutes(r.Group("/quotations"))
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestQuotationHandler_Preview(t *testing.T) {
	w := postJSON(t, quotationEngine(), "/quotations/preview", dto.SessionRequest{Session: testSession(t)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var preview quotation.Preview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &preview))
	assert.Equal(t, "s1", preview.Summary.BestSupplierKey)
	require.Len(t, preview.Extremes, 1)
	assert.True(t, preview.Extremes[0].CheapestValue.Equal(types.MustMoney("50")))
	assert.Empty(t, preview.Allocation)
}

func TestQuotationHandler_ValidateReportsGate(t *testing.T) {
	w := postJSON(t, quotationEngine(), "/quotations/validate", dto.SessionRequest{Session: testSession(t)})
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ValidationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
	assert.Equal(t, quotation.CodeWinnerRequired, resp.Code)
}

func TestQuotationHandler_WinnerThenValidate(t *testing.T) {
	r := quotationEngine()
	s := testSession(t)

	w := postJSON(t, r, "/quotations/winner", dto.WinnerRequest{
		Session:     s,
		ItemKey:     s.Items[0].Key,
		SupplierKey: "s1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"s1"}, resp.Session.Winners(s.Items[0].Key))
	require.Len(t, resp.Preview.Allocation, 1)
	assert.True(t, resp.Preview.Allocation[0].Total.Equal(types.MustMoney("50")))

	w = postJSON(t, r, "/quotations/validate", dto.SessionRequest{Session: resp.Session})
	var gate dto.ValidationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gate))
	assert.True(t, gate.Valid, gate.Message)
}

func TestQuotationHandler_WinnerUnknownItem(t *testing.T) {
	w := postJSON(t, quotationEngine(), "/quotations/winner", dto.WinnerRequest{
		Session:     testSession(t),
		ItemKey:     "nope",
		SupplierKey: "s1",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuotationHandler_Export(t *testing.T) {
	r := quotationEngine()
	s := testSession(t)
	require.NoError(t, s.SetWinner(s.Items[0].Key, "s1", true))

	w := postJSON(t, r, "/quotations/export/csv", dto.ExportRequest{Session: s, Number: "COT-2026-00001"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "COT-2026-00001.csv")
	assert.Contains(t, w.Body.String(), "REQ-2026-00001")

	w = postJSON(t, r, "/quotations/export/docx", dto.ExportRequest{Session: s})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuotationHandler_RejectsMissingSession(t *testing.T) {
	w := postJSON(t, quotationEngine(), "/quotations/preview", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) dto.SessionResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp dto.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

func TestQuotationHandler_EmergencyTakesOneSupplier(t *testing.T) {
	r := quotationEngine()

	resp := decodeSession(t, postJSON(t, r, "/quotations/type", dto.TypeRequest{
		Session: testSession(t),
		Type:    requisition.TypeEmergency,
	}))
	require.Len(t, resp.Session.Suppliers, 1)
	assert.Equal(t, "s1", resp.Session.Suppliers[0].Key)

	w := postJSON(t, r, "/quotations/suppliers", dto.SupplierRequest{
		Session:  resp.Session,
		Supplier: quotation.Supplier{Key: "s3", SupplierID: "f3"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, quotation.CodeEmergencySingleSupplier, errorCode(t, w))
}

func TestQuotationHandler_SupplierRows(t *testing.T) {
	r := quotationEngine()
	s := testSession(t)

	resp := decodeSession(t, postJSON(t, r, "/quotations/suppliers", dto.SupplierRequest{
		Session:  s,
		Supplier: quotation.Supplier{Key: "s3", SupplierID: "f3", Name: "Gama"},
	}))
	require.Len(t, resp.Session.Suppliers, 3)

	w := postJSON(t, r, "/quotations/suppliers", dto.SupplierRequest{
		Session:  resp.Session,
		Supplier: quotation.Supplier{Key: "s4", SupplierID: "f1"},
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	raw, err := json.Marshal(dto.SupplierRequest{
		Session:  resp.Session,
		Supplier: quotation.Supplier{SupplierID: "f3", Freight: types.MustMoney("12")},
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, "/quotations/suppliers/s3", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	resp = decodeSession(t, w)
	sup, ok := resp.Session.Supplier("s3")
	require.True(t, ok)
	assert.True(t, sup.Freight.Equal(types.MustMoney("12")))

	resp = decodeSession(t, postJSON(t, r, "/quotations/suppliers/s2/remove", dto.SessionRequest{Session: resp.Session}))
	require.Len(t, resp.Session.Suppliers, 2)
	_, ok = resp.Session.Supplier("s2")
	assert.False(t, ok)
	assert.Nil(t, resp.Session.Cells["s2"])
}

func TestQuotationHandler_SetCell(t *testing.T) {
	r := quotationEngine()
	s := testSession(t)
	key := s.Items[0].Key

	resp := decodeSession(t, postJSON(t, r, "/quotations/cells", dto.CellRequest{
		Session:     s,
		SupplierKey: "s2",
		ItemKey:     key,
		Cell:        quotation.Cell{Quantity: types.MustMoney("10"), UnitPrice: types.MustMoney("4")},
	}))
	assert.Equal(t, "s2", resp.Preview.Summary.BestSupplierKey)
	// s1 at 50 against s2 at 40
	assert.True(t, resp.Preview.Saving.Equal(types.MustMoney("10")))

	w := postJSON(t, r, "/quotations/cells", dto.CellRequest{
		Session:     s,
		SupplierKey: "s2",
		ItemKey:     key,
		Cell:        quotation.Cell{Quantity: types.MustMoney("10"), UnitPrice: types.MustMoney("5"), DiscountAbs: types.MustMoney("-1000")},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuotationHandler_SelectItemsAndClearWinner(t *testing.T) {
	r := quotationEngine()
	s := testSession(t)
	key := s.Items[0].Key
	require.NoError(t, s.SetWinner(key, "s1", true))

	resp := decodeSession(t, postJSON(t, r, "/quotations/items/select", dto.SelectionRequest{Session: s, ItemKey: key}))
	assert.False(t, resp.Session.IsSelected(key))
	assert.Empty(t, resp.Preview.Extremes)

	all := true
	resp = decodeSession(t, postJSON(t, r, "/quotations/items/select", dto.SelectionRequest{Session: resp.Session, All: &all}))
	assert.True(t, resp.Session.IsSelected(key))

	resp = decodeSession(t, postJSON(t, r, "/quotations/winner/clear", dto.ItemRequest{Session: resp.Session, ItemKey: key}))
	assert.Empty(t, resp.Session.Winners(key))

	w := postJSON(t, r, "/quotations/items/select", dto.SelectionRequest{Session: s})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuotationHandler_RejectsTamperedSession(t *testing.T) {
	r := quotationEngine()

	s := testSession(t)
	s.Suppliers[1].SupplierID = s.Suppliers[0].SupplierID
	w := postJSON(t, r, "/quotations/validate", dto.SessionRequest{Session: s})
	assert.Equal(t, http.StatusConflict, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/quotations/preview",
		bytes.NewReader([]byte(`{"sessao":{"itens":[null],"itens_selecionados":{"x":true}}}`)))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
