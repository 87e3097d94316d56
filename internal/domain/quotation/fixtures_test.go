package quotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"compras/internal/core/id"
	"compras/internal/core/types"
	"compras/internal/domain/requisition"
	"compras/internal/domain/workflow"
)

var quoteDay = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func money(s string) types.Money { return types.MustMoney(s) }

// testRequisitions returns REQ-2026-00001 (M1 x2, M2 x1, cost center CC1) and
// REQ-2026-00002 (M1 x3, cost center CC2), both replenishment.
func testRequisitions() []*requisition.Requisition {
	r1 := &requisition.Requisition{
		ID:            id.New(),
		Number:        "REQ-2026-00001",
		Type:          requisition.TypeReplenishment,
		Priority:      "normal",
		CostCenterID:  strPtr("CC1"),
		ProjectID:     strPtr("P1"),
		WorkflowState: workflow.RequisitionForwarded,
	}
	r1.Items = []requisition.Item{
		{ID: id.New(), RequisitionID: r1.ID, MaterialID: "M1", MaterialName: "Luva nitrílica", Quantity: money("2"), Unit: "CX"},
		{ID: id.New(), RequisitionID: r1.ID, MaterialID: "M2", MaterialName: "Máscara PFF2", Quantity: money("1"), Unit: "UN"},
	}

	r2 := &requisition.Requisition{
		ID:            id.New(),
		Number:        "REQ-2026-00002",
		Type:          requisition.TypeReplenishment,
		Priority:      "alta",
		CostCenterID:  strPtr("CC2"),
		WorkflowState: workflow.RequisitionForwarded,
	}
	r2.Items = []requisition.Item{
		{ID: id.New(), RequisitionID: r2.ID, MaterialID: "M1", MaterialName: "Luva nitrílica", Quantity: money("3"), Unit: "CX"},
	}
	return []*requisition.Requisition{r1, r2}
}

var (
	keyM1 = ItemKey("M1", requisition.TypeReplenishment)
	keyM2 = ItemKey("M2", requisition.TypeReplenishment)
)

func offer(qty, price string) Cell {
	return Cell{Quantity: money(qty), UnitPrice: money(price)}
}

// readySession is a session that passes the gate: suppliers A and B price
// both items, A is cheapest on both and marked winner.
func readySession(t *testing.T) *Session {
	t.Helper()
	return readySessionFrom(t, testRequisitions())
}

func readySessionFrom(t *testing.T, reqs []*requisition.Requisition) *Session {
	t.Helper()
	s := BuildSession(reqs, quoteDay)

	_, err := s.AddSupplier(Supplier{Key: "A", SupplierID: "F-A", Name: "Alfa"})
	require.NoError(t, err)
	_, err = s.AddSupplier(Supplier{Key: "B", SupplierID: "F-B", Name: "Beta"})
	require.NoError(t, err)

	require.NoError(t, s.SetCell("A", keyM1, offer("5", "10")))
	require.NoError(t, s.SetCell("A", keyM2, offer("1", "30")))
	require.NoError(t, s.SetCell("B", keyM1, offer("5", "12")))
	require.NoError(t, s.SetCell("B", keyM2, offer("1", "35")))

	require.NoError(t, s.SetWinner(keyM1, "A", true))
	require.NoError(t, s.SetWinner(keyM2, "A", true))
	return s
}
