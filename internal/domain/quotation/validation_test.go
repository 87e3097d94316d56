package quotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compras/internal/core/apperror"
	"compras/internal/domain/requisition"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, s *Session)
		code   string
	}{
		{
			name:   "ready session passes",
			mutate: func(*testing.T, *Session) {},
		},
		{
			name: "one supplier on a normal quotation",
			mutate: func(t *testing.T, s *Session) {
				require.NoError(t, s.RemoveSupplier("B"))
			},
			code: CodeSupplierCount,
		},
		{
			name: "unassigned rows do not count",
			mutate: func(t *testing.T, s *Session) {
				require.NoError(t, s.UpdateSupplier("B", Supplier{}))
			},
			code: CodeSupplierCount,
		},
		{
			name: "emergency with two suppliers",
			mutate: func(_ *testing.T, s *Session) {
				s.Type = requisition.TypeEmergency
			},
			code: CodeSupplierCount,
		},
		{
			name: "no selected items",
			mutate: func(_ *testing.T, s *Session) {
				s.SelectAll(false)
			},
			code: CodeNoItemsSelected,
		},
		{
			name: "supplier without prices",
			mutate: func(t *testing.T, s *Session) {
				_, err := s.AddSupplier(Supplier{Key: "C", SupplierID: "F-C"})
				require.NoError(t, err)
			},
			code: CodeSupplierWithoutPrices,
		},
		{
			name: "selected item without offer",
			mutate: func(_ *testing.T, s *Session) {
				it := &Item{Key: "M3:reposicao", MaterialID: "M3", MaterialName: "Óculos", TotalQuantity: money("1")}
				s.Items = append(s.Items, it)
				s.Selected[it.Key] = true
			},
			code: CodeItemWithoutOffer,
		},
		{
			name: "no winner",
			mutate: func(_ *testing.T, s *Session) {
				s.ClearWinner(keyM1)
			},
			code: CodeWinnerRequired,
		},
		{
			name: "two winners",
			mutate: func(_ *testing.T, s *Session) {
				s.Cell("B", keyM1).Winner = true
			},
			code: CodeMultipleWinners,
		},
		{
			name: "winner row without supplier",
			mutate: func(t *testing.T, s *Session) {
				_, err := s.AddSupplier(Supplier{Key: "X"})
				require.NoError(t, err)
				require.NoError(t, s.SetCell("X", keyM1, offer("5", "1")))
				require.NoError(t, s.SetWinner(keyM1, "X", true))
			},
			code: CodeWinnerRequired,
		},
		{
			name: "pricier winner without notes",
			mutate: func(t *testing.T, s *Session) {
				require.NoError(t, s.SetWinner(keyM1, "B", true))
			},
			code: CodeJustificationRequired,
		},
		{
			name: "pricier winner with offer notes",
			mutate: func(t *testing.T, s *Session) {
				require.NoError(t, s.SetWinner(keyM1, "B", true))
				s.Cell("B", keyM1).Notes = "prazo de entrega menor"
			},
		},
		{
			name: "pricier winner with supplier notes",
			mutate: func(t *testing.T, s *Session) {
				require.NoError(t, s.SetWinner(keyM1, "B", true))
				sup, _ := s.Supplier("B")
				sup.Notes = "fornecedor homologado"
			},
		},
		{
			name: "tied winner needs no notes",
			mutate: func(t *testing.T, s *Session) {
				require.NoError(t, s.SetCell("B", keyM1, offer("5", "10")))
				require.NoError(t, s.SetWinner(keyM1, "B", true))
			},
		},
		{
			name: "winner quantity below demand",
			mutate: func(t *testing.T, s *Session) {
				require.NoError(t, s.SetCell("A", keyM1, offer("4", "10")))
			},
			code: CodeInsufficientQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := readySession(t)
			tt.mutate(t, s)

			err := Validate(s)

			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestValidate_EmergencySingleSupplier(t *testing.T) {
	reqs := testRequisitions()
	for _, r := range reqs {
		r.Type = requisition.TypeEmergency
	}
	s := BuildSession(reqs, quoteDay)
	_, err := s.AddSupplier(Supplier{Key: "A", SupplierID: "F-A"})
	require.NoError(t, err)
	for _, it := range s.Items {
		require.NoError(t, s.SetCell("A", it.Key, offer(it.TotalQuantity.String(), "10")))
		require.NoError(t, s.SetWinner(it.Key, "A", true))
	}

	assert.NoError(t, Validate(s))
}

func TestValidate_FirstFailureWins(t *testing.T) {
	s := readySession(t)
	s.ClearWinner(keyM1)
	require.NoError(t, s.SetCell("A", keyM2, offer("0.5", "30")))
	require.NoError(t, s.RemoveSupplier("B"))

	err := Validate(s)

	assert.True(t, apperror.HasCode(err, CodeSupplierCount), "got %v", err)
}

func TestValidate_ErrorsAreBusinessRules(t *testing.T) {
	s := readySession(t)
	s.ClearWinner(keyM1)

	err := Validate(s)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 422, appErr.HTTPStatus)
	assert.Equal(t, keyM1, appErr.Details["item"])
}

func TestValidate_CountsDistinctSupplierRecords(t *testing.T) {
	s := decoded(t, readySession(t))
	s.Suppliers[1].SupplierID = s.Suppliers[0].SupplierID

	err := Validate(s)

	assert.True(t, apperror.HasCode(err, CodeSupplierCount), "got %v", err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, 1, appErr.Details["fornecedores"])
}
