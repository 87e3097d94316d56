package quotation

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compras/internal/core/apperror"
	"compras/internal/domain/requisition"
)

func TestNewSession_DefaultDeadline(t *testing.T) {
	s := NewSession(requisition.TypeReplenishment, quoteDay)

	assert.Equal(t, 0, s.QuoteDate.Hour())
	assert.Equal(t, s.QuoteDate.AddDate(0, 0, 7), s.Deadline)
}

func TestSetWinner_SingleWinnerPerItem(t *testing.T) {
	s := readySession(t)
	require.Equal(t, []string{"A"}, s.Winners(keyM1))

	require.NoError(t, s.SetWinner(keyM1, "B", true))

	assert.Equal(t, []string{"B"}, s.Winners(keyM1))
	assert.False(t, s.Cell("A", keyM1).Winner)
	assert.True(t, s.Cell("B", keyM1).Winner)
	// other items are untouched
	assert.Equal(t, []string{"A"}, s.Winners(keyM2))
}

func TestSetWinner_Unmark(t *testing.T) {
	s := readySession(t)

	require.NoError(t, s.SetWinner(keyM1, "A", false))

	assert.Empty(t, s.Winners(keyM1))
	_, _, ok := s.Winner(keyM1)
	assert.False(t, ok)
}

func TestSetWinner_UnknownKeys(t *testing.T) {
	s := readySession(t)

	assert.True(t, apperror.IsNotFound(s.SetWinner("nope", "A", true)))
	assert.True(t, apperror.IsNotFound(s.SetWinner(keyM1, "nope", true)))
}

func TestClearWinner(t *testing.T) {
	s := readySession(t)

	s.ClearWinner(keyM1)

	assert.Empty(t, s.Winners(keyM1))
}

func TestSetCell_KeepsWinnerFlag(t *testing.T) {
	s := readySession(t)

	require.NoError(t, s.SetCell("A", keyM1, Cell{Quantity: money("5"), UnitPrice: money("9"), Winner: false}))
	require.NoError(t, s.SetCell("B", keyM1, Cell{Quantity: money("5"), UnitPrice: money("9"), Winner: true}))

	assert.Equal(t, []string{"A"}, s.Winners(keyM1))
	assert.True(t, s.Cell("A", keyM1).UnitPrice.Equal(money("9")))
}

func TestSetCell_RejectsNegative(t *testing.T) {
	s := readySession(t)

	err := s.SetCell("A", keyM1, Cell{Quantity: money("-1"), UnitPrice: money("9")})

	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestAddSupplier_EmergencyAllowsOne(t *testing.T) {
	s := NewSession(requisition.TypeEmergency, quoteDay)
	_, err := s.AddSupplier(Supplier{SupplierID: "F-A"})
	require.NoError(t, err)

	_, err = s.AddSupplier(Supplier{SupplierID: "F-B"})

	assert.ErrorIs(t, err, ErrEmergencySingleSupplier)
	assert.Len(t, s.Suppliers, 1)
}

func TestAddSupplier_Limits(t *testing.T) {
	s := NewSession(requisition.TypeReplenishment, quoteDay)
	for i := range MaxSuppliers {
		sup, err := s.AddSupplier(Supplier{SupplierID: fmt.Sprintf("F-%d", i)})
		require.NoError(t, err)
		assert.NotEmpty(t, sup.Key)
	}

	_, err := s.AddSupplier(Supplier{SupplierID: "F-extra"})
	assert.ErrorIs(t, err, ErrTooManySuppliers)
	assert.Len(t, s.Suppliers, MaxSuppliers)
}

func TestAddSupplier_Duplicates(t *testing.T) {
	s := NewSession(requisition.TypeReplenishment, quoteDay)
	_, err := s.AddSupplier(Supplier{Key: "A", SupplierID: "F-A"})
	require.NoError(t, err)

	_, err = s.AddSupplier(Supplier{Key: "A", SupplierID: "F-B"})
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))

	_, err = s.AddSupplier(Supplier{Key: "B", SupplierID: "F-A"})
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))

	// unassigned rows may repeat
	_, err = s.AddSupplier(Supplier{})
	require.NoError(t, err)
	_, err = s.AddSupplier(Supplier{})
	require.NoError(t, err)
	assert.Len(t, s.Suppliers, 3)
}

func TestSetType_EmergencyKeepsFirstSupplier(t *testing.T) {
	s := readySession(t)

	require.NoError(t, s.SetType(requisition.TypeEmergency))

	require.Len(t, s.Suppliers, 1)
	assert.Equal(t, "A", s.Suppliers[0].Key)
	assert.Nil(t, s.Cell("B", keyM1))

	assert.Error(t, s.SetType("urgente"))
}

func TestRemoveSupplier(t *testing.T) {
	s := readySession(t)

	require.NoError(t, s.RemoveSupplier("A"))

	assert.Len(t, s.Suppliers, 1)
	assert.Empty(t, s.Winners(keyM1))
	assert.True(t, apperror.IsNotFound(s.RemoveSupplier("A")))
}

func TestUpdateSupplier(t *testing.T) {
	s := readySession(t)

	require.NoError(t, s.UpdateSupplier("B", Supplier{SupplierID: "F-B", Freight: money("15")}))
	sup, _ := s.Supplier("B")
	assert.Equal(t, "B", sup.Key)
	assert.True(t, sup.Freight.Equal(money("15")))

	err := s.UpdateSupplier("B", Supplier{SupplierID: "F-A"})
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))
}

func TestToggleItem(t *testing.T) {
	s := readySession(t)

	require.NoError(t, s.ToggleItem(keyM2))
	assert.False(t, s.IsSelected(keyM2))
	require.NoError(t, s.ToggleItem(keyM2))
	assert.True(t, s.IsSelected(keyM2))

	assert.True(t, apperror.IsNotFound(s.ToggleItem("x")))
}

func TestNormalize(t *testing.T) {
	t.Run("fills maps and type", func(t *testing.T) {
		s := &Session{Requisitions: []RequisitionRef{{Type: requisition.TypeDirectPurchase}}}
		require.NoError(t, s.Normalize())
		assert.NotNil(t, s.Selected)
		assert.NotNil(t, s.Cells)
		assert.Equal(t, requisition.TypeDirectPurchase, s.Type)
	})

	t.Run("unknown supplier in cells", func(t *testing.T) {
		s := readySession(t)
		s.Cells["ghost"] = CellsByItem{keyM1: &Cell{}}
		assert.Error(t, s.Normalize())
	})

	t.Run("unknown selected item", func(t *testing.T) {
		s := readySession(t)
		s.Selected["M9:reposicao"] = true
		assert.Error(t, s.Normalize())
	})

	t.Run("deadline before quote date", func(t *testing.T) {
		s := readySession(t)
		s.Deadline = s.QuoteDate.AddDate(0, 0, -1)
		assert.Error(t, s.Normalize())
	})
}

// decoded sends s through JSON the way request bodies and drafts arrive.
func decoded(t *testing.T, s *Session) *Session {
	t.Helper()
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	var out Session
	require.NoError(t, json.Unmarshal(raw, &out))
	return &out
}

func TestNormalize_DecodedSession(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Session)
		code   string
	}{
		{
			name:   "ready session",
			mutate: func(*Session) {},
		},
		{
			name: "two rows for one supplier record",
			mutate: func(s *Session) {
				s.Suppliers[1].SupplierID = s.Suppliers[0].SupplierID
			},
			code: apperror.CodeDuplicate,
		},
		{
			name: "negative offer discount",
			mutate: func(s *Session) {
				s.Cells["A"][keyM1].DiscountAbs = money("-1000")
			},
			code: apperror.CodeValidation,
		},
		{
			name: "negative offer quantity",
			mutate: func(s *Session) {
				s.Cells["B"][keyM2].Quantity = money("-1")
			},
			code: apperror.CodeValidation,
		},
		{
			name: "negative freight",
			mutate: func(s *Session) {
				s.Suppliers[0].Freight = money("-5")
			},
			code: apperror.CodeValidation,
		},
		{
			name: "emergency with two rows",
			mutate: func(s *Session) {
				s.Type = requisition.TypeEmergency
			},
			code: CodeEmergencySingleSupplier,
		},
		{
			name: "more rows than allowed",
			mutate: func(s *Session) {
				for i := len(s.Suppliers); i <= MaxSuppliers; i++ {
					s.Suppliers = append(s.Suppliers, &Supplier{Key: fmt.Sprintf("S%d", i)})
				}
			},
			code: CodeTooManySuppliers,
		},
		{
			name: "repeated item key",
			mutate: func(s *Session) {
				dup := *s.Items[0]
				s.Items = append(s.Items, &dup)
			},
			code: apperror.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := readySession(t)
			tt.mutate(s)

			err := decoded(t, s).Normalize()

			if tt.code == "" {
				require.NoError(t, err)
				return
			}
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestNormalize_NullItem(t *testing.T) {
	var s Session
	require.NoError(t, json.Unmarshal([]byte(`{"itens":[null],"itens_selecionados":{"x":true}}`), &s))

	var err error
	require.NotPanics(t, func() { err = s.Normalize() })
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
}

func TestSupplierEdits_RejectNegativeConditions(t *testing.T) {
	s := readySession(t)

	_, err := s.AddSupplier(Supplier{Key: "C", SupplierID: "F-C", DiscountAbs: money("-1")})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	assert.Len(t, s.Suppliers, 2)

	err = s.UpdateSupplier("B", Supplier{SupplierID: "F-B", Tax: money("-0.01")})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	sup, _ := s.Supplier("B")
	assert.True(t, sup.Tax.IsZero())
}
