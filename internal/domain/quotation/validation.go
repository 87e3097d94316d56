package quotation

import (
	"fmt"
	"strings"
)

// Validate is the gate in front of submission. Checks run in a fixed order
// and the first failure is returned.
func Validate(s *Session) error {
	for _, check := range []func(*Session) error{
		checkSupplierCount,
		checkSelection,
		checkSuppliersPriced,
		checkItemsOffered,
		checkWinners,
		checkJustification,
		checkWinnerQuantity,
	} {
		if err := check(s); err != nil {
			return err
		}
	}
	return nil
}

// assignedSuppliers returns the rows that reference a supplier record.
func assignedSuppliers(s *Session) []*Supplier {
	out := make([]*Supplier, 0, len(s.Suppliers))
	for _, sup := range s.Suppliers {
		if sup.Assigned() {
			out = append(out, sup)
		}
	}
	return out
}

// distinctSuppliers counts the supplier records referenced by the rows.
func distinctSuppliers(s *Session) int {
	seen := map[string]bool{}
	for _, sup := range assignedSuppliers(s) {
		seen[sup.SupplierID] = true
	}
	return len(seen)
}

func checkSupplierCount(s *Session) error {
	n := distinctSuppliers(s)
	if s.IsEmergency() {
		if n != 1 {
			return gateError(CodeSupplierCount,
				"Cotações emergenciais devem ter exatamente 1 fornecedor.").
				WithDetail("fornecedores", n)
		}
		return nil
	}
	if n < MinSuppliers || n > MaxSuppliers {
		return gateError(CodeSupplierCount,
			fmt.Sprintf("Selecione entre %d e %d fornecedores.", MinSuppliers, MaxSuppliers)).
			WithDetail("fornecedores", n)
	}
	return nil
}

func checkSelection(s *Session) error {
	if len(s.SelectedItems()) == 0 {
		return gateError(CodeNoItemsSelected, "Selecione pelo menos um item para cotar.")
	}
	return nil
}

func checkSuppliersPriced(s *Session) error {
	selected := s.SelectedItems()
	for _, sup := range assignedSuppliers(s) {
		priced := false
		for _, it := range selected {
			if s.Cell(sup.Key, it.Key).Priced() {
				priced = true
				break
			}
		}
		if !priced {
			return gateError(CodeSupplierWithoutPrices,
				fmt.Sprintf("O fornecedor %s não possui itens cotados.", supplierLabel(sup))).
				WithDetail("fornecedor", sup.Key)
		}
	}
	return nil
}

func checkItemsOffered(s *Session) error {
	suppliers := assignedSuppliers(s)
	for _, it := range s.SelectedItems() {
		offered := false
		for _, sup := range suppliers {
			if s.Cell(sup.Key, it.Key).Priced() {
				offered = true
				break
			}
		}
		if !offered {
			return gateError(CodeItemWithoutOffer,
				fmt.Sprintf("O item %s não possui cotação com quantidade e preço.", it.MaterialName)).
				WithDetail("item", it.Key)
		}
	}
	return nil
}

func checkWinners(s *Session) error {
	for _, it := range s.SelectedItems() {
		switch n := len(s.Winners(it.Key)); {
		case n == 0:
			return gateError(CodeWinnerRequired,
				fmt.Sprintf("Selecione o vencedor do item %s.", it.MaterialName)).
				WithDetail("item", it.Key)
		case n > 1:
			return gateError(CodeMultipleWinners,
				fmt.Sprintf("O item %s possui mais de um vencedor.", it.MaterialName)).
				WithDetail("item", it.Key).
				WithDetail("vencedores", n)
		}
		if sup, _, _ := s.Winner(it.Key); !sup.Assigned() {
			return gateError(CodeWinnerRequired,
				fmt.Sprintf("O vencedor do item %s não tem fornecedor definido.", it.MaterialName)).
				WithDetail("item", it.Key)
		}
	}
	return nil
}

// checkJustification requires notes when the winner's value is above the
// item's cheapest positive offer. Offer notes are looked at first, then the
// supplier's notes.
func checkJustification(s *Session) error {
	for _, it := range s.SelectedItems() {
		sup, cell, _ := s.Winner(it.Key)
		if IsCheapest(s, it.Key, sup.Key) {
			continue
		}
		if strings.TrimSpace(cell.Notes) != "" || strings.TrimSpace(sup.Notes) != "" {
			continue
		}
		return gateError(CodeJustificationRequired,
			fmt.Sprintf("Justifique a escolha de %s para o item %s: não é a menor oferta.",
				supplierLabel(sup), it.MaterialName)).
			WithDetail("item", it.Key).
			WithDetail("fornecedor", sup.Key)
	}
	return nil
}

func checkWinnerQuantity(s *Session) error {
	for _, it := range s.SelectedItems() {
		sup, cell, _ := s.Winner(it.Key)
		if cell.Quantity.LessThan(it.TotalQuantity) {
			return gateError(CodeInsufficientQuantity,
				fmt.Sprintf("A quantidade ofertada por %s para o item %s (%s) é menor que a solicitada (%s).",
					supplierLabel(sup), it.MaterialName, cell.Quantity.String(), it.TotalQuantity.String())).
				WithDetail("item", it.Key).
				WithDetail("fornecedor", sup.Key)
		}
	}
	return nil
}

func supplierLabel(sup *Supplier) string {
	if sup.Name != "" {
		return sup.Name
	}
	if sup.SupplierID != "" {
		return sup.SupplierID
	}
	return sup.Key
}
