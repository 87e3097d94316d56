package quotation

import (
	"slices"
	"time"

	"compras/internal/core/apperror"
	"compras/internal/core/types"
	"compras/internal/domain/requisition"
)

// BuildSession creates the working set for a set of requisitions. Lines are
// grouped by (material, requisition type) in order of first appearance, and
// every resulting item starts selected.
func BuildSession(reqs []*requisition.Requisition, now time.Time) *Session {
	refs := refsOf(reqs)
	s := NewSession(DeriveType(refs), now)
	s.Requisitions = refs
	s.Items = GroupItems(reqs)
	s.SelectAll(true)
	return s
}

func refsOf(reqs []*requisition.Requisition) []RequisitionRef {
	refs := make([]RequisitionRef, 0, len(reqs))
	for _, r := range reqs {
		refs = append(refs, RequisitionRef{
			ID:            r.ID,
			Number:        r.Number,
			Type:          r.Type,
			Priority:      r.Priority,
			CostCenterID:  r.CostCenterID,
			ProjectID:     r.ProjectID,
			WorkflowState: r.WorkflowState,
		})
	}
	return refs
}

// Reconcile swaps the requisition refs and the origin lines, totals and
// origins of every item for the stored ones, leaving offers, suppliers and
// selection as edited. An item the stored requisitions do not produce is
// rejected.
func (s *Session) Reconcile(reqs []*requisition.Requisition) error {
	stored := make(map[string]*Item)
	for _, it := range GroupItems(reqs) {
		stored[it.Key] = it
	}
	for _, it := range s.Items {
		fresh, ok := stored[it.Key]
		if !ok {
			return apperror.NewValidation("item não pertence às requisições da cotação").
				WithDetail("item", it.Key)
		}
		it.MaterialID = fresh.MaterialID
		it.RequisitionType = fresh.RequisitionType
		it.TotalQuantity = fresh.TotalQuantity
		it.Origins = fresh.Origins
		it.Lines = fresh.Lines
	}
	s.Requisitions = refsOf(reqs)
	return nil
}

// GroupItems merges requisition lines sharing material and requisition type.
func GroupItems(reqs []*requisition.Requisition) []*Item {
	var items []*Item
	index := map[string]*Item{}

	for _, r := range reqs {
		for _, line := range r.Items {
			key := ItemKey(line.MaterialID, r.Type)
			it, ok := index[key]
			if !ok {
				it = &Item{
					Key:             key,
					MaterialID:      line.MaterialID,
					MaterialName:    line.MaterialName,
					Unit:            line.Unit,
					RequisitionType: r.Type,
					TotalQuantity:   types.Zero(),
				}
				if line.MaterialCode != nil {
					it.MaterialCode = *line.MaterialCode
				}
				if it.MaterialName == "" {
					it.MaterialName = line.MaterialID
				}
				index[key] = it
				items = append(items, it)
			}

			it.TotalQuantity = it.TotalQuantity.Add(line.Quantity)
			if !slices.Contains(it.Origins, r.Number) {
				it.Origins = append(it.Origins, r.Number)
			}
			it.Lines = append(it.Lines, OriginLine{
				ItemID:             line.ID,
				RequisitionID:      r.ID,
				RequisitionNumber:  r.Number,
				Quantity:           line.Quantity,
				EstimatedUnitPrice: line.EstimatedUnitPrice,
				CostCenterID:       r.CostCenterID,
				ProjectID:          r.ProjectID,
			})
		}
	}
	return items
}

// DeriveType picks the quotation type for a set of requisitions. A single
// shared type is kept; a mix resolves to emergency if any requisition is an
// emergency, then direct purchase, then replenishment.
func DeriveType(reqs []RequisitionRef) requisition.Type {
	var seen []requisition.Type
	for _, r := range reqs {
		if r.Type != "" && !slices.Contains(seen, r.Type) {
			seen = append(seen, r.Type)
		}
	}

	switch {
	case len(seen) == 1:
		return seen[0]
	case slices.Contains(seen, requisition.TypeEmergency):
		return requisition.TypeEmergency
	case slices.Contains(seen, requisition.TypeDirectPurchase):
		return requisition.TypeDirectPurchase
	default:
		return requisition.TypeReplenishment
	}
}
