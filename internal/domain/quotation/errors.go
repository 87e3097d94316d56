package quotation

import (
	"fmt"
	"net/http"

	"compras/internal/core/apperror"
)

// Error codes returned by session edits and the submission gate.
const (
	CodeEmergencySingleSupplier = "QUOTATION_EMERGENCY_SINGLE_SUPPLIER"
	CodeTooManySuppliers        = "QUOTATION_TOO_MANY_SUPPLIERS"
	CodeSupplierCount           = "QUOTATION_SUPPLIER_COUNT"
	CodeNoItemsSelected         = "QUOTATION_NO_ITEMS_SELECTED"
	CodeSupplierWithoutPrices   = "QUOTATION_SUPPLIER_WITHOUT_PRICES"
	CodeItemWithoutOffer        = "QUOTATION_ITEM_WITHOUT_OFFER"
	CodeWinnerRequired          = "QUOTATION_WINNER_REQUIRED"
	CodeMultipleWinners         = "QUOTATION_MULTIPLE_WINNERS"
	CodeJustificationRequired   = "QUOTATION_JUSTIFICATION_REQUIRED"
	CodeInsufficientQuantity    = "QUOTATION_INSUFFICIENT_QUANTITY"
)

// Supplier count bounds.
const (
	MinSuppliers = 2
	MaxSuppliers = 6
)

var (
	// ErrEmergencySingleSupplier is returned when a second supplier is added to
	// an emergency quotation.
	ErrEmergencySingleSupplier = &apperror.AppError{
		Code:       CodeEmergencySingleSupplier,
		Message:    "Cotações emergenciais permitem apenas 1 fornecedor.",
		HTTPStatus: http.StatusUnprocessableEntity,
	}

	// ErrTooManySuppliers is returned past MaxSuppliers.
	ErrTooManySuppliers = &apperror.AppError{
		Code:       CodeTooManySuppliers,
		Message:    fmt.Sprintf("Máximo de %d fornecedores permitidos.", MaxSuppliers),
		HTTPStatus: http.StatusUnprocessableEntity,
	}
)

func gateError(code, message string) *apperror.AppError {
	return apperror.NewBusinessRule(code, message)
}
