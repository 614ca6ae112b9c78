package shared

import (
	"errors"
	"net/http"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code.
// This lets errors.Is match sentinel errors against detailed copies.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails returns a copy of the error carrying the given details
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes shared by the ledger packages
const (
	CodeNotFound                = "NOT_FOUND"
	CodeAlreadyExists           = "ALREADY_EXISTS"
	CodeInvalidInput            = "INVALID_INPUT"
	CodeValidationFailed        = "VALIDATION_FAILED"
	CodeConcurrencyConflict     = "CONCURRENCY_CONFLICT"
	CodeInvalidState            = "INVALID_STATE"
	CodeUnknownSKU              = "UNKNOWN_SKU"
	CodeInsufficientInventory   = "INSUFFICIENT_INVENTORY"
	CodeInsufficientLotQuantity = "INSUFFICIENT_LOT_QUANTITY"
	CodeInvalidOrderState       = "INVALID_ORDER_STATE"
	CodeOrderLotsConsumed       = "ORDER_LOTS_CONSUMED"
	CodeLotPartiallyConsumed    = "LOT_PARTIALLY_CONSUMED"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrUnknownSKU          = NewDomainError(CodeUnknownSKU, "SKU does not exist")
	ErrInvalidOrderState   = NewDomainError(CodeInvalidOrderState, "Operation not allowed in current order state")
	ErrOrderLotsConsumed   = NewDomainError(CodeOrderLotsConsumed, "Order lots have already been consumed by sales")
)

// IsCode reports whether err is (or wraps) a DomainError with the given code
func IsCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

var statusByCode = map[string]int{
	CodeNotFound:                http.StatusNotFound,
	CodeUnknownSKU:              http.StatusNotFound,
	CodeInvalidInput:            http.StatusBadRequest,
	CodeValidationFailed:        http.StatusBadRequest,
	CodeInsufficientInventory:   http.StatusBadRequest,
	CodeAlreadyExists:           http.StatusConflict,
	CodeConcurrencyConflict:     http.StatusConflict,
	CodeInvalidState:            http.StatusConflict,
	CodeInvalidOrderState:       http.StatusConflict,
	CodeOrderLotsConsumed:       http.StatusConflict,
	CodeLotPartiallyConsumed:    http.StatusConflict,
	CodeInsufficientLotQuantity: http.StatusConflict,
}

// HTTPStatus maps an error to the status code a transport should surface.
// Non-domain errors map to 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var de *DomainError
	if errors.As(err, &de) {
		if status, ok := statusByCode[de.Code]; ok {
			return status
		}
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
