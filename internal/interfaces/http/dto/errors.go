package dto

import "net/http"

// General error codes
const (
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeNotFound   = "NOT_FOUND"
)

// ErrorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Codes describing an operation that is legal to request but illegal in the
// declaration's current state map to 422; malformed input maps to 400.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,

	// Resource errors
	"NOT_FOUND":            http.StatusNotFound,
	"ALREADY_EXISTS":       http.StatusConflict,
	"REPORT_EXISTS":        http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,

	// Malformed input
	"INVALID_INPUT":        http.StatusBadRequest,
	"INVALID_TYPE":         http.StatusBadRequest,
	"INVALID_YEAR":         http.StatusBadRequest,
	"INVALID_PERIOD":       http.StatusBadRequest,
	"INVALID_MAPPING_KIND": http.StatusBadRequest,
	"UNKNOWN_FIELD":        http.StatusBadRequest,
	"FIELD_TYPE_MISMATCH":  http.StatusBadRequest,

	// Declaration rule violations
	"INVALID_STATE":                   http.StatusUnprocessableEntity,
	"INVALID_CURRENCY":                http.StatusUnprocessableEntity,
	"INVALID_COMPENSATE":              http.StatusUnprocessableEntity,
	"INVALID_TYPE_PERIOD":             http.StatusUnprocessableEntity,
	"INVALID_SEPA_CHECK":              http.StatusUnprocessableEntity,
	"INVALID_EXONERATED_MOD390":       http.StatusUnprocessableEntity,
	"INVALID_ANNUAL_OPERATION_VOLUME": http.StatusUnprocessableEntity,
	"INVALID_PRORATA_PERCENT":         http.StatusUnprocessableEntity,
	"MAPPING_NOT_CONFIGURED":          http.StatusUnprocessableEntity,
	"PRORATA_NOT_CONFIGURED":          http.StatusUnprocessableEntity,
	"MOVE_RECONCILED":                 http.StatusUnprocessableEntity,
	"PERIOD_NOT_FOUND":                http.StatusUnprocessableEntity,
	"FILE_NOT_GENERATED":              http.StatusUnprocessableEntity,
	"AMOUNT_OVERFLOW":                 http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes are treated as internal errors.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
