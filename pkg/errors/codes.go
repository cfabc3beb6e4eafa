package errors

import "net/http"

// ErrorCode is a string identifier for a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeOK      ErrorCode = "OK"
	ErrCodeUnknown ErrorCode = "COMMON_000"

	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeNotFound           ErrorCode = "COMMON_004"
	ErrCodeTimeout            ErrorCode = "COMMON_005"
	ErrCodeSerialization      ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_007"
	ErrCodeCacheError         ErrorCode = "COMMON_008"
)

// Pipeline error codes.  These map one-to-one onto the pipeline's failure
// taxonomy: invalid caller input, an unreachable oracle capability, and
// defensively detected corrupt oracle output.
const (
	ErrCodeInvalidInput          ErrorCode = "NLP_001"
	ErrCodeOracleUnavailable     ErrorCode = "NLP_002"
	ErrCodeMalformedOracleOutput ErrorCode = "NLP_003"
)

// errorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var errorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeOK:      http.StatusOK,
	ErrCodeUnknown: http.StatusInternalServerError,

	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeSerialization:      http.StatusBadRequest,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeCacheError:         http.StatusInternalServerError,

	ErrCodeInvalidInput:          http.StatusBadRequest,
	ErrCodeOracleUnavailable:     http.StatusServiceUnavailable,
	ErrCodeMalformedOracleOutput: http.StatusBadGateway,
}

// HTTPStatus returns the HTTP status code for an ErrorCode.  Unknown codes
// map to 500 so that unclassified failures are never mistaken for client
// errors.
func (c ErrorCode) HTTPStatus() int {
	if status, ok := errorCodeHTTPStatus[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}
