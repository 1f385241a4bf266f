package tax

// These constants mirror domain error codes to avoid an import cycle.
// The handler layer maps them to HTTP status codes.
const (
	codeInvalid = "invalid"
)

// TaxError carries a code and a caller-facing message.
type TaxError struct {
	Code    string
	Message string
}

func (e *TaxError) Error() string {
	return e.Message
}

// ErrorCode returns the error code for HTTP status mapping.
func (e *TaxError) ErrorCode() string {
	return e.Code
}

func newTaxError(code, message string) *TaxError {
	return &TaxError{Code: code, Message: message}
}

var (
	// ErrInvalidTaxRate is returned for a rate outside [0, 1).
	ErrInvalidTaxRate = newTaxError(codeInvalid, "Tax rate must be between 0 and 1")
)
