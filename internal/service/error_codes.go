package service

// Numeric error codes, stable across releases. Grouped by class so the
// embedding layer can bucket without string matching.
const (
	// Validation (rejected before any I/O).
	ErrCodeInvalidArgument       = 1000
	ErrCodeInvalidID             = 1001
	ErrCodeInvalidTenant         = 1002
	ErrCodePayloadTooLarge       = 1003
	ErrCodeContentTypeNotAllowed = 1004
	ErrCodeMissingRequired       = 1005

	// Resource state.
	ErrCodeBlobNotFound = 2001

	// Authorization.
	ErrCodeForbidden                   = 3001
	ErrCodeRoleDenied                  = 3002
	ErrCodeCrossTenantDenied           = 3003
	ErrCodeBilateralAcceptanceRequired = 3004

	// Server side.
	ErrCodeInternal          = 4001
	ErrCodeCryptoFailure     = 4002
	ErrCodeDriverMismatch    = 4003
	ErrCodeSignerUnavailable = 4004
	ErrCodeBackendIO         = 4005
	ErrCodeRegistryFailure   = 4006
)

func defaultErrorCodeByStatus(status int) int {
	switch {
	case status == 404:
		return ErrCodeBlobNotFound
	case status == 403:
		return ErrCodeForbidden
	case status >= 400 && status < 500:
		return ErrCodeInvalidArgument
	default:
		return ErrCodeInternal
	}
}
