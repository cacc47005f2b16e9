package service

import (
	"errors"
	"net/http"
)

// String reason codes surfaced to callers. The authorization and upload
// guard spellings are part of the external contract.
const (
	CodeInvalidArgument       = "INVALID_ARGUMENT"
	CodePayloadTooLarge       = "PAYLOAD_TOO_LARGE"
	CodeContentTypeNotAllowed = "CONTENT_TYPE_NOT_ALLOWED"
	CodeNotFound              = "NOT_FOUND"
	CodeForbidden             = "FORBIDDEN"
	CodeCryptoFailure         = "CRYPTO_FAILURE"
	CodeDriverMismatch        = "DRIVER_MISMATCH"
	CodeSignerUnavailable     = "SIGNER_UNAVAILABLE"
	CodeBackendIO             = "BACKEND_IO"
	CodeRegistryFailure       = "REGISTRY_FAILURE"
	CodeInternal              = "INTERNAL"
)

type svcError struct {
	status  int
	code    string
	errCode int
	err     error
}

func (e svcError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e svcError) Unwrap() error {
	return e.err
}

func makeServiceError(status int, code string, errCode int, err error) error {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}

	var existing svcError
	if errors.As(err, &existing) {
		if existing.status != 0 {
			return existing
		}
	}

	return svcError{status: status, code: code, errCode: errCode, err: err}
}

func validationError(err error, errCode int) error {
	return makeServiceError(http.StatusBadRequest, CodeInvalidArgument, errCode, err)
}

func payloadTooLarge(err error) error {
	return makeServiceError(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, ErrCodePayloadTooLarge, err)
}

func contentTypeNotAllowed(err error) error {
	return makeServiceError(http.StatusUnsupportedMediaType, CodeContentTypeNotAllowed, ErrCodeContentTypeNotAllowed, err)
}

func notFoundError(err error) error {
	return makeServiceError(http.StatusNotFound, CodeNotFound, ErrCodeBlobNotFound, err)
}

func forbiddenError(err error, errCode int) error {
	return makeServiceError(http.StatusForbidden, CodeForbidden, errCode, err)
}

func cryptoError(err error) error {
	return makeServiceError(http.StatusInternalServerError, CodeCryptoFailure, ErrCodeCryptoFailure, err)
}

func driverMismatchError(err error) error {
	return makeServiceError(http.StatusInternalServerError, CodeDriverMismatch, ErrCodeDriverMismatch, err)
}

func signerUnavailableError(err error) error {
	return makeServiceError(http.StatusBadGateway, CodeSignerUnavailable, ErrCodeSignerUnavailable, err)
}

func backendError(err error) error {
	return makeServiceError(http.StatusBadGateway, CodeBackendIO, ErrCodeBackendIO, err)
}

func registryError(err error) error {
	return makeServiceError(http.StatusInternalServerError, CodeRegistryFailure, ErrCodeRegistryFailure, err)
}

func internalError(err error) error {
	return makeServiceError(http.StatusInternalServerError, CodeInternal, ErrCodeInternal, err)
}

// StatusFromError maps a service error to an HTTP-ish status for the
// embedding transport layer.
func StatusFromError(err error) int {
	var svcErr svcError
	if errors.As(err, &svcErr) {
		return svcErr.status
	}
	return http.StatusInternalServerError
}

// CodeFromError returns the string reason code, or CodeInternal for
// unclassified errors.
func CodeFromError(err error) string {
	var svcErr svcError
	if errors.As(err, &svcErr) && svcErr.code != "" {
		return svcErr.code
	}
	return CodeInternal
}

// NumericCodeFromError returns the stable numeric code.
func NumericCodeFromError(err error) int {
	var svcErr svcError
	if errors.As(err, &svcErr) && svcErr.errCode > 0 {
		return svcErr.errCode
	}
	return defaultErrorCodeByStatus(StatusFromError(err))
}
