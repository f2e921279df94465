package domain

import "errors"

var (
	ErrDataNotFound                  = errors.New("data not found")
	ErrInsufficientData              = errors.New("insufficient data")
	ErrInvalidWeightsConfig          = errors.New("invalid weights config")
	ErrValidation                    = errors.New("validation error")
	ErrExternalDependencyUnavailable = errors.New("external dependency unavailable")
	ErrActivationConflict            = errors.New("activation conflict")
)

const (
	CodeDataNotFound                  = "DATA_NOT_FOUND"
	CodeInsufficientData              = "INSUFFICIENT_DATA"
	CodeInvalidWeightsConfig          = "INVALID_WEIGHTS_CONFIG"
	CodeValidation                    = "VALIDATION_ERROR"
	CodeExternalDependencyUnavailable = "EXTERNAL_DEPENDENCY_UNAVAILABLE"
	CodeActivationConflict            = "ACTIVATION_CONFLICT"
	CodeInternal                      = "INTERNAL_ERROR"
)

// ErrorCode returns the stable public code for err, walking its wrap chain.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDataNotFound):
		return CodeDataNotFound
	case errors.Is(err, ErrInsufficientData):
		return CodeInsufficientData
	case errors.Is(err, ErrInvalidWeightsConfig):
		return CodeInvalidWeightsConfig
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrExternalDependencyUnavailable):
		return CodeExternalDependencyUnavailable
	case errors.Is(err, ErrActivationConflict):
		return CodeActivationConflict
	default:
		return CodeInternal
	}
}

// IsTransient reports whether err is worth retrying from a background job.
func IsTransient(err error) bool {
	return errors.Is(err, ErrExternalDependencyUnavailable)
}
