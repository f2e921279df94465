package middleware

import (
	"errors"

	"skill-match/internal/domain"
	"skill-match/internal/pkg/logger"
	"skill-match/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Cause      error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func NewAppError(statusCode int, code, message string, cause error) *AppError {
	return &AppError{StatusCode: statusCode, Code: code, Message: message, Cause: cause}
}

func BadRequest(message string, cause error) *AppError {
	return NewAppError(fiber.StatusBadRequest, domain.CodeValidation, message, cause)
}

// FromDomain maps a usecase error onto its HTTP status and public code.
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	code := domain.ErrorCode(err)
	return NewAppError(statusForCode(code), code, "", err)
}

func statusForCode(code string) int {
	switch code {
	case domain.CodeDataNotFound:
		return fiber.StatusNotFound
	case domain.CodeValidation:
		return fiber.StatusBadRequest
	case domain.CodeInsufficientData, domain.CodeInvalidWeightsConfig:
		return fiber.StatusUnprocessableEntity
	case domain.CodeActivationConflict:
		return fiber.StatusConflict
	case domain.CodeExternalDependencyUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

type ErrorMiddleware struct {
	log *zap.Logger
}

func NewErrorMiddleware(log *zap.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{log: logger.OrNop(log)}
}

func (m *ErrorMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				m.log.Error("panic recovered", zap.Any("panic", r), zap.String("path", c.Path()))
				err = response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError,
					&response.ErrorBody{Code: domain.CodeInternal})
			}
		}()

		err = c.Next()
		if err == nil {
			return nil
		}

		status, msg, body := m.normalize(c, err)
		return response.Error(c, status, msg, body)
	}
}

func (m *ErrorMiddleware) normalize(c fiber.Ctx, err error) (int, string, *response.ErrorBody) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status := fiberErr.Code
		if status <= 0 || status >= 500 {
			m.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
			return fiber.StatusInternalServerError, response.MessageInternalServerError, &response.ErrorBody{Code: domain.CodeInternal}
		}
		msg := fiberErr.Message
		if msg == "" {
			msg = response.DefaultMessage(status)
		}
		return status, msg, &response.ErrorBody{Code: codeForStatus(status)}
	}

	appErr := FromDomain(err)
	status := appErr.StatusCode
	if status <= 0 {
		status = fiber.StatusInternalServerError
	}
	if status >= 500 && status != fiber.StatusServiceUnavailable {
		m.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return fiber.StatusInternalServerError, response.MessageInternalServerError, &response.ErrorBody{Code: domain.CodeInternal}
	}

	msg := appErr.Message
	if msg == "" {
		msg = response.DefaultMessage(status)
	}
	code := appErr.Code
	if code == "" {
		code = codeForStatus(status)
	}
	body := &response.ErrorBody{Code: code}
	if appErr.Cause != nil && status < 500 {
		body.Detail = appErr.Cause.Error()
	}
	return status, msg, body
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return domain.CodeDataNotFound
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return domain.CodeValidation
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusForbidden:
		return "FORBIDDEN"
	case fiber.StatusConflict:
		return domain.CodeActivationConflict
	case fiber.StatusServiceUnavailable:
		return domain.CodeExternalDependencyUnavailable
	default:
		return domain.CodeInternal
	}
}
