package errors

import (
	"fmt"
	"net/http"
)

// AppError define la estructura estándar para errores del gateway.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"` // segundos, solo rate limit
	HTTPStatus int    `json:"-"`                     // No se serializa, usado para el header
	Err        error  `json:"-"`                     // Causa original, útil para logs, no se expone al cliente
}

// Error implementa la interfaz error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap permite acceder al error original
func (e *AppError) Unwrap() error {
	return e.Err
}

// FromError intenta convertir un error genérico en un AppError.
// Si no lo es, devuelve un error interno genérico conservando la causa.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternal.WithCause(err)
}

// WithDetail agrega detalle al error (útil para validaciones).
// Devuelve una COPIA para no mutar las variables globales base.
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause agrega el error original (causa). Devuelve una COPIA.
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// WithRetryAfter setea retry_after en segundos. Devuelve una COPIA.
func (e *AppError) WithRetryAfter(seconds int) *AppError {
	newErr := *e
	newErr.RetryAfter = seconds
	return &newErr
}

// =================================================================================
// LISTA DE ERRORES PREDEFINIDOS
// =================================================================================

var (
	// 403 - el cliente no pasó el gate externo antes de pedir la key
	ErrGateRequired = &AppError{
		Code:       "GATE_REQUIRED",
		Message:    "Hay que pasar el link antes de pedir una key.",
		HTTPStatus: http.StatusForbidden,
	}

	// 403 - misma IP con un cliente aparentemente distinto
	ErrFingerprintMismatch = &AppError{
		Code:       "FINGERPRINT_MISMATCH",
		Message:    "Ya hay una key activa para esta IP con otro cliente.",
		HTTPStatus: http.StatusForbidden,
	}

	// 403 - cliente bloqueado por el filtro de user-agents
	ErrClientBlocked = &AppError{
		Code:       "CLIENT_BLOCKED",
		Message:    "Acceso denegado.",
		HTTPStatus: http.StatusForbidden,
	}

	// 429
	ErrRateLimited = &AppError{
		Code:       "RATE_LIMITED",
		Message:    "Demasiados requests. Esperá un minuto.",
		HTTPStatus: http.StatusTooManyRequests,
	}

	// 503 - el registry llegó a su techo incluso después de un sweep forzado
	ErrCapacity = &AppError{
		Code:       "CAPACITY_EXCEEDED",
		Message:    "El servidor está sobrecargado, probá de nuevo más tarde.",
		HTTPStatus: http.StatusServiceUnavailable,
	}

	// 404
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "El endpoint no existe.",
		HTTPStatus: http.StatusNotFound,
	}

	// 405
	ErrMethodNotAllowed = &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    "Método HTTP no permitido para este endpoint.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}

	// 500
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "Error interno del servidor.",
		HTTPStatus: http.StatusInternalServerError,
	}
)
