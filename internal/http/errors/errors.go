package errors

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// errorResponse controla exactamente qué campos ve el cliente.
type errorResponse struct {
	Status     string `json:"status"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// WriteError escribe una respuesta HTTP basada en el error proporcionado.
// Maneja tanto *AppError como errores genéricos (que se vuelven 500 sin
// filtrar detalle interno).
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	resp := errorResponse{
		Status:     "error",
		Code:       appErr.Code,
		Message:    appErr.Message,
		Detail:     appErr.Detail,
		RetryAfter: appErr.RetryAfter,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if appErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
	}
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(resp)
}
