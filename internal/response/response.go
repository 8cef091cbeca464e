package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Status is the fixed body returned for an accepted request.
type Status struct {
	Status string `json:"status"`
}

// APIError is the standard error response shape.
type APIError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Path    string `json:"path"`
	Status  int    `json:"status"`
}

// pathFromContext returns the request path from Echo context.
func pathFromContext(c echo.Context) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	return c.Request().URL.Path
}

// StatusOK sends 200 with {"status":"ok"}.
func StatusOK(c echo.Context) error {
	return c.JSON(http.StatusOK, Status{Status: "ok"})
}

// PayloadTooLarge sends 413 without a body.
func PayloadTooLarge(c echo.Context) error {
	return c.NoContent(http.StatusRequestEntityTooLarge)
}

// Error sends a JSON error response using APIError.
func Error(c echo.Context, status int, message, errDetail string) error {
	return c.JSON(status, APIError{
		Message: message,
		Error:   errDetail,
		Path:    pathFromContext(c),
		Status:  status,
	})
}

// BadRequest sends 400 with message and error detail.
func BadRequest(c echo.Context, message, errDetail string) error {
	return Error(c, http.StatusBadRequest, message, errDetail)
}

// InternalError sends 500 with message and error detail.
func InternalError(c echo.Context, message, errDetail string) error {
	return Error(c, http.StatusInternalServerError, message, errDetail)
}
