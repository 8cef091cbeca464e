package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/akave-ai/postlogger/internal/model"
)

// CannedHandler serves fixed GET responses for local testing.
type CannedHandler struct {
	Now func() time.Time
}

type diffOp struct {
	Op     string `json:"op"`
	Target string `json:"target"`
	Text   string `json:"text"`
}

type irDiff struct {
	Type string   `json:"type"`
	Ops  []diffOp `json:"ops"`
}

// Hello answers GET /api/hello.
func (h *CannedHandler) Hello(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"ok":      true,
		"ts":      h.timestamp(),
		"message": "Hello from the postlogger example server",
	})
}

// IRDiff answers GET /api/ir-diff with a sample diff that replaces the
// text of the address bar input box.
func (h *CannedHandler) IRDiff(c echo.Context) error {
	return c.JSON(http.StatusOK, irDiff{
		Type: "ir_diff",
		Ops: []diffOp{{
			Op:     "replace_text",
			Target: "widget:InputBox",
			Text:   "Updated via /api/ir-diff",
		}},
	})
}

// Echo answers any other GET with the requested path.
func (h *CannedHandler) Echo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"ok":   true,
		"ts":   h.timestamp(),
		"path": requestTarget(c.Request()),
	})
}

func (h *CannedHandler) timestamp() string {
	if h.Now == nil {
		return model.FormatTimestamp(time.Now())
	}
	return model.FormatTimestamp(h.Now())
}
