package handler

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/akave-ai/postlogger/internal/decoder"
	"github.com/akave-ai/postlogger/internal/model"
	"github.com/akave-ai/postlogger/internal/response"
)

var errBodyTooLarge = errors.New("request body exceeds the configured maximum")

// Sink receives one serialized record per accepted request.
// The backend provides an implementation (logwriter.Writer).
type Sink interface {
	Append(line []byte) error
}

// PostHandler logs every POST request body to Sink. It does not depend on
// Echo beyond echo.Context.
type PostHandler struct {
	Sink     Sink
	MaxBytes int64
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Receive decodes the request body, appends one record to the sink and
// answers {"status":"ok"} (POST /*).
func (h *PostHandler) Receive(c echo.Context) error {
	req := c.Request()
	if req.ContentLength > h.MaxBytes {
		return response.PayloadTooLarge(c)
	}

	body, err := readBody(req.Body, h.MaxBytes)
	if errors.Is(err, errBodyTooLarge) {
		return response.PayloadTooLarge(c)
	}
	if err != nil {
		return response.BadRequest(c, "read request body", err.Error())
	}

	rawType := req.Header.Get(echo.HeaderContentType)
	rec := model.LogRecord{
		Timestamp:  model.FormatTimestamp(h.now()),
		RemoteAddr: remoteIP(req),
		Path:       requestTarget(req),
		Headers:    flattenHeaders(req),
	}
	if ct := decoder.NormalizeContentType(rawType); ct != "" {
		rec.ContentType = &ct
	}

	payload, err := decoder.Decode(rawType, body)
	if err != nil {
		msg := err.Error()
		rec.ParseError = &msg
		h.Logger.Debug().Err(err).Str("path", rec.Path).Msg("request body did not decode")
	} else {
		rec.Payload = payload
	}

	line, err := rec.MarshalLine()
	if err != nil {
		h.Logger.Error().Err(err).Str("path", rec.Path).Msg("marshal log record")
		return response.InternalError(c, "marshal log record", err.Error())
	}

	seg := newrelic.FromContext(req.Context()).StartSegment("logwriter.append")
	err = h.Sink.Append(line)
	seg.End()
	if err != nil {
		h.Logger.Error().Err(err).Str("path", rec.Path).Msg("append log record")
		return response.InternalError(c, "append log record", err.Error())
	}
	return response.StatusOK(c)
}

func (h *PostHandler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// readBody reads at most limit bytes. Bodies without a declared length are
// only bounded here.
func readBody(body io.Reader, limit int64) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	b, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errBodyTooLarge
	}
	return b, nil
}

func remoteIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

func requestTarget(req *http.Request) string {
	if req.RequestURI != "" {
		return req.RequestURI
	}
	return req.URL.RequestURI()
}

// flattenHeaders keeps the last value of every header and restores the
// headers net/http moves out of req.Header. Wire order is not available from
// net/http, so records list headers in sorted key order.
func flattenHeaders(req *http.Request) map[string]string {
	out := make(map[string]string, len(req.Header)+2)
	for name, values := range req.Header {
		if len(values) > 0 {
			out[name] = values[len(values)-1]
		}
	}
	if req.Host != "" {
		out["Host"] = req.Host
	}
	if len(req.TransferEncoding) > 0 {
		out["Transfer-Encoding"] = strings.Join(req.TransferEncoding, ", ")
	}
	return out
}
