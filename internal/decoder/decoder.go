// Package decoder turns a request body and its declared content type into a
// model.Payload.
package decoder

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/akave-ai/postlogger/internal/model"
)

const (
	MIMEApplicationJSON = "application/json"
	MIMEApplicationForm = "application/x-www-form-urlencoded"
)

var errInvalidUTF8 = errors.New("body is not valid UTF-8")

// Error is returned when a body does not parse under its declared content type.
type Error struct {
	ContentType string
	Err         error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// NormalizeContentType lower-cases ct and drops any parameters after ';'.
func NormalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// Decode maps body to a payload according to contentType. JSON and form
// bodies that fail to parse yield a nil payload and an *Error; any other
// content type always decodes, to text or, for non-UTF-8 bodies, to hex.
func Decode(contentType string, body []byte) (p *model.Payload, err error) {
	ct := NormalizeContentType(contentType)
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, &Error{ContentType: ct, Err: fmt.Errorf("decoder panic: %v", r)}
		}
	}()

	switch ct {
	case MIMEApplicationJSON:
		p, err = decodeJSON(body)
	case MIMEApplicationForm:
		p, err = decodeForm(body)
	default:
		return decodeRaw(body), nil
	}
	if err != nil {
		return nil, &Error{ContentType: ct, Err: err}
	}
	return p, nil
}

func decodeJSON(body []byte) (*model.Payload, error) {
	if !utf8.Valid(body) {
		return nil, errInvalidUTF8
	}
	if len(body) == 0 {
		return model.JSONPayload(json.RawMessage("null")), nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return nil, syntaxError(body, err)
	}
	return model.JSONPayload(buf.Bytes()), nil
}

// syntaxError describes why body is not JSON. json.Compact leaves
// SyntaxError.Offset unset, so the offset is taken from json.Unmarshal.
func syntaxError(body []byte, compactErr error) error {
	err := json.Unmarshal(body, new(json.RawMessage))
	if err == nil {
		err = compactErr
	}
	var syn *json.SyntaxError
	if errors.As(err, &syn) && syn.Offset > 0 {
		return fmt.Errorf("%s (offset %d)", syn.Error(), syn.Offset)
	}
	return err
}

// decodeForm splits on '&' and skips empty pairs, pairs without '=' and
// pairs with an empty value.
func decodeForm(body []byte) (*model.Payload, error) {
	if !utf8.Valid(body) {
		return nil, errInvalidUTF8
	}
	form := model.NewForm()
	for _, pair := range strings.Split(string(body), "&") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || value == "" {
			continue
		}
		form.Add(unescape(name), unescape(value))
	}
	return model.FormPayload(form), nil
}

func decodeRaw(body []byte) *model.Payload {
	if utf8.Valid(body) {
		return model.TextPayload(string(body))
	}
	return model.BytesHexPayload(hex.EncodeToString(body))
}

// unescape decodes '+' and %XX escapes. Malformed escapes are kept as-is and
// every invalid UTF-8 byte produced by escapes becomes one U+FFFD.
func unescape(s string) string {
	if !strings.ContainsAny(s, "+%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s):
			v, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				b.WriteByte(c)
				continue
			}
			b.WriteByte(byte(v))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return replaceInvalidUTF8(b.String())
}

func replaceInvalidUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
		} else {
			b.WriteString(s[:size])
		}
		s = s[size:]
	}
	return b.String()
}
