package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimestamp_UTCSeconds(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2024, 3, 9, 14, 5, 7, 999_000_000, loc)
	assert.Equal(t, "2024-03-09T12:05:07Z", FormatTimestamp(ts))
}

func TestLogRecord_MarshalLine(t *testing.T) {
	ct := "application/json"
	rec := LogRecord{
		Timestamp:   "2024-03-09T12:05:07Z",
		RemoteAddr:  "127.0.0.1",
		Path:        "/hook?x=1",
		ContentType: &ct,
		Headers:     map[string]string{"Host": "localhost:3000", "Content-Type": "application/json"},
		Payload:     JSONPayload(json.RawMessage(`{"a":1}`)),
	}

	line, err := rec.MarshalLine()
	require.NoError(t, err)
	assert.Equal(t,
		`{"ts":"2024-03-09T12:05:07Z","remote_addr":"127.0.0.1","path":"/hook?x=1",`+
			`"content_type":"application/json","headers":{"Content-Type":"application/json","Host":"localhost:3000"},`+
			`"payload":{"a":1},"parse_error":null}`,
		string(line))
}

func TestLogRecord_MarshalLineNulls(t *testing.T) {
	msg := "invalid character 'x' looking for beginning of value (offset 1)"
	rec := LogRecord{Timestamp: "2024-03-09T12:05:07Z", Path: "/", ParseError: &msg}

	line, err := rec.MarshalLine()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(line, &got))
	assert.Nil(t, got["content_type"])
	assert.Nil(t, got["payload"])
	assert.Equal(t, msg, got["parse_error"])
}

func TestLogRecord_MarshalLineDoesNotEscapeHTML(t *testing.T) {
	rec := LogRecord{Path: "/a?b=<c>&d", Payload: TextPayload("<b>&</b>\nnext")}

	line, err := rec.MarshalLine()
	require.NoError(t, err)
	assert.Contains(t, string(line), `"path":"/a?b=<c>&d"`)
	assert.Contains(t, string(line), `"payload":{"text":"<b>&</b>\nnext"}`)
	assert.NotContains(t, string(line), "\n")
}

func TestPayload_Variants(t *testing.T) {
	form := NewForm()
	form.Add("a", "1")
	form.Add("b", "3")
	form.Add("a", "2")

	cases := []struct {
		name string
		p    *Payload
		want string
	}{
		{"json null", JSONPayload(json.RawMessage("null")), `null`},
		{"json empty raw", JSONPayload(nil), `null`},
		{"json array", JSONPayload(json.RawMessage(`[1,"two",null]`)), `[1,"two",null]`},
		{"form", FormPayload(form), `{"a":["1","2"],"b":"3"}`},
		{"empty form", FormPayload(NewForm()), `{}`},
		{"text", TextPayload("héllo"), `{"text":"héllo"}`},
		{"empty text", TextPayload(""), `{"text":""}`},
		{"bytes hex", BytesHexPayload("fffe"), `{"bytes_hex":"fffe"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := json.Marshal(tc.p)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(got))
		})
	}
}

func TestForm_KeepsInsertionOrder(t *testing.T) {
	form := NewForm()
	form.Add("z", "1")
	form.Add("a", "2")
	form.Add("m", "3")
	form.Add("z", "4")

	assert.Equal(t, []string{"z", "a", "m"}, form.Keys())
	assert.Equal(t, []string{"1", "4"}, form.Values("z"))
	assert.Equal(t, 3, form.Len())

	got, err := form.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":["1","4"],"a":"2","m":"3"}`, string(got))
}

func TestPayload_UnknownKind(t *testing.T) {
	_, err := Payload{Kind: "xml"}.MarshalJSON()
	require.Error(t, err)
}
