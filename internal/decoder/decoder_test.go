package decoder

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akave-ai/postlogger/internal/model"
)

func marshalPayload(t *testing.T, p *model.Payload) string {
	t.Helper()
	require.NotNil(t, p)
	b, err := p.MarshalJSON()
	require.NoError(t, err)
	return string(b)
}

func TestNormalizeContentType(t *testing.T) {
	cases := map[string]string{
		"":                                  "",
		"application/json":                  "application/json",
		"Application/JSON; charset=utf-8":   "application/json",
		"  text/plain ;q=1":                 "text/plain",
		";":                                 "",
		"APPLICATION/X-WWW-FORM-URLENCODED": "application/x-www-form-urlencoded",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeContentType(in), "input %q", in)
	}
}

func TestDecode_JSONObject(t *testing.T) {
	p, err := Decode("application/json", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, model.PayloadJSON, p.Kind)
	assert.Equal(t, `{"a":1}`, marshalPayload(t, p))
}

func TestDecode_JSONRoundTripsStructure(t *testing.T) {
	bodies := []string{
		`{"z":1,"a":[true,false,null],"m":{"n":1.50,"s":"x"}}`,
		`[3,2,1]`,
		`"scalar"`,
		`12345678901234567890`,
		`null`,
	}
	for _, body := range bodies {
		p, err := Decode("application/json", []byte(body))
		require.NoError(t, err, body)
		assert.Equal(t, body, marshalPayload(t, p))
	}
}

func TestDecode_JSONCompactsToOneLine(t *testing.T) {
	p, err := Decode("application/json; charset=utf-8", []byte("{\n  \"a\": \"line\\nbreak\",\n  \"b\": [1, 2]\n}\n"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":"line\nbreak","b":[1,2]}`, marshalPayload(t, p))
}

func TestDecode_JSONEmptyBodyIsNull(t *testing.T) {
	p, err := Decode("application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, "null", marshalPayload(t, p))
}

func TestDecode_JSONSyntaxError(t *testing.T) {
	for _, body := range []string{`{"a":`, `nope`, ` `, `{"a":1}x`} {
		p, err := Decode("application/json", []byte(body))
		assert.Nil(t, p, body)
		require.Error(t, err, body)

		var decErr *Error
		require.True(t, errors.As(err, &decErr), body)
		assert.Equal(t, "application/json", decErr.ContentType)
		assert.NotContains(t, err.Error(), "(offset 0)", body)
	}
}

func TestDecode_JSONSyntaxErrorOffset(t *testing.T) {
	cases := map[string]string{
		`{"a":x}`:                "invalid character 'x' looking for beginning of value (offset 6)",
		`[1,2,,]`:                "invalid character ',' looking for beginning of value (offset 6)",
		`{"long key here": tru}`: "invalid character '}' in literal true (expecting 'e') (offset 22)",
	}
	for body, want := range cases {
		_, err := Decode("application/json", []byte(body))
		require.Error(t, err, body)
		assert.Equal(t, want, err.Error(), body)
	}
}

func TestDecode_JSONDuplicateKeysAndNaN(t *testing.T) {
	p, err := Decode("application/json", []byte(`{"a":1, "a":2}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"a":2}`, marshalPayload(t, p))

	for _, body := range []string{`NaN`, `{"x":Infinity}`} {
		p, err := Decode("application/json", []byte(body))
		assert.Nil(t, p, body)
		require.Error(t, err, body)
	}
}

func TestDecode_JSONInvalidUTF8(t *testing.T) {
	p, err := Decode("application/json", []byte{'"', 0xff, '"'})
	assert.Nil(t, p)
	require.ErrorIs(t, err, errInvalidUTF8)
}

func TestDecode_FormRepeatedFields(t *testing.T) {
	p, err := Decode("application/x-www-form-urlencoded", []byte("a=1&a=2&b=3"))
	require.NoError(t, err)
	assert.Equal(t, model.PayloadForm, p.Kind)
	assert.Equal(t, `{"a":["1","2"],"b":"3"}`, marshalPayload(t, p))
}

func TestDecode_FormOccurrenceOrder(t *testing.T) {
	p, err := Decode("application/x-www-form-urlencoded", []byte("b=1&a=x&b=2&c=q&b=3"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, p.Form.Keys())
	assert.Equal(t, []string{"1", "2", "3"}, p.Form.Values("b"))
}

func TestDecode_FormSkipsBlankPairs(t *testing.T) {
	p, err := Decode("application/x-www-form-urlencoded", []byte("&a=&b&=v&c=1&&"))
	require.NoError(t, err)
	assert.Equal(t, `{"":"v","c":"1"}`, marshalPayload(t, p))
}

func TestDecode_FormUnescapes(t *testing.T) {
	p, err := Decode("application/x-www-form-urlencoded", []byte("full+name=Ada+Lovelace&sym=%2B%26%3D&bad=%zz%4&utf=%C3%A9&broken=%ff"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada Lovelace"}, p.Form.Values("full name"))
	assert.Equal(t, []string{"+&="}, p.Form.Values("sym"))
	assert.Equal(t, []string{"%zz%4"}, p.Form.Values("bad"))
	assert.Equal(t, []string{"é"}, p.Form.Values("utf"))
	assert.Equal(t, []string{"\uFFFD"}, p.Form.Values("broken"))
}

func TestDecode_FormReplacesEachInvalidByte(t *testing.T) {
	p, err := Decode("application/x-www-form-urlencoded", []byte("a=%ff%fe&b=x%C3%A9%80y"))
	require.NoError(t, err)
	assert.Equal(t, []string{"\uFFFD\uFFFD"}, p.Form.Values("a"))
	assert.Equal(t, []string{"xé\uFFFDy"}, p.Form.Values("b"))
}

func TestDecode_FormEmptyBody(t *testing.T) {
	p, err := Decode("application/x-www-form-urlencoded", nil)
	require.NoError(t, err)
	assert.Equal(t, `{}`, marshalPayload(t, p))
}

func TestDecode_FormInvalidUTF8(t *testing.T) {
	p, err := Decode("application/x-www-form-urlencoded", []byte{'a', '=', 0xc3})
	assert.Nil(t, p)
	require.ErrorIs(t, err, errInvalidUTF8)
}

func TestDecode_TextFallback(t *testing.T) {
	for _, ct := range []string{"", "text/plain", "application/xml", "garbage;;"} {
		p, err := Decode(ct, []byte("hello <world>"))
		require.NoError(t, err, ct)
		assert.Equal(t, model.PayloadText, p.Kind)
		assert.Equal(t, `{"text":"hello <world>"}`, marshalPayload(t, p))
	}
}

func TestDecode_EmptyBodyWithoutContentTypeIsEmptyText(t *testing.T) {
	p, err := Decode("", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"text":""}`, marshalPayload(t, p))
}

func TestDecode_NonUTF8IsHex(t *testing.T) {
	p, err := Decode("", []byte{0xff, 0xfe})
	require.NoError(t, err)
	assert.Equal(t, model.PayloadBytesHex, p.Kind)
	assert.Equal(t, `{"bytes_hex":"fffe"}`, marshalPayload(t, p))
}

func TestDecode_HexMatchesInputBytes(t *testing.T) {
	inputs := [][]byte{
		{0x80},
		{0xc3, 0x28},
		{'o', 'k', 0xed, 0xa0, 0x80},
		{0x00, 0xff, 0x10, 0xAB},
	}
	for _, in := range inputs {
		p, err := Decode("application/octet-stream", in)
		require.NoError(t, err)
		assert.Equal(t, model.PayloadBytesHex, p.Kind)
		assert.Equal(t, hex.EncodeToString(in), p.Text)
	}
}
