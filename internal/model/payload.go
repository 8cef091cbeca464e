package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PayloadKind tags the variant held by a Payload.
type PayloadKind string

const (
	PayloadJSON     PayloadKind = "json"
	PayloadForm     PayloadKind = "form"
	PayloadText     PayloadKind = "text"
	PayloadBytesHex PayloadKind = "bytes_hex"
)

// Payload is the decoded body of a request.
//
// JSON keeps the compacted document text so object key order and number
// formatting survive. Text holds the body for PayloadText and the hex string
// for PayloadBytesHex.
type Payload struct {
	Kind PayloadKind
	JSON json.RawMessage
	Form *Form
	Text string
}

func JSONPayload(raw json.RawMessage) *Payload { return &Payload{Kind: PayloadJSON, JSON: raw} }

func FormPayload(f *Form) *Payload { return &Payload{Kind: PayloadForm, Form: f} }

func TextPayload(s string) *Payload { return &Payload{Kind: PayloadText, Text: s} }

func BytesHexPayload(hex string) *Payload { return &Payload{Kind: PayloadBytesHex, Text: hex} }

// MarshalJSON writes the variant in its logged shape: the JSON value itself,
// the form object, {"text": ...} or {"bytes_hex": ...}.
func (p Payload) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PayloadJSON:
		if len(p.JSON) == 0 {
			return []byte("null"), nil
		}
		return p.JSON, nil
	case PayloadForm:
		if p.Form == nil {
			return []byte("{}"), nil
		}
		return p.Form.MarshalJSON()
	case PayloadText:
		return marshal(map[string]string{"text": p.Text})
	case PayloadBytesHex:
		return marshal(map[string]string{"bytes_hex": p.Text})
	default:
		return nil, fmt.Errorf("model: unknown payload kind %q", p.Kind)
	}
}

// Form is an url-encoded form whose fields keep their first-occurrence order.
type Form struct {
	keys   []string
	values map[string][]string
}

func NewForm() *Form {
	return &Form{values: make(map[string][]string)}
}

// Add appends value to the field name, registering name on first use.
func (f *Form) Add(name, value string) {
	if _, ok := f.values[name]; !ok {
		f.keys = append(f.keys, name)
	}
	f.values[name] = append(f.values[name], value)
}

func (f *Form) Keys() []string { return f.keys }

func (f *Form) Values(name string) []string { return f.values[name] }

func (f *Form) Len() int { return len(f.keys) }

// MarshalJSON writes fields in insertion order. A field seen once is a
// string; a repeated field is an array of its values in occurrence order.
func (f *Form) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		var val []byte
		if vs := f.values[k]; len(vs) == 1 {
			val, err = marshal(vs[0])
		} else {
			val, err = marshal(vs)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
