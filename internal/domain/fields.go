package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Field is one label/value pair of a submission.
type Field struct {
	Label string
	Value string
}

// Fields is an ordered label → value mapping. It serializes as a JSON
// object whose keys keep insertion order.
type Fields []Field

// Get returns the value for label.
func (f Fields) Get(label string) (string, bool) {
	for _, field := range f {
		if field.Label == label {
			return field.Value, true
		}
	}
	return "", false
}

// Set replaces the value for label or appends a new pair.
func (f *Fields) Set(label, value string) {
	for i := range *f {
		if (*f)[i].Label == label {
			(*f)[i].Value = value
			return
		}
	}
	*f = append(*f, Field{Label: label, Value: value})
}

// Labels returns the labels in order.
func (f Fields) Labels() []string {
	out := make([]string, 0, len(f))
	for _, field := range f {
		out = append(out, field.Label)
	}
	return out
}

// Clone returns an independent copy.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	return append(Fields(nil), f...)
}

func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Label)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts an object; non-string values are kept as their
// JSON text and null becomes the empty string.
func (f *Fields) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("fields: expected object, got %v", tok)
	}
	out := Fields{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("fields: expected string key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		out.Set(key, rawToString(raw))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*f = out
	return nil
}

func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}
