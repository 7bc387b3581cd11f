package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	ErrNoData           = errors.New("no data provided")
	ErrInvalidJSON      = errors.New("invalid JSON body")
	ErrNotObject        = errors.New("payload must be a JSON object")
	ErrUnsupportedValue = errors.New("unsupported value")
)

// FieldError reports a payload field whose value cannot be bound.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Payload is a request body decoded into field name to Value pairs, kept in
// the order the keys appear in the document.
type Payload struct {
	fields *orderedmap.OrderedMap[string, Value]
}

// DecodePayload parses a JSON request body. Absent or falsy bodies (empty,
// null, false, 0, "", [], {}) yield ErrNoData. Any other non-object yields
// ErrNotObject. A field holding an object or array yields a *FieldError
// wrapping ErrUnsupportedValue.
func DecodePayload(data []byte) (*Payload, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNoData
	}
	if !json.Valid(data) {
		return nil, ErrInvalidJSON
	}
	if data[0] != '{' {
		if isFalsy(data) {
			return nil, ErrNoData
		}
		return nil, ErrNotObject
	}

	raw := orderedmap.New[string, json.RawMessage]()
	if err := raw.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if raw.Len() == 0 {
		return nil, ErrNoData
	}

	p := &Payload{fields: orderedmap.New[string, Value](raw.Len())}
	for pair := raw.Oldest(); pair != nil; pair = pair.Next() {
		var v Value
		if err := v.UnmarshalJSON(pair.Value); err != nil {
			return nil, &FieldError{Field: pair.Key, Err: err}
		}
		p.fields.Set(pair.Key, v)
	}
	return p, nil
}

func isFalsy(data []byte) bool {
	switch string(data) {
	case "null", "false", `""`, "[]":
		return true
	}
	if c := data[0]; c == '-' || (c >= '0' && c <= '9') {
		f, err := json.Number(data).Float64()
		return err == nil && f == 0
	}
	return bytes.Equal(bytes.Join(bytes.Fields(data), nil), []byte("[]"))
}

func (p *Payload) Len() int {
	if p == nil || p.fields == nil {
		return 0
	}
	return p.fields.Len()
}

// Keys returns the field names in document order.
func (p *Payload) Keys() []string {
	if p.Len() == 0 {
		return nil
	}
	return keys(p.fields)
}

// Args returns the driver values in the same order as Keys.
func (p *Payload) Args() []any {
	if p.Len() == 0 {
		return nil
	}
	out := make([]any, 0, p.fields.Len())
	for pair := p.fields.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value.Driver())
	}
	return out
}
