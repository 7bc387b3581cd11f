// Package record holds the schema-less row model used by the gateway: a tagged
// scalar Value, an ordered Record built from a result row, and an ordered
// Payload decoded from a request body.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind identifies which scalar a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindReal
	KindText
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	default:
		return "unknown"
	}
}

// Value is a single column value. The zero Value is Null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    []byte
}

func Null() Value { return Value{} }
func Integer(i int64) Value { return Value{kind: KindInteger, i: i} }
func Real(f float64) Value { return Value{kind: KindReal, f: f} }
func Text(s string) Value { return Value{kind: KindText, s: s} }
func Blob(b []byte) Value { return Value{kind: KindBlob, b: b} }
func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) Int() int64 { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Str() string { return v.s }
func (v Value) Bytes() []byte { return v.b }

// FromDriver converts a value scanned by database/sql into a Value.
func FromDriver(src any) Value {
	switch x := src.(type) {
	case nil:
		return Null()
	case int64:
		return Integer(x)
	case int:
		return Integer(int64(x))
	case int32:
		return Integer(int64(x))
	case int16:
		return Integer(int64(x))
	case int8:
		return Integer(int64(x))
	case uint32:
		return Integer(int64(x))
	case uint16:
		return Integer(int64(x))
	case uint8:
		return Integer(int64(x))
	case uint64:
		if x > math.MaxInt64 {
			return Text(strconv.FormatUint(x, 10))
		}
		return Integer(int64(x))
	case float64:
		return Real(x)
	case float32:
		return Real(float64(x))
	case bool:
		if x {
			return Integer(1)
		}
		return Integer(0)
	case string:
		return Text(x)
	case []byte:
		return Blob(bytes.Clone(x))
	case time.Time:
		return Text(x.Format(time.RFC3339Nano))
	default:
		return Text(fmt.Sprint(x))
	}
}

// Driver returns the value to bind as a statement parameter.
func (v Value) Driver() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindReal:
		return v.f
	case KindText:
		return v.s
	case KindBlob:
		return v.b
	default:
		return nil
	}
}

// MarshalJSON encodes blobs as base64 strings, like encoding/json does for []byte.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInteger:
		return strconv.AppendInt(nil, v.i, 10), nil
	case KindReal:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.f)
	case KindText:
		return json.Marshal(v.s)
	case KindBlob:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts JSON scalars only. Integral numbers become Integer,
// other numbers Real, booleans Integer 1 or 0.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ErrUnsupportedValue
	}
	switch data[0] {
	case 'n':
		*v = Null()
	case 't':
		*v = Integer(1)
	case 'f':
		*v = Integer(0)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	case '{', '[':
		return ErrUnsupportedValue
	default:
		n := json.Number(data)
		if i, err := n.Int64(); err == nil {
			*v = Integer(i)
			return nil
		}
		f, err := n.Float64()
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", data, err)
		}
		*v = Real(f)
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return v.s
	case KindBlob:
		return fmt.Sprintf("<blob %d bytes>", len(v.b))
	default:
		return "NULL"
	}
}
