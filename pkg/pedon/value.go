package pedon

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

// ValueKind tags an attribute value so aggregation logic can branch
// explicitly instead of relying on runtime type inspection.
type ValueKind int

const (
	KindMissing ValueKind = iota
	KindNumeric
	KindCategorical
)

// Value is a single horizon or site attribute value: numeric, categorical,
// or missing.
type Value struct {
	kind ValueKind
	num  float64
	cat  string
}

// Num returns a numeric Value.
func Num(v float64) Value {
	return Value{kind: KindNumeric, num: v}
}

// Cat returns a categorical Value.
func Cat(s string) Value {
	return Value{kind: KindCategorical, cat: s}
}

// Missing returns the missing Value.
func Missing() Value {
	return Value{kind: KindMissing}
}

// Kind returns the value's tag.
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsMissing reports whether the value is missing.
func (v Value) IsMissing() bool {
	return v.kind == KindMissing
}

// Float returns the numeric payload. The bool is false for categorical or
// missing values.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumeric
}

// Category returns the categorical payload. The bool is false for numeric or
// missing values.
func (v Value) Category() (string, bool) {
	return v.cat, v.kind == KindCategorical
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumeric:
		return v.num == o.num
	case KindCategorical:
		return v.cat == o.cat
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case KindNumeric:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindCategorical:
		return v.cat
	}
	return "NA"
}

// MarshalJSON encodes numeric values as numbers, categorical as strings, and
// missing as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumeric:
		return json.Marshal(v.num)
	case KindCategorical:
		return json.Marshal(v.cat)
	}
	return []byte("null"), nil
}

// UnmarshalJSON decodes null as missing, numbers as numeric, and strings as
// categorical.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Missing()
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*v = Num(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Cat(s)
		return nil
	}
	return fmt.Errorf("cannot decode %q as attribute value", string(data))
}

// EncodeMsgpack implements msgpack.CustomEncoder with the same shape as the
// JSON encoding.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v.kind {
	case KindNumeric:
		return enc.EncodeFloat64(v.num)
	case KindCategorical:
		return enc.EncodeString(v.cat)
	}
	return enc.EncodeNil()
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	raw, err := dec.DecodeInterface()
	if err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = Missing()
	case float64:
		*v = Num(t)
	case float32:
		*v = Num(float64(t))
	case int64:
		*v = Num(float64(t))
	case uint64:
		*v = Num(float64(t))
	case int8, int16, int32, uint8, uint16, uint32:
		*v = Num(float64(ifaceToInt(t)))
	case string:
		*v = Cat(t)
	default:
		return fmt.Errorf("cannot decode %T as attribute value", raw)
	}
	return nil
}

func ifaceToInt(v any) int64 {
	switch t := v.(type) {
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	}
	return 0
}
