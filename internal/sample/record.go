package sample

import (
	"math"
	"strconv"
)

// Kind is the numeric kind of a value or of a whole decoded line.
type Kind uint8

const (
	KindNone Kind = iota
	KindInt
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "none"
	}
}

// Value is one sample. The zero Value is the "no value" sentinel.
type Value struct {
	kind Kind
	i    int64
	f    float64
}

func Int(v int64) Value {
	return Value{kind: KindInt, i: v}
}

func Float(v float64) Value {
	return Value{kind: KindFloat, f: v}
}

func None() Value {
	return Value{}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNone() bool {
	return v.kind == KindNone
}

// Int returns the integer payload; ok is false unless the value is KindInt.
func (v Value) Int() (int64, bool) {
	return v.i, v.kind == KindInt
}

// Float64 normalizes the value for plotting. None reports ok=false.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return "-"
	}
}

// MarshalJSON encodes None and non-finite floats as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return strconv.AppendInt(nil, v.i, 10), nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return []byte("null"), nil
		}
		return strconv.AppendFloat(nil, v.f, 'g', -1, 64), nil
	default:
		return []byte("null"), nil
	}
}

// Record is one decoded line. Every value shares the line's Kind.
type Record struct {
	Line   uint64
	Kind   Kind
	Values []Value
}

func (r Record) Width() int {
	return len(r.Values)
}

func (r Record) Empty() bool {
	return len(r.Values) == 0
}
