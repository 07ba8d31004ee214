package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Value is a float64 that may be unavailable. The zero Value is unavailable.
// It encodes as a JSON number or null.
type Value struct {
	v  float64
	ok bool
}

// Some returns a defined Value. Non-finite inputs become unavailable.
func Some(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{v: v, ok: true}
}

// None returns the unavailable marker.
func None() Value { return Value{} }

func (v Value) Get() (float64, bool) { return v.v, v.ok }

func (v Value) Valid() bool { return v.ok }

// OrZero returns the number, or 0 when unavailable.
func (v Value) OrZero() float64 {
	if !v.ok {
		return 0
	}
	return v.v
}

// Ptr is used when handing the value to database/sql.
func (v Value) Ptr() *float64 {
	if !v.ok {
		return nil
	}
	f := v.v
	return &f
}

// FromPtr is the inverse of Ptr.
func FromPtr(p *float64) Value {
	if p == nil {
		return Value{}
	}
	return Some(*p)
}

func (v Value) String() string {
	if !v.ok {
		return "null"
	}
	return strconv.FormatFloat(v.v, 'f', -1, 64)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}
