package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValueKind discriminates the closed attribute-value variant. Category
// values are never coerced between kinds; each kind carries its own
// predicate-literal and key formatting rules.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindText
	KindInteger
	KindFloat
	KindDate
)

func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	default:
		return "null"
	}
}

// Value is a tagged attribute value. The zero Value is null.
type Value struct {
	Kind  ValueKind
	Text  string
	Int   int64
	Float float64
	Date  time.Time
}

func Null() Value                 { return Value{} }
func TextValue(s string) Value    { return Value{Kind: KindText, Text: s} }
func IntValue(n int64) Value      { return Value{Kind: KindInteger, Int: n} }
func FloatValue(f float64) Value  { return Value{Kind: KindFloat, Float: f} }
func DateValue(t time.Time) Value { return Value{Kind: KindDate, Date: t.UTC()} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

// Literal renders the value for use in an attribute filter expression.
// Text is wrapped in single quotes with embedded quotes doubled; numerics
// are bare; dates are quoted RFC3339.
func (v Value) Literal() string {
	switch v.Kind {
	case KindText:
		return "'" + strings.ReplaceAll(v.Text, "'", "''") + "'"
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindDate:
		return "'" + v.Date.Format(time.RFC3339) + "'"
	default:
		return "NULL"
	}
}

// Key returns a canonical token usable as a grouping key. Distinct values of
// distinct kinds never collide.
func (v Value) Key() string {
	switch v.Kind {
	case KindText:
		return "t:" + v.Text
	case KindInteger:
		return "i:" + strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return "f:" + strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindDate:
		return "d:" + v.Date.Format(time.RFC3339Nano)
	default:
		return "null"
	}
}

func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindText:
		return v.Text == o.Text
	case KindInteger:
		return v.Int == o.Int
	case KindFloat:
		return v.Float == o.Float
	case KindDate:
		return v.Date.Equal(o.Date)
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindDate:
		return v.Date.Format(time.RFC3339)
	default:
		return ""
	}
}

type valueJSON struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	var raw any
	switch v.Kind {
	case KindNull:
		return json.Marshal(valueJSON{Type: "null"})
	case KindText:
		raw = v.Text
	case KindInteger:
		raw = v.Int
	case KindFloat:
		raw = v.Float
	case KindDate:
		raw = v.Date.Format(time.RFC3339Nano)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(valueJSON{Type: v.Kind.String(), Value: b})
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var sj valueJSON
	if err := json.Unmarshal(b, &sj); err != nil {
		return fmt.Errorf("parse value: %w", err)
	}
	switch sj.Type {
	case "null", "":
		*v = Null()
	case "text":
		var s string
		if err := json.Unmarshal(sj.Value, &s); err != nil {
			return fmt.Errorf("parse text value: %w", err)
		}
		*v = TextValue(s)
	case "integer":
		var n int64
		if err := json.Unmarshal(sj.Value, &n); err != nil {
			return fmt.Errorf("parse integer value: %w", err)
		}
		*v = IntValue(n)
	case "float":
		var f float64
		if err := json.Unmarshal(sj.Value, &f); err != nil {
			return fmt.Errorf("parse float value: %w", err)
		}
		*v = FloatValue(f)
	case "date":
		var s string
		if err := json.Unmarshal(sj.Value, &s); err != nil {
			return fmt.Errorf("parse date value: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("parse date value: %w", err)
		}
		*v = DateValue(t)
	default:
		return fmt.Errorf("unknown value type %q", sj.Type)
	}
	return nil
}
