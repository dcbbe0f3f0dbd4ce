package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a metric value that may be absent. It decodes from JSON numbers and
// numeric strings; null, empty or non-numeric input decodes to an absent value
// rather than an error.
type Number struct {
	value float64
	valid bool
}

// Num returns a present Number.
func Num(v float64) Number {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{}
	}
	return Number{value: v, valid: true}
}

// ParseNumber coerces a string to a Number.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Number{}
	}
	return Num(v)
}

// Float returns the value and whether it is present.
func (n Number) Float() (float64, bool) { return n.value, n.valid }

// Valid reports whether the value is present.
func (n Number) Valid() bool { return n.valid }

// Value returns the value, or 0 when absent.
func (n Number) Value() float64 {
	if !n.valid {
		return 0
	}
	return n.value
}

// IsZero reports whether the value is absent. Used by the omitzero tag.
func (n Number) IsZero() bool { return !n.valid }

// NonZero reports whether the value is present and not zero.
func (n Number) NonZero() bool { return n.valid && n.value != 0 }

// Sub returns n-o when both are present.
func (n Number) Sub(o Number) Number {
	if !n.valid || !o.valid {
		return Number{}
	}
	return Num(n.value - o.value)
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, n.value, 'f', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*n = Number{}
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")):
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil //nolint:nilerr // malformed strings are treated as absent
		}
		*n = ParseNumber(s)
	default:
		*n = ParseNumber(string(b))
	}
	return nil
}
