package params

import (
	"sort"
	"strconv"
	"strings"
)

// Params is a flat mapping from parameter name to resolved value.
// Names are case-sensitive.
type Params map[string]Value

// Clone returns a shallow copy of p. A nil Params clones to an empty one.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Has reports whether name is set.
func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// Lookup returns the string form of name, if set.
func (p Params) Lookup(name string) (string, bool) {
	v, ok := p[name]
	if !ok {
		return "", false
	}
	return v.String(), true
}

// Store sets name to v. When overwrite is false an existing value is kept.
// It reports whether the value was stored.
func (p Params) Store(name string, v Value, overwrite bool) bool {
	if !overwrite {
		if _, ok := p[name]; ok {
			return false
		}
	}
	p[name] = v
	return true
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Data converts p into plain Go values for template rendering.
func (p Params) Data() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v.Any()
	}
	return out
}

// Coercer converts raw textual values into typed Values.
type Coercer struct {
	ints   map[string]struct{}
	floats map[string]struct{}
}

// NewCoercer creates a Coercer. Parameters named in intNames are always
// stored as integers and those in floatNames as floats, when the raw text
// allows it.
func NewCoercer(intNames, floatNames []string) Coercer {
	c := Coercer{
		ints:   make(map[string]struct{}, len(intNames)),
		floats: make(map[string]struct{}, len(floatNames)),
	}
	for _, n := range intNames {
		c.ints[n] = struct{}{}
	}
	for _, n := range floatNames {
		c.floats[n] = struct{}{}
	}
	return c
}

// Coerce types raw for parameter name. Forced-int names and all-digit values
// become integers; forced-float names become floats; anything else that
// parses as a float becomes a float; the rest stays a string, unchanged.
func (c Coercer) Coerce(name, raw string) Value {
	trimmed := strings.TrimSpace(raw)

	_, forceInt := c.ints[name]
	if forceInt || isDigits(trimmed) {
		if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return Int(i)
		}
	}

	if _, forceFloat := c.floats[name]; forceFloat {
		if f, ok := parseFloat(trimmed); ok {
			return Float(f)
		}
		return String(raw)
	}

	if f, ok := parseFloat(trimmed); ok {
		return Float(f)
	}
	return String(raw)
}

// parseFloat accepts decimal forms only; hex floats such as 0x1p4 stay strings.
func parseFloat(s string) (float64, bool) {
	digits := strings.TrimLeft(s, "+-")
	if digits == "" || strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
