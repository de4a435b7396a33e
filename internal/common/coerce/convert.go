package coerce

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	integerPrefix = regexp.MustCompile(`^[+-]?\d+`)
	numberPrefix  = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

// CoercionError reports a descriptor that could not be converted.
type CoercionError struct {
	Type   string
	Value  interface{}
	Reason string
	Path   []string
}

func (e *CoercionError) Error() string {
	if len(e.Path) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("Error converting field %q: %s", e.FieldPath(), e.Reason)
}

// FieldPath renders Path as "a.b[2].c".
func (e *CoercionError) FieldPath() string {
	var b strings.Builder
	for _, seg := range e.Path {
		if !strings.HasPrefix(seg, "[") && b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

func (e *CoercionError) prepend(seg string) *CoercionError {
	e.Path = append([]string{seg}, e.Path...)
	return e
}

func newCoercionError(d Descriptor, reason string) *CoercionError {
	return &CoercionError{Type: d.Type, Value: d.Value, Reason: reason}
}

// Convert resolves a single descriptor into a native value.
func Convert(d Descriptor) (interface{}, error) {
	switch d.Kind {
	case KindString:
		return Stringify(d.Value), nil
	case KindInteger:
		n, ok := toInteger(d.Value)
		if !ok {
			return nil, newCoercionError(d, "invalid integer value")
		}
		return n, nil
	case KindNumber:
		f, ok := toNumber(d.Value)
		if !ok {
			return nil, newCoercionError(d, "invalid number value")
		}
		return f, nil
	case KindBoolean:
		return truthy(d.Value), nil
	case KindArray:
		return toArray(d)
	case KindObject:
		return toObject(d)
	case KindNone:
		return nil, newCoercionError(d, "not a typed value")
	default:
		return nil, newCoercionError(d, "unknown type: "+d.Type)
	}
}

// Stringify renders v the way the string kind does.
func Stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	}
	if f, ok := toFloat(v); ok {
		return formatFloat(f)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

// formatFloat renders numbers without exponent below 1e21.
func formatFloat(f float64) string {
	if math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func toInteger(v interface{}) (int64, bool) {
	if s, ok := v.(string); ok {
		m := integerPrefix.FindString(strings.TrimLeft(s, " \t\r\n\v\f"))
		if m == "" {
			return 0, false
		}
		n, err := strconv.ParseInt(m, 10, 64)
		return n, err == nil
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	t := math.Trunc(f)
	if t > math.MaxInt64 || t < math.MinInt64 {
		return 0, false
	}
	return int64(t), true
}

func toNumber(v interface{}) (float64, bool) {
	if s, ok := v.(string); ok {
		m := numberPrefix.FindString(strings.TrimLeft(s, " \t\r\n\v\f"))
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(m, 64)
		return f, err == nil
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// truthy applies the boolean rules: bool as is, strings equal to "true"
// (any case), non-zero numbers, non-empty containers.
func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return strings.EqualFold(val, "true")
	case []interface{}:
		return len(val) > 0
	case map[string]interface{}:
		return len(val) > 0
	}
	if f, ok := toFloat(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return false
}

func toArray(d Descriptor) (interface{}, error) {
	switch val := d.Value.(type) {
	case string:
		var out []interface{}
		if err := json.Unmarshal([]byte(val), &out); err != nil || out == nil {
			return nil, newCoercionError(d, "invalid array value")
		}
		return out, nil
	case []interface{}:
		return val, nil
	default:
		return []interface{}{}, nil
	}
}

func toObject(d Descriptor) (interface{}, error) {
	switch val := d.Value.(type) {
	case string:
		var out map[string]interface{}
		if err := json.Unmarshal([]byte(val), &out); err != nil || out == nil {
			return nil, newCoercionError(d, "invalid object value")
		}
		return out, nil
	case map[string]interface{}:
		return val, nil
	default:
		return map[string]interface{}{}, nil
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
