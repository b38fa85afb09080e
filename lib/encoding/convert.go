package encoding

import (
	"math"
	"time"
)

// The helpers below convert values unpacked from a snapshot map back into
// the field types generated HXDecode methods assign. msgpack picks the
// narrowest wire type for integers, so a field written as int may come back
// as any signed or unsigned width.

// Int64OK converts a decoded number to int64 when it is represented
// exactly: unsigned values above math.MaxInt64 and fractional or
// out-of-range floats are rejected.
func Int64OK(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return uintToInt64(uint64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return uintToInt64(n)
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	default:
		return 0, false
	}
}

// Int is Int64OK narrowed to the platform int.
func Int(v any) (int, bool) {
	n, ok := Int64OK(v)
	if !ok || n < math.MinInt || n > math.MaxInt {
		return 0, false
	}
	return int(n), true
}

func uintToInt64(n uint64) (int64, bool) {
	if n > math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}

func floatToInt64(f float64) (int64, bool) {
	// 2^63 is exact as a float64; MaxInt64 is not.
	if f != math.Trunc(f) || f < math.MinInt64 || f >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}

// Int64 converts a decoded number to int64, truncating fractions.
// Non-numbers and values outside the int64 range yield 0.
func Int64(v any) int64 {
	if n, ok := Int64OK(v); ok {
		return n
	}
	switch f := v.(type) {
	case float32:
		n, _ := floatToInt64(math.Trunc(float64(f)))
		return n
	case float64:
		n, _ := floatToInt64(math.Trunc(f))
		return n
	}
	return 0
}

// Uint64 converts a decoded number to uint64. Non-numbers yield 0.
func Uint64(v any) uint64 {
	switch n := v.(type) {
	case uint:
		return uint64(n)
	case uint8:
		return uint64(n)
	case uint16:
		return uint64(n)
	case uint32:
		return uint64(n)
	case uint64:
		return n
	default:
		return uint64(Int64(v))
	}
}

// Float64 converts a decoded number to float64. Non-numbers yield 0.
func Float64(v any) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	case uint64:
		return float64(n)
	default:
		return float64(Int64(v))
	}
}

// Strings converts a decoded array to []string, skipping non-strings.
func Strings(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// Ints converts a decoded array to []int.
func Ints(v any) []int {
	switch s := v.(type) {
	case []int:
		return s
	case []any:
		out := make([]int, 0, len(s))
		for _, e := range s {
			n, _ := Int(e)
			out = append(out, n)
		}
		return out
	default:
		return nil
	}
}

// Time parses a timestamp written as an RFC 3339 string.
func Time(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
