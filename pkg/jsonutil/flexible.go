// Package jsonutil tolerates the loose typing of stored JSON credential
// bundles, where ports arrive as numbers or strings depending on which
// admin UI wrote them.
package jsonutil

import (
	"fmt"
	"strconv"
)

// IntValue coerces a decoded JSON value to an int. JSON numbers decode as
// float64; older bundles stored ports as quoted strings.
func IntValue(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// StringValue coerces a decoded JSON value to a string, rendering numbers
// and booleans rather than failing.
func StringValue(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10), true
		}
		return fmt.Sprintf("%g", s), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return "", false
	}
}
