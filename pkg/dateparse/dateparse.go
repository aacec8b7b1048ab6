// Package dateparse coerces loosely typed date inputs into a canonical time.Time.
//
// Strings go through a generic textual parser first and fall back to an epoch
// interpretation, so callers may send either representation interchangeably.
package dateparse

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const (
	minEpoch = -62135596800 // 0001-01-01T00:00:00Z
	maxEpoch = 253402300799 // 9999-12-31T23:59:59Z
)

// Normalize returns the canonical timestamp for v. The boolean is false when
// v is empty or cannot be interpreted as a date.
func Normalize(v any) (time.Time, bool) {
	switch typed := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if typed.IsZero() {
			return time.Time{}, false
		}
		return typed, true
	case *time.Time:
		if typed == nil || typed.IsZero() {
			return time.Time{}, false
		}
		return *typed, true
	case string:
		return FromString(typed)
	case json.Number:
		n, err := typed.Int64()
		if err != nil {
			f, ferr := typed.Float64()
			if ferr != nil || f != math.Trunc(f) {
				return time.Time{}, false
			}
			n = int64(f)
		}
		return FromEpoch(n)
	case int:
		return FromEpoch(int64(typed))
	case int32:
		return FromEpoch(int64(typed))
	case int64:
		return FromEpoch(typed)
	case uint:
		return fromUnsigned(uint64(typed))
	case uint32:
		return FromEpoch(int64(typed))
	case uint64:
		return fromUnsigned(typed)
	case float64:
		if typed != math.Trunc(typed) || math.IsInf(typed, 0) {
			return time.Time{}, false
		}
		return FromEpoch(int64(typed))
	default:
		return time.Time{}, false
	}
}

// FromString parses s as a textual date, then as an epoch in seconds.
func FromString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if parsed, err := dateparse.ParseIn(s, time.UTC); err == nil {
		return parsed.UTC(), true
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return FromEpoch(n)
}

// FromEpoch interprets n as seconds since the unix epoch. Zero is treated as empty.
func FromEpoch(n int64) (time.Time, bool) {
	if n == 0 || n < minEpoch || n > maxEpoch {
		return time.Time{}, false
	}
	return time.Unix(n, 0).UTC(), true
}

func fromUnsigned(n uint64) (time.Time, bool) {
	if n > maxEpoch {
		return time.Time{}, false
	}
	return FromEpoch(int64(n))
}
