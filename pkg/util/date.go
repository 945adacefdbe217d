package util

import (
    "strconv"
    "time"
)

// ParseTimestamp converts s to an integer timestamp in unit (s, ms, us, ns).
// Integers are taken as already being in unit; RFC3339 strings are converted.
func ParseTimestamp(s, unit string) (int64, bool) {
    if s == "" {
        return 0, false
    }
    if v, err := strconv.ParseInt(s, 10, 64); err == nil {
        return v, true
    }
    t, err := time.Parse(time.RFC3339Nano, s)
    if err != nil {
        return 0, false
    }
    switch unit {
    case "s", "":
        return t.Unix(), true
    case "ms":
        return t.UnixMilli(), true
    case "us":
        return t.UnixMicro(), true
    case "ns":
        return t.UnixNano(), true
    }
    return 0, false
}

// ValidTimeUnit reports whether unit is accepted by ParseTimestamp.
func ValidTimeUnit(unit string) bool {
    switch unit {
    case "s", "ms", "us", "ns":
        return true
    }
    return false
}
