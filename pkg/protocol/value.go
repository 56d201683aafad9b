package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Switch values as the host writes them.
const (
	On  = "On"
	Off = "Off"
)

// FormatSwitch renders b as On or Off.
func FormatSwitch(b bool) string {
	if b {
		return On
	}
	return Off
}

// ParseSwitch accepts On/Off and, leniently, true/false in any case.
func ParseSwitch(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true":
		return true, nil
	case "off", "false":
		return false, nil
	}
	return false, fmt.Errorf("switch value %q is not On or Off", s)
}

// FormatNumber renders f in its shortest decimal form.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseNumber parses a decimal number value.
func ParseNumber(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("number value %q: %w", s, err)
	}
	return f, nil
}

// ParseInt parses an integer value. Values such as "5.0" are accepted as
// long as they have no fractional part.
func ParseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("integer value %q is not an integer", s)
	}
	return int64(f), nil
}
