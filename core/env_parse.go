package core

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnvOrDefault returns the trimmed value of key, or defaultValue when
// unset or blank.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// ParseIntEnv returns key as an int, or defaultValue when unset or invalid.
func ParseIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// ParseBool parses true/1/yes/on and false/0/no/off, case-insensitively.
func ParseBool(value string) (b, ok bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// ParseBoolEnv returns key as a bool, or defaultValue when unset or invalid.
func ParseBoolEnv(key string, defaultValue bool) bool {
	if b, ok := ParseBool(os.Getenv(key)); ok {
		return b
	}
	return defaultValue
}

// ParseOptionalBoolEnv distinguishes "unset" from "false": it returns nil
// when key is unset or invalid.
func ParseOptionalBoolEnv(key string) *bool {
	if b, ok := ParseBool(os.Getenv(key)); ok {
		return &b
	}
	return nil
}

// ParseDurationEnv reads key as whole seconds.
func ParseDurationEnv(key string, defaultSeconds int) time.Duration {
	return time.Duration(ParseIntEnv(key, defaultSeconds)) * time.Second
}
