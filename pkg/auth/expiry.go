package auth

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const DefaultTokenTTL = 7 * 24 * time.Hour

var expiryPattern = regexp.MustCompile(`^(\d+)([smhd]?)$`)

// ParseExpiry converts "3600", "30s", "15m", "12h" or "7d" into a
// duration. Anything else yields DefaultTokenTTL.
func ParseExpiry(s string) time.Duration {
	m := expiryPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return DefaultTokenTTL
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return DefaultTokenTTL
	}

	unit := time.Second
	switch m[2] {
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}
	if n > int64((1<<63-1)/unit) {
		return DefaultTokenTTL
	}
	return time.Duration(n) * unit
}
