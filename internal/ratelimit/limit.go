// Package ratelimit admits or rejects requests against per-client quotas kept
// in a shared counter store, so multiple server instances enforce one budget.
package ratelimit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Limit is one admission quota: at most Count requests per Window. All
// configured limits must hold simultaneously for a request to pass.
type Limit struct {
	Count  int
	Window time.Duration
	Unit   string
}

// String renders the limit back in its configuration form.
func (l Limit) String() string {
	return fmt.Sprintf("%d per %s", l.Count, l.Unit)
}

// ParseLimit reads the "N per minute|hour|day" form the configuration uses.
func ParseLimit(spec string) (Limit, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(spec)))
	if len(fields) != 3 || fields[1] != "per" {
		return Limit{}, fmt.Errorf("ratelimit: malformed limit %q", spec)
	}
	count, err := strconv.Atoi(fields[0])
	if err != nil || count <= 0 {
		return Limit{}, fmt.Errorf("ratelimit: malformed limit count in %q", spec)
	}
	var window time.Duration
	switch fields[2] {
	case "minute":
		window = time.Minute
	case "hour":
		window = time.Hour
	case "day":
		window = 24 * time.Hour
	default:
		return Limit{}, fmt.Errorf("ratelimit: unknown window unit %q", fields[2])
	}
	return Limit{Count: count, Window: window, Unit: fields[2]}, nil
}

// ParseLimits parses every spec, failing on the first malformed entry.
func ParseLimits(specs []string) ([]Limit, error) {
	limits := make([]Limit, 0, len(specs))
	for _, spec := range specs {
		limit, err := ParseLimit(spec)
		if err != nil {
			return nil, err
		}
		limits = append(limits, limit)
	}
	return limits, nil
}
