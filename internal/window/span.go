package window

import (
	"fmt"
	"time"
)

// ParseSpan parses a trailing-window length.
// Supports Go duration syntax (e.g., "10s", "1m", "1h") plus "Xd" for days.
func ParseSpan(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("span must not be empty")
	}

	// Handle "d" suffix (days), not supported by time.ParseDuration.
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err != nil {
			return 0, fmt.Errorf("invalid span %q: %w", s, err)
		}
		if days <= 0 {
			return 0, fmt.Errorf("span must be positive, got %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid span %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("span must be positive, got %q", s)
	}
	return d, nil
}
