package util

import (
	"fmt"
	"strings"
	"time"
)

// ValidatePort validates a port number.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got: %d", port)
	}
	return nil
}

// ValidateDuration validates a duration is not negative.
func ValidateDuration(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("duration cannot be negative: %v", d)
	}
	return nil
}

// ValidateRoutePath validates a gin route path.
func ValidateRoutePath(path string) error {
	if path == "" {
		return fmt.Errorf("route path cannot be empty")
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("route path must start with '/', got: %s", path)
	}
	if strings.ContainsAny(path, " \t\n") {
		return fmt.Errorf("route path cannot contain whitespace: %q", path)
	}
	return nil
}
