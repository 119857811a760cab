package topology

import "fmt"

// ConfigError reports an invalid or contradictory pipeline
// specification, detected before any queue or goroutine is created.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid pipeline configuration: " + e.Reason
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}
