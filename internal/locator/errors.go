package locator

import (
	"errors"
	"fmt"
)

// ErrMissingConfig is a config reference naming a file that does not exist.
var ErrMissingConfig = errors.New("config file not found")

// ScanError is a workspace that could not be scanned at all.
type ScanError struct {
	Base string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Base, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// ConfigError is a failure traceable to a location in configuration text.
// Line is 0 when only the file is known.
type ConfigError struct {
	Path string
	Line int
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
