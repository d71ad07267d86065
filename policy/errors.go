package policy

import (
	"errors"
	"fmt"
)

// ConfigError reports a malformed or missing governance artifact. It is
// fatal: callers must surface it and never retry, since it indicates a
// fixable data problem rather than a transient condition.
type ConfigError struct {
	// Path is the file or directory that failed to load, when known.
	Path string

	// Name is the policy or standard reference that failed to resolve.
	Name string

	err error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Path != "" && e.err != nil:
		return fmt.Sprintf("governance config %s: %v", e.Path, e.err)
	case e.Name != "":
		return fmt.Sprintf("governance config: unknown reference %q", e.Name)
	default:
		return fmt.Sprintf("governance config: %v", e.err)
	}
}

func (e *ConfigError) Unwrap() error {
	return e.err
}

// NewConfigError wraps a file-level load or parse failure.
func NewConfigError(path string, err error) error {
	return &ConfigError{Path: path, err: err}
}

// NewMissingRefError reports a persona referencing a nonexistent policy
// or standard name.
func NewMissingRefError(name string) error {
	return &ConfigError{Name: name}
}

// IsConfig returns true if the error is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
