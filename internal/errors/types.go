//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

import (
	"fmt"
	"strconv"
)

// ConfigError is a manifest or config.cue that could not be loaded.
type ConfigError struct {
	Base Error  `json:"error"`
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

// NewConfigError creates a ConfigError.
func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{Base: Error{
		Category: CategoryConfig,
		Code:     CodeConfigParse,
		Message:  message,
		Cause:    cause,
	}}
}

// WithFile sets the file path.
func (e *ConfigError) WithFile(file string) *ConfigError {
	e.File = file
	return e
}

// WithLine sets the line number.
func (e *ConfigError) WithLine(line int) *ConfigError {
	e.Line = line
	return e
}

func (e *ConfigError) Error() string        { return e.Base.Error() }
func (e *ConfigError) Unwrap() error        { return e.Base.Cause }
func (e *ConfigError) Is(target error) bool { return matches(e, target) }
func (e *ConfigError) base() *Error         { return &e.Base }

func (e *ConfigError) fields() []field {
	f := []field{{"File:     ", e.File, styleResource}}
	if e.Line > 0 {
		f = append(f, field{"Line:     ", strconv.Itoa(e.Line), stylePlain})
	}
	return f
}

// ValidationError is a desired-state field with an unacceptable value.
type ValidationError struct {
	Base     Error  `json:"error"`
	Resource string `json:"resource,omitempty"`
	Field    string `json:"field,omitempty"`
	Expected string `json:"expected,omitempty"`
	Got      string `json:"got,omitempty"`
}

// NewValidationError creates a ValidationError.
func NewValidationError(resource, field, expected, got string) *ValidationError {
	return &ValidationError{
		Base: Error{
			Category: CategoryValidation,
			Code:     CodeValidationFailed,
			Message:  "validation failed for " + resource,
		},
		Resource: resource,
		Field:    field,
		Expected: expected,
		Got:      got,
	}
}

func (e *ValidationError) Error() string {
	msg := e.Base.Error()
	if e.Field == "" {
		return msg
	}
	msg += ": field " + e.Field
	if e.Expected != "" {
		msg += ": expected " + e.Expected
	}
	if e.Got != "" {
		msg += ", got " + e.Got
	}
	return msg
}

func (e *ValidationError) Unwrap() error        { return e.Base.Cause }
func (e *ValidationError) Is(target error) bool { return matches(e, target) }
func (e *ValidationError) base() *Error         { return &e.Base }

func (e *ValidationError) fields() []field {
	return []field{
		{"Resource: ", e.Resource, styleResource},
		{"Field:    ", e.Field, stylePlain},
		{"Expected: ", e.Expected, styleExpected},
		{"Got:      ", e.Got, styleGot},
	}
}

// PlatformError is a host that could not be identified or lacks a
// provider for a capability.
type PlatformError struct {
	Base     Error  `json:"error"`
	Platform string `json:"platform,omitempty"`
	Family   string `json:"family,omitempty"`
}

// NewPlatformDetectError creates a PlatformError for detection failures.
func NewPlatformDetectError(cause error) *PlatformError {
	return &PlatformError{Base: Error{
		Category: CategoryPlatform,
		Code:     CodePlatformDetect,
		Message:  "failed to detect platform",
		Cause:    cause,
		Hint:     "Pass --platform-name and --platform-family to override detection.",
	}}
}

// NewUnsupportedPlatformError creates a PlatformError for a capability
// the platform has no provider for.
func NewUnsupportedPlatformError(platform, family, capability string) *PlatformError {
	return &PlatformError{
		Base: Error{
			Category: CategoryPlatform,
			Code:     CodePlatformUnsupported,
			Message:  capability + " is not supported on this platform",
		},
		Platform: platform,
		Family:   family,
	}
}

func (e *PlatformError) Error() string        { return e.Base.Error() }
func (e *PlatformError) Unwrap() error        { return e.Base.Cause }
func (e *PlatformError) Is(target error) bool { return matches(e, target) }
func (e *PlatformError) base() *Error         { return &e.Base }

func (e *PlatformError) fields() []field {
	return []field{
		{"Platform: ", e.Platform, styleResource},
		{"Family:   ", e.Family, stylePlain},
	}
}

// InstallError is a convergence action that failed on the host.
type InstallError struct {
	Base Error `json:"error"`

	// Resource is the action ID, e.g. "package[filebeat]".
	Resource  string `json:"resource,omitempty"`
	Operation string `json:"operation,omitempty"`
	Version   string `json:"version,omitempty"`
	URL       string `json:"url,omitempty"`
}

// NewInstallError creates an InstallError.
func NewInstallError(resource, operation string, cause error) *InstallError {
	return &InstallError{
		Base: Error{
			Category: CategoryInstall,
			Code:     CodeInstallFailed,
			Message:  fmt.Sprintf("%s %s failed", resource, operation),
			Cause:    cause,
		},
		Resource:  resource,
		Operation: operation,
	}
}

// NewMissingTargetError creates an InstallError for a notification whose
// target is declared neither in the plan nor in the shared service scope.
func NewMissingTargetError(source, target string) *InstallError {
	return &InstallError{
		Base: Error{
			Category: CategoryInstall,
			Code:     CodeMissingTarget,
			Message:  fmt.Sprintf("%s notifies unknown resource %s", source, target),
		},
		Resource: source,
	}
}

// WithVersion sets the version.
func (e *InstallError) WithVersion(version string) *InstallError {
	e.Version = version
	return e
}

// WithURL sets the URL.
func (e *InstallError) WithURL(url string) *InstallError {
	e.URL = url
	return e
}

func (e *InstallError) Error() string        { return e.Base.Error() }
func (e *InstallError) Unwrap() error        { return e.Base.Cause }
func (e *InstallError) Is(target error) bool { return matches(e, target) }
func (e *InstallError) base() *Error         { return &e.Base }

func (e *InstallError) fields() []field {
	return []field{
		{"Resource: ", e.Resource, styleResource},
		{"Version:  ", e.Version, stylePlain},
		{"URL:      ", e.URL, stylePlain},
	}
}

// ChecksumError is a downloaded file whose digest does not match.
type ChecksumError struct {
	Base     Error  `json:"error"`
	File     string `json:"file,omitempty"`
	Expected string `json:"expected,omitempty"`
	Got      string `json:"got,omitempty"`
}

// NewChecksumError creates a ChecksumError.
func NewChecksumError(file, expected, got string) *ChecksumError {
	return &ChecksumError{
		Base: Error{
			Category: CategoryInstall,
			Code:     CodeChecksumMismatch,
			Message:  "checksum verification failed",
			Hint:     "The package may have been corrupted during download.\nRemove the cached file and run 'fbinstall apply' again.",
		},
		File:     file,
		Expected: expected,
		Got:      got,
	}
}

func (e *ChecksumError) Error() string        { return e.Base.Error() }
func (e *ChecksumError) Unwrap() error        { return e.Base.Cause }
func (e *ChecksumError) Is(target error) bool { return matches(e, target) }
func (e *ChecksumError) base() *Error         { return &e.Base }

func (e *ChecksumError) fields() []field {
	return []field{
		{"File:     ", e.File, styleResource},
		{"Expected: ", e.Expected, styleExpected},
		{"Got:      ", e.Got, styleGot},
	}
}

// NetworkError is a remote artifact that could not be fetched.
type NetworkError struct {
	Base       Error  `json:"error"`
	URL        string `json:"url,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
}

// NewNetworkError creates a NetworkError.
func NewNetworkError(url string, cause error) *NetworkError {
	return &NetworkError{
		Base: Error{
			Category: CategoryNetwork,
			Code:     CodeNetworkFailed,
			Message:  "failed to download from " + url,
			Cause:    cause,
		},
		URL: url,
	}
}

// NewHTTPError creates a NetworkError for non-200 responses.
func NewHTTPError(url string, statusCode int) *NetworkError {
	return &NetworkError{
		Base: Error{
			Category: CategoryNetwork,
			Code:     CodeHTTPError,
			Message:  fmt.Sprintf("failed to download: HTTP %d", statusCode),
		},
		URL:        url,
		StatusCode: statusCode,
	}
}

func (e *NetworkError) Error() string        { return e.Base.Error() }
func (e *NetworkError) Unwrap() error        { return e.Base.Cause }
func (e *NetworkError) Is(target error) bool { return matches(e, target) }
func (e *NetworkError) base() *Error         { return &e.Base }

func (e *NetworkError) fields() []field {
	f := []field{{"URL:      ", e.URL, stylePlain}}
	if e.StatusCode > 0 {
		f = append(f, field{"Status:   ", strconv.Itoa(e.StatusCode), styleGot})
	}
	return f
}

// StateError is a failure reading, writing or locking the state store.
type StateError struct {
	Base Error `json:"error"`

	// LockPID is the PID recorded by the holder of the lock, if known.
	LockPID  int    `json:"lockPid,omitempty"`
	LockFile string `json:"lockFile,omitempty"`
}

// NewStateError creates a StateError.
func NewStateError(message string, cause error) *StateError {
	return &StateError{Base: Error{
		Category: CategoryState,
		Code:     CodeStateError,
		Message:  message,
		Cause:    cause,
	}}
}

// NewLockError creates a StateError for lock conflicts.
func NewLockError(lockFile string, lockPID int) *StateError {
	return &StateError{
		Base: Error{
			Category: CategoryState,
			Code:     CodeStateLocked,
			Message:  "another fbinstall run holds the state lock",
			Hint:     fmt.Sprintf("Wait for the other run to finish, or\nremove %s if no run is in progress.", lockFile),
		},
		LockPID:  lockPID,
		LockFile: lockFile,
	}
}

func (e *StateError) Error() string        { return e.Base.Error() }
func (e *StateError) Unwrap() error        { return e.Base.Cause }
func (e *StateError) Is(target error) bool { return matches(e, target) }
func (e *StateError) base() *Error         { return &e.Base }

func (e *StateError) fields() []field {
	var f []field
	if e.LockPID > 0 {
		f = append(f, field{"Held by:  ", fmt.Sprintf("PID %d", e.LockPID), styleGot})
	}
	return append(f, field{"Lock:     ", e.LockFile, styleResource})
}
