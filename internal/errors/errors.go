// Package errors provides the structured errors fbinstall reports to the
// CLI. Every typed error carries a base Error with a category and a stable
// code; Formatter renders them as a header, labelled detail lines, the
// cause and a hint.
//
//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

// Category represents the classification of an error.
type Category string

const (
	CategoryConfig     Category = "config"
	CategoryValidation Category = "validation"
	CategoryPlatform   Category = "platform"
	CategoryInstall    Category = "install"
	CategoryState      Category = "state"
	CategoryNetwork    Category = "network"
)

// Code represents a machine-readable error code.
type Code string

const (
	// Platform errors (E1xx)
	CodePlatformDetect      Code = "E101"
	CodePlatformUnsupported Code = "E102"

	// Config errors (E2xx)
	CodeConfigParse      Code = "E201"
	CodeValidationFailed Code = "E202"

	// Install errors (E3xx)
	CodeInstallFailed    Code = "E301"
	CodeChecksumMismatch Code = "E302"
	CodeMissingTarget    Code = "E303"

	// Network errors (E4xx)
	CodeNetworkFailed Code = "E401"
	CodeHTTPError     Code = "E402"

	// State errors (E5xx)
	CodeStateError  Code = "E501"
	CodeStateLocked Code = "E502"
)

// Error is the base shared by every typed error.
type Error struct {
	Category Category       `json:"category"`
	Code     Code           `json:"code,omitempty"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
	Hint     string         `json:"hint,omitempty"`
	Cause    error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any error of this package by code, or by category and
// message when either side has no code.
func (e *Error) Is(target error) bool { return matches(e, target) }

func (e *Error) base() *Error    { return e }
func (e *Error) fields() []field { return nil }

// WithHint sets the hint and returns the error for chaining.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithDetail adds a detail and returns the error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given category and message.
func New(category Category, message string) *Error {
	return &Error{Category: category, Message: message}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(category Category, message string, cause error) *Error {
	return &Error{Category: category, Message: message, Cause: cause}
}

// coded is implemented by *Error and every typed error.
type coded interface {
	error
	base() *Error
	fields() []field
}

type fieldStyle int

const (
	stylePlain fieldStyle = iota
	styleResource
	styleExpected
	styleGot
)

// field is one labelled detail line. Empty values are not rendered.
type field struct {
	label string
	value string
	style fieldStyle
}

func matches(e coded, target error) bool {
	t, ok := target.(coded)
	if !ok {
		return false
	}
	eb, tb := e.base(), t.base()
	if eb.Code != "" && tb.Code != "" {
		return eb.Code == tb.Code
	}
	return eb.Category == tb.Category && eb.Message == tb.Message
}
