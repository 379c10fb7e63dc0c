// Package errs defines the launcher's error codes and the structured error type
// carried through resolution, planning, acquisition and launch building.
//
// Errors never contain presentation text. Each one carries the identifiers a UI
// needs (version id, artifact, path, placeholder) so the caller can render its own
// message.
package errs

import (
	"fmt"
	"strings"
)

// Code identifies an error condition. Codes are strings so they serialize naturally.
type Code string

const (
	// Resolution.

	// CodeDescriptorNotFound indicates no descriptor exists locally or remotely.
	CodeDescriptorNotFound Code = "DESCRIPTOR_NOT_FOUND"
	// CodeDescriptorParse indicates a descriptor could not be decoded.
	CodeDescriptorParse Code = "DESCRIPTOR_PARSE_ERROR"
	// CodeCyclicInheritance indicates the inherits-from chain loops.
	CodeCyclicInheritance Code = "CYCLIC_INHERITANCE"

	// Planning.

	// CodePlanConflict indicates one destination path with two expected checksums.
	CodePlanConflict Code = "PLAN_CONFLICT"

	// Acquisition.

	// CodeChecksumMismatch indicates a file on disk does not match its expected hash or size.
	CodeChecksumMismatch Code = "CHECKSUM_MISMATCH"
	// CodeTransportFailure indicates the transport could not deliver a resource.
	CodeTransportFailure Code = "TRANSPORT_FAILURE"
	// CodeIncompleteDownload indicates at least one task failed permanently.
	CodeIncompleteDownload Code = "INCOMPLETE_DOWNLOAD"

	// Launch building.

	// CodeMissingSubstitution indicates an argument placeholder has no value.
	CodeMissingSubstitution Code = "MISSING_SUBSTITUTION"

	// Shell.

	// CodeInvalidInput indicates a caller supplied argument is invalid.
	CodeInvalidInput Code = "INVALID_INPUT"
	// CodeNotFound indicates a named resource (instance, run) does not exist.
	CodeNotFound Code = "NOT_FOUND"
)

// Error is the structured error used across the launcher core.
type Error struct {
	Code        Code     `json:"code"`
	VersionID   string   `json:"version,omitempty"`
	Artifact    string   `json:"artifact,omitempty"`
	Path        string   `json:"path,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Expected    string   `json:"expected,omitempty"`
	Actual      string   `json:"actual,omitempty"`
	Chain       []string `json:"chain,omitempty"`
	Err         error    `json:"-"`
}

// Sentinels for errors.Is. Matching compares codes only.
var (
	ErrDescriptorNotFound  = &Error{Code: CodeDescriptorNotFound}
	ErrDescriptorParse     = &Error{Code: CodeDescriptorParse}
	ErrCyclicInheritance   = &Error{Code: CodeCyclicInheritance}
	ErrPlanConflict        = &Error{Code: CodePlanConflict}
	ErrChecksumMismatch    = &Error{Code: CodeChecksumMismatch}
	ErrTransportFailure    = &Error{Code: CodeTransportFailure}
	ErrIncompleteDownload  = &Error{Code: CodeIncompleteDownload}
	ErrMissingSubstitution = &Error{Code: CodeMissingSubstitution}
	ErrInvalidInput        = &Error{Code: CodeInvalidInput}
	ErrNotFound            = &Error{Code: CodeNotFound}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(string(e.Code)))
	field := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, " %s=%q", k, v)
		}
	}
	field("version", e.VersionID)
	field("artifact", e.Artifact)
	field("path", e.Path)
	field("placeholder", e.Placeholder)
	field("expected", e.Expected)
	field("actual", e.Actual)
	if len(e.Chain) > 0 {
		fmt.Fprintf(&b, " chain=%s", strings.Join(e.Chain, "->"))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates an error with a code and optional cause.
func New(code Code, cause error) *Error {
	return &Error{Code: code, Err: cause}
}

// CodeOf extracts the code of err, or "" when err carries none.
func CodeOf(err error) Code {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		if c, ok := err.(interface{ Code() Code }); ok {
			return c.Code()
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
