// Package errs provides the structured error taxonomy shared by every
// layer of the LGX core: path sanitization, tar encode/decode, gzip
// framing, manifest parsing, and package-level invariant checks.
package errs

import "fmt"

// Kind classifies an Error into one of the taxonomy buckets from the
// LGX error design.
type Kind int

const (
	// InvalidPath is returned by the path sanitizer: absolute paths,
	// traversal, backslashes, non-NFC input, or an empty path.
	InvalidPath Kind = iota

	// InvalidArchive is returned for tar-level failures: bad checksum,
	// truncated data, an unrepresentable field, or a path too long for
	// USTAR.
	InvalidArchive

	// InvalidCompression is returned for gzip-level failures: a missing
	// magic header or a deflate/inflate error.
	InvalidCompression

	// InvalidManifest is returned for manifest JSON parse errors,
	// missing or mistyped fields, an unsupported version, or an
	// intrinsic validation violation.
	InvalidManifest

	// InvariantViolation is returned by the verifier for cross-consistency
	// failures between the manifest's main mapping and the archive tree.
	InvariantViolation

	// IO is returned for file-not-found, permission, and short
	// read/write failures.
	IO

	// Usage is returned for caller contract violations, such as
	// omitting --main for a directory variant source.
	Usage
)

func (k Kind) String() string {
	switch k {
	case InvalidPath:
		return "InvalidPath"
	case InvalidArchive:
		return "InvalidArchive"
	case InvalidCompression:
		return "InvalidCompression"
	case InvalidManifest:
		return "InvalidManifest"
	case InvariantViolation:
		return "InvariantViolation"
	case IO:
		return "IoError"
	case Usage:
		return "UsageError"
	default:
		return "Unknown"
	}
}

// Error is a taxonomy-tagged error. It wraps an optional underlying cause
// and supports errors.Is against the package's Kind sentinels and
// errors.As to recover the Kind and message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel for the same Kind, so callers
// can write errors.Is(err, errs.ErrInvalidPath) without caring about the
// message or wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Sentinels for errors.Is checks against a Kind alone.
var (
	ErrInvalidPath        = &Error{Kind: InvalidPath}
	ErrInvalidArchive     = &Error{Kind: InvalidArchive}
	ErrInvalidCompression = &Error{Kind: InvalidCompression}
	ErrInvalidManifest    = &Error{Kind: InvalidManifest}
	ErrInvariantViolation = &Error{Kind: InvariantViolation}
	ErrIO                 = &Error{Kind: IO}
	ErrUsage              = &Error{Kind: Usage}
)
