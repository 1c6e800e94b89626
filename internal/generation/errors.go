package generation

import (
	"errors"

	"photomotion/internal/providers/veo"
)

// Kind partitions pipeline failures for the UI-facing state machine. Only
// KindAPIKey changes routing (back to key selection); the rest surface as a
// terminal error with a message.
type Kind int

const (
	KindUnclassified Kind = iota
	KindEncoding
	KindAPIKey
	KindGeneration
	KindMissingResult
	KindDownload
)

func (k Kind) String() string {
	switch k {
	case KindEncoding:
		return "encoding_error"
	case KindAPIKey:
		return "api_key_error"
	case KindGeneration:
		return "generation_error"
	case KindMissingResult:
		return "missing_result_error"
	case KindDownload:
		return "download_error"
	default:
		return "error"
	}
}

// Error is the pipeline's terminal failure: a kind plus a human-readable
// message, optionally wrapping the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the failure kind from any error, defaulting to unclassified.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnclassified
}

// classify maps boundary errors from the Veo client onto the taxonomy. Errors
// already carrying a kind pass through untouched.
func classify(err error) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	if errors.Is(err, veo.ErrInvalidAPIKey) {
		return newError(KindAPIKey, "The API key is invalid or unauthorized.", err)
	}
	var de *veo.DownloadError
	if errors.As(err, &de) {
		return newError(KindDownload, "Video download failed: "+de.StatusText, err)
	}
	return newError(KindUnclassified, err.Error(), err)
}
