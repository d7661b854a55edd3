package ass

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrorKind classifies every failure surfaced by this module.
type ErrorKind int

const (
	// KindInvalidURL indicates a string did not parse as an absolute URL
	KindInvalidURL ErrorKind = iota + 1

	// KindURLDoesNotMatchAccount indicates signing was attempted on a URL the
	// credential does not own
	KindURLDoesNotMatchAccount

	// KindInvalidFileName indicates a path had no usable final segment
	KindInvalidFileName

	// KindInvalidAccountFile indicates an account descriptor could not be parsed
	KindInvalidAccountFile

	// KindNotFound indicates a local file (account descriptor or upload source) does not exist
	KindNotFound

	// KindPermissionDenied indicates a local file is not readable
	KindPermissionDenied

	// KindTransport indicates the HTTP collaborator failed (network, status or header encoding)
	KindTransport

	// KindJSON indicates a response body could not be decoded
	KindJSON
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid url"
	case KindURLDoesNotMatchAccount:
		return "url does not match account"
	case KindInvalidFileName:
		return "invalid file name"
	case KindInvalidAccountFile:
		return "invalid account file"
	case KindNotFound:
		return "not found"
	case KindPermissionDenied:
		return "permission denied"
	case KindTransport:
		return "transport error"
	case KindJSON:
		return "json error"
	default:
		return fmt.Sprintf("unknown error kind %d", int(k))
	}
}

// Sentinels for errors.Is. Each matches any *Error of the same kind.
var (
	ErrInvalidURL             = &Error{Kind: KindInvalidURL}
	ErrURLDoesNotMatchAccount = &Error{Kind: KindURLDoesNotMatchAccount}
	ErrInvalidFileName        = &Error{Kind: KindInvalidFileName}
	ErrInvalidAccountFile     = &Error{Kind: KindInvalidAccountFile}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrPermissionDenied       = &Error{Kind: KindPermissionDenied}
	ErrTransport              = &Error{Kind: KindTransport}
	ErrJSON                   = &Error{Kind: KindJSON}
)

// Signature verification errors
var (
	// ErrMissingSignature is returned when a URL carries no accessToken parameter
	ErrMissingSignature = errors.New("ass: missing accessToken parameter")

	// ErrInvalidSignature is returned when the accessToken does not match the URL
	ErrInvalidSignature = errors.New("ass: invalid accessToken")
)

// Error is the single error shape returned by this module.
// Subject holds the offending URL or file path when there is one.
type Error struct {
	Kind    ErrorKind
	Subject string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Subject != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Subject)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Subject != "" || t.Err != nil {
		return t == e
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind ErrorKind, subject string, err error) *Error {
	return &Error{Kind: kind, Subject: subject, Err: err}
}

// InvalidURL wraps a URL parse failure of s.
func InvalidURL(s string, err error) error {
	return newError(KindInvalidURL, s, err)
}

// URLDoesNotMatchAccount reports that url is not owned by the signing credential.
func URLDoesNotMatchAccount(url string) error {
	return newError(KindURLDoesNotMatchAccount, url, nil)
}

// InvalidFileName reports that no file name could be extracted from path.
func InvalidFileName(path string, err error) error {
	return newError(KindInvalidFileName, path, err)
}

// InvalidAccountFile reports that the descriptor at path could not be parsed.
func InvalidAccountFile(path string, err error) error {
	return newError(KindInvalidAccountFile, path, err)
}

// Transport wraps a failure reported by the HTTP collaborator.
func Transport(subject string, err error) error {
	return newError(KindTransport, subject, err)
}

// JSON wraps a response decoding failure.
func JSON(err error) error {
	return newError(KindJSON, "", err)
}

// FileAccess classifies a failure to open or read a local file at path.
func FileAccess(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return newError(KindNotFound, path, err)
	case errors.Is(err, fs.ErrPermission):
		return newError(KindPermissionDenied, path, err)
	default:
		return newError(KindTransport, path, err)
	}
}
