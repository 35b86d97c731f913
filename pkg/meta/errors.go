package meta

import "fmt"

// FUSE errno mapping (reference only — no FUSE adapter ships in this repo):
//
//	OK                -> 0
//	NotFound          -> ENOENT
//	Exist             -> EEXIST
//	PermissionDenied  -> EACCES
//	IsDirectory       -> EISDIR
//	NotDirectory      -> ENOTDIR
//	NotEmpty          -> ENOTEMPTY
//	InvalidArgument   -> EINVAL
//	IOError           -> EIO
//	NoSpace           -> ENOSPC
//	Cancelled         -> EINTR
//
// S3 mapping lives alongside pkg/s3http, which is the component that
// actually produces these codes (NotFound -> NoSuchKey/NoSuchBucket by
// context, Exist -> BucketAlreadyExists, InvalidArgument -> 400
// InvalidArgument, IOError -> 500 InternalError, NotEmpty ->
// BucketNotEmpty).

// Kind is a stable error classification (spec §7) — not a type name. Kinds
// are what cross the FUSE/S3 boundary; message text is for humans only.
type Kind int

const (
	OK Kind = iota
	NotFound
	Exist
	PermissionDenied
	IsDirectory
	NotDirectory
	NotEmpty
	InvalidArgument
	IOError
	NoSpace
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "OK"
	case NotFound:
		return "NotFound"
	case Exist:
		return "Exist"
	case PermissionDenied:
		return "PermissionDenied"
	case IsDirectory:
		return "IsDirectory"
	case NotDirectory:
		return "NotDirectory"
	case NotEmpty:
		return "NotEmpty"
	case InvalidArgument:
		return "InvalidArgument"
	case IOError:
		return "IOError"
	case NoSpace:
		return "NoSpace"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Error is the typed error carried across every metadata operation.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Msg) }

func newErr(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// NewError builds a typed *Error of the given kind, for callers outside
// this package (e.g. pkg/namespace, pkg/s3meta) that need to raise the
// same error taxonomy.
func NewError(k Kind, format string, args ...any) *Error {
	return newErr(k, format, args...)
}

// NewInvalidArgument is shorthand for NewError(InvalidArgument, ...).
func NewInvalidArgument(format string, args ...any) *Error {
	return newErr(InvalidArgument, format, args...)
}

// KindOf extracts the Kind from err, or OK if err is nil, or IOError if err
// is some other, unclassified error (e.g. a KV-layer failure that was not
// itself wrapped as a *Error).
func KindOf(err error) Kind {
	if err == nil {
		return OK
	}
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return IOError
}
