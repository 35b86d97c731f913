package s3http

import (
	"net/http"

	"github.com/nimbusstore/nimbusstore/pkg/meta"
)

// s3Error carries the HTTP status and XML error code spec.md §6's error
// table names. context disambiguates the kinds meta.Kind alone cannot
// (NotFound is NoSuchBucket or NoSuchKey depending on what was being
// looked up; Exist is BucketAlreadyExists only for bucket operations).
type s3Error struct {
	status  int
	code    string
	message string
}

func errorFor(kind meta.Kind, isBucket bool, msg string) s3Error {
	switch kind {
	case meta.NotFound:
		if isBucket {
			return s3Error{http.StatusNotFound, "NoSuchBucket", msg}
		}
		return s3Error{http.StatusNotFound, "NoSuchKey", msg}
	case meta.Exist:
		if isBucket {
			return s3Error{http.StatusConflict, "BucketAlreadyExists", msg}
		}
		return s3Error{http.StatusConflict, "InvalidArgument", msg}
	case meta.NotEmpty:
		return s3Error{http.StatusConflict, "BucketNotEmpty", msg}
	case meta.InvalidArgument:
		return s3Error{http.StatusBadRequest, "InvalidArgument", msg}
	case meta.PermissionDenied:
		return s3Error{http.StatusForbidden, "AccessDenied", msg}
	case meta.IsDirectory, meta.NotDirectory, meta.IOError, meta.NoSpace, meta.Cancelled:
		return s3Error{http.StatusInternalServerError, "InternalError", msg}
	default:
		return s3Error{http.StatusInternalServerError, "InternalError", msg}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, e s3Error) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(e.status)
	body := errorResponse{
		Code:      e.code,
		Message:   e.message,
		Resource:  r.URL.Path,
		RequestID: w.Header().Get("x-amz-request-id"),
	}
	_, _ = w.Write([]byte(xmlHeader))
	_ = writeXML(w, body)
}

func writeKindError(w http.ResponseWriter, r *http.Request, err error, isBucket bool) {
	kind := meta.KindOf(err)
	writeError(w, r, errorFor(kind, isBucket, err.Error()))
}

func writeNotImplemented(w http.ResponseWriter, r *http.Request, what string) {
	writeError(w, r, s3Error{http.StatusNotImplemented, "NotImplemented", what + " is not supported"})
}
