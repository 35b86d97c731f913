package s3http

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/nimbusstore/nimbusstore/pkg/codec"
	"github.com/nimbusstore/nimbusstore/pkg/log"
	"github.com/nimbusstore/nimbusstore/pkg/meta"
	"github.com/nimbusstore/nimbusstore/pkg/namespace"
	"github.com/nimbusstore/nimbusstore/pkg/s3meta"
	"github.com/rs/zerolog"
)

// Server translates the S3 HTTP subset in spec.md §6 into pkg/s3meta and
// pkg/namespace calls. Object bytes are stored through the namespace
// pipeline under the POSIX path the PathConverter assigns to
// s3://<bucket>/<key>, which is "/<key>" (the bucket name is not part of
// it); pkg/s3meta carries the S3-facing
// listing/stat record (ETag, Content-Type, user metadata) alongside it.
type Server struct {
	s3meta    *s3meta.Store
	svc       *meta.Service
	pipeline  *namespace.Pipeline
	converter *namespace.PathConverter
	owner     string
	mux       *http.ServeMux
	log       zerolog.Logger
}

// NewServer wires the S3 metadata sub-store, the metadata service, and the
// namespace read/write pipeline behind the HTTP subset spec.md §6 names.
func NewServer(store *s3meta.Store, svc *meta.Service, pipeline *namespace.Pipeline, converter *namespace.PathConverter, owner string) *Server {
	s := &Server{
		s3meta:    store,
		svc:       svc,
		pipeline:  pipeline,
		converter: converter,
		owner:     owner,
		log:       log.WithComponent("s3http"),
	}
	s.mux = http.NewServeMux()
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("x-amz-request-id", requestID)
	s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Str("request_id", requestID).Msg("s3 request")
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleListBuckets)
	s.mux.HandleFunc("PUT /{bucket}", s.handlePutBucket)
	s.mux.HandleFunc("DELETE /{bucket}", s.handleDeleteBucket)
	s.mux.HandleFunc("HEAD /{bucket}", s.handleHeadBucket)
	s.mux.HandleFunc("GET /{bucket}", s.handleListObjects)
	s.mux.HandleFunc("PUT /{bucket}/{key...}", s.handlePutObject)
	s.mux.HandleFunc("GET /{bucket}/{key...}", s.handleGetObject)
	s.mux.HandleFunc("DELETE /{bucket}/{key...}", s.handleDeleteObject)
	s.mux.HandleFunc("HEAD /{bucket}/{key...}", s.handleHeadObject)
}

// ensureObjectPath creates the bucket's root directory and every
// intermediate directory on the object's path implied by key's slashes, so
// the namespace
// pipeline's Write (which requires an existing file inode, spec §4.6) has
// somewhere to resolve. Existing directories/files are left untouched.
// Returns the POSIX path the converter assigns to s3://bucket/key.
func (s *Server) ensureObjectPath(bucket, key string) (string, error) {
	parsed, err := s.converter.Parse("s3://" + bucket + "/" + key)
	if err != nil {
		return "", err
	}
	objPath := parsed.PosixPath
	bucketPath := "/" + bucket
	if _, err := s.svc.LookupPath(bucketPath); meta.KindOf(err) == meta.NotFound {
		if _, err := s.svc.Mkdir(bucketPath, codec.ModeDir|0755, 0, 0); err != nil && meta.KindOf(err) != meta.Exist {
			return "", err
		}
	}

	dir := ""
	parts := strings.Split(key, "/")
	for _, part := range parts[:len(parts)-1] {
		if part == "" {
			continue
		}
		dir = dir + "/" + part
		if _, err := s.svc.LookupPath(dir); meta.KindOf(err) == meta.NotFound {
			if _, err := s.svc.Mkdir(dir, codec.ModeDir|0755, 0, 0); err != nil && meta.KindOf(err) != meta.Exist {
				return "", err
			}
		}
	}

	if _, err := s.svc.LookupPath(objPath); meta.KindOf(err) == meta.NotFound {
		if _, err := s.svc.Create(objPath, codec.ModeRegular|0644, 0, 0); err != nil && meta.KindOf(err) != meta.Exist {
			return "", err
		}
	}
	return objPath, nil
}

