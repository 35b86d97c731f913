package s3http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/nimbusstore/nimbusstore/pkg/chunkstore/localfs"
	"github.com/nimbusstore/nimbusstore/pkg/codec"
	"github.com/nimbusstore/nimbusstore/pkg/kv"
	"github.com/nimbusstore/nimbusstore/pkg/meta"
	"github.com/nimbusstore/nimbusstore/pkg/namespace"
	"github.com/nimbusstore/nimbusstore/pkg/s3meta"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := kv.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	part := meta.NewPartition(1, 1_000_000, store)
	require.NoError(t, part.CreateInode(codec.RootInode, codec.ModeDir|0755, 0, 0))
	svc := meta.NewService([]*meta.Partition{part})

	chunks, err := localfs.Open(t.TempDir())
	require.NoError(t, err)

	pipeline := namespace.NewPipeline(svc, chunks)
	converter := namespace.NewPathConverter("default")

	return NewServer(s3meta.New(store), svc, pipeline, converter, "test-owner")
}

func TestBucketCreateListHeadDelete(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/photos", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodHead, "/photos", nil)
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "<Name>photos</Name>")

	req = httptest.NewRequest(http.MethodDelete, "/photos", nil)
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodHead, "/photos", nil)
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestBucketCreateDuplicateConflicts(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/photos", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/photos", nil)
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "BucketAlreadyExists")
}

func TestObjectPutGetHeadDelete(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/photos", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body := []byte("hello nimbusstore")
	req = httptest.NewRequest(http.MethodPut, "/photos/cat.png", bytes.NewReader(body))
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("x-amz-meta-owner", "alice")
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get("ETag"))

	req = httptest.NewRequest(http.MethodGet, "/photos/cat.png", nil)
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, body, w.Body.Bytes())
	require.Equal(t, "image/png", w.Header().Get("Content-Type"))
	require.Equal(t, "alice", w.Header().Get("x-amz-meta-owner"))

	req = httptest.NewRequest(http.MethodHead, "/photos/cat.png", nil)
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/photos/cat.png", nil)
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/photos/cat.png", nil)
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestObjectOverwriteWithShorterBodyTruncatesLayout(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/photos", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	long := bytes.Repeat([]byte("x"), 100)
	req = httptest.NewRequest(http.MethodPut, "/photos/cat.png", bytes.NewReader(long))
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	short := []byte("hi")
	req = httptest.NewRequest(http.MethodPut, "/photos/cat.png", bytes.NewReader(short))
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/photos/cat.png", nil)
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, short, w.Body.Bytes())
	require.Equal(t, strconv.Itoa(len(short)), w.Header().Get("Content-Length"))

	part := s.svc.Partitions()[0]
	violations, err := part.Fsck()
	require.NoError(t, err)
	require.Empty(t, violations)
}

func TestDeleteNonEmptyBucketConflicts(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/photos", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/photos/a.txt", bytes.NewReader([]byte("x")))
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/photos", nil)
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "BucketNotEmpty")
}

func TestListObjectsV1AndV2(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/photos", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	for _, key := range []string{"a.txt", "b.txt", "c.txt"} {
		req = httptest.NewRequest(http.MethodPut, "/photos/"+key, bytes.NewReader([]byte("x")))
		w = httptest.NewRecorder()
		s.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/photos", nil)
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "a.txt")
	require.Contains(t, w.Body.String(), "c.txt")

	req = httptest.NewRequest(http.MethodGet, "/photos?list-type=2&max-keys=2", nil)
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "<IsTruncated>true</IsTruncated>")
}
