package gzippedhttp

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGzipResponse(t *testing.T) {
	handler := GzipResponse(http.HandlerFunc(func(res http.ResponseWriter, _ *http.Request) {
		res.Write([]byte("payload that should be compressed"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	assert.Equal(t, "gzip", recorder.Header().Get("Content-Encoding"))

	reader, err := gzip.NewReader(recorder.Body)
	require.NoError(t, err)
	decompressed, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "payload that should be compressed", string(decompressed))
}

func TestGzipResponseWithExplicitStatus(t *testing.T) {
	handler := GzipResponse(http.HandlerFunc(func(res http.ResponseWriter, _ *http.Request) {
		res.WriteHeader(http.StatusCreated)
		res.Write([]byte("created"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, "gzip", recorder.Header().Get("Content-Encoding"))

	reader, err := gzip.NewReader(recorder.Body)
	require.NoError(t, err)
	decompressed, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "created", string(decompressed))
}

func TestGzipResponseSkippedWithoutAcceptEncoding(t *testing.T) {
	handler := GzipResponse(http.HandlerFunc(func(res http.ResponseWriter, _ *http.Request) {
		res.Write([]byte("plain payload"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	assert.Empty(t, recorder.Header().Get("Content-Encoding"))
	assert.Equal(t, "plain payload", recorder.Body.String())
}

func TestUngzipRequest(t *testing.T) {
	var received []byte
	handler := UngzipRequest(http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		var err error
		received, err = io.ReadAll(req.Body)
		require.NoError(t, err)
	}))

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	_, err := gzipWriter.Write([]byte(`{"url":"https://example.com"}`))
	require.NoError(t, err)
	require.NoError(t, gzipWriter.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Encoding", "gzip")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	assert.Equal(t, `{"url":"https://example.com"}`, string(received))
}

func TestUngzipRequestRejectsGarbage(t *testing.T) {
	handler := UngzipRequest(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not gzip at all"))
	req.Header.Set("Content-Encoding", "gzip")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
