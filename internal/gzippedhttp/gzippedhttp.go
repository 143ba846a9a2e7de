// Package gzippedhttp provides gzip handling for the HTTP API:
// responses are compressed for clients that accept gzip, and gzipped
// request bodies are transparently decompressed.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

type gzipResponseWriter struct {
	http.ResponseWriter
	zw *gzip.Writer
}

func newGzipResponseWriter(w http.ResponseWriter) *gzipResponseWriter {
	zw := gzipWriterPool.Get().(*gzip.Writer)
	zw.Reset(w)

	// Every body byte goes through zw, so the header must be set before
	// the first Write triggers the implicit WriteHeader.
	w.Header().Set("Content-Encoding", "gzip")

	return &gzipResponseWriter{
		ResponseWriter: w,
		zw:             zw,
	}
}

func (w *gzipResponseWriter) Write(p []byte) (int, error) {
	return w.zw.Write(p)
}

func (w *gzipResponseWriter) close() error {
	err := w.zw.Close()
	gzipWriterPool.Put(w.zw)

	return err
}

type gzipRequestReader struct {
	body io.ReadCloser
	zr   *gzip.Reader
}

func newGzipRequestReader(body io.ReadCloser) (*gzipRequestReader, error) {
	zr, err := gzip.NewReader(body)
	if err != nil {
		return nil, err
	}

	return &gzipRequestReader{body: body, zr: zr}, nil
}

func (r *gzipRequestReader) Read(p []byte) (int, error) {
	return r.zr.Read(p)
}

func (r *gzipRequestReader) Close() error {
	if err := r.body.Close(); err != nil {
		return err
	}

	return r.zr.Close()
}

// GzipResponse compresses response bodies for clients that send
// "Accept-Encoding: gzip".
func GzipResponse(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if !strings.Contains(request.Header.Get("Accept-Encoding"), "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		gzipped := newGzipResponseWriter(response)
		defer gzipped.close()

		h.ServeHTTP(gzipped, request)
	}

	return http.HandlerFunc(middleware)
}

// UngzipRequest decompresses gzip-encoded request bodies before passing
// the request down the chain.
func UngzipRequest(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if strings.Contains(request.Header.Get("Content-Encoding"), "gzip") {
			reader, err := newGzipRequestReader(request.Body)
			if err != nil {
				response.WriteHeader(http.StatusBadRequest)
				return
			}
			request.Body = reader
			defer reader.Close()
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
