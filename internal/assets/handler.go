package assets

import (
	"net/http"
	"strings"
)

// Handler serves every embedded asset over plain HTTP, chunking the
// response body through repeated Streamer.Next calls instead of writing
// the whole asset in one Write, the same 1024-byte-at-a-time delivery the
// original CGI callback performed.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		s, err := NewStreamer(name)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		header := w.Header()
		header.Set("Content-Type", s.ContentType())
		if s.Gzipped() {
			header.Set("Content-Encoding", "gzip")
		}
		w.WriteHeader(http.StatusOK)

		for {
			chunk, done := s.Next()
			if len(chunk) > 0 {
				if _, err := w.Write(chunk); err != nil {
					return
				}
			}
			if done {
				return
			}
		}
	}
}
