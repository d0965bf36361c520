// Package assets serves the firmware's embedded web UI (the same
// index.html/manifest.json/favicon.ico/script.js a browser would load to
// talk to the remote link) in fixed-size chunks, the way the original
// served them from linker-provided _binary_..._start/_end symbol pairs.
// embed.FS replaces those linker symbols: files are compiled into the
// binary and addressed by name instead of by pointer pair.
package assets

import (
	"bytes"
	"embed"
	"errors"
	"path"
)

//go:embed www
var www embed.FS

const chunkSize = 1024

var gzipMagic = []byte{0x1f, 0x8b, 0x08}

// ErrNotFound is returned for a path with no matching embedded asset, or
// with a degenerate (zero-length) range: the original's HTTPD_CGI_NOTFOUND
// on a null or inverted start/end pointer.
var ErrNotFound = errors.New("assets: not found")

// Streamer serves one embedded asset across repeated Next calls, each
// returning up to chunkSize bytes, until the whole asset has been sent. It
// mirrors the original's re-entrant "call until DONE" CGI handler, so
// callers (see Handler) drive it the same way regardless of asset size.
type Streamer struct {
	data        []byte
	contentType string
	gzipped     bool
	offset      int
}

// NewStreamer opens the embedded asset behind name (the HTTP path with its
// leading slash stripped, "" or "index.html" for the root document) and
// detects its content type and gzip encoding up front.
func NewStreamer(name string) (*Streamer, error) {
	if name == "" || name == "/" {
		name = "index.html"
	}
	name = path.Clean("/" + name)[1:]

	data, err := www.ReadFile(path.Join("www", name))
	if err != nil {
		return nil, ErrNotFound
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}

	return &Streamer{
		data:        data,
		contentType: contentTypeFor(name),
		gzipped:     len(data) >= len(gzipMagic) && bytes.Equal(data[:len(gzipMagic)], gzipMagic),
	}, nil
}

// ContentType returns the MIME type to send in the response header,
// inferred from the URL suffix.
func (s *Streamer) ContentType() string { return s.contentType }

// Gzipped reports whether the asset's bytes are themselves a gzip stream,
// detected from the leading magic number rather than trusted from the
// filename.
func (s *Streamer) Gzipped() bool { return s.gzipped }

// Next returns the next chunk (at most chunkSize bytes) and whether the
// asset has been fully delivered. Calling Next after done is true returns
// a nil, true result.
func (s *Streamer) Next() (chunk []byte, done bool) {
	if s.offset >= len(s.data) {
		return nil, true
	}
	end := s.offset + chunkSize
	if end >= len(s.data) {
		end = len(s.data)
	}
	chunk = s.data[s.offset:end]
	s.offset = end
	return chunk, s.offset >= len(s.data)
}

func contentTypeFor(name string) string {
	switch path.Ext(name) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".json":
		return "application/json"
	case ".ico":
		return "image/x-icon"
	case ".js":
		return "application/javascript"
	default:
		return "application/octet-stream"
	}
}
