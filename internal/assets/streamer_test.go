package assets

import (
	"bytes"
	"testing"
)

func TestStreamerDetectsGzipMagic(t *testing.T) {
	s, err := NewStreamer("favicon.ico")
	if err != nil {
		t.Fatalf("NewStreamer failed: %v", err)
	}
	if !s.Gzipped() {
		t.Error("expected favicon.ico to be detected as gzip-encoded")
	}
	if s.ContentType() != "image/x-icon" {
		t.Errorf("unexpected content type: %s", s.ContentType())
	}
}

func TestStreamerChunkingReassemblesSource(t *testing.T) {
	s, err := NewStreamer("index.html")
	if err != nil {
		t.Fatalf("NewStreamer failed: %v", err)
	}

	var out bytes.Buffer
	for {
		chunk, done := s.Next()
		out.Write(chunk)
		if done {
			break
		}
	}

	raw, err := www.ReadFile("www/index.html")
	if err != nil {
		t.Fatalf("failed to read source asset directly: %v", err)
	}
	if !bytes.Equal(out.Bytes(), raw) {
		t.Error("chunked reassembly did not match the source asset")
	}
}

func TestStreamerNextAfterDoneReturnsNil(t *testing.T) {
	s, err := NewStreamer("manifest.json")
	if err != nil {
		t.Fatalf("NewStreamer failed: %v", err)
	}
	for {
		_, done := s.Next()
		if done {
			break
		}
	}
	chunk, done := s.Next()
	if chunk != nil || !done {
		t.Errorf("expected (nil, true) after exhaustion, got (%v, %v)", chunk, done)
	}
}

func TestStreamerRootPathServesIndex(t *testing.T) {
	s, err := NewStreamer("")
	if err != nil {
		t.Fatalf("NewStreamer(\"\") failed: %v", err)
	}
	if s.ContentType() != "text/html; charset=utf-8" {
		t.Errorf("unexpected content type for root path: %s", s.ContentType())
	}
}

func TestStreamerUnknownAssetIsNotFound(t *testing.T) {
	if _, err := NewStreamer("does-not-exist.bin"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStreamerContentTypeBySuffix(t *testing.T) {
	cases := map[string]string{
		"index.html":    "text/html; charset=utf-8",
		"manifest.json": "application/json",
		"script.js":     "application/javascript",
		"favicon.ico":   "image/x-icon",
	}
	for name, want := range cases {
		s, err := NewStreamer(name)
		if err != nil {
			t.Fatalf("NewStreamer(%s) failed: %v", name, err)
		}
		if s.ContentType() != want {
			t.Errorf("%s: content type = %s, want %s", name, s.ContentType(), want)
		}
	}
}
