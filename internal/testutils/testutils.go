// Package testutils provides shared test infrastructure.
package testutils

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// TestFile defines a test file with size and data.
type TestFile struct {
	Name string
	Data []byte
}

// GenerateTestData generates deterministic test data of the given size.
func GenerateTestData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

// FileServer serves test files over HTTP with range request support and
// records what it was asked for.
type FileServer struct {
	*httptest.Server

	// HideLength makes the server stream bodies without Content-Length.
	HideLength atomic.Bool
	// IgnoreRange makes the server answer range requests with the full body.
	IgnoreRange atomic.Bool
	// FailAfter truncates every body after this many bytes when positive.
	FailAfter atomic.Int64

	requests      atomic.Int32
	rangeRequests atomic.Int32

	mu     sync.Mutex
	files  map[string][]byte
	ranges []string
}

// StartFileServer starts a FileServer serving files.
func StartFileServer(t *testing.T, files ...TestFile) *FileServer {
	t.Helper()

	fs := &FileServer{files: make(map[string][]byte)}
	for _, f := range files {
		fs.files["/"+f.Name] = f.Data
	}
	fs.Server = httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(fs.Close)
	return fs
}

// FileURL returns the URL of the named file.
func (fs *FileServer) FileURL(name string) string {
	return fs.Server.URL + "/" + name
}

// SetFile replaces the content served for name.
func (fs *FileServer) SetFile(name string, data []byte) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files["/"+name] = data
}

// Requests returns the number of requests served.
func (fs *FileServer) Requests() int { return int(fs.requests.Load()) }

// RangeRequests returns the number of requests carrying a Range header.
func (fs *FileServer) RangeRequests() int { return int(fs.rangeRequests.Load()) }

// Ranges returns the Range headers received, in order.
func (fs *FileServer) Ranges() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.ranges...)
}

func (fs *FileServer) serve(w http.ResponseWriter, r *http.Request) {
	fs.requests.Add(1)

	fs.mu.Lock()
	data, ok := fs.files[r.URL.Path]
	rangeHeader := r.Header.Get("Range")
	if rangeHeader != "" {
		fs.ranges = append(fs.ranges, rangeHeader)
	}
	fs.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if rangeHeader != "" {
		fs.rangeRequests.Add(1)
	}

	size := int64(len(data))
	start := int64(0)
	status := http.StatusOK

	if rangeHeader != "" && !fs.IgnoreRange.Load() {
		// Only open-ended ranges are used: bytes=start-
		spec := strings.TrimSuffix(strings.TrimPrefix(rangeHeader, "bytes="), "-")
		n, err := strconv.ParseInt(spec, 10, 64)
		if err != nil || n >= size {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		start = n
		status = http.StatusPartialContent
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, size-1, size))
	}

	body := data[start:]
	if !fs.HideLength.Load() {
		w.Header().Set("Content-Length", strconv.FormatInt(int64(len(body)), 10))
	}
	w.Header().Set("Accept-Ranges", "bytes")
	w.WriteHeader(status)

	if limit := fs.FailAfter.Load(); limit > 0 && int64(len(body)) > limit {
		w.Write(body[:limit])
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		// Abort the connection so the client sees a truncated body.
		panic(http.ErrAbortHandler)
	}
	if fs.HideLength.Load() {
		w.Write(body)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		return
	}
	w.Write(body)
}

// WriteFile creates a file with the given content, failing the test on error.
func WriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// AssertFileContent fails the test unless path holds exactly expected.
func AssertFileContent(t *testing.T, path string, expected []byte) {
	t.Helper()

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if len(got) != len(expected) {
		t.Fatalf("size mismatch: got %d, want %d", len(got), len(expected))
	}
	if !bytes.Equal(got, expected) {
		for i := range got {
			if got[i] != expected[i] {
				t.Fatalf("data mismatch at byte %d: got %d, want %d", i, got[i], expected[i])
			}
		}
	}
}
