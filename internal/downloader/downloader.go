package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	crunchhttp "github.com/crunchdao/crunch-go/internal/http"
)

// DefaultChunkSize is the size of each write to disk.
const DefaultChunkSize = 32 * 1024

// Progress receives byte counts while a file is streamed to disk.
// A nil Progress disables reporting.
type Progress interface {
	// Start is called once before streaming; total is -1 when unknown and
	// resumed is the number of bytes already on disk.
	Start(total, resumed int64)
	// Add is called after each chunk is written.
	Add(n int64)
	// Stop is called when streaming ends, successfully or not.
	Stop()
}

// Options configures the downloader.
type Options struct {
	// Client is the transport. Default: a client with DefaultOptions.
	Client *crunchhttp.Client

	// ChunkSize is the size of each write to disk.
	// Default: 32KiB
	ChunkSize int

	// Progress is an optional progress reporter.
	Progress Progress
}

// State is the relation between the local file and the remote resource,
// decided once per download from the fresh response header.
type State int

const (
	// StateMissing means there is no local file.
	StateMissing State = iota
	// StatePartial means the local file is a prefix of the remote one.
	StatePartial
	// StateComplete means the local file has the remote size.
	StateComplete
	// StateInconsistent means the local file is larger than the remote one.
	StateInconsistent
	// StateUnknownSize means the server did not report a size, so an
	// existing file cannot be trusted.
	StateUnknownSize
)

func (s State) String() string {
	switch s {
	case StateMissing:
		return "missing"
	case StatePartial:
		return "partial"
	case StateComplete:
		return "complete"
	case StateInconsistent:
		return "inconsistent"
	case StateUnknownSize:
		return "unknown-size"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// InconsistentStateError describes a local file larger than the size the
// server reports. Download recovers from it by starting over; it is only
// logged.
type InconsistentStateError struct {
	Path       string
	LocalSize  int64
	RemoteSize int64
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("downloader: %s has %d bytes but remote has %d", e.Path, e.LocalSize, e.RemoteSize)
}

// Inspect decides the state of dest against the expected remote size
// (-1 for unknown). It returns the local size.
func Inspect(dest string, expected int64) (State, int64, error) {
	fi, err := os.Stat(dest)
	if errors.Is(err, os.ErrNotExist) {
		return StateMissing, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("stat %s: %w", dest, err)
	}
	if fi.IsDir() {
		return 0, 0, fmt.Errorf("stat %s: is a directory", dest)
	}

	size := fi.Size()
	switch {
	case expected < 0:
		return StateUnknownSize, size, nil
	case size < expected:
		return StatePartial, size, nil
	case size == expected:
		return StateComplete, size, nil
	default:
		return StateInconsistent, size, nil
	}
}

// Download fetches url into dest, resuming a partial file when one exists.
// It returns dest whether the file was fetched, resumed or already complete.
//
// The partially written file is left on disk on failure so that a later
// call can resume. Download never retries. Concurrent calls for the same
// dest are not safe.
func Download(ctx context.Context, url, dest string, opts Options) (string, error) {
	if opts.Client == nil {
		opts.Client = crunchhttp.NewClient(crunchhttp.DefaultOptions())
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}

	logger := logrus.WithFields(logrus.Fields{
		"component": "downloader",
		"url":       url,
		"path":      dest,
	})

	probe, err := opts.Client.Get(ctx, url, 0)
	if err != nil {
		return "", err
	}
	expected := probe.ContentLength

	state, local, err := Inspect(dest, expected)
	if err != nil {
		probe.Body.Close()
		return "", err
	}
	logger = logger.WithFields(logrus.Fields{
		"state":       state.String(),
		"local_bytes": local,
		"remote_size": expected,
	})

	body := probe
	flag := os.O_CREATE | os.O_WRONLY | os.O_APPEND

	switch state {
	case StateComplete:
		probe.Body.Close()
		logger.Info("download complete")
		return dest, nil

	case StatePartial:
		probe.Body.Close()
		logger.Info("resuming download")
		body, err = opts.Client.Get(ctx, url, local)
		if err != nil {
			return "", err
		}
		switch {
		case body.StatusCode == http.StatusOK:
			// Range ignored: the body starts at byte 0.
			logger.Warn("server ignored range request, restarting")
			flag = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
			local = 0
		case body.Offset != local:
			body.Body.Close()
			return "", &crunchhttp.TransportError{
				Method:     http.MethodGet,
				URL:        url,
				StatusCode: body.StatusCode,
				Err:        fmt.Errorf("range starts at %d, want %d", body.Offset, local),
			}
		}

	case StateInconsistent:
		logger.WithError(&InconsistentStateError{Path: dest, LocalSize: local, RemoteSize: expected}).
			Warn("deleting file and restarting")
		if err := os.Remove(dest); err != nil {
			probe.Body.Close()
			return "", fmt.Errorf("remove %s: %w", dest, err)
		}
		local = 0

	case StateUnknownSize:
		logger.Warn("remote size unknown, restarting")
		flag = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		local = 0

	default:
		logger.Info("starting download")
	}
	defer body.Body.Close()

	f, err := os.OpenFile(dest, flag, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", dest, err)
	}

	if opts.Progress != nil {
		opts.Progress.Start(expected, local)
		defer opts.Progress.Stop()
	}

	n, copyErr := copyChunks(f, body.Body, opts.ChunkSize, opts.Progress)
	closeErr := f.Close()

	if copyErr != nil {
		logger.WithError(copyErr.err).WithField("written", n).Error("download interrupted")
		return "", copyErr.wrap(url)
	}
	if closeErr != nil {
		return "", fmt.Errorf("close %s: %w", dest, closeErr)
	}

	if expected >= 0 && local+n != expected {
		logger.WithField("written", n).Error("download incomplete")
		return "", &crunchhttp.TransportError{
			Method: http.MethodGet,
			URL:    url,
			Err:    fmt.Errorf("got %d of %d bytes: %w", local+n, expected, io.ErrUnexpectedEOF),
		}
	}

	logger.WithField("written", n).Info("download finished")
	return dest, nil
}

// copyError tells a failed read from the network apart from a failed write
// to disk.
type copyError struct {
	read bool
	err  error
}

func (e *copyError) wrap(url string) error {
	if e.read {
		return &crunchhttp.TransportError{Method: http.MethodGet, URL: url, Err: e.err}
	}
	return fmt.Errorf("write: %w", e.err)
}

// copyChunks streams src into dst chunk by chunk, reporting each write.
func copyChunks(dst io.Writer, src io.Reader, chunkSize int, p Progress) (int64, *copyError) {
	buf := make([]byte, chunkSize)
	var written int64

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			nw, writeErr := dst.Write(buf[:n])
			written += int64(nw)
			if p != nil {
				p.Add(int64(nw))
			}
			if writeErr != nil {
				return written, &copyError{err: writeErr}
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, &copyError{read: true, err: readErr}
		}
	}
}
