package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
)

// StorageError is returned when the bucket cannot be read or written.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("mirror: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("mirror: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Result describes what happened to one file.
type Result struct {
	Key     string
	Size    int64
	Skipped bool // the object already had the same size
}

// Mirror copies dataset files to and from a bucket under a key prefix.
type Mirror struct {
	bucket *blob.Bucket
	prefix string
	owned  bool
}

// Open opens the bucket at bucketURL (file://, mem://, s3:// or gs://).
// The returned Mirror must be closed.
func Open(ctx context.Context, bucketURL, prefix string) (*Mirror, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, &StorageError{Op: "open bucket", Err: err}
	}
	m := New(bucket, prefix)
	m.owned = true
	return m, nil
}

// New wraps an already open bucket. Closing the Mirror leaves it open.
func New(bucket *blob.Bucket, prefix string) *Mirror {
	return &Mirror{bucket: bucket, prefix: prefix}
}

// Close closes the bucket if it was opened by Open.
func (m *Mirror) Close() error {
	if !m.owned {
		return nil
	}
	return m.bucket.Close()
}

// Key returns the object key used for a file name.
func (m *Mirror) Key(name string) string {
	if m.prefix == "" {
		return name
	}
	return path.Join(m.prefix, name)
}

// Push uploads the local file at p unless an object of the same size is
// already stored under its key.
func (m *Mirror) Push(ctx context.Context, p string) (Result, error) {
	key := m.Key(filepath.Base(p))
	logger := logrus.WithFields(logrus.Fields{
		"component": "mirror",
		"path":      p,
		"key":       key,
	})

	info, err := os.Stat(p)
	if err != nil {
		return Result{}, fmt.Errorf("stat %s: %w", p, err)
	}
	res := Result{Key: key, Size: info.Size()}

	attrs, err := m.bucket.Attributes(ctx, key)
	switch {
	case err == nil && attrs.Size == info.Size():
		logger.Debug("object up to date, skipped")
		res.Skipped = true
		return res, nil
	case err != nil && gcerrors.Code(err) != gcerrors.NotFound:
		return res, &StorageError{Op: "stat", Key: key, Err: err}
	}

	f, err := os.Open(p)
	if err != nil {
		return res, fmt.Errorf("open %s: %w", p, err)
	}
	defer f.Close()

	w, err := m.bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: "text/csv"})
	if err != nil {
		return res, &StorageError{Op: "create", Key: key, Err: err}
	}
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return res, &StorageError{Op: "write", Key: key, Err: err}
	}
	if err := w.Close(); err != nil {
		return res, &StorageError{Op: "write", Key: key, Err: err}
	}

	logger.WithField("bytes", info.Size()).Info("file mirrored")
	return res, nil
}

// PushAll pushes every path in order, stopping at the first error.
func (m *Mirror) PushAll(ctx context.Context, paths []string) ([]Result, error) {
	results := make([]Result, 0, len(paths))
	for _, p := range paths {
		res, err := m.Push(ctx, p)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Pull copies the object for dest's file name into dest when dest does not
// exist yet. It reports whether a copy was made; a missing object is not
// an error.
func (m *Mirror) Pull(ctx context.Context, dest string) (bool, error) {
	if _, err := os.Stat(dest); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", dest, err)
	}

	key := m.Key(filepath.Base(dest))
	r, err := m.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return false, nil
		}
		return false, &StorageError{Op: "read", Key: key, Err: err}
	}
	defer r.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return false, fmt.Errorf("create directory: %w", err)
	}
	tmp := dest + ".mirror"
	f, err := os.Create(tmp)
	if err != nil {
		return false, fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return false, &StorageError{Op: "read", Key: key, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return false, fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return false, fmt.Errorf("rename %s: %w", tmp, err)
	}

	logrus.WithFields(logrus.Fields{
		"component": "mirror",
		"path":      dest,
		"key":       key,
		"bytes":     r.Size(),
	}).Info("file restored from mirror")
	return true, nil
}
