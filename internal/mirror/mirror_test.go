package mirror

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/memblob"

	"github.com/crunchdao/crunch-go/internal/testutils"
)

func readObject(t *testing.T, bucket *blob.Bucket, key string) []byte {
	t.Helper()
	data, err := bucket.ReadAll(context.Background(), key)
	if err != nil {
		t.Fatalf("read %s: %v", key, err)
	}
	return data
}

func TestPush(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	m := New(bucket, "round-77")

	data := testutils.GenerateTestData(4096)
	p := filepath.Join(t.TempDir(), "X_train.csv")
	testutils.WriteFile(t, p, data)

	res, err := m.Push(ctx, p)
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if res.Key != "round-77/X_train.csv" || res.Size != 4096 || res.Skipped {
		t.Errorf("unexpected result: %+v", res)
	}
	if got := readObject(t, bucket, res.Key); len(got) != len(data) {
		t.Errorf("object has %d bytes, want %d", len(got), len(data))
	}

	t.Run("same size skipped", func(t *testing.T) {
		res, err := m.Push(ctx, p)
		if err != nil {
			t.Fatalf("Push() error = %v", err)
		}
		if !res.Skipped {
			t.Error("expected unchanged file to be skipped")
		}
	})

	t.Run("different size replaced", func(t *testing.T) {
		testutils.WriteFile(t, p, data[:100])
		res, err := m.Push(ctx, p)
		if err != nil {
			t.Fatalf("Push() error = %v", err)
		}
		if res.Skipped {
			t.Error("changed file was skipped")
		}
		if got := readObject(t, bucket, res.Key); len(got) != 100 {
			t.Errorf("object has %d bytes, want 100", len(got))
		}
	})
}

func TestPushMissingFile(t *testing.T) {
	m := New(memblob.OpenBucket(nil), "")
	_, err := m.Push(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want not exist", err)
	}
}

func TestPushAll(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"X_train.csv", "y_train.csv", "X_test.csv"} {
		p := filepath.Join(dir, name)
		testutils.WriteFile(t, p, []byte(name))
		paths = append(paths, p)
	}

	bucket, err := fileblob.OpenBucket(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	defer bucket.Close()
	m := New(bucket, "")

	results, err := m.PushAll(context.Background(), paths)
	if err != nil {
		t.Fatalf("PushAll() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for _, r := range results {
		if got := string(readObject(t, bucket, r.Key)); got != r.Key {
			t.Errorf("object %s = %q", r.Key, got)
		}
	}

	paths = append(paths, filepath.Join(dir, "missing.csv"))
	results, err = m.PushAll(context.Background(), paths)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if len(results) != 3 {
		t.Errorf("got %d results before the failure, want 3", len(results))
	}
}

func TestPull(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	m := New(bucket, "data")

	data := testutils.GenerateTestData(2048)
	if err := bucket.WriteAll(ctx, "data/y_train.csv", data, nil); err != nil {
		t.Fatalf("seed object: %v", err)
	}

	dir := t.TempDir()
	dest := filepath.Join(dir, "y_train.csv")

	copied, err := m.Pull(ctx, dest)
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if !copied {
		t.Fatal("expected file to be restored")
	}
	testutils.AssertFileContent(t, dest, data)
	if _, err := os.Stat(dest + ".mirror"); !errors.Is(err, os.ErrNotExist) {
		t.Error("temporary file left behind")
	}

	t.Run("existing file untouched", func(t *testing.T) {
		testutils.WriteFile(t, dest, []byte("local"))
		copied, err := m.Pull(ctx, dest)
		if err != nil || copied {
			t.Fatalf("Pull() = %v, %v; want false, nil", copied, err)
		}
		testutils.AssertFileContent(t, dest, []byte("local"))
	})

	t.Run("missing object", func(t *testing.T) {
		copied, err := m.Pull(ctx, filepath.Join(dir, "X_test.csv"))
		if err != nil || copied {
			t.Fatalf("Pull() = %v, %v; want false, nil", copied, err)
		}
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	m, err := Open(ctx, "file://"+filepath.ToSlash(dir), "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	p := filepath.Join(t.TempDir(), "X_test.csv")
	testutils.WriteFile(t, p, []byte("id\n1\n"))
	if _, err := m.Push(ctx, p); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "X_test.csv"))
	if err != nil {
		t.Fatalf("object not written to directory: %v", err)
	}
	defer f.Close()
	got, _ := io.ReadAll(f)
	if string(got) != "id\n1\n" {
		t.Errorf("object content = %q", got)
	}

	_, err = Open(ctx, "unknown://bucket", "")
	var se *StorageError
	if !errors.As(err, &se) {
		t.Errorf("error = %v, want StorageError", err)
	}
}
