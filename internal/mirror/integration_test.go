//go:build integration

package mirror

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/crunchdao/crunch-go/internal/testutils"
)

func TestMinioRoundTrip(t *testing.T) {
	ctx := context.Background()

	minio := testutils.StartMinioContainer(t, ctx, "crunch-mirror")
	defer func() {
		if err := minio.Close(ctx); err != nil {
			t.Logf("terminate minio: %v", err)
		}
	}()

	m, err := Open(ctx, minio.BucketURL, "datasets")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer m.Close()

	data := testutils.GenerateTestData(3 << 20)
	src := filepath.Join(t.TempDir(), "X_train.csv")
	testutils.WriteFile(t, src, data)

	res, err := m.Push(ctx, src)
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if res.Skipped {
		t.Fatal("first push was skipped")
	}

	res, err = m.Push(ctx, src)
	if err != nil {
		t.Fatalf("second Push() error = %v", err)
	}
	if !res.Skipped {
		t.Error("second push was not skipped")
	}

	dest := filepath.Join(t.TempDir(), "X_train.csv")
	copied, err := m.Pull(ctx, dest)
	if err != nil || !copied {
		t.Fatalf("Pull() = %v, %v", copied, err)
	}
	testutils.AssertFileContent(t, dest, data)
}
