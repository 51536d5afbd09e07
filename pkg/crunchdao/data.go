package crunchdao

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/crunchdao/crunch-go/internal/downloader"
)

// DataFiles are the dataset files of the tournament, in download order.
var DataFiles = []string{"X_train.csv", "y_train.csv", "X_test.csv"}

// DownloadData downloads the training data, targets and test data into dir
// and returns their paths. Partially downloaded files are resumed and
// complete ones are left untouched.
func (c *Client) DownloadData(ctx context.Context, dir string) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	paths := make([]string, 0, len(DataFiles))
	for _, name := range DataFiles {
		fileURL, err := url.JoinPath(c.opts.DataURL, name)
		if err != nil {
			return paths, fmt.Errorf("crunchdao: build url: %w", err)
		}

		opts := downloader.Options{
			Client:    c.opts.HTTP,
			ChunkSize: c.opts.ChunkSize,
		}
		if c.opts.Progress != nil {
			opts.Progress = c.opts.Progress(name)
		}

		path, err := downloader.Download(ctx, fileURL, filepath.Join(dir, name), opts)
		if err != nil {
			return paths, fmt.Errorf("download %s: %w", name, err)
		}
		logrus.WithFields(logrus.Fields{
			"component": "crunchdao",
			"file":      name,
			"path":      path,
		}).Debug("dataset file ready")
		paths = append(paths, path)
	}
	return paths, nil
}
