package main

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/crunchdao/crunch-go/internal/config"
	"github.com/crunchdao/crunch-go/internal/mirror"
	"github.com/crunchdao/crunch-go/internal/progress"
	"github.com/crunchdao/crunch-go/pkg/crunchdao"
)

// runDownload fetches the dataset files into a local directory. Partial
// files are resumed; with a mirror, missing files are first restored from
// the bucket and fresh ones copied back to it.
func runDownload(args []string) int {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cf := registerCommon(fs)

	dir := fs.String("dir", "", "Directory to store the files in (default data_dir)")
	chunkSize := fs.String("chunk-size", "", "Size of each write to disk, e.g. 64KiB")
	showProgress := fs.Bool("progress", false, "Show progress output")
	mirrorURL := fs.String("mirror", "", "Bucket URL to mirror the files to, e.g. s3://bucket")
	mirrorPrefix := fs.String("mirror-prefix", "", "Object key prefix in the mirror bucket")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: crunch download [options]

Download X_train.csv, y_train.csv and X_test.csv. Interrupted downloads
resume where they stopped; complete files are not fetched again.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	override := config.Config{
		DataDir:  *dir,
		Progress: *showProgress,
		Mirror:   *mirrorURL,
	}
	if *chunkSize != "" {
		size, err := progress.ParseBytes(*chunkSize)
		if err != nil || size <= 0 {
			fmt.Fprintf(stderr, "Invalid chunk size: %s\n", *chunkSize)
			return ExitInvalidArgs
		}
		override.ChunkSize = size
	}

	cfg, err := cf.load(override)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext()
	defer cancel()

	var m *mirror.Mirror
	if cfg.Mirror != "" {
		if m, err = mirror.Open(ctx, cfg.Mirror, *mirrorPrefix); err != nil {
			return fail(err)
		}
		defer m.Close()

		for _, name := range crunchdao.DataFiles {
			restored, err := m.Pull(ctx, filepath.Join(cfg.DataDir, name))
			if err != nil {
				return fail(err)
			}
			if restored {
				fmt.Fprintf(stderr, "[crunch] Restored %s from mirror\n", name)
			}
		}
	}

	paths, err := newClient(cfg).DownloadData(ctx, cfg.DataDir)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(stderr, "[crunch] Download interrupted, run again to resume")
		}
		return fail(err)
	}

	if m != nil {
		results, err := m.PushAll(ctx, paths)
		if err != nil {
			return fail(err)
		}
		for _, r := range results {
			if !r.Skipped {
				fmt.Fprintf(stderr, "[crunch] Mirrored %s (%s)\n", r.Key, progress.FormatBytes(r.Size))
			}
		}
	}

	for _, p := range paths {
		fmt.Fprintln(stdout, p)
	}
	return ExitSuccess
}
