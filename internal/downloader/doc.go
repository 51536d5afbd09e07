// Package downloader fetches a remote file to local disk, resuming a
// partial download when one exists.
//
// # Usage
//
//	path, err := downloader.Download(ctx, url, "data/X_train.csv", downloader.Options{
//	    Progress: progress.NewReporter(progress.Options{Label: "X_train.csv"}),
//	})
//
// # Resumption
//
// Every call starts with a plain GET whose Content-Length is compared with
// the local file, giving one of these states:
//
//   - missing: the probe body is written to a new file
//   - partial: the probe is dropped and a "Range: bytes=N-" request is appended
//   - complete: nothing is transferred
//   - inconsistent (local file larger): the file is deleted and rewritten
//   - unknown size: the file is rewritten, it is never considered complete
//
// A failed transfer leaves the partial file in place so the next call can
// resume. Nothing is retried automatically.
package downloader
