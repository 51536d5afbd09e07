// Package progress provides progress reporting for file downloads.
//
// This package outputs human-readable progress information to stderr,
// including completion percentage, transfer speed, and ETA. It is an
// optional side effect of a download; disabling it never changes what
// ends up on disk.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    Label:  "X_train.csv",
//	    Output: os.Stderr,
//	})
//
//	reporter.Start(totalBytes, bytesAlreadyOnDisk)
//	defer reporter.Stop()
//
//	reporter.Add(n)
//
// # Output Format
//
//	[crunch] Downloading data/X_train.csv (1.2 GiB)
//	[crunch] Progress: 45.2% | 560 MiB / 1.2 GiB | Speed: 24 MiB/s | ETA: 28s
//	[crunch] data/X_train.csv: 1.2 GiB in 51s | Average speed: 24 MiB/s
package progress
