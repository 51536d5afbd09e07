package main

import (
	"flag"
	"fmt"

	"github.com/crunchdao/crunch-go/internal/config"
)

// runSubmit uploads a predictions file.
func runSubmit(args []string) int {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cf := registerCommon(fs)

	file := fs.String("file", "", "Predictions CSV file (required)")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: crunch submit -file predictions.csv [options]

Upload predictions for the current round. Requires an API key.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	if *file == "" && fs.NArg() == 1 {
		*file = fs.Arg(0)
	}
	if *file == "" {
		fmt.Fprintln(stderr, "Error: -file is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	cfg, err := cf.load(config.Config{})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext()
	defer cancel()

	sub, err := newClient(cfg).UploadFile(ctx, *file)
	if err != nil {
		return fail(err)
	}

	if n, ok := sub.Int("crunch_number"); ok {
		fmt.Fprintf(stderr, "[crunch] Submission accepted: crunch %d\n", n)
	} else {
		fmt.Fprintln(stderr, "[crunch] Submission accepted")
	}
	return ExitSuccess
}
