package main

import (
	"flag"
	"fmt"

	"github.com/crunchdao/crunch-go/internal/config"
)

// runLastCrunch prints the caller's last crunch number in the current round.
func runLastCrunch(args []string) int {
	fs := flag.NewFlagSet("last-crunch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cf := registerCommon(fs)

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: crunch last-crunch [options]

Print the crunch number of your last upload to the current round.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg, err := cf.load(config.Config{})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext()
	defer cancel()

	n, err := newClient(cfg).LastCrunch(ctx)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintln(stdout, n)
	return ExitSuccess
}
