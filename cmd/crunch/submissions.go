package main

import (
	"flag"
	"fmt"

	"github.com/crunchdao/crunch-go/internal/config"
	"github.com/crunchdao/crunch-go/internal/table"
	"github.com/crunchdao/crunch-go/pkg/crunchdao"
)

// runSubmissions lists submissions as a table.
func runSubmissions(args []string) int {
	fs := flag.NewFlagSet("submissions", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cf := registerCommon(fs)

	user := fs.Int("user", 0, "User id (default: yourself, requires an API key)")
	round := fs.Int("round", 0, "Only this round (default: all rounds)")
	format := fs.String("format", "text", "Output format: text, csv or json")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: crunch submissions [options]

List submissions with their private and public scores.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	if *user < 0 || *round < 0 {
		fmt.Fprintln(stderr, "Error: -user and -round must not be negative")
		return ExitInvalidArgs
	}
	outFormat, ok := parseFormat(fs, *format)
	if !ok {
		return ExitInvalidArgs
	}

	cfg, err := cf.load(config.Config{})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext()
	defer cancel()

	rows, err := newClient(cfg).Submissions(ctx, crunchdao.Query{UserID: *user, Round: *round})
	if err != nil {
		return fail(err)
	}

	maps := make([]map[string]any, len(rows))
	for i, r := range rows {
		maps[i] = r.Map()
	}
	if err := table.Write(stdout, table.FromMaps(maps, presentColumns(rows, crunchdao.SubmissionColumns)...), outFormat); err != nil {
		return fail(err)
	}
	return ExitSuccess
}

// presentColumns keeps the preferred columns that occur in at least one row.
func presentColumns(rows []crunchdao.Row, preferred []string) []string {
	out := make([]string, 0, len(preferred))
	for _, c := range preferred {
		for _, r := range rows {
			if _, ok := r[c]; ok {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
