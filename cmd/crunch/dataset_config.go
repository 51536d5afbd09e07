package main

import (
	"flag"
	"fmt"
	"sort"

	"github.com/crunchdao/crunch-go/internal/config"
	"github.com/crunchdao/crunch-go/internal/table"
	"github.com/crunchdao/crunch-go/pkg/crunchdao"
)

// runDatasetConfig prints the dataset configuration of a round.
func runDatasetConfig(args []string) int {
	fs := flag.NewFlagSet("dataset-config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cf := registerCommon(fs)

	round := fs.Int("round", crunchdao.LatestRound, "Round number (default: latest)")
	format := fs.String("format", "text", "Output format: text, csv or json")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: crunch dataset-config [options]

Show the dataset configuration of a round: dataset, inception and the
scoring periods of each target.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	if *round < 0 {
		fmt.Fprintln(stderr, "Error: -round must not be negative")
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

	dc, err := newClient(cfg).DatasetConfig(ctx, *round)
	if err != nil {
		return fail(err)
	}

	var t *table.Table
	if outFormat == table.FormatText {
		// One field per line reads better than one very wide row.
		keys := make([]string, 0, len(dc.Fields))
		for k := range dc.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		t = table.New("field", "value")
		for _, k := range keys {
			t.Append(k, dc.Fields[k])
		}
	} else {
		t = table.FromMaps([]map[string]any{dc.Fields.Map()}, "round_id", "dataset_id", "dataset_name")
	}

	if err := table.Write(stdout, t, outFormat); err != nil {
		return fail(err)
	}
	return ExitSuccess
}
