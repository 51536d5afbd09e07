package main

import (
	"flag"
	"fmt"

	"github.com/crunchdao/crunch-go/internal/config"
	"github.com/crunchdao/crunch-go/internal/table"
	"github.com/crunchdao/crunch-go/pkg/crunchdao"
	"github.com/crunchdao/crunch-go/pkg/scoring"
)

var scoreColumns = []string{
	"round_id", "date", "value", "scoring_start", "time_delta_days",
	"target", "scoring_end", "resolved",
}

// runScores lists scores annotated with their target and scoring window.
func runScores(args []string) int {
	fs := flag.NewFlagSet("scores", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cf := registerCommon(fs)

	user := fs.Int("user", 0, "User id (default: yourself, requires an API key)")
	round := fs.Int("round", 0, "Only this round (default: all rounds)")
	onlyResolved := fs.Bool("only-resolved", false, "Only show final scores of closed windows")
	calendarFile := fs.String("calendar", "", "Trading calendar YAML file (default: weekdays)")
	format := fs.String("format", "text", "Output format: text, csv or json")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: crunch scores [options]

List daily scores with the target each one belongs to and the trading day
its scoring window ends on. A score dated on that day is resolved.

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

	cfg, err := cf.load(config.Config{Calendar: *calendarFile})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	cal, err := loadCalendar(cfg.Calendar)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCalendarError
	}

	ctx, cancel := signalContext()
	defer cancel()

	records, err := newClient(cfg).ResolvedScores(ctx, cal, crunchdao.Query{UserID: *user, Round: *round}, *onlyResolved)
	if err != nil {
		return fail(err)
	}

	if err := table.Write(stdout, recordTable(records), outFormat); err != nil {
		return fail(err)
	}
	return ExitSuccess
}

func recordTable(records []scoring.Record) *table.Table {
	t := table.New(scoreColumns...)
	for _, r := range records {
		var target any
		if r.Target != "" {
			target = r.Target
		}
		t.Append(r.RoundID, r.Date, r.Value, r.ScoringStart, r.TimeDeltaDays, target, r.ScoringEnd, r.Resolved)
	}
	return t
}
