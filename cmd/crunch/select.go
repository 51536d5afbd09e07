package main

import (
	"flag"
	"fmt"

	"github.com/crunchdao/crunch-go/internal/config"
	"github.com/crunchdao/crunch-go/pkg/crunchdao"
)

// runSelect edits the comment or selection flag of a submission.
func runSelect(args []string) int {
	fs := flag.NewFlagSet("select", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cf := registerCommon(fs)

	id := fs.Int("id", 0, "Submission id (required)")
	comment := fs.String("comment", "", "New comment")
	selected := fs.Bool("selected", true, "Select (true) or unselect (false) the submission")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: crunch select -id N [-selected=false] [-comment text] [options]

Select a submission for the round, unselect it, or change its comment.
Requires an API key.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	if *id <= 0 {
		fmt.Fprintln(stderr, "Error: -id is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	var update crunchdao.SubmissionUpdate
	commentSet := isFlagSet(fs, "comment")
	if commentSet {
		update.Comment = comment
	}
	// Selecting is the point of the command unless only a comment is given.
	if !commentSet || isFlagSet(fs, "selected") {
		update.Selected = selected
	}

	cfg, err := cf.load(config.Config{})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext()
	defer cancel()

	sub, err := newClient(cfg).UpdateSubmission(ctx, *id, update)
	if err != nil {
		return fail(err)
	}

	state := "unselected"
	if sub.Bool("selected") {
		state = "selected"
	}
	fmt.Fprintf(stderr, "[crunch] Submission %d %s\n", *id, state)
	return ExitSuccess
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
