package main

import (
	"fmt"
	"io"
	"os"
)

// Exit codes
const (
	ExitSuccess            = 0
	ExitGeneralError       = 1
	ExitInvalidArgs        = 2
	ExitUnauthorized       = 3
	ExitTransportError     = 4
	ExitStorageError       = 5
	ExitSubmissionRejected = 6
	ExitCalendarError      = 7
)

// Output streams, replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "download":
		return runDownload(cmdArgs)
	case "submit":
		return runSubmit(cmdArgs)
	case "submissions":
		return runSubmissions(cmdArgs)
	case "dataset-config":
		return runDatasetConfig(cmdArgs)
	case "last-crunch":
		return runLastCrunch(cmdArgs)
	case "scores":
		return runScores(cmdArgs)
	case "select":
		return runSelect(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(stderr, `Usage: crunch <command> [options]

Commands:
  download        Download the dataset files, resuming partial downloads
  submit          Upload a predictions file
  submissions     List submissions of a round
  dataset-config  Show the dataset configuration of a round
  last-crunch     Print your last crunch number in the current round
  scores          List scores with their target and scoring window
  select          Comment on or (un)select a submission

Every command reads crunch.yaml (-config), .env and CRUNCHDAO_* variables.
Run 'crunch <command> -h' for command-specific help.`)
}
