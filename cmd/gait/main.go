// Command gait derives gait parameters from pose-estimation coordinate
// exports and serves the results over HTTP.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/gait.report/internal/db"
	"github.com/banshee-data/gait.report/internal/version"
)

func main() {
	flag.Usage = func() { printUsage(os.Stdout) }
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage(os.Stdout)
		os.Exit(1)
	}
	os.Exit(run(flag.Arg(0), flag.Args()[1:], os.Stdout, os.Stderr))
}

// run dispatches one subcommand and returns the process exit code.
func run(command string, args []string, stdout, stderr io.Writer) int {
	var err error
	switch command {
	case "analyze":
		err = handleAnalyze(args, stdout)
	case "serve":
		err = handleServe(args)
	case "submit":
		err = handleSubmit(args, stdout)
	case "catalog":
		err = handleCatalog(args, stdout)
	case "migrate":
		err = handleMigrate(args, stdout)
	case "version":
		fmt.Fprintln(stdout, version.Get())
	case "help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return 1
	}
	if err != nil {
		fmt.Fprintf(stderr, "gait %s: %v\n", command, err)
		return 1
	}
	return 0
}

func handleMigrate(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dbPath := fs.String("db", "gait.db", "Path to the run database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return db.RunMigrateCommand(fs.Args(), *dbPath, stdout)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `gait - gait parameters from pose-estimation coordinates

Usage: gait <command> [options]

Commands:
  analyze    Compute gait parameters for one or more coordinate CSV files
  serve      Run the HTTP API over the pipeline and run store
  submit     Send a coordinate file to a running server
  catalog    List the parameters that can be requested
  migrate    Manage the run database schema (up, down, status, version, force)
  version    Show build information
  help       Show this help message

Examples:
  # Head and back measurements with summary statistics
  gait analyze -input trot.csv -bindings horse.json -params "Head Length,Back Angle" -stats min,max,mean,std

  # Several files at once, with plots and a run database
  gait analyze -input a.csv,b.csv -bindings horse.json -out results -plots -html -db runs.db

  # Serve the API
  gait serve -listen :8080 -db runs.db

Run 'gait <command> -h' for the options of a command.`)
}
