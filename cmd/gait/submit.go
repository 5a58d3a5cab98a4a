package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/gait.report/internal/api"
	"github.com/banshee-data/gait.report/internal/export"
	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/units"
)

func handleSubmit(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	server := fs.String("server", "http://localhost:8080", "Base URL of a gait server")
	input := fs.String("input", "", "Coordinate CSV file (required)")
	bindingsPath := fs.String("bindings", "", "JSON file mapping landmark names to column prefixes (required)")
	params := fs.String("params", "", "Comma-separated parameters (default: whole catalog)")
	stats := fs.String("stats", "", "Comma-separated statistics: min,max,mean,std")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" || *bindingsPath == "" {
		fs.Usage()
		return errors.New("-input and -bindings are required")
	}
	return submit(fsutil.OSFileSystem{}, api.NewClient(*server, nil), *input, *bindingsPath, *params, *stats, stdout)
}

func submit(fsys fsutil.FileSystem, client *api.Client, input, bindingsPath, params, stats string, stdout io.Writer) error {
	csv, err := fsys.ReadFile(input)
	if err != nil {
		return err
	}
	raw, err := fsys.ReadFile(bindingsPath)
	if err != nil {
		return fmt.Errorf("read bindings: %w", err)
	}
	var bindings map[string]string
	if err := json.Unmarshal(raw, &bindings); err != nil {
		return fmt.Errorf("parse bindings: %w", err)
	}

	resp, err := client.Analyze(api.AnalysisRequest{
		Source:     filepath.Base(input),
		CSV:        string(csv),
		Bindings:   bindings,
		Parameters: splitList(params),
		Statistics: splitList(stats),
	})
	if err != nil {
		return err
	}

	if resp.Run != nil {
		fmt.Fprintf(stdout, "run: %s\n", resp.Run.ID)
	}
	for _, f := range resp.Failures {
		fmt.Fprintf(stdout, "skipped %s: %s\n", f.Parameter, f.Error)
	}
	if resp.StrideReason != "" {
		fmt.Fprintf(stdout, "strides: %s\n", resp.StrideReason)
	}
	return export.WriteDerived(stdout, resp.Table, units.Scale{})
}
