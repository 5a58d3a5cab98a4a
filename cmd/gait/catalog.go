package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/banshee-data/gait.report/internal/api"
	"github.com/banshee-data/gait.report/internal/gait"
)

func handleCatalog(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("catalog", flag.ContinueOnError)
	server := fs.String("server", "", "List the catalog of a running server instead of the built-in one")
	if err := fs.Parse(args); err != nil {
		return err
	}

	entries := api.CatalogEntries(gait.DefaultCatalog())
	if *server != "" {
		var err error
		if entries, err = api.NewClient(*server, nil).Catalog(); err != nil {
			return err
		}
	}
	return printCatalog(stdout, entries)
}

func printCatalog(w io.Writer, entries []api.CatalogEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tUNIT\tLANDMARKS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, e.Kind, e.Unit, strings.Join(e.Landmarks, ", "))
	}
	return tw.Flush()
}
