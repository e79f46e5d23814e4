package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"stl-viewer/internal/config"
)

func main() {
	configFile := flag.String("config", "", "Path to config.json file")
	roots := flag.String("roots", "", "Comma-separated storage roots (dirs or s3://bucket/prefix)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	asJSON := flag.Bool("json", false, "Print the catalog as JSON")
	flag.Parse()

	cfg, err := config.Setup(*configFile, config.Flags{
		Roots:    splitRoots(*roots),
		LogLevel: *logLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	rt, err := cfg.NewRuntime(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer rt.Logger.Sync()

	cat := cfg.Scanner(rt).Scan(ctx, cfg.Roots)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cat.Entries()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if cat.Count() == 0 {
		fmt.Println("No STL files found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tSIZE\tPATH")
	for i, e := range cat.Entries() {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", i, e.Name, e.Size, e.Path)
	}
	w.Flush()
}

func splitRoots(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
