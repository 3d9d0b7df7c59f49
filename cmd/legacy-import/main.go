package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/davsilveira/revskin-clinicaweb-sub002/config"
	"github.com/davsilveira/revskin-clinicaweb-sub002/legacyimport"
	"github.com/davsilveira/revskin-clinicaweb-sub002/models"
)

func main() {
	connection := flag.String("connection", "legado", "Legacy DB connection alias (env prefix, e.g. LEGADO_DB_HOST)")
	dryRun := flag.Bool("dry-run", false, "Run all reads and matching but write nothing")
	only := flag.String("only", "", "Comma-separated subset of "+strings.Join(legacyimport.EntityOrder, ","))
	flag.Parse()

	onlySet, err := parseOnly(*only)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	legacy, err := config.ConnectLegacyDatabase(*connection)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot open legacy connection: %v\n", err)
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	target := config.GetDB()
	if target == nil {
		fmt.Fprintln(os.Stderr, "target database not initialized. Set DB_* env vars.")
		os.Exit(1)
	}
	if !*dryRun {
		models.MigrateTable()
	}

	logger := config.GetLogger()
	if *dryRun {
		logger.Info("dry run: no writes will be performed")
	}

	summary, err := legacyimport.Run(context.Background(), legacy, target, logger, legacyimport.Options{
		Only:   onlySet,
		DryRun: *dryRun,
	})
	printSummary(summary)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import aborted: %v\n", err)
		os.Exit(1)
	}
}

func parseOnly(raw string) (map[string]bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	valid := map[string]bool{}
	for _, e := range legacyimport.EntityOrder {
		valid[e] = true
	}
	out := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if !valid[part] {
			return nil, fmt.Errorf("unknown entity %q in --only (valid: %s)", part, strings.Join(legacyimport.EntityOrder, ","))
		}
		out[part] = true
	}
	return out, nil
}

func printSummary(summary legacyimport.Summary) {
	fmt.Println()
	fmt.Printf("%-12s %10s %10s %10s\n", "entity", "imported", "errors", "skipped")
	for _, entity := range legacyimport.EntityOrder {
		counts, ok := summary[entity]
		if !ok {
			continue
		}
		fmt.Printf("%-12s %10d %10d %10d\n", entity, counts.Imported, counts.Errors, counts.SkippedUnmatched)
	}
}
