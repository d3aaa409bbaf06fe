package main

import (
	"alcyxob/exercise-curator/internal/service"
	"fmt"
	"io"
)

func printOutcome(w io.Writer, name string, out *service.Outcome, dryRun bool) {
	s := out.Summary
	for _, n := range s.Notes {
		fmt.Fprintf(w, "  %s\n", n)
	}
	fmt.Fprintf(w, "%s: added %d, fixed %d, removed %d, skipped %d", name, s.Added, s.Fixed, s.Removed, s.Skipped)
	if s.Unresolved > 0 {
		fmt.Fprintf(w, ", unresolved %d", s.Unresolved)
	}
	fmt.Fprintf(w, " (%d -> %d records)\n", out.Before, out.After)

	switch {
	case out.Saved:
		fmt.Fprintln(w, "dataset saved")
	case s.Mutations() == 0:
		fmt.Fprintln(w, "no changes; dataset left untouched")
	case dryRun:
		fmt.Fprintln(w, "dry run; dataset left untouched")
	}
	printReportSummary(w, out.Report)
}

func printReportSummary(w io.Writer, r *service.Report) {
	if r == nil {
		return
	}
	fmt.Fprintf(w, "validation: %d records, %d errors, %d warnings, %d duplicate ids, %d unresolved media\n",
		r.Records, r.ErrorCount, r.WarningCount, len(r.Collisions), r.MediaUnresolved)
}

func printReport(w io.Writer, r *service.Report) {
	for _, issues := range r.Issues {
		label := issues.ID
		if label == "" {
			label = "<no id>"
		}
		fmt.Fprintf(w, "#%d %s\n", issues.Position, label)
		for _, e := range issues.Errors {
			fmt.Fprintf(w, "  [%s] %s\n", e.Severity, e.Error())
		}
	}
	for _, c := range r.Collisions {
		fmt.Fprintf(w, "duplicate id %q at positions %v\n", c.ID, c.Positions)
	}
	printTiers(w, r)
	printReportSummary(w, r)
}

func printTiers(w io.Writer, r *service.Report) {
	fmt.Fprintln(w, "equipment tiers:")
	for _, t := range r.Tiers {
		fmt.Fprintf(w, "  %-10s %d\n", t.Tier, t.Count)
	}
}
