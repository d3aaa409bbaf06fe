package main

import (
	"alcyxob/exercise-curator/internal/domain"
	"alcyxob/exercise-curator/internal/service"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ErrInvalidDataset is returned by validate --strict when the report contains
// errors or duplicate ids.
var ErrInvalidDataset = errors.New("dataset has validation errors")

func newValidateCmd(a *app) *cobra.Command {
	var (
		strict bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Report schema violations, duplicate ids and the equipment tier distribution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.curator()
			if err != nil {
				return err
			}
			_, report, err := svc.Inspect(cmdContext(cmd))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printReport(w, report)
			}
			if strict && !report.Valid() {
				return ErrInvalidDataset
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when errors or duplicate ids are found")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var muscle string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Show the equipment tier distribution and records lacking a tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.curator()
			if err != nil {
				return err
			}
			ds, report, err := svc.Inspect(cmdContext(cmd))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%d records\n", ds.Len())
			printTiers(w, report)

			unknown := service.Filter(ds, service.ExerciseFilter{Tier: string(domain.TierUnknown)})
			if len(unknown) > 0 {
				fmt.Fprintf(w, "records without equipment tier (%d):\n", len(unknown))
				for _, ex := range unknown {
					fmt.Fprintf(w, "  %s\n", displayName(ex))
				}
			}

			if muscle != "" {
				matches := service.Filter(ds, service.ExerciseFilter{Muscle: muscle})
				fmt.Fprintf(w, "records targeting %q (%d):\n", muscle, len(matches))
				for _, ex := range matches {
					fmt.Fprintf(w, "  %-40s %s\n", displayName(ex), service.TierBucket(ex))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&muscle, "muscle", "", "also list records training this muscle")
	return cmd
}

func displayName(ex *domain.Exercise) string {
	id := ex.ID()
	if id == "" {
		id = "<no id>"
	}
	if name, ok := ex.String(domain.FieldName); ok && name != "" {
		return fmt.Sprintf("%s (%s)", id, name)
	}
	return id
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <id>...",
		Short: "Report whether each id is present in the dataset",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.curator()
			if err != nil {
				return err
			}
			ds, _, err := svc.Inspect(cmdContext(cmd))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			missing := 0
			for _, p := range service.CheckPresence(ds, args) {
				switch {
				case !p.Found():
					missing++
					fmt.Fprintf(w, "MISSING %s\n", p.ID)
				case p.Count > 1:
					fmt.Fprintf(w, "FOUND   %s (%d copies)\n", p.ID, p.Count)
				default:
					fmt.Fprintf(w, "FOUND   %s\n", p.ID)
				}
			}
			fmt.Fprintf(w, "%d of %d ids present\n", len(args)-missing, len(args))
			return nil
		},
	}
}
