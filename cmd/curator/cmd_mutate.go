package main

import (
	"alcyxob/exercise-curator/internal/config"
	"alcyxob/exercise-curator/internal/manifest"
	"alcyxob/exercise-curator/internal/service"
	"alcyxob/exercise-curator/internal/storage"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newDedupCmd(a *app) *cobra.Command {
	var opts service.RunOptions
	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Remove records whose id already appeared earlier in the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.run(cmd, service.DedupOperation(), opts)
			return err
		},
	}
	addRunFlags(cmd, &opts)
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	var opts service.RunOptions
	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Append new records from a YAML or JSON file, skipping ids that already exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := manifest.Load(args[0])
			if err != nil {
				return err
			}
			if len(changes.Patch) > 0 {
				return fmt.Errorf("%s contains patches; use apply", args[0])
			}
			_, err = a.run(cmd, service.ChangesOperation("add", changes), opts)
			return err
		},
	}
	addRunFlags(cmd, &opts)
	return cmd
}

func newPatchCmd(a *app) *cobra.Command {
	var (
		opts    service.RunOptions
		when    string
		expect  string
		rawJSON bool
	)
	cmd := &cobra.Command{
		Use:   "patch <id> <field> <value>",
		Short: "Set one field of one record when its current value meets a condition",
		Long: `Set one field of the record with the given id. By default the value is
only written when the field is missing or empty; --when changes the condition
to missing, always or equals (compared against --expect).`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(args[2], rawJSON)
			if err != nil {
				return err
			}
			spec := service.PatchSpec{ID: args[0], Field: args[1], Value: value, When: when}
			if cmd.Flags().Changed("expect") {
				if spec.Expect, err = parseValue(expect, rawJSON); err != nil {
					return err
				}
			}
			// Reject a bad condition before touching the dataset.
			if _, err := service.ParsePredicate(spec.When, spec.Expect); err != nil {
				return err
			}
			_, err = a.run(cmd, service.ChangesOperation("patch", service.Changes{Patch: []service.PatchSpec{spec}}), opts)
			return err
		},
	}
	addRunFlags(cmd, &opts)
	cmd.Flags().StringVar(&when, "when", "empty", "condition on the current value: empty, missing, always or equals")
	cmd.Flags().StringVar(&expect, "expect", "", "value compared by --when equals")
	cmd.Flags().BoolVar(&rawJSON, "json", false, "parse value and --expect as JSON instead of plain strings")
	return cmd
}

// addRunFlags registers the flags shared by every command that may save.
func addRunFlags(cmd *cobra.Command, opts *service.RunOptions) {
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report changes without saving")
	cmd.Flags().BoolVar(&opts.DropDuplicateKeys, "drop-duplicate-keys", false,
		"save even when records repeat a key, keeping only the last value")
}

func parseValue(s string, rawJSON bool) (any, error) {
	if !rawJSON {
		return s, nil
	}
	if !json.Valid([]byte(s)) {
		return nil, fmt.Errorf("invalid JSON value %q", s)
	}
	return json.RawMessage(s), nil
}

func newApplyCmd(a *app) *cobra.Command {
	var opts service.RunOptions
	cmd := &cobra.Command{
		Use:   "apply <manifest>",
		Short: "Run the additions and patches of a curation manifest in one pass",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := manifest.Load(args[0])
			if err != nil {
				return err
			}
			_, err = a.run(cmd, service.ChangesOperation("apply", changes), opts)
			return err
		},
	}
	addRunFlags(cmd, &opts)
	return cmd
}

func newResolveCmd(a *app) *cobra.Command {
	var (
		opts     service.RunOptions
		mediaDir string
		listing  string
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Fill gif fields from the media listing",
		Long: `Match every record id against the media filenames (case-insensitive,
extension stripped) and set gif to the matching filename. An exact match
overwrites the existing value. A plural-folded match only fills an empty gif.
Records without a match are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := a.mediaSource(cmd, mediaDir, listing)
			if err != nil {
				return err
			}
			_, err = a.run(cmd, service.ResolveOperation(source, a.logger), opts)
			return err
		},
	}
	addRunFlags(cmd, &opts)
	cmd.Flags().StringVar(&mediaDir, "media-dir", "", "media directory (overrides media.dir and selects the local source)")
	cmd.Flags().StringVar(&listing, "listing", "", "file with one media filename per line instead of a live listing")
	return cmd
}

// mediaSource picks the listing source: an explicit listing file, an explicit
// directory, or the configured source.
func (a *app) mediaSource(cmd *cobra.Command, mediaDir, listing string) (storage.MediaSource, error) {
	if listing != "" {
		data, err := os.ReadFile(listing)
		if err != nil {
			return nil, fmt.Errorf("read media listing: %w", err)
		}
		return storage.StaticSource{Names: splitListing(string(data))}, nil
	}
	if mediaDir != "" {
		return storage.NewLocalSource(mediaDir, a.cfg.Media.Pattern)
	}
	if a.cfg.Media.Source == config.MediaSourceS3 {
		return storage.NewS3Source(cmdContext(cmd), a.cfg.S3, a.cfg.Media.Prefix, a.cfg.Media.Pattern, a.logger)
	}
	return storage.NewLocalSource(a.cfg.Media.Dir, a.cfg.Media.Pattern)
}

func splitListing(s string) []string {
	var names []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names
}
