package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/relmap/contrib/snapshot"
)

// newSnapshotCommand creates the snapshot command
func newSnapshotCommand(a *app) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Record the mapping and compare it with a recorded one",
	}
	cmd.PersistentFlags().StringVarP(&path, "file", "f", "", "snapshot file (default snapshot.path)")

	write := &cobra.Command{
		Use:   "write",
		Short: "Record the current mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _, g, err := a.mapping(cmd.Context())
			if err != nil {
				return err
			}
			if path == "" {
				path = a.cfg.Snapshot.Path
			}
			s, err := snapshot.Take(g)
			if err != nil {
				return err
			}
			if err := snapshot.WriteFile(path, s); err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "✓ snapshot %s written to %s\n", s.ID, path)
			return nil
		},
	}

	var allowBreaking bool
	diff := &cobra.Command{
		Use:   "diff",
		Short: "Compare the current mapping with the recorded one",
		Long: `Compare the current mapping with the recorded snapshot. The command fails
on breaking changes unless --allow-breaking is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _, g, err := a.mapping(cmd.Context())
			if err != nil {
				return err
			}
			if path == "" {
				path = a.cfg.Snapshot.Path
			}
			old, err := snapshot.ReadFile(path)
			if err != nil {
				return err
			}
			cur, err := snapshot.Take(g)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			changes := snapshot.Diff(old, cur)
			if len(changes) == 0 {
				successColor.Fprintln(out, "✓ no changes")
				return nil
			}
			for _, c := range changes {
				if c.Breaking {
					errorColor.Fprintln(out, c)
				} else {
					fmt.Fprintln(out, c)
				}
			}
			if n := len(changes.Breaking()); n > 0 && !allowBreaking {
				return fmt.Errorf("%d breaking change(s) since snapshot %s", n, old.ID)
			}
			return nil
		},
	}
	diff.Flags().BoolVar(&allowBreaking, "allow-breaking", false, "do not fail on breaking changes")

	cmd.AddCommand(write, diff)
	return cmd
}
