package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/relmap/dialect/rdbms"
)

// newDDLCommand creates the ddl command
func newDDLCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ddl",
		Short: "Print the DDL creating the mapped tables and views",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, l, _, err := a.mapping(cmd.Context())
			if err != nil {
				return err
			}
			stmts, err := rdbms.PlanDDL(cmd.Context(), l)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range stmts {
				fmt.Fprintf(out, "%s;\n", s)
			}
			return nil
		},
	}
}

// newVerifyCommand creates the verify command
func newVerifyCommand(a *app) *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare a live database with the mapping",
		Long: `Connect to the configured database and report the mapped tables and
columns it lacks. The command fails when the database is out of date.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, l, _, err := a.mapping(ctx)
			if err != nil {
				return err
			}
			if dsn == "" {
				dsn = a.cfg.Storage.DSN
			}
			if dsn == "" {
				return errors.New("no data source: set storage.dsn or pass --dsn")
			}
			db, err := rdbms.OpenDriver(ctx, a.cfg.DriverName(), dsn)
			if err != nil {
				return err
			}
			defer db.Close()
			mismatches, err := rdbms.Verify(ctx, db, l)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(mismatches) == 0 {
				successColor.Fprintln(out, "✓ database matches the mapping")
				return nil
			}
			for _, m := range mismatches {
				warnColor.Fprintf(out, "  - %s\n", m)
			}
			return fmt.Errorf("database differs from the mapping in %d place(s)", len(mismatches))
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "data source name (default storage.dsn)")
	return cmd
}
