package main

import (
	"github.com/spf13/cobra"

	"github.com/syssam/relmap/compiler/gen"
	"github.com/syssam/relmap/contrib/graphql"
)

// newGenCommand creates the gen command
func newGenCommand(a *app) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate Go constants for class IDs, properties and storage names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _, g, err := a.mapping(cmd.Context())
			if err != nil {
				return err
			}
			opts := a.cfg.GenOptions(a.log)
			if target != "" {
				opts = append(opts, gen.WithTarget(target))
			}
			cfg, err := gen.NewConfig(opts...)
			if err != nil {
				return err
			}
			paths, err := gen.New(g, cfg).Generate(cmd.Context())
			if err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "✓ generated %d files in %s\n", len(paths), cfg.Target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "out", "o", "", "output directory (default gen.output)")
	return cmd
}

// newGraphQLCommand creates the graphql command
func newGraphQLCommand(a *app) *cobra.Command {
	var (
		output string
		query  bool
	)
	cmd := &cobra.Command{
		Use:   "graphql",
		Short: "Export the mapping as a GraphQL schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _, g, err := a.mapping(cmd.Context())
			if err != nil {
				return err
			}
			if output == "" {
				output = a.cfg.GraphQL.Output
			}
			var opts []graphql.Option
			if query || a.cfg.GraphQL.Query {
				opts = append(opts, graphql.WithQuery())
			}
			gq, err := graphql.New(g, opts...)
			if err != nil {
				return err
			}
			if output == "-" {
				return gq.Write(cmd.OutOrStdout())
			}
			if err := gq.WriteFile(output); err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "✓ wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "out", "o", "", `output file, "-" for stdout (default graphql.output)`)
	cmd.Flags().BoolVar(&query, "query", false, "add a Query type")
	return cmd
}
