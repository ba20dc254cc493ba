package main

import (
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/syssam/relmap/contrib/snapshot"
	"github.com/syssam/relmap/graph"
)

// newCheckCommand creates the check command
func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Build and validate the mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			_, _, g, err := a.mapping(cmd.Context())
			if err != nil {
				var merr *graph.MappingError
				if errors.As(err, &merr) {
					errorColor.Fprintf(out, "✗ %d problem(s) in stage %q\n", len(merr.Findings), merr.Stage)
					for _, msg := range merr.Messages() {
						fmt.Fprintf(out, "  - %s\n", msg)
					}
				}
				return err
			}
			successColor.Fprint(out, "✓ mapping is valid: ")
			fmt.Fprintf(out, "%d classes, %d interfaces, %d relations\n",
				len(g.ClassDefinitions()), len(g.InterfaceDefinitions()), len(g.RelationDefinitions()))
			return nil
		},
	}
}

// newDescribeCommand creates the describe command
func newDescribeCommand(a *app) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "describe [class-id...]",
		Short: "Print the classes of the mapping",
		Long: `Print the classes of the mapping with their storage entities, properties
and relation end points. Without arguments all classes are printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, g, err := a.mapping(cmd.Context())
			if err != nil {
				return err
			}
			classes := g.ClassDefinitions()
			if len(args) > 0 {
				classes = classes[:0]
				for _, id := range args {
					c, err := m.GetClassDefinition(id)
					if err != nil {
						return err
					}
					classes = append(classes, c)
				}
			}
			if raw {
				return dumpRaw(cmd, g, classes)
			}
			out := cmd.OutOrStdout()
			for i, c := range classes {
				if i > 0 {
					fmt.Fprintln(out)
				}
				describeClass(cmd, c)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "dump the recorded snapshot form of the classes")
	return cmd
}

func describeClass(cmd *cobra.Command, c *graph.ClassDefinition) {
	out := cmd.OutOrStdout()
	titleColor.Fprint(out, c.ClassID())
	fmt.Fprintf(out, " (%s)", c.ID())
	if c.IsAbstract() {
		fmt.Fprint(out, " abstract")
	}
	if c.HasStorageEntity() {
		fmt.Fprintf(out, " -> %s", c.StorageEntity().StorageName())
	}
	fmt.Fprintln(out)
	if b := c.BaseClass(); b != nil {
		fmt.Fprintf(out, "  base: %s\n", b.ID())
	}
	for _, i := range c.AllInterfaces() {
		fmt.Fprintf(out, "  implements: %s\n", i.ID())
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, p := range c.PropertyDefinitions().All() {
		storage := "-"
		if p.HasStorageProperty() {
			storage = p.StorageProperty().StorageName()
		}
		typ := string(p.ValueType())
		if p.IsObjectID() {
			typ = "-> " + p.RelatedType().String()
		}
		if p.IsNullable() {
			typ += "?"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", p.ShortName(), typ, storage, p.StorageClass())
	}
	for _, e := range c.RelationEndPointDefinitions().All() {
		if !e.IsVirtual() || e.IsAnonymous() {
			continue
		}
		fmt.Fprintf(tw, "  %s\t%s %s\t-\t%s\n", e.ShortName(), e.Cardinality(), e.RelatedType(), e.Kind())
	}
	tw.Flush()
}

func dumpRaw(cmd *cobra.Command, g *graph.Graph, classes []*graph.ClassDefinition) error {
	s, err := snapshot.Take(g)
	if err != nil {
		return err
	}
	want := make(map[string]bool, len(classes))
	for _, c := range classes {
		want[c.ID().String()] = true
	}
	var types []snapshot.Type
	for _, t := range s.Types {
		if want[t.ID] {
			types = append(types, t)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i].ID < types[j].ID })
	dump := spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}
	dump.Fdump(cmd.OutOrStdout(), types)
	return nil
}
