package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect/rdbms"
	"github.com/syssam/relmap/graph"
	"github.com/syssam/relmap/internal/config"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warnColor    = color.New(color.FgYellow)
	titleColor   = color.New(color.FgCyan, color.Bold)
)

// app holds the state shared by the subcommands.
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log *zap.Logger
}

// setup loads the configuration and the logger once.
func (a *app) setup() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	log, err := cfg.Logger()
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

// mapping builds the configured mapping graph.
func (a *app) mapping(ctx context.Context) (*relmap.Configuration, *rdbms.Loader, *graph.Graph, error) {
	if err := a.setup(); err != nil {
		return nil, nil, nil, err
	}
	m, l, err := a.cfg.Mapping(ctx, a.log)
	if err != nil {
		return nil, nil, nil, err
	}
	g, err := m.Graph()
	if err != nil {
		return nil, nil, nil, err
	}
	return m, l, g, nil
}

func (a *app) close() {
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// newRootCommand creates the root command
func newRootCommand() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "relmap",
		Short: "Object/relational mapping metadata tool",
		Long: titleColor.Sprint("relmap - object/relational mapping metadata") + `

relmap builds the mapping graph of a set of type descriptors, validates it
and derives storage and code artifacts from it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "configuration file (default relmap.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override")

	rootCmd.AddCommand(
		newCheckCommand(a),
		newDescribeCommand(a),
		newDDLCommand(a),
		newVerifyCommand(a),
		newGenCommand(a),
		newGraphQLCommand(a),
		newSnapshotCommand(a),
		newWatchCommand(a),
		newVersionCommand(),
	)
	return rootCmd
}

// newVersionCommand creates the version command
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			titleColor.Fprint(out, "relmap version: ")
			fmt.Fprintln(out, Version)
			titleColor.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)
			titleColor.Fprint(out, "Build date: ")
			fmt.Fprintln(out, BuildDate)
			titleColor.Fprint(out, "Go version: ")
			fmt.Fprintln(out, runtime.Version())
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
