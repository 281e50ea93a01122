// Package cli implements the veloxql command line.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config  string
	Verbose bool
}

// NewRootCommand creates the root command of the veloxql CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "veloxql",
		Short: "veloxql - typed SQL query compiler",
		Long:  "Generate typed schema declarations and check a schema against a live database.",
	}

	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "veloxql.yaml", "configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewGenCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}

// logger returns the logger of a command. Logs go to stderr so they do
// not mix with command output.
func (o *RootOptions) logger(w io.Writer, level slog.Level) *slog.Logger {
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
