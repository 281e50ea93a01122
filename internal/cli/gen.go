package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/syssam/veloxql"
	"github.com/syssam/veloxql/compiler/gen"
	"github.com/syssam/veloxql/schema"
)

// GenOptions holds flags for the gen command.
type GenOptions struct {
	*RootOptions
	Schema  string
	Out     string
	Package string
	Watch   bool
}

// NewGenCommand creates the gen command.
func NewGenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate Go declarations from a schema file",
		Long: `Generate one variable per entity, a Registry function and typed table
views from a YAML schema file.

The schema file defaults to the schema of the configuration file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.Schema, "schema", "s", "", "schema file")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "model", "output directory")
	cmd.Flags().StringVar(&opts.Package, "pkg", "", "package name (default: base name of --out)")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "regenerate when the schema file changes")

	return cmd
}

func runGen(ctx context.Context, opts *GenOptions, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	path, err := opts.schemaPath()
	if err != nil {
		return err
	}
	if err := generate(ctx, opts, path, w); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}
	return watch(ctx, path, func() {
		if err := generate(ctx, opts, path, w); err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
	})
}

// schemaPath returns the --schema flag, or the schema of the config file.
func (o *GenOptions) schemaPath() (string, error) {
	if o.Schema != "" {
		return o.Schema, nil
	}
	cfg, err := veloxql.LoadConfig(o.Config)
	if err != nil {
		return "", fmt.Errorf("no --schema given: %w", err)
	}
	if cfg.Schema == "" {
		return "", errors.New("no --schema given and the config file sets no schema")
	}
	return cfg.Schema, nil
}

func generate(ctx context.Context, opts *GenOptions, path string, w io.Writer) error {
	reg, err := schema.LoadFile(path)
	if err != nil {
		return err
	}
	var genOpts []gen.Option
	if opts.Package != "" {
		genOpts = append(genOpts, gen.WithPackage(opts.Package))
	}
	cfg, err := gen.NewConfig(opts.Out, genOpts...)
	if err != nil {
		return err
	}
	g, err := gen.NewGenerator(reg, cfg)
	if err != nil {
		return err
	}
	if err := g.Generate(ctx); err != nil {
		return err
	}
	fmt.Fprintf(w, "generated %d files in %s\n", len(g.Files()), opts.Out)
	return nil
}

// watch calls fn whenever the file at path is written or replaced, until
// ctx is done. The parent directory is watched so that editors replacing
// the file by rename are seen.
func watch(ctx context.Context, path string, fn func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			if _, err := os.Stat(abs); err == nil {
				fn()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching %s: %w", path, err)
		}
	}
}
