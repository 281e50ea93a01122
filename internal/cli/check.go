package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/syssam/veloxql"
	"github.com/syssam/veloxql/dialect"
	"github.com/syssam/veloxql/dialect/sql"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	DSN string
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the schema against a live database",
		Long: `Check runs a query selecting every column of every entity, with a
predicate that matches no row, and reports the entities whose table or
columns the database rejects.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "data source name (default: dsn of the config file)")

	return cmd
}

func runCheck(ctx context.Context, opts *CheckOptions, w, logw io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := veloxql.LoadConfig(opts.Config)
	if err != nil {
		return err
	}
	if opts.DSN != "" {
		cfg.DSN = opts.DSN
	}
	level, _ := cfg.Level()
	logger := opts.logger(logw, level)

	client, err := veloxql.Open(cfg, veloxql.WithLogger(logger))
	if err != nil {
		return err
	}
	if len(client.Registry().Entities()) == 0 {
		return fmt.Errorf("config %s sets no schema", opts.Config)
	}
	driverName, dsn, err := driverSource(client.Dialect().Name(), cfg.DSN)
	if err != nil {
		return err
	}
	var statsOpts []sql.StatsOption
	if cfg.SlowThreshold > 0 {
		statsOpts = append(statsOpts, sql.WithSlowThreshold(cfg.SlowThreshold))
	}
	drv, stats, err := sql.OpenWithStats(driverName, dsn, append(statsOpts, sql.WithSlowQueryLog(logger))...)
	if err != nil {
		return err
	}
	defer drv.Close()

	failed := 0
	for _, e := range client.Registry().Entities() {
		q := client.From(e).Where(func(veloxql.Tables) veloxql.Node { return veloxql.Const(false) })
		if _, err := drv.All(ctx, q); err != nil {
			failed++
			fmt.Fprintf(w, "FAIL %s (%s): %v\n", e.Name(), e.TableName(), err)
			continue
		}
		fmt.Fprintf(w, "ok   %s (%s)\n", e.Name(), e.TableName())
	}
	logger.Debug("veloxql: check finished", "stats", stats.Stats().String())
	if failed > 0 {
		return fmt.Errorf("%d of %d entities failed", failed, len(client.Registry().Entities()))
	}
	return nil
}

// driverSource returns the database/sql driver name and data source for a
// dialect. MySQL sources are parsed and set to scan DATETIME columns as
// time.Time.
func driverSource(name, dsn string) (string, string, error) {
	switch name {
	case dialect.MySQL:
		c, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", "", fmt.Errorf("mysql dsn: %w", err)
		}
		c.ParseTime = true
		return "mysql", c.FormatDSN(), nil
	case dialect.Postgres:
		return "postgres", dsn, nil
	case dialect.SQLite:
		return "sqlite", dsn, nil
	default:
		return "", "", fmt.Errorf("no database/sql driver is linked for %s", name)
	}
}
