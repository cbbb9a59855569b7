// =============================================================================
// RPS Batch Decoder - Watch Command
// =============================================================================
//
// COMMAND USAGE:
//   rpsdecode watch [--persist] [--family F] [--owner C]
//
// Runs the inbox pipeline on schedule.cron in schedule.timezone until
// interrupted. A run is also performed once at startup.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rps-batch-decoder/internal/jobs"
	"github.com/ginjaninja78/rps-batch-decoder/internal/pipeline"
	"github.com/ginjaninja78/rps-batch-decoder/internal/store"
)

var (
	watchFamily  string
	watchPersist bool
	watchOwner   string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Process the inbox on a cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchFamily, "family", "", "Layout family for every file")
	watchCmd.Flags().BoolVar(&watchPersist, "persist", false, "Store decoded batches in Postgres")
	watchCmd.Flags().StringVar(&watchOwner, "owner", "", "Company id for persisted batches (default owner_id)")
}

func runWatch(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := loadRuntime()
	if err != nil {
		return err
	}
	if watchPersist && env.cfg.Database.URL == "" {
		return fmt.Errorf("--persist needs database.url (or RPS_DATABASE_URL)")
	}

	var st store.Store
	if watchPersist {
		if st, err = openStore(ctx, env, false); err != nil {
			return err
		}
		defer st.Close()
	}

	p := pipeline.New(env.cfg, env.catalog, st, env.logger)
	opts := pipeline.Options{Family: watchFamily, Persist: watchPersist, CompanyID: watchOwner}

	sched, err := jobs.New(env.cfg.Schedule.Cron, env.cfg.Schedule.Timezone, func(ctx context.Context) error {
		summary, err := p.Run(ctx, opts)
		if summary != nil && summary.TotalFiles > 0 {
			env.logger.Info("Run finished: %d ok, %d failed, %d receipt(s)",
				summary.SuccessfulFiles, summary.FailedFiles, summary.TotalReceipts)
		}
		return err
	}, env.logger)
	if err != nil {
		return err
	}

	sched.RunNow()
	sched.Run(ctx)
	return nil
}
