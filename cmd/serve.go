// =============================================================================
// RPS Batch Decoder - Serve Command
// =============================================================================
//
// COMMAND USAGE:
//   rpsdecode serve [--addr :8080]
//
// Starts the HTTP intake. Uploads are stored in Postgres when database.url is
// set, otherwise in memory for the life of the process.
//
// =============================================================================

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rps-batch-decoder/internal/pipeline"
	"github.com/ginjaninja78/rps-batch-decoder/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP upload intake",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// --addr flag: Overrides server.addr.
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default server.addr)")
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := loadRuntime()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, env, true)
	if err != nil {
		return err
	}
	defer st.Close()

	addr := env.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	p := pipeline.New(env.cfg, env.catalog, st, env.logger)
	srv := server.New(p, st, server.Options{
		Addr:            addr,
		MaxUploadBytes:  env.cfg.Server.MaxUploadMB << 20,
		ShutdownTimeout: env.cfg.Server.ShutdownTimeout,
		Encoding:        env.cfg.Encoding,
	}, env.logger)
	return srv.ListenAndServe(ctx)
}
