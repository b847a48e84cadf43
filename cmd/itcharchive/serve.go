package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"itcharchive/internal/server"
	"itcharchive/pkg/logger"
	"itcharchive/pkg/ui"
)

var (
	listenAddr string
	serveDir   string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

  POST   /api/scrape         {"creator": "..."} starts a job, returns {"job_id": "..."}
  GET    /api/status/:id     progress of a job
  GET    /api/download/:id   the finished ZIP archive
  DELETE /api/jobs/:id       cancel a running job or delete a finished one
  GET    /healthz            liveness

Jobs and their archives are kept in memory and on disk for server.job_ttl
after they finish.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := make(map[string]interface{})
		if listenAddr != "" {
			flags["addr"] = listenAddr
		}
		if serveDir != "" {
			flags["output"] = serveDir
		}

		cfg, err := loadConfig(flags)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ui.PrintBanner()
		ui.PrintInfo("Listening on", cfg.Server.Address)
		ui.PrintInfo("Work directory", cfg.Output.Directory)

		srv := server.New(cfg, version, nil, logger.GetLogger())
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (default :8080)")
	serveCmd.Flags().StringVarP(&serveDir, "output", "o", "", "directory for job archives")
}
