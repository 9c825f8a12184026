package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/compmonks/instArchiver/pkg/logger"
	"github.com/compmonks/instArchiver/pkg/server"
	"github.com/compmonks/instArchiver/pkg/ui"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Browse the archive over HTTP",
	Long: `Serve a read-only view of the archive tree on a local address.

Endpoints:
  GET /                         date index
  GET /items                    item list
  GET /items/{date}/{id}        archived metadata
  GET /items/{date}/{id}/caption caption text
  GET /files/...                raw archive files

The server never talks to the Graph API and never writes to the
archive. It binds to loopback by default; the archive may contain
private media, so think before exposing it wider.`,
	Example: `  # Browse at http://127.0.0.1:8243/
  instarchiver serve

  # Different port
  instarchiver serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", server.DefaultAddr, "listen address")
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Archive.BaseDirectory, log)

	ui.PrintInfo("Serving archive", cfg.Archive.BaseDirectory)
	ui.PrintInfo("Listening on", "http://"+serveAddr)
	ui.PrintHighlight("Press Ctrl+C to stop")

	if err := srv.Run(ctx, serveAddr); err != nil {
		log.WithError(err).Error("Server stopped with an error")
		ui.PrintError("Server stopped", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Server stopped")
}
