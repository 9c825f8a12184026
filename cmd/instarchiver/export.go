package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/compmonks/instArchiver/pkg/export"
	"github.com/compmonks/instArchiver/pkg/logger"
	"github.com/compmonks/instArchiver/pkg/ui"
)

var (
	exportFormat string
	exportOut    string
	exportTitle  string
	exportLimit  int
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the archive as an Atom or RSS feed",
	Long: `Build a feed document from the archived metadata.

The export reads only the local archive tree, so it works offline.
Items are ordered newest first; captions become item descriptions.`,
	Example: `  # Atom feed at <archive>/feed.atom
  instarchiver export

  # RSS to a custom location
  instarchiver export --format rss --out /srv/www/instagram.xml`,
	Args: cobra.NoArgs,
	Run:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFormat, "format", "atom", "feed format (atom or rss)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default: <archive-dir>/feed.atom)")
	exportCmd.Flags().StringVar(&exportTitle, "title", "", "feed title")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "maximum number of items (0 = all)")
}

func runExport(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	log := logger.GetLogger()

	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		ui.PrintError("Invalid format", err.Error())
		os.Exit(1)
	}

	out := exportOut
	if out == "" {
		name := export.DefaultFileName
		if format == export.FormatRSS {
			name = "feed.rss"
		}
		out = filepath.Join(cfg.Archive.BaseDirectory, name)
	}

	opts := export.Options{
		Title:  exportTitle,
		Format: format,
		Limit:  exportLimit,
	}

	if err := export.Write(cfg.Archive.BaseDirectory, out, opts); err != nil {
		log.WithError(err).Error("Feed export failed")
		ui.PrintError("Feed export failed", err.Error())
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"format": string(format),
		"out":    out,
	}).Info("feed exported")
	ui.PrintSuccess("Feed written: " + out)
}
