package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/compmonks/instArchiver/pkg/config"
	"github.com/compmonks/instArchiver/pkg/logger"
	"github.com/compmonks/instArchiver/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	outputDir     string
	logFile       string
	logLevel      string
	quiet         bool
	notifications bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "instarchiver",
	Short: "An incremental archiver for an Instagram media feed",
	Long: `instArchiver downloads an Instagram account's media feed through the
Graph API into a local, browsable archive tree.

Features:
  - Incremental runs that stop where the previous run started
  - Resumable state, safe to interrupt and re-run
  - Full metadata and caption capture alongside every asset
  - Carousel expansion with ordered child assets
  - Secure credential storage using the system keychain
  - Atom/RSS export and a local read-only browser

Running instarchiver without a subcommand starts an archive run.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Quiet mode also kicks in when only errors are wanted
		if quiet || logLevel == "error" {
			ui.SetQuietMode(true)
		}

		// Don't show the logo for plumbing commands
		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "completion" {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .instarchiver.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "", "archive directory (default: InstagramArchive)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file (default: <archive-dir>/archive.log)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&notifications, "notifications", false, "send a desktop notification when a run finishes")

	// Version template
	rootCmd.SetVersionTemplate(`instArchiver {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig builds the effective configuration from flags, environment
// and config file, and wires up the logger. Exits on invalid setups, so
// callers get a usable config back or nothing at all.
func loadConfig() *config.Config {
	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output-dir"] = outputDir
	}
	if logFile != "" {
		flags["log-file"] = logFile
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logging", err.Error())
		os.Exit(1)
	}

	return cfg
}
