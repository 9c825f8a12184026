package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/compmonks/instArchiver/pkg/archive"
	"github.com/compmonks/instArchiver/pkg/auth"
	"github.com/compmonks/instArchiver/pkg/config"
	"github.com/compmonks/instArchiver/pkg/download"
	"github.com/compmonks/instArchiver/pkg/graph"
	"github.com/compmonks/instArchiver/pkg/logger"
	"github.com/compmonks/instArchiver/pkg/state"
	"github.com/compmonks/instArchiver/pkg/ui"
)

var (
	// Run command flags
	pageSize    int
	maxPages    int
	sinceLast   bool
	accountName string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Archive the media feed into the local tree",
	Long: `Walk the account's media feed newest first and archive every item
that is not in the archive yet.

Each item becomes a directory <archive>/<YYYY-MM-DD>/<media-id>/ holding
meta.json, caption.txt and the downloaded assets. Items already archived
are skipped, so re-running is cheap. With --since-last the walk stops
as soon as it reaches the item the previous run started with.

Credentials are resolved from the environment (IG_USER_ID and
IG_ACCESS_TOKEN), then from the credential store ('instarchiver auth
login' to populate it).`,
	Example: `  # Archive everything new
  instarchiver run

  # Fast incremental pass, stop at the previous run's newest item
  instarchiver run --since-last

  # Bounded probe: two pages of 25 items
  instarchiver run --page-size 25 --max-pages 2

  # Use a specific stored account
  instarchiver run --account personal`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runArchive(false)
	},
}

// backfillCmd represents the backfill command
var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Walk the whole feed, filling gaps in the archive",
	Long: `Walk the entire media feed regardless of the stored resume marker.

Items already archived are still skipped, so a backfill downloads only
what is missing. Useful after deleting directories from the archive or
after runs that were cut short.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runArchive(true)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(backfillCmd)

	runCmd.Flags().IntVar(&pageSize, "page-size", 50, "items per feed page (1-100)")
	runCmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after this many pages (0 = no limit)")
	runCmd.Flags().BoolVar(&sinceLast, "since-last", false, "stop at the newest item of the previous run")
	runCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")

	backfillCmd.Flags().IntVar(&pageSize, "page-size", 50, "items per feed page (1-100)")
	backfillCmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after this many pages (0 = no limit)")
	backfillCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")

	// Also accept the run flags on the bare command
	rootCmd.Flags().IntVar(&pageSize, "page-size", 50, "items per feed page (1-100)")
	rootCmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after this many pages (0 = no limit)")
	rootCmd.Flags().BoolVar(&sinceLast, "since-last", false, "stop at the newest item of the previous run")
	rootCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
}

// Make run the default command when no subcommand is specified
func init() {
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
		}
		runArchive(false)
		return nil
	}
	rootCmd.Args = cobra.ArbitraryArgs
}

func runArchive(backfill bool) {
	cfg := loadConfig()
	if pageSize > 0 && pageSize != 50 {
		cfg.API.PageSize = pageSize
	}

	log := logger.GetLogger()
	log.WithField("version", version).Info("instArchiver starting")

	resolveCredentials(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := graph.NewClient(cfg, log)

	// Go/no-go before anything touches the disk
	username, err := client.ValidateToken(ctx, cfg.API.UserID, cfg.API.AccessToken)
	if err != nil {
		log.WithError(err).Error("Token validation failed")
		ui.PrintError("Token validation failed", err.Error())
		fmt.Println("\nIf the token expired, exchange a fresh one:")
		fmt.Println("  instarchiver auth exchange --save")
		os.Exit(1)
	}
	ui.PrintInfo("Authenticated as", username)
	ui.PrintInfo("Archive directory", cfg.Archive.BaseDirectory)

	store := state.NewStore(cfg.StatePath(), log)
	downloader := download.NewDownloader(cfg, log)
	archiver := archive.NewArchiver(cfg, client, downloader, log)
	walker := archive.NewWalker(cfg, client, archiver, store, log)

	opts := archive.Options{
		PageSize:  cfg.API.PageSize,
		MaxPages:  maxPages,
		SinceLast: sinceLast,
	}

	tracker := ui.NewRunTracker()
	notifier := ui.NewNotifier()

	var summary *archive.Summary
	if backfill {
		ui.PrintHighlight("[FULL ARCHIVE WALK]")
		summary, err = walker.Backfill(ctx, opts)
	} else if opts.SinceLast {
		ui.PrintHighlight("[INCREMENTAL ARCHIVE RUN]")
		summary, err = walker.Run(ctx, opts)
	} else {
		ui.PrintHighlight("[ARCHIVE RUN]")
		summary, err = walker.Run(ctx, opts)
	}
	if err != nil {
		log.WithError(err).Error("Archive run failed")
		ui.PrintError("ARCHIVE RUN FAILED", err.Error())
		if notifications {
			notifier.SendError("instArchiver", "Archive run failed: "+err.Error())
		}
		os.Exit(1)
	}

	tracker.PrintRunSummary(summary.Pages, summary.Archived, summary.Skipped, summary.LastSavedMediaID)
	ui.PrintSuccess("[ARCHIVE RUN COMPLETE]")
	if notifications {
		notifier.SendSuccess("instArchiver",
			fmt.Sprintf("Archived %d new items (%d skipped)", summary.Archived, summary.Skipped))
	}
}

// resolveCredentials fills the user id and access token on cfg, trying
// the environment first, then the credential store. Exits when nothing
// usable is found.
func resolveCredentials(cfg *config.Config) {
	log := logger.GetLogger()

	if accountName != "" {
		manager, err := auth.NewManager()
		if err != nil {
			ui.PrintError("Failed to initialize credential manager", err.Error())
			os.Exit(1)
		}
		creds, err := manager.Retrieve(accountName)
		if err != nil {
			ui.PrintError("Account not found", accountName)
			ui.PrintInfo("Stored accounts", "Use 'instarchiver auth list' to see them")
			os.Exit(1)
		}
		applyCredentials(cfg, creds)
		log.WithField("account", creds.Label).Info("Using stored credentials")
		return
	}

	// Environment variables land in the config during loading
	if cfg.API.UserID != "" && cfg.API.AccessToken != "" {
		log.Info("Using credentials from the environment")
		return
	}

	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	creds, err := manager.Resolve()
	if err != nil {
		log.Error("No credentials found")
		ui.PrintError("No Graph API credentials found", "")
		fmt.Println("\nTo store credentials securely, run:")
		fmt.Println("  instarchiver auth login")
		fmt.Println("\nOr set environment variables:")
		fmt.Println("  export IG_USER_ID=your_user_id")
		fmt.Println("  export IG_ACCESS_TOKEN=your_access_token")
		auth.ShowQuickTokenGuide()
		os.Exit(1)
	}

	applyCredentials(cfg, creds)
	if creds.Label != "" && creds.Label != auth.EnvironmentLabel {
		log.WithField("account", creds.Label).Info("Using stored credentials")
		ui.PrintInfo("Using account", creds.Label)
	}
}

func applyCredentials(cfg *config.Config, creds *auth.Credentials) {
	cfg.API.UserID = creds.UserID
	cfg.API.AccessToken = creds.AccessToken
}
