package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/compmonks/instArchiver/pkg/auth"
	"github.com/compmonks/instArchiver/pkg/graph"
	"github.com/compmonks/instArchiver/pkg/logger"
	"github.com/compmonks/instArchiver/pkg/metadata"
	"github.com/compmonks/instArchiver/pkg/ui"
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the archiver is ready to run",
	Long: `Check the archiver's environment without archiving anything.

This command checks:
  - Credential presence (environment or credential store)
  - Archive directory writability
  - Log directory writability
  - Stale partial downloads left by interrupted runs
  - Access token validity (one probe request)`,
	Args: cobra.NoArgs,
	Run:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	log := logger.GetLogger()

	warnings := []string{}
	errors := []string{}

	ui.PrintHighlight("Checking archiver health")
	fmt.Println()

	// Credentials
	userID := cfg.API.UserID
	token := cfg.API.AccessToken
	source := "environment"
	if userID == "" || token == "" {
		if manager, err := auth.NewManager(); err == nil {
			if creds, err := manager.Resolve(); err == nil {
				userID = creds.UserID
				token = creds.AccessToken
				source = "credential store"
				if creds.Label != "" && creds.Label != auth.EnvironmentLabel {
					source = fmt.Sprintf("credential store (%s)", creds.Label)
				}
			}
		}
	}
	if userID == "" || token == "" {
		fmt.Println("  ❌ Credentials: not found")
		errors = append(errors, "no credentials found (run 'instarchiver auth login' or set IG_USER_ID / IG_ACCESS_TOKEN)")
	} else {
		fmt.Printf("  ✅ Credentials: found (%s)\n", source)
	}

	// Archive directory
	if err := probeDir(cfg.Archive.BaseDirectory); err != nil {
		fmt.Printf("  ❌ Archive directory: %s\n", cfg.Archive.BaseDirectory)
		errors = append(errors, fmt.Sprintf("archive directory is not writable: %v", err))
	} else {
		fmt.Printf("  ✅ Archive directory: %s\n", cfg.Archive.BaseDirectory)
	}

	// Log directory
	if cfg.Logging.File != "" {
		logDir := filepath.Dir(cfg.Logging.File)
		if err := probeDir(logDir); err != nil {
			fmt.Printf("  ❌ Log directory: %s\n", logDir)
			errors = append(errors, fmt.Sprintf("log directory is not writable: %v", err))
		} else {
			fmt.Printf("  ✅ Log file: %s\n", cfg.Logging.File)
		}
	}

	// Stale partial downloads
	removed, err := metadata.RemoveStaleParts(cfg.Archive.BaseDirectory)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("could not scan for stale partial downloads: %v", err))
	} else if len(removed) > 0 {
		fmt.Printf("  ✅ Removed %d stale partial download(s)\n", len(removed))
		for _, path := range removed {
			log.WithField("path", path).Info("removed stale partial download")
		}
	} else {
		fmt.Println("  ✅ No stale partial downloads")
	}

	// Token probe, only worth trying when credentials exist
	if userID != "" && token != "" {
		cfg.API.UserID = userID
		cfg.API.AccessToken = token
		client := graph.NewClient(cfg, log)
		username, err := client.ValidateToken(context.Background(), userID, token)
		if err != nil {
			fmt.Println("  ❌ Access token: rejected")
			errors = append(errors, fmt.Sprintf("token validation failed: %v", err))
		} else {
			fmt.Printf("  ✅ Access token: valid (account: %s)\n", username)
		}
	}

	fmt.Println()

	if len(warnings) > 0 {
		ui.PrintWarning("Warnings:")
		for _, warn := range warnings {
			fmt.Printf("  - %s\n", warn)
		}
		fmt.Println()
	}

	if len(errors) > 0 {
		ui.PrintError("Doctor found problems:", "")
		for _, e := range errors {
			fmt.Printf("  - %s\n", e)
		}
		os.Exit(1)
	}

	ui.PrintSuccess("All checks passed")
}

// probeDir verifies dir exists and accepts writes.
func probeDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".write_test")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return err
	}
	return os.Remove(probe)
}
