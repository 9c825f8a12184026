package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/compmonks/instArchiver/pkg/config"
	"github.com/compmonks/instArchiver/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage instArchiver configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - .env files
  - Configuration file
  - Default values (lowest priority)

The access token is never read from or written to config files; it
comes from the environment or the credential store only.`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with the commonly tuned options.

The file will be created in the current directory as '.instarchiver.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging all sources.

The access token is excluded from the output by construction; use
'instarchiver auth list' to inspect stored credentials.`,
	Run: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = ".instarchiver.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	exampleConfig := `# instArchiver configuration file
#
# Credentials never live here. Set IG_USER_ID and IG_ACCESS_TOKEN in
# the environment (or a .env file), or store them with
# 'instarchiver auth login'.

# Graph API settings
api:
  # API version used in every endpoint path
  version: "v19.0"

  # Items requested per feed page (1-100)
  page_size: 50

# Archive layout
archive:
  # Where the archive tree grows
  base_directory: "InstagramArchive"

# Logging
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path
  # Leave empty to log next to the archive (<base_directory>/archive.log)
  file: ""
`

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Set credentials: 'instarchiver auth login' or IG_USER_ID / IG_ACCESS_TOKEN")
	fmt.Println("2. Run 'instarchiver doctor' to check the setup")
	fmt.Println("3. Start archiving with 'instarchiver run'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// The access token carries a yaml:"-" tag, so marshaling the
	// config cannot leak it
	data, err := yaml.Marshal(cfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Effective Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (IG_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (auto-detected)")
	}
	fmt.Println("4. Default values")
}
