package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/compmonks/instArchiver/pkg/auth"
	"github.com/compmonks/instArchiver/pkg/graph"
	"github.com/compmonks/instArchiver/pkg/logger"
	"github.com/compmonks/instArchiver/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Graph API credentials",
	Long: `Manage stored Graph API credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only, IG_USER_ID / IG_ACCESS_TOKEN)

Never share your access token or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [label]",
	Short: "Store Graph API credentials securely",
	Long: `Store Graph API credentials in the system keychain or an encrypted file.

You will be prompted for:
  - A label for the credentials (press Enter for "default")
  - The Instagram Business/Creator account user id
  - The access token (hidden while typing)
  - App id and app secret (optional, needed for 'auth exchange')

The login guide printed first explains where each value comes from.`,
	Example: `  # Interactive login
  instarchiver auth login

  # Login under a specific label
  instarchiver auth login personal`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [label]",
	Short: "Remove stored credentials",
	Long: `Remove stored Graph API credentials.

If no label is provided, you will be shown a list of stored accounts
to choose from. You can also remove all accounts at once.`,
	Example: `  # Interactive logout
  instarchiver auth logout

  # Logout a specific account
  instarchiver auth logout personal`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogout,
}

// authListCmd represents the auth list command
var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored accounts with sanitized credential information.`,
	Run:   runAuthList,
}

// exchangeCmd represents the auth exchange command
var exchangeCmd = &cobra.Command{
	Use:   "exchange",
	Short: "Exchange the current token for a long-lived one",
	Long: `Exchange a short-lived access token for a long-lived one (about 60
days) using the app id and app secret.

The short-lived token comes from the environment or the credential
store; the app id and secret come from the flags, the stored
credentials, or IG_APP_ID / IG_APP_SECRET.`,
	Example: `  # Print a long-lived token
  instarchiver auth exchange --app-id 1234 --app-secret abcd

  # Refresh the stored token in place
  instarchiver auth exchange --save`,
	Args: cobra.NoArgs,
	Run:  runExchange,
}

var (
	exchangeAppID     string
	exchangeAppSecret string
	exchangeSave      bool
)

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(exchangeCmd)

	exchangeCmd.Flags().StringVar(&exchangeAppID, "app-id", "", "Meta app id")
	exchangeCmd.Flags().StringVar(&exchangeAppSecret, "app-secret", "", "Meta app secret")
	exchangeCmd.Flags().BoolVar(&exchangeSave, "save", false, "store the long-lived token back into the credential store")
	exchangeCmd.Flags().StringVarP(&accountName, "account", "a", "", "exchange the token of a specific stored account")
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	var label string
	if len(args) > 0 {
		label = args[0]
	}

	reader := bufio.NewReader(os.Stdin)

	// Show where the values come from first
	auth.ShowTokenGuide()

	fmt.Print("Ready to enter your credentials? (Y/n): ")
	ready, _ := reader.ReadString('\n')
	if strings.ToLower(strings.TrimSpace(ready)) == "n" {
		fmt.Println("\nRun 'instarchiver auth login' when you're ready.")
		return
	}

	fmt.Println()

	if label == "" {
		fmt.Print("🏷️  Label for these credentials [default]: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read label", err.Error())
			os.Exit(1)
		}
		label = strings.TrimSpace(input)
		if label == "" {
			label = auth.DefaultLabel
		}
	}

	// Check if the label already exists
	if existing, _ := manager.Retrieve(label); existing != nil {
		fmt.Printf("\n⚠️  Account '%s' already exists. Update credentials? (y/N): ", label)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	// Get the user id with validation
	var userID string
	for {
		fmt.Print("👤 Instagram user id: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read user id", err.Error())
			os.Exit(1)
		}
		userID = strings.TrimSpace(input)

		if !isNumeric(userID) || len(userID) < 5 {
			fmt.Println("\n❌ That doesn't look like a Graph API user id.")
			fmt.Println("   It should be a long number, like 17841400000000000.")
			fmt.Print("\nTry again? (Y/n): ")
			retry, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(retry)) == "n" {
				os.Exit(1)
			}
			continue
		}
		break
	}

	fmt.Println("\n🔐 Enter your access token (it will be hidden as you type):")
	fmt.Println()

	// Get the access token with validation
	var accessToken string
	for {
		fmt.Print("Access token: ")
		accessToken, err = readPassword()
		if err != nil {
			ui.PrintError("Failed to read access token", err.Error())
			os.Exit(1)
		}

		if len(accessToken) < 20 {
			fmt.Println("\n❌ That doesn't look like a valid access token.")
			fmt.Println("   Graph API tokens are long strings, usually starting with EAA.")
			fmt.Print("\nTry again? (Y/n): ")
			retry, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(retry)) == "n" {
				os.Exit(1)
			}
			continue
		}
		break
	}

	// Optional: app id and secret for the long-lived token exchange
	fmt.Print("\n\n🧩 App id (press Enter to skip): ")
	appID, _ := reader.ReadString('\n')
	appID = strings.TrimSpace(appID)

	var appSecret string
	if appID != "" {
		fmt.Print("App secret (hidden): ")
		appSecret, err = readPassword()
		if err != nil {
			ui.PrintError("Failed to read app secret", err.Error())
			os.Exit(1)
		}
	}

	creds := &auth.Credentials{
		Label:       label,
		UserID:      userID,
		AccessToken: accessToken,
		AppID:       appID,
		AppSecret:   appSecret,
	}

	// Show what we're about to store
	sanitized := auth.Sanitize(creds)
	fmt.Println("\n📋 Summary:")
	fmt.Printf("   Label: %s\n", sanitized.Label)
	fmt.Printf("   User id: %s\n", sanitized.UserID)
	fmt.Printf("   Access token: %s (hidden)\n", sanitized.AccessToken)
	if appID != "" {
		fmt.Printf("   App id: %s\n", sanitized.AppID)
	}

	fmt.Println("\n💾 Storing credentials securely...")
	if err := manager.Store(creds); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	fmt.Println("\n🎉 Credentials stored successfully!")
	ui.PrintSuccess(fmt.Sprintf("Account saved: %s", label))

	fmt.Println("\n🔒 Security Information:")
	fmt.Println("   Your credentials are stored in:")
	if auth.IsKeyringAvailable() {
		fmt.Println("   • System keychain (primary)")
	}
	fmt.Println("   • Encrypted file (fallback)")

	fmt.Println("\n📖 Quick Start Guide:")
	fmt.Println("   Archive everything new:")
	fmt.Println("   $ instarchiver run")
	fmt.Println("\n   Fast incremental pass:")
	fmt.Println("   $ instarchiver run --since-last")
	fmt.Println("\n   Use this account explicitly:")
	fmt.Printf("   $ instarchiver run --account %s\n", label)
	fmt.Println("\n⚠️  Never share your access token or config files!")
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	if len(args) == 0 {
		accounts, err := manager.List()
		if err != nil || len(accounts) == 0 {
			ui.PrintError("No stored accounts found", "")
			return
		}

		if len(accounts) == 1 {
			// Only one account, confirm deletion
			account := accounts[0]
			reader := bufio.NewReader(os.Stdin)
			fmt.Printf("Remove account '%s'? (y/N): ", account.Label)
			input, _ := reader.ReadString('\n')
			if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
				return
			}

			if err := manager.Delete(account.Label); err != nil {
				ui.PrintError("Failed to remove account", err.Error())
				os.Exit(1)
			}
			ui.PrintSuccess("Account removed: " + account.Label)
			return
		}

		// Multiple accounts, show menu
		fmt.Println("Select account to remove:")
		for i, account := range accounts {
			fmt.Printf("  %d. %s\n", i+1, account.Label)
		}
		fmt.Printf("  %d. Remove all accounts\n", len(accounts)+1)
		fmt.Printf("  0. Cancel\n\n")

		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Choice: ")
		input, _ := reader.ReadString('\n')

		var choice int
		fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)

		if choice == 0 {
			return
		} else if choice == len(accounts)+1 {
			fmt.Print("Remove ALL accounts? This cannot be undone! (yes/N): ")
			confirm, _ := reader.ReadString('\n')
			if strings.TrimSpace(confirm) != "yes" {
				return
			}

			if err := manager.DeleteAll(); err != nil {
				ui.PrintError("Failed to remove all accounts", err.Error())
				os.Exit(1)
			}
			ui.PrintSuccess("All accounts removed")
			return
		} else if choice > 0 && choice <= len(accounts) {
			account := accounts[choice-1]
			if err := manager.Delete(account.Label); err != nil {
				ui.PrintError("Failed to remove account", err.Error())
				os.Exit(1)
			}
			ui.PrintSuccess("Account removed: " + account.Label)
			return
		} else {
			ui.PrintError("Invalid choice", "")
			os.Exit(1)
		}
	}

	label := args[0]
	if err := manager.Delete(label); err != nil {
		ui.PrintError("Failed to remove account", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Account removed: " + label)
}

func runAuthList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'instarchiver auth login' to add an account")
		return
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Println()

	for i, account := range accounts {
		sanitized := auth.Sanitize(account)
		fmt.Printf("%d. Label: %s\n", i+1, sanitized.Label)
		fmt.Printf("   User id: %s\n", sanitized.UserID)
		fmt.Printf("   Access token: %s\n", sanitized.AccessToken)
		if sanitized.AppID != "" {
			fmt.Printf("   App id: %s\n", sanitized.AppID)
		}
		if !sanitized.LastModified.IsZero() {
			fmt.Printf("   Last modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}
}

func runExchange(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	log := logger.GetLogger()

	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	var creds *auth.Credentials
	if accountName != "" {
		creds, err = manager.Retrieve(accountName)
		if err != nil {
			ui.PrintError("Account not found", accountName)
			os.Exit(1)
		}
	} else {
		creds, err = manager.Resolve()
		if err != nil {
			ui.PrintError("No Graph API credentials found", "")
			fmt.Println("\nStore credentials first:")
			fmt.Println("  instarchiver auth login")
			os.Exit(1)
		}
	}

	appID := exchangeAppID
	if appID == "" {
		appID = creds.AppID
	}
	if appID == "" {
		appID = os.Getenv("IG_APP_ID")
	}
	appSecret := exchangeAppSecret
	if appSecret == "" {
		appSecret = creds.AppSecret
	}
	if appSecret == "" {
		appSecret = os.Getenv("IG_APP_SECRET")
	}

	if appID == "" || appSecret == "" {
		ui.PrintError("App id and app secret are required for the exchange", "")
		fmt.Println("\nPass them as flags:")
		fmt.Println("  instarchiver auth exchange --app-id <id> --app-secret <secret>")
		fmt.Println("\nOr store them during login, or set IG_APP_ID / IG_APP_SECRET.")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := graph.NewClient(cfg, log)
	grant, err := client.ExchangeToken(ctx, appID, appSecret, creds.AccessToken)
	if err != nil {
		log.WithError(err).Error("Token exchange failed")
		ui.PrintError("Token exchange failed", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Token exchange succeeded")
	if grant.TokenType != "" {
		ui.PrintInfo("Token type", grant.TokenType)
	}
	if grant.ExpiresIn > 0 {
		lifetime := time.Duration(grant.ExpiresIn) * time.Second
		expiry := time.Now().Add(lifetime)
		ui.PrintInfo("Expires in", fmt.Sprintf("%d days", int(lifetime.Hours()/24)))
		ui.PrintInfo("Expires on", expiry.Format("2006-01-02"))
	}

	if exchangeSave {
		creds.AccessToken = grant.AccessToken
		if err := manager.Store(creds); err != nil {
			ui.PrintError("Failed to store the refreshed token", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("Refreshed token stored under label: " + creds.Label)
		return
	}

	fmt.Println("\nNew long-lived token (keep it secret):")
	fmt.Println(grant.AccessToken)
	fmt.Println("\nRe-run with --save to store it in the credential store.")
}

// isNumeric reports whether s consists only of ASCII digits
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// readPassword reads a secret from stdin without echoing
func readPassword() (string, error) {
	// Try to read without echo
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(password), nil
		}
	}

	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
