package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tap-instagram/pkg/auth"
	"tap-instagram/pkg/ui"
)

var logoutAll bool

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored access tokens",
	Long: `Manage Graph API access tokens stored under account names.

Tokens are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - TAP_INSTAGRAM_ACCESS_TOKEN (read only)

A sync without an access token in its config uses --account, or the most
recently stored account.`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [account]",
	Short: "Store an access token",
	Long: `Store a Graph API access token under an account name.

The token is read without echo when stdin is a terminal, otherwise from the
first line of stdin. Generate a long-lived user or system-user token with the
instagram_basic, pages_show_list and instagram_manage_insights permissions.`,
	Example: `  # Interactive login
  tap-instagram auth login brand

  # Non-interactive
  echo "$TOKEN" | tap-instagram auth login brand`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [account]",
	Short: "Remove a stored access token",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

// statusCmd represents the auth status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List stored accounts with masked tokens",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)

	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "remove every stored account")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager("")
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)
	interactive := term.IsTerminal(int(os.Stdin.Fd()))

	name := "default"
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	} else if interactive {
		fmt.Fprint(os.Stderr, "Account name [default]: ")
		input, _ := reader.ReadString('\n')
		if input = strings.TrimSpace(input); input != "" {
			name = input
		}
	}

	if interactive {
		if existing, _ := manager.Retrieve(name); existing != nil {
			fmt.Fprintf(os.Stderr, "Account '%s' already exists. Replace its token? (y/N): ", name)
			input, _ := reader.ReadString('\n')
			if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
				return nil
			}
		}
	}

	var token string
	if interactive {
		fmt.Fprint(os.Stderr, "Access token: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		token = string(raw)
	} else {
		token, err = reader.ReadString('\n')
		if err != nil && token == "" {
			return fmt.Errorf("failed to read token from stdin: %w", err)
		}
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("access token is required")
	}

	if err := manager.Store(&auth.Account{Name: name, AccessToken: token}); err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Token stored for account '%s' (%s)", name, auth.MaskToken(token)))
	ui.PrintInfo("Use it with", "tap-instagram --account "+name)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager("")
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if logoutAll {
		if err := manager.DeleteAll(); err != nil {
			return fmt.Errorf("failed to remove accounts: %w", err)
		}
		ui.PrintSuccess("All accounts removed")
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("name an account or pass --all")
	}
	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	ui.PrintSuccess("Account removed: " + args[0])
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager("")
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "use 'tap-instagram auth login' to add one")
		return nil
	}

	var current string
	if def, err := manager.RetrieveDefault(); err == nil {
		current = def.Name
	}

	w := ui.Writer()
	ui.PrintHighlight("Stored accounts")
	for _, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		marker := " "
		if sanitized.Name == current {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %-20s %s  %s\n", marker, sanitized.Name, sanitized.AccessToken,
			ui.Dim(sanitized.LastModified.Format("2006-01-02 15:04:05")))
	}
	return nil
}
