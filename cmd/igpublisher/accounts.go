package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igpublisher/pkg/credentials"
	"igpublisher/pkg/ui"
)

// accountCmd represents the account command
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage stored account passwords",
	Long: `Manage the passwords used for automated logins.

Passwords are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (IGPUBLISHER_USERNAME / IGPUBLISHER_PASSWORD)

Never share your credentials or config files!`,
}

// accountAddCmd represents the account add command
var accountAddCmd = &cobra.Command{
	Use:   "add [username]",
	Short: "Store a password for an account",
	Long: `Store an account password securely in the system keychain or an
encrypted file. The password is read from a hidden prompt.`,
	Example: `  # Interactive
  igpublisher account add

  # With username
  igpublisher account add myusername`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAccountAdd,
}

// accountListCmd represents the account list command
var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	Long:  `List all accounts with stored passwords. Passwords stay masked.`,
	Run:   runAccountList,
}

// accountRemoveCmd represents the account remove command
var accountRemoveCmd = &cobra.Command{
	Use:   "remove <username>",
	Short: "Remove a stored password",
	Args:  cobra.ExactArgs(1),
	Run:   runAccountRemove,
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountAddCmd)
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountRemoveCmd)
}

func runAccountAdd(cmd *cobra.Command, args []string) {
	manager, err := credentials.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		fmt.Print("Instagram username: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read username", err.Error())
			os.Exit(1)
		}
		username = strings.TrimSpace(input)
	}

	if username == "" {
		ui.PrintError("Username is required", "")
		os.Exit(1)
	}

	// Confirm overwrite of an existing record
	if existing, _ := manager.Retrieve(username); existing != nil {
		fmt.Printf("Account '%s' already exists. Update password? (y/N): ", username)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Printf("Password for %s: ", username)
	password, err := readPassword()
	if err != nil {
		ui.PrintError("Failed to read password", err.Error())
		os.Exit(1)
	}
	if password == "" {
		ui.PrintError("Password is required", "")
		os.Exit(1)
	}

	record := &credentials.Record{
		Username: username,
		Password: password,
	}

	if err := manager.Store(record); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Account saved: " + username)
	fmt.Println("\nNext steps:")
	fmt.Printf("  $ igpublisher login %s\n", username)
	fmt.Printf("  $ igpublisher run %s\n", username)
}

func runAccountList(cmd *cobra.Command, args []string) {
	manager, err := credentials.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	records, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}

	if len(records) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'igpublisher account add' to add one")
		return
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Println()

	for i, record := range records {
		fmt.Printf("%d. Username: %s\n", i+1, record.Username)
		fmt.Printf("   Updated: %s\n", record.UpdatedAt.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}

func runAccountRemove(cmd *cobra.Command, args []string) {
	manager, err := credentials.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	username := args[0]
	if err := manager.Delete(username); err != nil {
		ui.PrintError("Failed to remove account", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Account removed: " + username)
}

// readPassword reads a password from stdin without echoing
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(password), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
