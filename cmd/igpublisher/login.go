package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"igpublisher/pkg/ui"
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login [username...]",
	Short: "Establish sessions ahead of a publish run",
	Long: `Log in and persist a session for each named account, or for every
configured account when no names are given.

A stored session that still works is kept as is. Accounts that require a
two-factor or checkpoint code will prompt for it interactively, so this
command is the right place to clear challenges before unattended runs.

The exit code is the number of accounts that failed.`,
	Example: `  # Log in every configured account
  igpublisher login

  # Log in specific accounts
  igpublisher login alice bob`,
	Run: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	application, err := newApp(cfg)
	if err != nil {
		ui.PrintError("Failed to initialize", err.Error())
		os.Exit(1)
	}

	usernames := args
	if len(usernames) == 0 {
		usernames = cfg.Usernames()
	}
	if len(usernames) == 0 {
		ui.PrintError("No accounts configured", "add accounts to the config file or pass usernames")
		os.Exit(1)
	}

	ctx := context.Background()
	failures := 0
	for _, username := range usernames {
		handle, err := application.sessions.Acquire(ctx, username)
		if err != nil {
			ui.PrintError(fmt.Sprintf("%s login failed", username), err.Error())
			failures++
			continue
		}
		ui.PrintSuccess(fmt.Sprintf("%s: session ready", handle.Username))
	}

	os.Exit(failures)
}
