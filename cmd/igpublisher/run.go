package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"igpublisher/pkg/publisher"
	"igpublisher/pkg/session"
	"igpublisher/pkg/ui"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [username]",
	Short: "Publish the next queued video for one or all accounts",
	Long: `Publish the oldest unpublished video.

With a username, only that account runs. Without one, the first configured
account runs; pass --all to run every configured account in order with a
fixed pause between them.

An account with no unpublished videos is skipped successfully; the command
only fails when a publish or login actually goes wrong.`,
	Example: `  # Run the first configured account
  igpublisher run

  # Run a single account
  igpublisher run myusername

  # Run every configured account
  igpublisher run --all`,
	Args: cobra.MaximumNArgs(1),
	Run:  runPublish,
}

var runAll bool

func init() {
	runCmd.Flags().BoolVar(&runAll, "all", false, "run every configured account")
	rootCmd.AddCommand(runCmd)
}

func runPublish(cmd *cobra.Command, args []string) {
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

	usernames := cfg.Usernames()
	switch {
	case len(args) == 1:
		usernames = []string{args[0]}
	case !runAll && len(usernames) > 1:
		usernames = usernames[:1]
	}
	if len(usernames) == 0 {
		ui.PrintError("No accounts configured", "add accounts to the config file or pass a username")
		os.Exit(1)
	}

	ctx := context.Background()
	outcomes, err := application.orch.RunAll(ctx, usernames)

	for _, outcome := range outcomes {
		reportOutcome(outcome)
	}

	if err != nil {
		os.Exit(1)
	}
}

// reportOutcome prints one account's result with remediation hints for the
// failure modes an operator can actually fix.
func reportOutcome(outcome publisher.Outcome) {
	if outcome.Err == nil {
		if outcome.Skipped {
			ui.PrintInfo(outcome.Username, "nothing to publish")
		} else {
			ui.PrintSuccess(fmt.Sprintf("%s: published %s (media %s)", outcome.Username, outcome.Key, outcome.MediaID))
		}
		return
	}

	ui.PrintError(fmt.Sprintf("%s failed", outcome.Username), outcome.Err.Error())

	var authErr *session.AuthenticationError
	var challengeErr *session.ChallengeUnresolvedError
	var exhaustedErr *session.ExhaustedRetriesError
	switch {
	case errors.As(outcome.Err, &authErr):
		ui.PrintWarning("Check the stored password", "igpublisher account add "+outcome.Username)
	case errors.As(outcome.Err, &challengeErr):
		ui.PrintWarning("Verification was not completed", "run 'igpublisher login "+outcome.Username+"' and enter the code when prompted")
	case errors.As(outcome.Err, &exhaustedErr):
		ui.PrintWarning("Repeated login failures", "the account may be rate limited; try again later")
	}
}
