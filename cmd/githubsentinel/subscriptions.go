package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localrivet/githubsentinel/internal/subscription"
)

var subscriptionsCmd = &cobra.Command{
	Use:     "subscriptions",
	Aliases: []string{"subs"},
	Short:   "Manage subscribed repositories",
}

var subscriptionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscribed repositories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSubscriptions(cmd, func(store *subscription.Store) ([]string, error) {
			return store.List()
		})
	},
}

var subscriptionsAddCmd = &cobra.Command{
	Use:   "add owner/name",
	Short: "Subscribe to a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSubscriptions(cmd, func(store *subscription.Store) ([]string, error) {
			return store.Add(args[0])
		})
	},
}

var subscriptionsRemoveCmd = &cobra.Command{
	Use:   "remove owner/name",
	Short: "Unsubscribe from a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSubscriptions(cmd, func(store *subscription.Store) ([]string, error) {
			return store.Remove(args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(subscriptionsCmd)
	subscriptionsCmd.AddCommand(subscriptionsListCmd, subscriptionsAddCmd, subscriptionsRemoveCmd)
}

// withSubscriptions runs fn against the configured subscription file and
// prints the resulting list. It needs neither the provider nor the archive.
func withSubscriptions(cmd *cobra.Command, fn func(*subscription.Store) ([]string, error)) error {
	appLogger, cfg, err := setupLogging()
	if err != nil {
		return err
	}

	repos, err := fn(subscription.NewStore(cfg.Storage.SubscriptionsFile, appLogger))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(repos) == 0 {
		fmt.Fprintln(w, "No subscriptions.")
		return nil
	}
	for _, repo := range repos {
		fmt.Fprintln(w, repo)
	}
	return nil
}
