package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/adrianmcphee/ninjadb"
	"github.com/adrianmcphee/ninjadb/internal/game"
	"github.com/spf13/cobra"
)

// newUsersCmd creates the users command group
func (a *app) newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect and manage players",
	}
	cmd.AddCommand(a.newUsersListCmd())
	cmd.AddCommand(a.newUsersShowCmd())
	cmd.AddCommand(a.newUsersDeleteCmd())
	return cmd
}

// withUsers opens the store for one command and closes it afterwards.
func (a *app) withUsers(ctx context.Context, fn func(*game.Users) error) error {
	logger, err := a.logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, _, err := a.openStore(ctx, logger, nil)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	return fn(game.NewUsers(store))
}

func (a *app) newUsersListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active players",
		Long: `List players that have not deleted their profile.

Filters take the form "field op value" with op one of ==, >, <, >=, <=.

Example:
  guessgame users list
  guessgame users list --limit 5 --where "secret_number > 20"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			wheres, _ := cmd.Flags().GetStringArray("where")

			filters := make([]ninjadb.Filter, 0, len(wheres))
			for _, w := range wheres {
				f, err := ninjadb.ParseFilterString(w)
				if err != nil {
					return fmt.Errorf("invalid --where %q: %w", w, err)
				}
				filters = append(filters, f)
			}

			return a.withUsers(cmd.Context(), func(users *game.Users) error {
				found, err := users.Active(cmd.Context(), limit, filters...)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				printf(w, "ID\tNAME\tEMAIL\n")
				for _, u := range found {
					printf(w, "%s\t%s\t%s\n", u.ID, u.Name, u.Email)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().Int("limit", 0, "maximum number of players (0 for all)")
	cmd.Flags().StringArray("where", nil, `filter as "field op value" (repeatable)`)
	return cmd
}

func (a *app) newUsersShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one player, including deleted ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withUsers(cmd.Context(), func(users *game.Users) error {
				u, err := users.ByID(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("load user %s: %w", args[0], err)
				}

				out := cmd.OutOrStdout()
				printf(out, "id:            %s\n", u.ID)
				printf(out, "name:          %s\n", u.Name)
				printf(out, "email:         %s\n", u.Email)
				printf(out, "secret_number: %d\n", u.SecretNumber)
				printf(out, "logged_in:     %t\n", u.SessionToken != nil)
				printf(out, "deleted:       %t\n", u.Deleted)
				return nil
			})
		},
	}
}

func (a *app) newUsersDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a player",
		Long: `Delete a player. By default the player is only flagged as deleted,
the same as deleting a profile from the web; --hard removes the document.

Example:
  guessgame users delete 3
  guessgame users delete 3 --hard`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hard, _ := cmd.Flags().GetBool("hard")
			id := args[0]

			return a.withUsers(cmd.Context(), func(users *game.Users) error {
				if hard {
					if err := users.HardDelete(cmd.Context(), id); err != nil {
						return fmt.Errorf("delete user %s: %w", id, err)
					}
					printf(cmd.OutOrStdout(), "Deleted user %s\n", id)
					return nil
				}

				if err := users.SoftDelete(cmd.Context(), id); err != nil {
					return fmt.Errorf("delete user %s: %w", id, err)
				}
				printf(cmd.OutOrStdout(), "Flagged user %s as deleted\n", id)
				return nil
			})
		},
	}
	cmd.Flags().Bool("hard", false, "remove the document instead of flagging it")
	return cmd
}
