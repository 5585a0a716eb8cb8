package cli

import (
	"github.com/adrianmcphee/ninjadb"
	"github.com/spf13/cobra"
)

// newPlatformCmd creates the platform command
func (a *app) newPlatformCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platform",
		Short: "Show the detected hosting platform and storage backend",
		Long: `Show which storage backend the environment selects, without connecting.

Example:
  guessgame platform
  DYNO=web.1 MONGODB_URI=mongodb://app:pw@host/app guessgame platform`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ninjadb.ConfigFromEnv(a.getenv)
			out := cmd.OutOrStdout()

			printf(out, "platform: %s\n", cfg.Platform)
			printf(out, "backend:  %s\n", cfg.Kind)
			switch cfg.Kind {
			case ninjadb.KindDatastore, ninjadb.KindFirestore:
				printf(out, "project:  %s\n", cfg.ProjectID)
			case ninjadb.KindMongo:
				printf(out, "database: %s\n", cfg.Mongo.Database)
			case ninjadb.KindFile:
				printf(out, "storage:  %s %s\n", cfg.File.Blob.Type, cfg.File.Blob.Bucket)
				if cfg.File.RedisAddr != "" {
					printf(out, "ids:      redis %s\n", cfg.File.RedisAddr)
				}
			}
			return err
		},
	}
}
