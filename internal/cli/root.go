// Package cli implements the guessgame command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/adrianmcphee/ninjadb"
	"github.com/adrianmcphee/ninjadb/internal/game"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Configuration keys, also readable as GUESSGAME_<KEY> environment variables.
const (
	keyAddr         = "addr"
	keyLogLevel     = "log_level"
	keyDev          = "dev"
	keySecretMax    = "secret_max"
	keyCookieSecure = "cookie_secure"
	keyPort         = "port"

	defaultAddr = ":8080"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	getenv  func(string) string
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree with its own configuration state.
func NewRootCmd() *cobra.Command {
	return newRootCmd(os.Getenv)
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	a := &app{v: viper.New(), getenv: getenv}

	rootCmd := &cobra.Command{
		Use:   "guessgame",
		Short: "Guess-the-secret-number web game",
		Long: `guessgame serves a small guessing game whose users live in whichever
document database the host platform provides.

Storage is picked from the environment:
  App Engine   GAE_APPLICATION (Firestore, or Datastore with GAE_DATABASE=datastore)
  Azure        APPSETTING_WEBSITE_SITE_NAME (Cosmos DB, APPSETTING_MONGOURL)
  Heroku       DYNO (MongoDB, MONGODB_URI)
  otherwise    local file store under DATA_PATH

Quick start:
  guessgame platform          Show the detected storage backend
  guessgame serve             Start the web server
  guessgame users list        List active players`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./guessgame.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("dev", false, "human-readable development logging")
	_ = a.v.BindPFlag(keyLogLevel, flags.Lookup("log-level"))
	_ = a.v.BindPFlag(keyDev, flags.Lookup("dev"))

	a.v.SetDefault(keyLogLevel, "info")
	a.v.SetDefault(keySecretMax, game.DefaultSecretMax)
	a.v.SetDefault(keyCookieSecure, false)

	rootCmd.AddCommand(a.newServeCmd())
	rootCmd.AddCommand(a.newPlatformCmd())
	rootCmd.AddCommand(a.newUsersCmd())
	return rootCmd
}

// initConfig reads in config file and ENV variables if set.
func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigType("yaml")
		a.v.SetConfigName("guessgame")
	}

	a.v.SetEnvPrefix("GUESSGAME")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	// Heroku and App Engine hand out the listen port as PORT. It is read
	// through getenv like the storage settings; GUESSGAME_PORT or the
	// config file still take precedence.
	if port := a.getenv("PORT"); port != "" {
		a.v.SetDefault(keyPort, port)
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// listenAddr prefers an explicit address, then $PORT.
func (a *app) listenAddr() string {
	if addr := a.v.GetString(keyAddr); addr != "" {
		return addr
	}
	if port := a.v.GetString(keyPort); port != "" {
		return ":" + port
	}
	return defaultAddr
}

func (a *app) logger() (*zap.Logger, error) {
	return ninjadb.BuildZap(a.v.GetString(keyLogLevel), a.v.GetBool(keyDev))
}

// openStore connects to the detected backend. The returned store must be
// closed by the caller.
func (a *app) openStore(ctx context.Context, logger *zap.Logger, metrics ninjadb.Metrics) (*ninjadb.Store, ninjadb.Config, error) {
	if metrics == nil {
		metrics = &ninjadb.NoOpMetrics{}
	}
	zl := ninjadb.NewZapLogger(logger)

	docs, cfg, err := ninjadb.Connect(ctx,
		ninjadb.WithGetenv(a.getenv),
		ninjadb.WithLogger(zl),
		ninjadb.WithMetrics(metrics))
	if err != nil {
		return nil, cfg, err
	}
	return ninjadb.NewStoreWithObservability(docs, zl, metrics), cfg, nil
}

func (a *app) newService(store *ninjadb.Store, logger *zap.Logger) *game.Service {
	return game.NewService(game.NewUsers(store), logger, game.Options{
		SecretMax: a.v.GetInt(keySecretMax),
	})
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
