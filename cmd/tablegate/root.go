package tablegate

import (
	"fmt"
	"os"

	"github.com/edgeflare/tablegate/pkg/config"
	"github.com/edgeflare/tablegate/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// flagKeys maps config keys to the flags that override them. A command
// binds only the flags it defines.
var flagKeys = map[string]string{
	"log.level":           "log-level",
	"log.format":          "log-format",
	"database.driver":     "db-driver",
	"database.path":       "db",
	"database.connString": "db-conn-string",
	"rest.listenAddr":     "listen-addr",
	"rest.baseURL":        "base-url",
	"rest.statusCodes":    "status-codes",
	"metrics.enabled":     "metrics",
	"metrics.addr":        "metrics-addr",
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

func (a *app) load(cmd *cobra.Command) error {
	flags := make(map[string]*pflag.Flag, len(flagKeys))
	for key, name := range flagKeys {
		flags[key] = cmd.Flags().Lookup(name)
	}

	cfg, err := config.Load(a.cfgFile, flags)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	if cfg.File != "" {
		logger.Info("using config file", zap.String("file", cfg.File))
	}

	a.cfg, a.logger = cfg, logger
	return nil
}

// NewRootCmd returns the tablegate command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "tablegate",
		Short: "tablegate serves database tables over HTTP",
		Long: `tablegate exposes every table of a SQLite or PostgreSQL database as JSON
endpoints for listing, reading, inserting, updating and deleting rows.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintln(cmd.OutOrStdout(), config.Version)
				return nil
			}
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.config/tablegate.yaml or ./tablegate.yaml)")
	pf.StringP("log-level", "L", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "json", "log format (json, console)")
	pf.String("db-driver", "sqlite", "database driver (sqlite, postgres)")
	pf.String("db", "assessment.db", "sqlite database file")
	pf.String("db-conn-string", "", "postgres connection string")
	rootCmd.Flags().BoolP("version", "v", false, "Print the version number")

	rootCmd.AddCommand(newServeCmd(a), newBootstrapCmd(a))
	return rootCmd
}

func Main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
