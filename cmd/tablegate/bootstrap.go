package tablegate

import (
	"time"

	"github.com/edgeflare/tablegate/pkg/sqldb"
	"github.com/edgeflare/tablegate/pkg/sqldb/bootstrap"
	"github.com/spf13/cobra"
)

func newBootstrapCmd(a *app) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the starter tables",
		Long: `Creates the users, orders and products tables if they do not exist.
Existing tables and rows are left untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			provider, err := sqldb.NewProvider(a.cfg.Database)
			if err != nil {
				return err
			}
			return bootstrap.Run(cmd.Context(), provider, bootstrap.Options{
				Wait:   wait,
				Logger: a.logger,
			})
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "keep retrying the database connection for up to this long")
	return cmd
}
