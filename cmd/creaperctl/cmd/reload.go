package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wildfly-extras/creaper-sub003/internal/logging"
	"github.com/wildfly-extras/creaper-sub003/online"
)

var (
	reloadIfRequired bool
	reloadRestart    bool
)

// ReloadCmd reloads or restarts the server, or all servers of a domain.
var ReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload (or restart) the server and wait until it is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := commandContext(cmd.Context(), s.Options())
		defer cancel()
		admin := online.NewAdministration(s)

		action := "reload"
		if reloadRestart {
			action = "restart"
		}

		var done bool
		switch {
		case reloadRestart && reloadIfRequired:
			done, err = admin.RestartIfRequired(ctx)
		case reloadRestart:
			done, err = true, admin.Restart(ctx)
		case reloadIfRequired:
			done, err = admin.ReloadIfRequired(ctx)
		default:
			done, err = true, admin.Reload(ctx)
		}
		if err != nil {
			return fmt.Errorf("%s failed: %w", action, err)
		}

		if !done {
			fmt.Fprintf(cmd.OutOrStdout(), "no %s required\n", action)
			return nil
		}
		logging.Log.Infof("[creaperctl] %s of %s finished", action, s.Options().Endpoint())
		fmt.Fprintf(cmd.OutOrStdout(), "%s done, server is running\n", action)
		return nil
	},
}

func init() {
	ReloadCmd.Flags().BoolVar(&reloadIfRequired, "if-required", false, "only act when the server asks for it")
	ReloadCmd.Flags().BoolVar(&reloadRestart, "restart", false, "restart instead of reload")
}
