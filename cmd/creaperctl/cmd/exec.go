package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wildfly-extras/creaper-sub003/internal/logging"
)

var execJSON bool

// ExecCmd executes one management operation given in CLI syntax.
var ExecCmd = &cobra.Command{
	Use:   "exec <operation>",
	Short: "Execute a management operation, e.g. /subsystem=logging:read-resource",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		line := strings.Join(args, " ")
		res, err := s.ExecuteCLI(cmd.Context(), line)
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), res, execJSON)
		if res.IsReloadRequired() || res.IsRestartRequired() {
			logging.Log.Warnf("[creaperctl] %s: server needs a reload or restart", line)
		}
		if !res.IsSuccess() {
			return fmt.Errorf("operation %s failed", line)
		}
		return nil
	},
}

// CLICmd runs CLI lines, local commands included, in one session.
var CLICmd = &cobra.Command{
	Use:   "cli <command> [command...]",
	Short: "Run CLI commands such as 'cd', 'ls' or operations in one session",
	Long: `Each argument is one CLI line; they run in order in a single CLI context,
so 'cd' affects the lines after it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		s.SetOutput(cmd.OutOrStdout())

		for _, line := range args {
			if err := s.ExecuteCLICommand(cmd.Context(), line); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	ExecCmd.Flags().BoolVar(&execJSON, "json", false, "print the full response as JSON")
}
