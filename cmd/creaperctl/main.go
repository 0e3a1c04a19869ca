// Command creaperctl talks to the management interface of WildFly and JBoss
// EAP servers. It executes operations and CLI commands, applies YAML
// scripts and reloads servers.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wildfly-extras/creaper-sub003/cmd/creaperctl/cmd"
	"github.com/wildfly-extras/creaper-sub003/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "creaperctl",
	Short: "Management client for WildFly and JBoss EAP",
	Long: `creaperctl connects to the management interface of a standalone server or
domain controller and runs operations, CLI commands and scripts against it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return cmd.Setup()
	},
}

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cmd.BindFlags(rootCmd)
	rootCmd.AddCommand(cmd.ExecCmd)
	rootCmd.AddCommand(cmd.CLICmd)
	rootCmd.AddCommand(cmd.ApplyCmd)
	rootCmd.AddCommand(cmd.VersionCmd)
	rootCmd.AddCommand(cmd.ReloadCmd)
}
