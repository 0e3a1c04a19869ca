package cmd

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/wildfly-extras/creaper-sub003/online"
	"github.com/wildfly-extras/creaper-sub003/protocol"
)

// VersionCmd shows the management and product version of the server.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the server's management and product version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		v, err := s.Version(cmd.Context())
		if err != nil {
			return err
		}
		product := "unknown"
		res, err := online.NewOperations(s).ReadAttribute(cmd.Context(), protocol.Root(), protocol.ProductVersionAttribute)
		if err != nil {
			return err
		}
		product = res.StringValueOr(product)

		mode := "standalone"
		if s.Options().IsDomain() {
			mode = "domain"
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(header("ENDPOINT", "MODE", "MANAGEMENT", "PRODUCT"))
		t.AppendRow(table.Row{s.Options().Endpoint(), mode, v.String(), product})
		t.Render()
		return nil
	},
}
