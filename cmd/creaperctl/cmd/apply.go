package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/wildfly-extras/creaper-sub003/online"
)

var scriptFile string

// ApplyCmd applies a YAML script of configuration steps.
var ApplyCmd = &cobra.Command{
	Use:   "apply -f script.yaml",
	Short: "Apply a YAML script of CLI lines, operations and batches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var in io.Reader = cmd.InOrStdin()
		if scriptFile != "-" {
			f, err := os.Open(scriptFile)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		script, err := ParseScript(in)
		if err != nil {
			return err
		}

		s, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		s.SetOutput(cmd.OutOrStdout())

		ctx, cancel := commandContext(cmd.Context(), s.Options())
		defer cancel()

		reports, applyErr := script.Run(ctx, s)
		printReports(cmd.OutOrStdout(), reports)
		if applyErr != nil {
			return applyErr
		}

		if script.ReloadIfRequired {
			reloaded, err := online.NewAdministration(s).ReloadIfRequired(ctx)
			if err != nil {
				return fmt.Errorf("reload failed: %w", err)
			}
			if reloaded {
				fmt.Fprintln(cmd.OutOrStdout(), "server reloaded")
			}
		}
		return nil
	},
}

func printReports(out io.Writer, reports []StepReport) {
	t := newTable(out)
	t.AppendHeader(header("#", "STEP", "STATUS"))
	for i, r := range reports {
		status := text.FgHiBlack.Sprint("skipped")
		switch {
		case r.Ran && r.Err == nil:
			status = text.FgGreen.Sprint("ok")
		case r.Ran:
			status = text.FgRed.Sprint("failed")
		}
		t.AppendRow(table.Row{i + 1, r.Step.String(), status})
	}
	t.Render()
}

func init() {
	ApplyCmd.Flags().StringVarP(&scriptFile, "file", "f", "", "script file, - for stdin")
	_ = ApplyCmd.MarkFlagRequired("file")
}
