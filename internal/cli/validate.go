package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/shopload/internal/config"
	"github.com/wesleyorama2/shopload/internal/output"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a targets file and list the resolved backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := bindFlags(cmd.Flags())
			if err != nil {
				return err
			}
			noColor := v.GetBool("no-color") || !output.SupportsColor(cmd.OutOrStdout())

			targets, err := config.LoadTargets(v.GetString("config"))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			scheme := output.DefaultColorScheme()
			if noColor {
				scheme = output.NoColorScheme()
			}
			fmt.Fprintf(out, "%s %d targets\n", output.SuccessIcon(noColor), len(targets))
			for _, t := range targets {
				fmt.Fprintf(out, "  %s slots=%d\n", scheme.Value.Sprint(t.BaseURL()), t.SlotCount())
			}
			return nil
		},
	}

	cmd.Flags().StringP("config", "c", "", "Targets file")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
	return cmd
}
