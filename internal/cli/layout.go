package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newLayoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Print the statement layout in effect",
		Long: `Print the statement layout as YAML. With --layout the file is loaded and
validated first, so this doubles as a check of a custom layout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := loadLayout(cmd)
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), layout)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(layout); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
