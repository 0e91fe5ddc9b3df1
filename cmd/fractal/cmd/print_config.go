package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewPrintConfigCmd returns the fractal print-config command.
func NewPrintConfigCmd(opts *rootOpts, v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "print-config",
		Short: "Print the resolved configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, v)
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
