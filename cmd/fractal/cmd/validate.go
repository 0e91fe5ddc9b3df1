package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewValidateCmd returns the fractal validate command.
func NewValidateCmd(opts *rootOpts, v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and report the size of the fractal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, v)
			if err != nil {
				return err
			}
			parts, err := cfg.Fractal.PartCount()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "config ok: depth %d, %d children per part, %d parts\n",
				cfg.Fractal.Depth, cfg.Fractal.ChildCount, parts)
			return err
		},
	}
}
