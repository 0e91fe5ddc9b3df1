package cmd

import (
	"os"

	"github.com/Carmen-Shannon/oxy-fractal/engine/config"
	"github.com/Carmen-Shannon/oxy-fractal/engine/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type rootOpts struct {
	cfgFile     string
	debugModeOn bool
	hideLogTime bool
	jsonLog     bool
}

var longRootCmdDescription = `fractal animates a self-similar tree of parts. Every frame each part
spins, sags towards world-down and follows its parent, level by level in parallel,
and the packed transforms of every level are uploaded for instanced drawing.
`

// NewRootCmd builds the fractal command tree. Each call returns an independent tree with its own
// configuration state.
//
// Returns:
//   - *cobra.Command: the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOpts{}
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:           "fractal",
		Short:         "Run and inspect a hierarchical fractal animation",
		Long:          longRootCmdDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logger.LogOptions{
				Verbose:  opts.debugModeOn,
				JSON:     opts.jsonLog,
				HideTime: opts.hideLogTime,
			})
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (YAML, JSON or TOML by extension)")
	rootCmd.PersistentFlags().BoolVarP(&opts.debugModeOn, "debug", "d", false, "turn on debug mode")
	rootCmd.PersistentFlags().BoolVar(&opts.hideLogTime, "hide-time", false, "hide the log time")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonLog, "json", false, "write logs as JSON")
	rootCmd.DisableAutoGenTag = true

	rootCmd.AddCommand(
		NewRunCmd(opts, v),
		NewValidateCmd(opts, v),
		NewPrintConfigCmd(opts, v),
	)
	return rootCmd
}

// Execute runs the command tree against os.Args.
// This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		logrus.Errorf("fractal: %+v", err)
		os.Exit(1)
	}
}

// loadConfig resolves the configuration and re-applies logging from its log section.
// Command line logging flags win over the file.
func loadConfig(opts *rootOpts, v *viper.Viper) (config.AppConfig, error) {
	cfg, err := config.Load(v, opts.cfgFile)
	if err != nil {
		return config.AppConfig{}, err
	}

	if err := logger.Init(logger.LogOptions{
		Level:    cfg.Log.Level,
		Verbose:  opts.debugModeOn,
		JSON:     cfg.Log.JSON || opts.jsonLog,
		HideTime: cfg.Log.HideTime || opts.hideLogTime,
	}); err != nil {
		return config.AppConfig{}, err
	}
	return cfg, nil
}
