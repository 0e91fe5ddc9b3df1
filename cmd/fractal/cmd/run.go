package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Carmen-Shannon/oxy-fractal/engine"
	"github.com/Carmen-Shannon/oxy-fractal/engine/config"
	"github.com/Carmen-Shannon/oxy-fractal/engine/fractal"
	"github.com/Carmen-Shannon/oxy-fractal/engine/job"
	"github.com/Carmen-Shannon/oxy-fractal/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fractal/engine/renderer"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var exampleForRunCmd = `
run 300 frames of the default fractal:
  fractal run --frames 300

upload to a software WebGPU device with profiling:
  fractal run --sink wgpu --software --profile

run from a config file, overriding the depth:
  fractal run --config fractal.yaml --depth 6
`

// runFlags maps command line flags onto configuration keys.
var runFlags = map[string]string{
	"depth":     "fractal.depth",
	"seed":      "fractal.seed",
	"frames":    "engine.frames",
	"tick-rate": "engine.tickRate",
	"workers":   "engine.workers",
	"sink":      "engine.sink",
	"software":  "engine.forceSoftwareAdapter",
	"profile":   "engine.profile",
}

// NewRunCmd returns the fractal run command.
func NewRunCmd(opts *rootOpts, v *viper.Viper) *cobra.Command {
	runCmd := &cobra.Command{
		Use:     "run",
		Short:   "Animate the fractal and publish every frame",
		Example: exampleForRunCmd,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			for flag, key := range runFlags {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return errors.Wrapf(err, "failed to bind flag %s", flag)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, v)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runFractal(ctx, cfg)
		},
	}

	d := config.Default()
	runCmd.Flags().Int("depth", d.Fractal.Depth, "number of levels in the fractal")
	runCmd.Flags().Uint64("seed", d.Fractal.Seed, "random seed for per-part parameters, 0 picks one")
	runCmd.Flags().Uint64("frames", d.Engine.Frames, "stop after this many frames, 0 runs until interrupted")
	runCmd.Flags().Float64("tick-rate", d.Engine.TickRate, "target frames per second")
	runCmd.Flags().Int("workers", d.Engine.Workers, "propagation workers, 0 uses one per CPU")
	runCmd.Flags().String("sink", d.Engine.Sink, "instance buffer sink, host or wgpu")
	runCmd.Flags().Bool("software", d.Engine.ForceSoftwareAdapter, "force a software WebGPU adapter")
	runCmd.Flags().Bool("profile", d.Engine.Profile, "log frame statistics periodically")

	return runCmd
}

// runFractal wires a fractal, a buffer sink, a renderer and a publisher into an engine and runs it
// until the frame limit, a frame error or ctx is done.
func runFractal(ctx context.Context, cfg config.AppConfig) error {
	sinkType := renderer.SinkTypeHost
	if cfg.Engine.Sink == config.SinkWGPU {
		sinkType = renderer.SinkTypeWGPU
	}
	sink, err := renderer.NewBufferSink(sinkType,
		renderer.WithForceSoftwareAdapter(cfg.Engine.ForceSoftwareAdapter),
		renderer.WithSinkLogger(logrus.StandardLogger()),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create buffer sink")
	}
	defer sink.Release()

	fractalOpts := []fractal.FractalBuilderOption{fractal.WithConfig(cfg.Fractal)}
	if cfg.Engine.Workers > 0 {
		fractalOpts = append(fractalOpts, fractal.WithSchedulerOptions(job.WithWorkers(cfg.Engine.Workers)))
	}
	f, err := fractal.NewFractal(fractalOpts...)
	if err != nil {
		return err
	}
	defer f.Release()

	r := renderer.NewLogRenderer(renderer.WithBufferSink(sink))
	p := fractal.NewPublisher(sink, r)
	defer p.Release()

	e := engine.NewEngine(f, p,
		engine.WithTickRate(cfg.Engine.TickRate),
		engine.WithFrameLimit(cfg.Engine.Frames),
		engine.WithProfiling(cfg.Engine.Profile),
		engine.WithProfiler(profiler.NewProfiler(profiler.WithInterval(cfg.Engine.ProfileInterval))),
		engine.WithRoot(cfg.Engine.Root.Transform()),
	)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			logrus.Info("interrupted, stopping engine")
			e.Quit()
		case <-done:
		}
	}()

	start := time.Now()
	err = e.Run()
	logrus.WithFields(logrus.Fields{
		"frames":  e.Frames(),
		"skipped": e.SkippedFrames(),
		"drawn":   r.Frames(),
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("run finished")
	return err
}
