package config

import (
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-fractal/common"
	"github.com/Carmen-Shannon/oxy-fractal/engine/fractal"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that override configuration keys.
// OXY_FRACTAL_FRACTAL_DEPTH overrides fractal.depth.
const EnvPrefix = "OXY_FRACTAL"

const (
	// SinkHost keeps instance buffers in host memory.
	SinkHost = "host"
	// SinkWGPU uploads instance buffers to a headless WebGPU device.
	SinkWGPU = "wgpu"
)

// ErrInvalidAppConfig is the cause of every engine or log configuration failure.
var ErrInvalidAppConfig = errors.New("invalid application config")

// RootConfig is the static transform the frame loop drives the root part with.
type RootConfig struct {
	Position [3]float32 `mapstructure:"position" yaml:"position"`
	// Rotation holds Euler angles in degrees, applied in X, Y, Z order.
	Rotation [3]float32 `mapstructure:"rotation" yaml:"rotation"`
	Scale    float32    `mapstructure:"scale" yaml:"scale"`
}

// Transform converts the configuration into the root transform of the fractal.
//
// Returns:
//   - fractal.RootTransform: the root transform
func (r RootConfig) Transform() fractal.RootTransform {
	rx := common.RotateX(common.Radians(r.Rotation[0]))
	ry := common.RotateY(common.Radians(r.Rotation[1]))
	rz := common.RotateZ(common.Radians(r.Rotation[2]))
	return fractal.RootTransform{
		Position: mgl32.Vec3(r.Position),
		Rotation: rz.Mul(ry).Mul(rx),
		Scale:    r.Scale,
	}
}

// EngineConfig configures the frame loop and its collaborators.
type EngineConfig struct {
	TickRate             float64       `mapstructure:"tickRate" yaml:"tickRate"`
	Frames               uint64        `mapstructure:"frames" yaml:"frames"`
	Workers              int           `mapstructure:"workers" yaml:"workers"`
	Sink                 string        `mapstructure:"sink" yaml:"sink"`
	ForceSoftwareAdapter bool          `mapstructure:"forceSoftwareAdapter" yaml:"forceSoftwareAdapter"`
	Profile              bool          `mapstructure:"profile" yaml:"profile"`
	ProfileInterval      time.Duration `mapstructure:"profileInterval" yaml:"profileInterval"`
	Root                 RootConfig    `mapstructure:"root" yaml:"root"`
}

// LogConfig configures the process-wide logger.
type LogConfig struct {
	Level    string `mapstructure:"level" yaml:"level"`
	JSON     bool   `mapstructure:"json" yaml:"json"`
	HideTime bool   `mapstructure:"hideTime" yaml:"hideTime"`
}

// AppConfig is the complete configuration of a fractal run.
type AppConfig struct {
	Fractal fractal.Config `mapstructure:"fractal" yaml:"fractal"`
	Engine  EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Log     LogConfig      `mapstructure:"log" yaml:"log"`
}

// Default returns the configuration used when no file or override is given.
//
// Returns:
//   - AppConfig: the default configuration
func Default() AppConfig {
	return AppConfig{
		Fractal: fractal.DefaultConfig(),
		Engine: EngineConfig{
			TickRate:        60,
			Sink:            SinkHost,
			ProfileInterval: time.Second,
			Root:            RootConfig{Scale: 1},
		},
		Log: LogConfig{Level: logrus.InfoLevel.String()},
	}
}

// SetDefaults registers every key of Default on v so environment overrides resolve for every key.
//
// Parameters:
//   - v: the viper instance
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("fractal.depth", d.Fractal.Depth)
	v.SetDefault("fractal.childCount", d.Fractal.ChildCount)
	v.SetDefault("fractal.maxSagAngle.min", d.Fractal.MaxSagAngle.Min)
	v.SetDefault("fractal.maxSagAngle.max", d.Fractal.MaxSagAngle.Max)
	v.SetDefault("fractal.spinSpeed.min", d.Fractal.SpinSpeed.Min)
	v.SetDefault("fractal.spinSpeed.max", d.Fractal.SpinSpeed.Max)
	v.SetDefault("fractal.reverseSpinChance", d.Fractal.ReverseSpinChance)
	v.SetDefault("fractal.batchSize", d.Fractal.BatchSize)
	v.SetDefault("fractal.maxParts", d.Fractal.MaxParts)
	v.SetDefault("fractal.seed", d.Fractal.Seed)

	v.SetDefault("engine.tickRate", d.Engine.TickRate)
	v.SetDefault("engine.frames", d.Engine.Frames)
	v.SetDefault("engine.workers", d.Engine.Workers)
	v.SetDefault("engine.sink", d.Engine.Sink)
	v.SetDefault("engine.forceSoftwareAdapter", d.Engine.ForceSoftwareAdapter)
	v.SetDefault("engine.profile", d.Engine.Profile)
	v.SetDefault("engine.profileInterval", d.Engine.ProfileInterval)
	v.SetDefault("engine.root.position", d.Engine.Root.Position[:])
	v.SetDefault("engine.root.rotation", d.Engine.Root.Rotation[:])
	v.SetDefault("engine.root.scale", d.Engine.Root.Scale)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.hideTime", d.Log.HideTime)
}

// Load resolves the configuration from defaults, an optional file and the environment, in
// increasing priority. Flags bound to v before the call take precedence over all three.
//
// Parameters:
//   - v: the viper instance to load into, or nil for a fresh one
//   - path: the config file path; empty skips the file. The format follows the extension.
//
// Returns:
//   - AppConfig: the validated configuration
//   - error: an error if the file cannot be read or the result is invalid
func Load(v *viper.Viper, path string) (AppConfig, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return AppConfig{}, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, errors.Wrap(err, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate checks every section, including that the fractal fits within its part limit.
//
// Returns:
//   - error: the first violation found, or nil
func (c AppConfig) Validate() error {
	if err := c.Fractal.Validate(); err != nil {
		return err
	}
	if _, err := c.Fractal.PartCount(); err != nil {
		return err
	}
	if c.Engine.TickRate <= 0 {
		return errors.Wrapf(ErrInvalidAppConfig, "engine.tickRate must be positive, got %v", c.Engine.TickRate)
	}
	if c.Engine.Workers < 0 {
		return errors.Wrapf(ErrInvalidAppConfig, "engine.workers must not be negative, got %d", c.Engine.Workers)
	}
	if c.Engine.Sink != SinkHost && c.Engine.Sink != SinkWGPU {
		return errors.Wrapf(ErrInvalidAppConfig, "engine.sink must be %q or %q, got %q", SinkHost, SinkWGPU, c.Engine.Sink)
	}
	if c.Engine.Root.Scale <= 0 {
		return errors.Wrapf(ErrInvalidAppConfig, "engine.root.scale must be positive, got %v", c.Engine.Root.Scale)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrapf(ErrInvalidAppConfig, "log.level: %v", err)
	}
	return nil
}

// YAML renders the configuration as a YAML document that Load accepts back.
//
// Returns:
//   - []byte: the YAML document
//   - error: an error if encoding fails
func (c AppConfig) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode config")
	}
	return out, nil
}
