package fractal

import (
	"math"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidConfig is the cause of every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid fractal config")

	// ErrStructureTooLarge is returned when a configuration would need more parts than allowed,
	// or when the part count overflows. The tree is never truncated to fit.
	ErrStructureTooLarge = errors.New("fractal structure too large")

	// ErrNotInitialized is returned by Propagate when the fractal has no levels allocated,
	// either because construction never completed or because it was released.
	ErrNotInitialized = errors.New("fractal not initialized")
)

const (
	// DefaultDepth is the number of levels built when no depth is configured.
	DefaultDepth = 4
	// DefaultChildCount is the branching factor of the reference fractal.
	DefaultChildCount = 5
	// DefaultMaxParts caps the total number of parts across all levels.
	DefaultMaxParts = 1 << 24
)

// Range is an inclusive [Min, Max] interval that construction-time values are drawn from.
type Range struct {
	Min float32 `mapstructure:"min" yaml:"min"`
	Max float32 `mapstructure:"max" yaml:"max"`
}

// Config holds every construction parameter of a fractal. Changing any field requires a full
// rebuild; nothing here is read per frame except through the structure it produced.
type Config struct {
	// Depth is the number of levels, including the root level.
	Depth int `mapstructure:"depth" yaml:"depth"`
	// ChildCount is the fixed branching factor.
	ChildCount int `mapstructure:"childCount" yaml:"childCount"`
	// MaxSagAngle is the range, in degrees, each part's maximum droop is drawn from.
	MaxSagAngle Range `mapstructure:"maxSagAngle" yaml:"maxSagAngle"`
	// SpinSpeed is the range, in degrees per second, each part's spin speed is drawn from.
	SpinSpeed Range `mapstructure:"spinSpeed" yaml:"spinSpeed"`
	// ReverseSpinChance is the probability in [0, 1] that a part spins in the negative direction.
	ReverseSpinChance float32 `mapstructure:"reverseSpinChance" yaml:"reverseSpinChance"`
	// BatchSize is the number of parts handed to a worker at once. 0 means ChildCount.
	BatchSize int `mapstructure:"batchSize" yaml:"batchSize"`
	// MaxParts caps the total number of parts across all levels. 0 means DefaultMaxParts.
	MaxParts int `mapstructure:"maxParts" yaml:"maxParts"`
	// Seed seeds the construction random source. 0 picks a random seed.
	Seed uint64 `mapstructure:"seed" yaml:"seed"`
}

// DefaultConfig returns the reference configuration: depth 4, five children per part, sag
// between 15 and 25 degrees, spin between 20 and 25 degrees per second, and a one in four chance
// of reversed spin.
//
// Returns:
//   - Config: the default configuration
func DefaultConfig() Config {
	return Config{
		Depth:             DefaultDepth,
		ChildCount:        DefaultChildCount,
		MaxSagAngle:       Range{Min: 15, Max: 25},
		SpinSpeed:         Range{Min: 20, Max: 25},
		ReverseSpinChance: 0.25,
		MaxParts:          DefaultMaxParts,
	}
}

// Validate checks the configuration for contract violations. It performs no allocation.
//
// Returns:
//   - error: an error wrapping ErrInvalidConfig, or nil
func (c Config) Validate() error {
	if c.Depth < 1 {
		return errors.Wrapf(ErrInvalidConfig, "depth must be at least 1, got %d", c.Depth)
	}
	if c.ChildCount < 1 {
		return errors.Wrapf(ErrInvalidConfig, "childCount must be at least 1, got %d", c.ChildCount)
	}
	if err := c.MaxSagAngle.validate("maxSagAngle"); err != nil {
		return err
	}
	if err := c.SpinSpeed.validate("spinSpeed"); err != nil {
		return err
	}
	if isNaN(c.ReverseSpinChance) || c.ReverseSpinChance < 0 || c.ReverseSpinChance > 1 {
		return errors.Wrapf(ErrInvalidConfig, "reverseSpinChance must be within [0, 1], got %v", c.ReverseSpinChance)
	}
	if c.BatchSize < 0 {
		return errors.Wrapf(ErrInvalidConfig, "batchSize must not be negative, got %d", c.BatchSize)
	}
	if c.MaxParts < 0 {
		return errors.Wrapf(ErrInvalidConfig, "maxParts must not be negative, got %d", c.MaxParts)
	}
	return nil
}

// PartCount returns the total number of parts across all levels, childCount^0 + ... +
// childCount^(depth-1), refusing configurations above MaxParts or that overflow.
// The configuration must already be valid.
//
// Returns:
//   - int: the total number of parts
//   - error: an error wrapping ErrStructureTooLarge, or nil
func (c Config) PartCount() (int, error) {
	limit := c.MaxParts
	if limit == 0 {
		limit = DefaultMaxParts
	}

	total, length := 0, 1
	for li := 0; li < c.Depth; li++ {
		if li > 0 {
			if length > math.MaxInt/c.ChildCount {
				return 0, errors.Wrapf(ErrStructureTooLarge, "level %d of childCount %d overflows", li, c.ChildCount)
			}
			length *= c.ChildCount
		}
		if length > limit-total {
			return 0, errors.Wrapf(ErrStructureTooLarge, "depth %d with childCount %d exceeds %d parts", c.Depth, c.ChildCount, limit)
		}
		total += length
	}
	return total, nil
}

func (r Range) validate(name string) error {
	if isNaN(r.Min) || isNaN(r.Max) {
		return errors.Wrapf(ErrInvalidConfig, "%s range must be numeric", name)
	}
	if r.Min > r.Max {
		return errors.Wrapf(ErrInvalidConfig, "%s range is inverted: min %v > max %v", name, r.Min, r.Max)
	}
	return nil
}

func isNaN(v float32) bool {
	return v != v
}
