package logger

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// LogOptions configures the process-wide logrus logger.
type LogOptions struct {
	// Level is a logrus level name. Empty means info.
	Level string
	// Verbose forces debug level regardless of Level.
	Verbose bool
	// JSON switches to structured JSON output.
	JSON bool
	// HideTime drops timestamps from text output.
	HideTime bool
	// Output overrides the destination. Nil keeps the current one.
	Output io.Writer
}

// Init applies options to the standard logrus logger.
//
// Parameters:
//   - options: the logging options
//
// Returns:
//   - error: an error if Level is not a logrus level
func Init(options LogOptions) error {
	level := logrus.InfoLevel
	if options.Level != "" {
		parsed, err := logrus.ParseLevel(options.Level)
		if err != nil {
			return errors.Errorf("failed to init logger: %v", err)
		}
		level = parsed
	}
	if options.Verbose {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)

	if options.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{
			DisableTimestamp: options.HideTime,
		})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    true,
			DisableTimestamp: options.HideTime,
		})
	}

	if options.Output != nil {
		logrus.SetOutput(options.Output)
	}
	return nil
}
