package fractal

import "github.com/sirupsen/logrus"

// PublisherBuilderOption is a functional option for configuring a Publisher.
type PublisherBuilderOption func(*publisher)

// WithLabel sets the prefix of every buffer label the publisher creates.
//
// Parameters:
//   - label: the label prefix
//
// Returns:
//   - PublisherBuilderOption: the option function
func WithLabel(label string) PublisherBuilderOption {
	return func(p *publisher) {
		p.label = label
	}
}

// WithPublisherLogger sets the logger used by the publisher.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - PublisherBuilderOption: the option function
func WithPublisherLogger(log logrus.FieldLogger) PublisherBuilderOption {
	return func(p *publisher) {
		if log != nil {
			p.log = log
		}
	}
}
