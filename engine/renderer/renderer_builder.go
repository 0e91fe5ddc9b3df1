package renderer

import "github.com/sirupsen/logrus"

// RendererBuilderOption is a functional option applied to a renderer during construction via NewLogRenderer.
type RendererBuilderOption func(*renderer)

// WithPalette sets the palette used to colour levels.
//
// Parameters:
//   - palette: the LevelPalette to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the palette option to a renderer
func WithPalette(palette LevelPalette) RendererBuilderOption {
	return func(r *renderer) {
		r.palette = palette
	}
}

// WithBufferSink makes the renderer verify that every draw reads from a live buffer of the sink.
//
// Parameters:
//   - sink: the BufferSink the draws read from
//
// Returns:
//   - RendererBuilderOption: a function that applies the sink option to a renderer
func WithBufferSink(sink BufferSink) RendererBuilderOption {
	return func(r *renderer) {
		r.sink = sink
	}
}

// WithLogger sets the logger draws are reported to.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger option to a renderer
func WithLogger(log logrus.FieldLogger) RendererBuilderOption {
	return func(r *renderer) {
		if log != nil {
			r.log = log
		}
	}
}

// WGPUSinkBuilderOption is a functional option applied to a WebGPU sink during construction via NewWGPUBufferSink.
type WGPUSinkBuilderOption func(*wgpuBufferSink)

// WithForceSoftwareAdapter forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - WGPUSinkBuilderOption: a function that applies the fallback option to a sink
func WithForceSoftwareAdapter(force bool) WGPUSinkBuilderOption {
	return func(s *wgpuBufferSink) {
		s.forceFallbackAdapter = force
	}
}

// WithDeviceLabel sets the debug label of the device the sink requests.
//
// Parameters:
//   - label: the device label
//
// Returns:
//   - WGPUSinkBuilderOption: a function that applies the label option to a sink
func WithDeviceLabel(label string) WGPUSinkBuilderOption {
	return func(s *wgpuBufferSink) {
		s.deviceLabel = label
	}
}

// WithSinkLogger sets the logger used by the WebGPU sink.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - WGPUSinkBuilderOption: a function that applies the logger option to a sink
func WithSinkLogger(log logrus.FieldLogger) WGPUSinkBuilderOption {
	return func(s *wgpuBufferSink) {
		if log != nil {
			s.log = log
		}
	}
}
