package fractal

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-fractal/common"
	"github.com/Carmen-Shannon/oxy-fractal/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrNothingToPublish is returned by Publish before the fractal has completed a propagation.
var ErrNothingToPublish = errors.New("no resolved frame to publish")

// boundsExtent is the size of the culling box in units of the root scale.
const boundsExtent = 3

// publisher is the implementation of the Publisher interface.
type publisher struct {
	mu *sync.Mutex

	sink     renderer.BufferSink
	renderer renderer.Renderer

	label    string
	buffers  []renderer.BufferHandle
	writes   []renderer.BufferWrite
	requests []renderer.DrawRequest
	frame    uint64

	log logrus.FieldLogger
}

// Publisher uploads every level's packed transforms after propagation and hands one draw request
// per level to the renderer.
//
// Each level owns one buffer on the sink, sized to exactly Len()*48 bytes. Buffers follow the
// fractal's shape: a rebuild to a different depth or branching factor resizes, creates or
// releases buffers on the next Publish.
type Publisher interface {
	// Publish uploads the current transforms of f and issues its draw requests, root level first.
	// Only the leaf level's request is flagged Leaf.
	//
	// Parameters:
	//   - f: the propagated fractal
	//
	// Returns:
	//   - error: ErrNothingToPublish before the first propagation, ErrNotInitialized after
	//     release, or a sink/renderer error
	Publish(f Fractal) error

	// Buffers returns a copy of the per-level buffer handles, root level first.
	//
	// Returns:
	//   - []renderer.BufferHandle: the buffer handles
	Buffers() []renderer.BufferHandle

	// Frame returns the fractal frame number of the last successful publish.
	//
	// Returns:
	//   - uint64: the published frame
	Frame() uint64

	// Release frees every level buffer on the sink. The sink itself is not released.
	Release()
}

var _ Publisher = &publisher{}

// NewPublisher creates a Publisher that uploads into sink and draws through r.
// Panics if sink or r is nil.
//
// Parameters:
//   - sink: the BufferSink that owns level buffers
//   - r: the Renderer that receives draw requests
//   - options: functional options to configure the publisher
//
// Returns:
//   - Publisher: the newly created publisher
func NewPublisher(sink renderer.BufferSink, r renderer.Renderer, options ...PublisherBuilderOption) Publisher {
	if sink == nil || r == nil {
		panic("fractal: NewPublisher requires a buffer sink and a renderer")
	}

	p := &publisher{
		mu:       &sync.Mutex{},
		sink:     sink,
		renderer: r,
		label:    "Fractal",
		log:      logrus.StandardLogger(),
	}

	for _, option := range options {
		option(p)
	}
	return p
}

func (p *publisher) Publish(f Fractal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return f.View(func(levels []*Level, root RootTransform, frame uint64) error {
		if frame == 0 {
			return ErrNothingToPublish
		}

		p.fitBuffers(len(levels))

		extent := boundsExtent * root.Scale
		bounds := renderer.Bounds{
			Center: levels[0].Parts[0].WorldPosition,
			Size:   mgl32.Vec3{extent, extent, extent},
		}

		p.writes = p.writes[:0]
		p.requests = p.requests[:0]
		for li, level := range levels {
			data := common.SliceToBytes(level.Matrices)
			handle, err := p.sink.EnsureBuffer(p.buffers[li], fmt.Sprintf("%s Level %d Matrices", p.label, li), uint64(len(data)))
			if err != nil {
				return errors.Wrapf(err, "level %d buffer", li)
			}
			p.buffers[li] = handle

			p.writes = append(p.writes, renderer.BufferWrite{Buffer: handle, Data: data})
			p.requests = append(p.requests, renderer.DrawRequest{
				Level:           li,
				Buffer:          handle,
				InstanceCount:   level.Len(),
				Bounds:          bounds,
				Leaf:            li == len(levels)-1,
				SequenceNumbers: level.SequenceNumbers,
			})
		}

		if err := p.sink.WriteBuffers(p.writes); err != nil {
			return errors.Wrap(err, "upload level matrices")
		}
		if err := p.renderer.DrawLevels(p.requests); err != nil {
			return errors.Wrap(err, "draw levels")
		}

		p.frame = frame
		return nil
	})
}

func (p *publisher) Buffers() []renderer.BufferHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]renderer.BufferHandle, len(p.buffers))
	copy(out, p.buffers)
	return out
}

func (p *publisher) Frame() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame
}

func (p *publisher) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fitBuffers(0)
	p.writes = nil
	p.requests = nil
}

// fitBuffers grows or shrinks the handle list to depth entries, releasing buffers of levels that
// no longer exist.
func (p *publisher) fitBuffers(depth int) {
	for len(p.buffers) > depth {
		last := len(p.buffers) - 1
		p.sink.ReleaseBuffer(p.buffers[last])
		p.buffers = p.buffers[:last]
		p.log.WithField("level", last).Debug("level buffer released")
	}
	for len(p.buffers) < depth {
		p.buffers = append(p.buffers, renderer.NoBuffer)
	}
}
