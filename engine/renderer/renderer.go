package renderer

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrDrawOrder is returned when draw requests are not a contiguous, root-first sequence of levels
// ending in exactly one leaf.
var ErrDrawOrder = errors.New("draw requests out of level order")

// Bounds is an axis-aligned box used for culling a whole fractal.
type Bounds struct {
	Center mgl32.Vec3
	Size   mgl32.Vec3
}

// Min returns the minimum corner of the box.
//
// Returns:
//   - mgl32.Vec3: the minimum corner
func (b Bounds) Min() mgl32.Vec3 {
	return b.Center.Sub(b.Size.Mul(0.5))
}

// Max returns the maximum corner of the box.
//
// Returns:
//   - mgl32.Vec3: the maximum corner
func (b Bounds) Max() mgl32.Vec3 {
	return b.Center.Add(b.Size.Mul(0.5))
}

// Contains reports whether p lies inside the box, inclusive of its faces.
//
// Parameters:
//   - p: the point to test
//
// Returns:
//   - bool: true if p is inside
func (b Bounds) Contains(p mgl32.Vec3) bool {
	lo, hi := b.Min(), b.Max()
	for i := range 3 {
		if p[i] < lo[i] || p[i] > hi[i] {
			return false
		}
	}
	return true
}

// DrawRequest is one instanced draw of a fractal level. InstanceCount instances are drawn, each
// reading its packed 3x4 transform from Buffer at index instance.
type DrawRequest struct {
	Level           int
	Buffer          BufferHandle
	InstanceCount   int
	Bounds          Bounds
	Leaf            bool
	SequenceNumbers mgl32.Vec4
}

// LevelDraw is the resolved shading state of a single level after DrawLevels.
type LevelDraw struct {
	DrawRequest
	ColorA mgl32.Vec4
	ColorB mgl32.Vec4
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	palette LevelPalette
	sink    BufferSink

	frames    uint64
	instances uint64
	last      []LevelDraw

	log logrus.FieldLogger
}

// Renderer consumes per-level draw requests once every level's transforms have been uploaded.
//
// The shipped implementation does not rasterize. It checks the draw sequence, resolves each
// level's colours from its LevelPalette, and logs the draw, which makes it usable as the
// collaborator for headless runs.
type Renderer interface {
	// DrawLevels issues one instanced draw per request. Requests must be root-first with level
	// indices 0..n-1 and only the last flagged as leaf.
	//
	// Parameters:
	//   - requests: the per-level draws for one frame
	//
	// Returns:
	//   - error: an error wrapping ErrDrawOrder or ErrUnknownBuffer
	DrawLevels(requests []DrawRequest) error

	// Frames returns the number of frames drawn.
	//
	// Returns:
	//   - uint64: the frame count
	Frames() uint64

	// Instances returns the total number of instances drawn across all frames.
	//
	// Returns:
	//   - uint64: the instance count
	Instances() uint64

	// LastFrame returns a copy of the resolved draws of the most recent frame.
	//
	// Returns:
	//   - []LevelDraw: the last frame's draws
	LastFrame() []LevelDraw

	// Palette returns the palette used to colour levels.
	//
	// Returns:
	//   - LevelPalette: the palette
	Palette() LevelPalette
}

var _ Renderer = &renderer{}

// NewLogRenderer creates a Renderer that validates and logs draw requests.
//
// Parameters:
//   - options: functional options to configure the renderer
//
// Returns:
//   - Renderer: the newly created renderer
func NewLogRenderer(options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:      &sync.Mutex{},
		palette: DefaultPalette(),
		log:     logrus.StandardLogger(),
	}

	for _, option := range options {
		option(r)
	}
	return r
}

func (r *renderer) DrawLevels(requests []DrawRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	depth := len(requests)
	for i, req := range requests {
		if req.Level != i {
			return errors.Wrapf(ErrDrawOrder, "request %d has level %d", i, req.Level)
		}
		if req.Leaf != (i == depth-1) {
			return errors.Wrapf(ErrDrawOrder, "level %d of %d has leaf=%t", i, depth, req.Leaf)
		}
		if r.sink != nil && r.sink.BufferSize(req.Buffer) == 0 {
			return errors.Wrapf(ErrUnknownBuffer, "level %d buffer %d", i, req.Buffer)
		}
	}

	r.last = r.last[:0]
	var instances uint64
	for _, req := range requests {
		colorA, colorB := r.palette.Colors(req.Level, depth)
		r.last = append(r.last, LevelDraw{DrawRequest: req, ColorA: colorA, ColorB: colorB})
		instances += uint64(req.InstanceCount)

		r.log.WithFields(logrus.Fields{
			"level":     req.Level,
			"instances": req.InstanceCount,
			"leaf":      req.Leaf,
			"colorA":    colorA,
			"colorB":    colorB,
		}).Trace("draw level")
	}

	r.frames++
	r.instances += instances
	if depth > 0 {
		r.log.WithFields(logrus.Fields{
			"frame":     r.frames,
			"levels":    depth,
			"instances": instances,
		}).Debug("frame drawn")
	}
	return nil
}

func (r *renderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

func (r *renderer) Instances() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.instances
}

func (r *renderer) LastFrame() []LevelDraw {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LevelDraw, len(r.last))
	copy(out, r.last)
	return out
}

func (r *renderer) Palette() LevelPalette {
	return r.palette
}
