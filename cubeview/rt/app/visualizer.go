package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/bmatthieu3/fits3"
	"github.com/bmatthieu3/fits3/cubeview/rt/core"
	"github.com/bmatthieu3/fits3/cubeview/rt/volume"
)

// Deps are the collaborators a Visualizer drives. The gpu package provides
// the production implementations.
type Deps struct {
	Surface core.Surface
	Writer  core.SlotWriter
	Binder  core.BindGroupBuilder
	Factory core.TextureFactory
	Clock   core.Clock
	Logger  fits3.Logger
}

type Options struct {
	Width, Height uint32
	Perspective   bool

	// FixedRange pins MinMax to [Min, Max]; otherwise it follows the finite
	// sample range of the active cube.
	FixedRange bool
	Min, Max   float32
}

// FrameErrorInterval limits how often the same per-frame failure is logged.
const FrameErrorInterval = time.Second

// Visualizer binds the uniform bank, the interaction controller and the
// frame scheduler around one active cube.
type Visualizer struct {
	log     fits3.Logger
	clock   core.Clock
	factory core.TextureFactory

	bank       *core.UniformBank
	Controller *core.InteractionController
	Scheduler  *core.FrameScheduler

	cubes  *CubeInbox
	params *ParamInbox

	perspective bool
	fixedRange  bool
	lo, hi      float32
	active      core.Extents
}

// NewVisualizer writes every uniform slot, configures the surface and
// uploads the initial cube. On error nothing is left allocated.
func NewVisualizer(deps Deps, opts Options, initial volume.DataCube) (*Visualizer, error) {
	if deps.Surface == nil || deps.Writer == nil || deps.Binder == nil || deps.Factory == nil {
		return nil, errors.New("visualizer: surface, writer, binder and factory are required")
	}
	if deps.Clock == nil {
		deps.Clock = core.SystemClock{}
	}
	if opts.FixedRange && opts.Min >= opts.Max {
		return nil, fmt.Errorf("visualizer: min (%g) must be below max (%g)", opts.Min, opts.Max)
	}

	log := fits3.OrNop(deps.Logger)
	bank := core.NewUniformBank(deps.Writer)
	start := deps.Clock.Now()

	v := &Visualizer{
		log:         log,
		clock:       deps.Clock,
		factory:     deps.Factory,
		bank:        bank,
		Controller:  core.NewInteractionController(bank),
		Scheduler:   core.NewFrameScheduler(deps.Surface, bank, deps.Binder, start, fits3.NewThrottledLogger(log, FrameErrorInterval, deps.Clock.Now)),
		cubes:       NewCubeInbox(),
		params:      NewParamInbox(),
		perspective: opts.Perspective,
		fixedRange:  opts.FixedRange,
		lo:          opts.Min,
		hi:          opts.Max,
	}

	v.Scheduler.Update(start)
	v.Resize(opts.Width, opts.Height)
	v.Controller.Sync()
	v.bank.WritePerspective(v.perspective)
	if v.fixedRange {
		v.bank.WriteMinMax(v.lo, v.hi)
	}

	// In auto range mode LoadCube writes MinMax.
	if err := v.LoadCube(initial); err != nil {
		return nil, fmt.Errorf("initial cube: %w", err)
	}
	return v, nil
}

func (v *Visualizer) Cubes() *CubeInbox { return v.cubes }

func (v *Visualizer) Params() *ParamInbox { return v.params }

func (v *Visualizer) Perspective() bool { return v.perspective }

func (v *Visualizer) Range() (lo, hi float32) { return v.lo, v.hi }

func (v *Visualizer) ActiveExtents() core.Extents { return v.active }

// LoadCube uploads cube and makes it the active one. On failure the
// previous cube stays bound and the returned error says why.
func (v *Visualizer) LoadCube(cube volume.DataCube) error {
	tex, err := v.factory.Build(cube.Extents, cube.Samples)
	if err != nil {
		return fmt.Errorf("upload cube: %w", err)
	}
	if err := v.Scheduler.SwapCube(tex); err != nil {
		tex.Release()
		return err
	}
	v.active = cube.Extents
	if !v.fixedRange {
		v.lo, v.hi = volume.DisplayRange(cube.Samples)
		v.bank.WriteMinMax(v.lo, v.hi)
	}
	return nil
}

// Ingest parses and loads raw cube bytes. Errors are logged and leave the
// active cube in place.
func (v *Visualizer) Ingest(req CubeRequest) error {
	cube, err := volume.ParseCube(req.Data)
	if err == nil {
		err = v.LoadCube(cube)
	}
	if err != nil {
		v.log.Errorf("load cube %s from %s: %v", req.ID, req.Source, err)
		return err
	}
	v.log.Infof("loaded cube %s %q %s from %s", req.ID, cube.Object, cube.Extents, req.Source)
	return nil
}

// Pump applies at most one queued cube and every queued parameter change.
// It runs on the frame thread between frames.
func (v *Visualizer) Pump() {
	if req, ok := v.cubes.TryTake(); ok {
		_ = v.Ingest(req)
	}
	v.params.Drain(v.apply)
}

func (v *Visualizer) apply(p ParamChange) {
	switch p.Kind {
	case SetPerspective:
		v.SetPerspective(p.Perspective)
	case TogglePerspective:
		v.SetPerspective(!v.perspective)
	case SetMinMax:
		if p.Min >= p.Max {
			v.log.Warnf("ignoring min/max %g >= %g", p.Min, p.Max)
			return
		}
		v.fixedRange = true
		v.lo, v.hi = p.Min, p.Max
		v.bank.WriteMinMax(v.lo, v.hi)
	case AutoMinMax:
		v.fixedRange = false
		v.log.Debugf("min/max follows the next loaded cube")
	}
}

func (v *Visualizer) SetPerspective(enabled bool) {
	v.perspective = enabled
	v.bank.WritePerspective(enabled)
}

// Resize updates the surface and the viewport used to normalise drags.
func (v *Visualizer) Resize(width, height uint32) {
	v.Scheduler.Resize(width, height)
	v.Controller.SetViewport(width, height)
}

func (v *Visualizer) Press(b core.Button) { v.Controller.Press(b) }

func (v *Visualizer) Release(b core.Button) { v.Controller.Release(b) }

func (v *Visualizer) Move(x, y float64) { v.Controller.Move(x, y) }

func (v *Visualizer) Abort() { v.Controller.Abort() }

func (v *Visualizer) ResetView() { v.Controller.Reset() }

// Frame runs one update and render at now. Only a fatal error is returned.
func (v *Visualizer) Frame(now time.Time) error {
	v.Scheduler.Update(now)
	presented, err := v.Scheduler.Render()
	if err != nil {
		return err
	}
	if presented {
		v.Scheduler.Tick(now)
	}
	return nil
}

// Step is Frame at the current clock time.
func (v *Visualizer) Step() error {
	return v.Frame(v.clock.Now())
}

// Close releases the active cube and its bind group.
func (v *Visualizer) Close() {
	v.Scheduler.Release()
}
