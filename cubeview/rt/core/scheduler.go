package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/bmatthieu3/fits3"

	"github.com/go-gl/mathgl/mgl32"
)

// Surface is the presentation target the scheduler draws into.
type Surface interface {
	Configure(width, height uint32) error
	// AcquireFrame returns the next presentable frame. Errors wrap
	// ErrSurfaceLost, ErrOutOfMemory or ErrTransientPresent.
	AcquireFrame() (Frame, error)
}

// Frame is one acquired swapchain image.
type Frame interface {
	// DrawQuad clears the frame, binds group and the full-screen quad,
	// issues one indexed draw and submits it.
	DrawQuad(group BindGroup) error
	Present()
	Release()
}

type BindGroup interface {
	Release()
}

// BindGroupBuilder creates the single bind group the raymarcher reads:
// the volume texture, its sampler and every uniform slot.
type BindGroupBuilder interface {
	BuildBindGroup(tex VolumeTexture) (BindGroup, error)
}

type SurfaceState int

const (
	Unconfigured SurfaceState = iota
	Configured
)

func (s SurfaceState) String() string {
	if s == Configured {
		return "configured"
	}
	return "unconfigured"
}

// FrameScheduler owns the surface state, the active cube and the
// update/render cycle. All methods run on the frame thread.
type FrameScheduler struct {
	surface Surface
	bank    *UniformBank
	binder  BindGroupBuilder
	log     fits3.Logger

	state         SurfaceState
	width, height uint32
	start         time.Time

	texture VolumeTexture
	group   BindGroup

	Profiler *Profiler
}

func NewFrameScheduler(surface Surface, bank *UniformBank, binder BindGroupBuilder, start time.Time, log fits3.Logger) *FrameScheduler {
	return &FrameScheduler{
		surface:  surface,
		bank:     bank,
		binder:   binder,
		log:      fits3.OrNop(log),
		start:    start,
		Profiler: NewProfiler(),
	}
}

func (s *FrameScheduler) State() SurfaceState { return s.state }

func (s *FrameScheduler) Size() (width, height uint32) { return s.width, s.height }

func (s *FrameScheduler) ActiveTexture() VolumeTexture { return s.texture }

// Resize reconfigures the surface when both dimensions are positive.
// WindowSize is written either way.
func (s *FrameScheduler) Resize(width, height uint32) {
	s.width, s.height = width, height
	if width > 0 && height > 0 {
		if err := s.surface.Configure(width, height); err != nil {
			s.log.Errorf("configure surface %dx%d: %v", width, height, err)
		} else {
			s.state = Configured
		}
	}
	s.bank.WriteWindowSize(width, height)
}

// Update writes the ambient rotation about the vertical axis and the
// elapsed time. It depends on now only.
func (s *FrameScheduler) Update(now time.Time) {
	s.Profiler.BeginScope("update")
	elapsed := float32(now.Sub(s.start).Seconds())
	s.bank.WriteRotation(mgl32.HomogRotate3DY(elapsed))
	s.bank.WriteTime(elapsed)
	s.Profiler.EndScope("update")
}

// Render draws one frame and reports whether it was presented. Only
// ErrOutOfMemory is returned; every other failure is logged and retried on
// the next frame.
func (s *FrameScheduler) Render() (presented bool, err error) {
	if s.width == 0 || s.height == 0 || s.state == Unconfigured {
		return false, nil
	}
	if s.group == nil {
		s.log.Debugf("render skipped: no cube bound")
		return false, nil
	}

	s.Profiler.BeginScope("render")
	defer s.Profiler.EndScope("render")

	frame, err := s.surface.AcquireFrame()
	if err != nil {
		switch {
		case errors.Is(err, ErrOutOfMemory):
			return false, fmt.Errorf("acquire frame: %w", err)
		case errors.Is(err, ErrSurfaceLost):
			s.log.Warnf("surface lost, reconfiguring %dx%d", s.width, s.height)
			s.Resize(s.width, s.height)
		default:
			s.log.Errorf("acquire frame: %v", err)
		}
		s.Profiler.Add("skipped", 1)
		return false, nil
	}
	defer frame.Release()

	if err := frame.DrawQuad(s.group); err != nil {
		s.log.Errorf("draw frame: %v", err)
		s.Profiler.Add("skipped", 1)
		return false, nil
	}
	frame.Present()
	return true, nil
}

// SwapCube binds tex in place of the active cube. The swap is atomic: if
// the bind group cannot be built, nothing changes and the caller keeps
// ownership of tex.
func (s *FrameScheduler) SwapCube(tex VolumeTexture) error {
	if tex == nil {
		return fmt.Errorf("swap cube: %w: nil texture", ErrInvalidCube)
	}
	group, err := s.binder.BuildBindGroup(tex)
	if err != nil {
		return fmt.Errorf("swap cube %s: %w", tex.Extents(), err)
	}

	oldTex, oldGroup := s.texture, s.group
	s.texture, s.group = tex, group

	if oldGroup != nil {
		oldGroup.Release()
	}
	if oldTex != nil {
		oldTex.Release()
	}
	s.log.Infof("active cube %s", tex.Extents())
	return nil
}

// Tick counts a presented frame and logs the frame statistics once per
// second when debug logging is on. Call it only after Render presented.
func (s *FrameScheduler) Tick(now time.Time) {
	if s.Profiler.Frame(now) && s.log.DebugEnabled() {
		s.log.Debugf("frame stats: %s", s.Profiler.StatsString())
	}
}

func (s *FrameScheduler) Release() {
	if s.group != nil {
		s.group.Release()
		s.group = nil
	}
	if s.texture != nil {
		s.texture.Release()
		s.texture = nil
	}
}
