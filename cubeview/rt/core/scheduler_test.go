package core

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type schedulerFixture struct {
	writer  *recordingWriter
	surface *fakeSurface
	binder  *fakeBinder
	sched   *FrameScheduler
	start   time.Time
}

func newSchedulerFixture() *schedulerFixture {
	f := &schedulerFixture{
		writer:  newRecordingWriter(),
		surface: &fakeSurface{},
		binder:  &fakeBinder{},
		start:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f.sched = NewFrameScheduler(f.surface, NewUniformBank(f.writer), f.binder, f.start, nil)
	return f
}

func (f *schedulerFixture) ready(t *testing.T) *fakeTexture {
	t.Helper()
	f.sched.Resize(800, 600)
	tex := &fakeTexture{extents: Extents{4, 4, 4}}
	require.NoError(t, f.sched.SwapCube(tex))
	return tex
}

// render runs one frame, which must not fail, and reports whether it was presented.
func (f *schedulerFixture) render(t *testing.T) bool {
	t.Helper()
	presented, err := f.sched.Render()
	require.NoError(t, err)
	return presented
}

func TestResizeZeroStaysUnconfigured(t *testing.T) {
	f := newSchedulerFixture()

	f.sched.Resize(0, 0)

	assert.Equal(t, Unconfigured, f.sched.State())
	assert.Empty(t, f.surface.configured)
	assert.Equal(t, [4]float32{0, 0, 0, 0}, f.writer.vec4(SlotWindowSize))
}

func TestResizeConfigures(t *testing.T) {
	f := newSchedulerFixture()

	f.sched.Resize(800, 600)
	assert.Equal(t, Configured, f.sched.State())
	assert.Equal(t, [][2]uint32{{800, 600}}, f.surface.configured)
	assert.Equal(t, [4]float32{800, 600, 0, 0}, f.writer.vec4(SlotWindowSize))

	// minimised: surface keeps its last configuration, uniform follows
	f.sched.Resize(1024, 0)
	assert.Equal(t, Configured, f.sched.State())
	assert.Len(t, f.surface.configured, 1)
	assert.Equal(t, [4]float32{1024, 0, 0, 0}, f.writer.vec4(SlotWindowSize))
}

func TestResizeConfigureFailure(t *testing.T) {
	f := newSchedulerFixture()
	f.surface.configureErr = errors.New("no adapter")

	f.sched.Resize(640, 480)
	assert.Equal(t, Unconfigured, f.sched.State())
	assert.Equal(t, [4]float32{640, 480, 0, 0}, f.writer.vec4(SlotWindowSize))
}

func TestUpdateIsIdempotent(t *testing.T) {
	f := newSchedulerFixture()
	now := f.start.Add(1500 * time.Millisecond)

	f.sched.Update(now)
	rot1 := f.writer.last[SlotRotationMatrix]
	time1 := f.writer.last[SlotTime]

	f.sched.Update(now)
	assert.True(t, bytes.Equal(rot1, f.writer.last[SlotRotationMatrix]))
	assert.True(t, bytes.Equal(time1, f.writer.last[SlotTime]))
	assert.InDelta(t, 1.5, f.writer.vec4(SlotTime)[0], 1e-6)
}

func TestUpdateAtStartIsIdentity(t *testing.T) {
	f := newSchedulerFixture()
	f.sched.Update(f.start)

	rot := f.writer.last[SlotRotationMatrix]
	for col := 0; col < 4; col++ {
		v := DecodeVec4(rot[col*16:])
		for row := 0; row < 4; row++ {
			want := float32(0)
			if row == col {
				want = 1
			}
			assert.Equal(t, want, v[row])
		}
	}
}

func TestRenderNoopWhenUnconfigured(t *testing.T) {
	f := newSchedulerFixture()
	require.NoError(t, f.sched.SwapCube(&fakeTexture{extents: Extents{1, 1, 1}}))

	assert.False(t, f.render(t))
	assert.Zero(t, f.surface.acquired)

	f.sched.Resize(0, 0)
	assert.False(t, f.render(t))
	assert.Zero(t, f.surface.acquired)
}

func TestRenderDrawsActiveCube(t *testing.T) {
	f := newSchedulerFixture()
	tex := f.ready(t)

	assert.True(t, f.render(t))
	assert.Equal(t, []VolumeTexture{tex}, f.surface.drawn)
	assert.Equal(t, 1, f.surface.presented)
	assert.Equal(t, 1, f.surface.released)
}

func TestRenderSurfaceLostReconfigures(t *testing.T) {
	f := newSchedulerFixture()
	f.ready(t)
	f.surface.acquireErrs = []error{wrapped(ErrSurfaceLost)}

	assert.False(t, f.render(t))
	assert.Equal(t, [][2]uint32{{800, 600}, {800, 600}}, f.surface.configured)
	assert.Zero(t, f.surface.presented)

	assert.True(t, f.render(t))
	assert.Equal(t, 1, f.surface.presented, "next frame recovers")
}

func TestRenderTransientErrorSkipsFrame(t *testing.T) {
	f := newSchedulerFixture()
	f.ready(t)
	f.surface.acquireErrs = []error{wrapped(ErrTransientPresent), errors.New("timeout")}

	assert.False(t, f.render(t))
	assert.False(t, f.render(t))
	assert.Zero(t, f.surface.presented)
	assert.Len(t, f.surface.configured, 1)

	assert.True(t, f.render(t))
	assert.Equal(t, 1, f.surface.presented)
}

func TestRenderOutOfMemoryIsFatal(t *testing.T) {
	f := newSchedulerFixture()
	f.ready(t)
	f.surface.acquireErrs = []error{wrapped(ErrOutOfMemory)}

	presented, err := f.sched.Render()
	require.Error(t, err)
	assert.False(t, presented)
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestRenderDrawFailureDropsFrame(t *testing.T) {
	f := newSchedulerFixture()
	f.ready(t)
	f.surface.drawErr = errors.New("encoder finish failed")

	assert.False(t, f.render(t))
	assert.Zero(t, f.surface.presented)
	assert.Equal(t, 1, f.surface.released, "frame released even when not presented")
}

func TestSwapCubeReleasesOldAfterSuccess(t *testing.T) {
	f := newSchedulerFixture()
	old := f.ready(t)
	oldGroup := f.binder.built[0]

	next := &fakeTexture{extents: Extents{8, 8, 2}}
	require.NoError(t, f.sched.SwapCube(next))

	assert.Same(t, next, f.sched.ActiveTexture())
	assert.True(t, old.released)
	assert.True(t, oldGroup.released)
	assert.False(t, next.released)

	f.render(t)
	assert.Equal(t, []VolumeTexture{next}, f.surface.drawn)
}

func TestSwapCubeFailureKeepsPreviousCube(t *testing.T) {
	f := newSchedulerFixture()
	old := f.ready(t)
	f.render(t)

	f.binder.fail = errBindGroup
	next := &fakeTexture{extents: Extents{2, 2, 2}}
	err := f.sched.SwapCube(next)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBindGroup)

	assert.Same(t, old, f.sched.ActiveTexture())
	assert.False(t, old.released)
	assert.False(t, next.released, "caller still owns the rejected texture")

	f.render(t)
	assert.Equal(t, []VolumeTexture{old, old}, f.surface.drawn, "frames identical to before the swap")
}

func TestSwapCubeNil(t *testing.T) {
	f := newSchedulerFixture()
	assert.ErrorIs(t, f.sched.SwapCube(nil), ErrInvalidCube)
}

func TestProfilerFPS(t *testing.T) {
	p := NewProfiler()
	start := time.Unix(100, 0)
	for i := 0; i < 30; i++ {
		assert.False(t, p.Frame(start.Add(time.Duration(i)*10*time.Millisecond)))
	}
	assert.True(t, p.Frame(start.Add(time.Second)))
	assert.InDelta(t, 31.0, p.FPS, 1e-9)
	assert.Contains(t, p.StatsString(), "31.0 fps")
}
