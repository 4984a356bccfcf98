package app

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/bmatthieu3/fits3/cubeview/rt/core"
	"github.com/bmatthieu3/fits3/cubeview/rt/volume"
)

type recordingWriter struct {
	last  map[core.Slot][]byte
	order []core.Slot
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{last: make(map[core.Slot][]byte)}
}

func (w *recordingWriter) WriteSlot(slot core.Slot, data []byte) {
	w.last[slot] = append([]byte(nil), data...)
	w.order = append(w.order, slot)
}

func (w *recordingWriter) vec4(slot core.Slot) [4]float32 {
	return core.DecodeVec4(w.last[slot])
}

type fakeTexture struct {
	extents  core.Extents
	released bool
}

func (t *fakeTexture) Extents() core.Extents { return t.extents }
func (t *fakeTexture) Release()              { t.released = true }

type fakeFactory struct {
	built []*fakeTexture
}

func (f *fakeFactory) Build(extents core.Extents, samples []byte) (core.VolumeTexture, error) {
	if err := core.ValidateCube(extents, len(samples), 64); err != nil {
		return nil, err
	}
	t := &fakeTexture{extents: extents}
	f.built = append(f.built, t)
	return t, nil
}

type fakeGroup struct {
	tex core.VolumeTexture
}

func (g *fakeGroup) Release() {}

type fakeBinder struct {
	fail error
}

func (b *fakeBinder) BuildBindGroup(tex core.VolumeTexture) (core.BindGroup, error) {
	if b.fail != nil {
		return nil, b.fail
	}
	return &fakeGroup{tex: tex}, nil
}

// fakeSurface checks that every slot was written before any frame is drawn.
type fakeSurface struct {
	writer *recordingWriter

	configured [][2]uint32
	acquireErr error

	drawn           []core.VolumeTexture
	uninitializedAt int
}

func (s *fakeSurface) Configure(width, height uint32) error {
	s.configured = append(s.configured, [2]uint32{width, height})
	return nil
}

func (s *fakeSurface) AcquireFrame() (core.Frame, error) {
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	if len(s.writer.last) != core.SlotCount {
		s.uninitializedAt++
	}
	return &fakeFrame{s: s}, nil
}

type fakeFrame struct {
	s *fakeSurface
}

func (f *fakeFrame) DrawQuad(group core.BindGroup) error {
	f.s.drawn = append(f.s.drawn, group.(*fakeGroup).tex)
	return nil
}
func (f *fakeFrame) Present() {}
func (f *fakeFrame) Release() {}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func cubeOf(w, h, d uint32, vals ...float32) volume.DataCube {
	samples := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(samples[i*4:], math.Float32bits(v))
	}
	return volume.DataCube{Extents: core.Extents{W: w, H: h, D: d}, Samples: samples}
}

// fitsCube encodes a BITPIX -32 primary HDU.
func fitsCube(w, h, d int, vals ...float32) []byte {
	var buf bytes.Buffer
	cards := []string{
		fmt.Sprintf("%-8s= %20s", "SIMPLE", "T"),
		fmt.Sprintf("%-8s= %20d", "BITPIX", -32),
		fmt.Sprintf("%-8s= %20d", "NAXIS", 3),
		fmt.Sprintf("%-8s= %20d", "NAXIS1", w),
		fmt.Sprintf("%-8s= %20d", "NAXIS2", h),
		fmt.Sprintf("%-8s= %20d", "NAXIS3", d),
		"END",
	}
	for _, c := range cards {
		buf.WriteString(fmt.Sprintf("%-80s", c))
	}
	for buf.Len()%2880 != 0 {
		buf.WriteByte(' ')
	}
	for _, v := range vals {
		_ = binary.Write(&buf, binary.BigEndian, v)
	}
	for buf.Len()%2880 != 0 {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}
