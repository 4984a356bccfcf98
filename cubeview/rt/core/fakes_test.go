package core

import (
	"errors"
	"fmt"
)

type slotWrite struct {
	slot Slot
	data []byte
}

type recordingWriter struct {
	writes []slotWrite
	last   map[Slot][]byte
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{last: make(map[Slot][]byte)}
}

func (w *recordingWriter) WriteSlot(slot Slot, data []byte) {
	cp := append([]byte(nil), data...)
	w.writes = append(w.writes, slotWrite{slot, cp})
	w.last[slot] = cp
}

func (w *recordingWriter) vec4(slot Slot) [4]float32 {
	return DecodeVec4(w.last[slot])
}

func (w *recordingWriter) count(slot Slot) int {
	n := 0
	for _, wr := range w.writes {
		if wr.slot == slot {
			n++
		}
	}
	return n
}

type fakeTexture struct {
	extents  Extents
	released bool
}

func (t *fakeTexture) Extents() Extents { return t.extents }
func (t *fakeTexture) Release()         { t.released = true }

type fakeGroup struct {
	tex      VolumeTexture
	released bool
}

func (g *fakeGroup) Release() { g.released = true }

type fakeBinder struct {
	fail  error
	built []*fakeGroup
}

func (b *fakeBinder) BuildBindGroup(tex VolumeTexture) (BindGroup, error) {
	if b.fail != nil {
		return nil, b.fail
	}
	g := &fakeGroup{tex: tex}
	b.built = append(b.built, g)
	return g, nil
}

type fakeFrame struct {
	surface *fakeSurface
}

func (f *fakeFrame) DrawQuad(group BindGroup) error {
	if f.surface.drawErr != nil {
		return f.surface.drawErr
	}
	f.surface.drawn = append(f.surface.drawn, group.(*fakeGroup).tex)
	return nil
}
func (f *fakeFrame) Present() { f.surface.presented++ }
func (f *fakeFrame) Release() { f.surface.released++ }

type fakeSurface struct {
	configured   [][2]uint32
	configureErr error
	acquireErrs  []error
	drawErr      error

	acquired  int
	drawn     []VolumeTexture
	presented int
	released  int
}

func (s *fakeSurface) Configure(width, height uint32) error {
	if s.configureErr != nil {
		return s.configureErr
	}
	s.configured = append(s.configured, [2]uint32{width, height})
	return nil
}

func (s *fakeSurface) AcquireFrame() (Frame, error) {
	s.acquired++
	if len(s.acquireErrs) > 0 {
		err := s.acquireErrs[0]
		s.acquireErrs = s.acquireErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &fakeFrame{surface: s}, nil
}

var errBindGroup = errors.New("bind group layout mismatch")

func wrapped(sentinel error) error {
	return fmt.Errorf("wgpu: %w", sentinel)
}
