package core

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Slot addresses one of the fixed uniform buffers. The bind group exposes
// slot s at binding FirstUniformBinding+s.
type Slot int

const (
	SlotRotationMatrix Slot = iota
	SlotWindowSize
	SlotTime
	SlotCameraOrigin
	SlotCutsWindow
	SlotPerspective
	SlotMinMax

	SlotCount = int(SlotMinMax) + 1
)

// Bindings 0 and 1 hold the volume texture view and its sampler.
const (
	VolumeTextureBinding = 0
	VolumeSamplerBinding = 1
	FirstUniformBinding  = 2
)

func (s Slot) Size() uint64 {
	if s == SlotRotationMatrix {
		return 64
	}
	return 16
}

func (s Slot) Binding() uint32 {
	return uint32(FirstUniformBinding + int(s))
}

func (s Slot) String() string {
	switch s {
	case SlotRotationMatrix:
		return "rotation matrix"
	case SlotWindowSize:
		return "window size"
	case SlotTime:
		return "time"
	case SlotCameraOrigin:
		return "camera origin"
	case SlotCutsWindow:
		return "cuts window"
	case SlotPerspective:
		return "perspective"
	case SlotMinMax:
		return "min max"
	}
	return fmt.Sprintf("slot(%d)", int(s))
}

func (s Slot) valid() bool {
	return s >= 0 && int(s) < SlotCount
}

// SlotWriter stores a complete slot payload where the shader can read it.
type SlotWriter interface {
	WriteSlot(slot Slot, data []byte)
}

// UniformBank is the write-only view the core has of the uniform buffers.
// Every write replaces the whole slot.
type UniformBank struct {
	w       SlotWriter
	written [SlotCount]bool
}

func NewUniformBank(w SlotWriter) *UniformBank {
	if w == nil {
		panic("NewUniformBank: nil slot writer")
	}
	return &UniformBank{w: w}
}

func (b *UniformBank) Write(slot Slot, data []byte) {
	if !slot.valid() {
		panic(fmt.Sprintf("UniformBank.Write: unknown %s", slot))
	}
	if uint64(len(data)) != slot.Size() {
		panic(fmt.Sprintf("UniformBank.Write: %s takes %d bytes, got %d", slot, slot.Size(), len(data)))
	}
	b.w.WriteSlot(slot, data)
	b.written[slot] = true
}

// Initialized reports whether every slot has been written at least once.
func (b *UniformBank) Initialized() bool {
	for _, ok := range b.written {
		if !ok {
			return false
		}
	}
	return true
}

func (b *UniformBank) WriteRotation(m mgl32.Mat4) {
	b.Write(SlotRotationMatrix, EncodeMat4(m))
}

func (b *UniformBank) WriteWindowSize(width, height uint32) {
	b.Write(SlotWindowSize, EncodeVec4(float32(width), float32(height), 0, 0))
}

func (b *UniformBank) WriteTime(seconds float32) {
	b.Write(SlotTime, EncodeVec4(seconds, 0, 0, 0))
}

func (b *UniformBank) WriteCameraOrigin(theta, delta float32) {
	b.Write(SlotCameraOrigin, EncodeVec4(theta, delta, 0, 0))
}

func (b *UniformBank) WriteCuts(scale, offset float32) {
	b.Write(SlotCutsWindow, EncodeVec4(scale, offset, 0, 0))
}

func (b *UniformBank) WritePerspective(enabled bool) {
	v := float32(0)
	if enabled {
		v = 1
	}
	b.Write(SlotPerspective, EncodeVec4(v, 0, 0, 0))
}

func (b *UniformBank) WriteMinMax(lo, hi float32) {
	b.Write(SlotMinMax, EncodeVec4(lo, hi, 0, 0))
}

// EncodeMat4 packs m column-major as little-endian f32.
func EncodeMat4(m mgl32.Mat4) []byte {
	buf := make([]byte, 64)
	for i, v := range m {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func EncodeVec4(x, y, z, w float32) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(x))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(y))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(z))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(w))
	return buf
}

// DecodeVec4 is the inverse of EncodeVec4; it reads the first four floats of data.
func DecodeVec4(data []byte) [4]float32 {
	var v [4]float32
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v
}
