package core

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotLayout(t *testing.T) {
	assert.Equal(t, 7, SlotCount)
	assert.Equal(t, uint64(64), SlotRotationMatrix.Size())
	for s := SlotWindowSize; int(s) < SlotCount; s++ {
		assert.Equal(t, uint64(16), s.Size(), s.String())
	}
	assert.Equal(t, uint32(2), SlotRotationMatrix.Binding())
	assert.Equal(t, uint32(8), SlotMinMax.Binding())
}

func TestUniformBankWritesWholeSlots(t *testing.T) {
	w := newRecordingWriter()
	bank := NewUniformBank(w)

	bank.WriteWindowSize(800, 600)
	bank.WriteCuts(1, 0)
	bank.WritePerspective(true)
	bank.WriteMinMax(-2, 5)

	assert.Equal(t, [4]float32{800, 600, 0, 0}, w.vec4(SlotWindowSize))
	assert.Equal(t, [4]float32{1, 0, 0, 0}, w.vec4(SlotCutsWindow))
	assert.Equal(t, [4]float32{1, 0, 0, 0}, w.vec4(SlotPerspective))
	assert.Equal(t, [4]float32{-2, 5, 0, 0}, w.vec4(SlotMinMax))

	bank.WritePerspective(false)
	assert.Equal(t, [4]float32{0, 0, 0, 0}, w.vec4(SlotPerspective))

	for _, wr := range w.writes {
		assert.Len(t, wr.data, int(wr.slot.Size()), wr.slot.String())
	}
}

func TestUniformBankInitialized(t *testing.T) {
	bank := NewUniformBank(newRecordingWriter())
	bank.WriteRotation(mgl32.Ident4())
	bank.WriteWindowSize(1, 1)
	bank.WriteTime(0)
	bank.WriteCameraOrigin(0, 0)
	bank.WriteCuts(1, 0)
	bank.WritePerspective(true)
	assert.False(t, bank.Initialized())

	bank.WriteMinMax(0, 1)
	assert.True(t, bank.Initialized())
}

func TestUniformBankRejectsWrongSize(t *testing.T) {
	bank := NewUniformBank(newRecordingWriter())
	require.Panics(t, func() { bank.Write(SlotTime, make([]byte, 8)) })
	require.Panics(t, func() { bank.Write(Slot(42), make([]byte, 16)) })
}

func TestEncodeMat4ColumnMajor(t *testing.T) {
	m := mgl32.HomogRotate3DY(math.Pi / 2)
	buf := EncodeMat4(m)
	require.Len(t, buf, 64)

	at := func(i int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	// column 0 is (cos, 0, -sin, 0), column 2 is (sin, 0, cos, 0)
	assert.InDelta(t, 0, at(0), 1e-6)
	assert.InDelta(t, -1, at(2), 1e-6)
	assert.InDelta(t, 1, at(8), 1e-6)
	assert.InDelta(t, 1, at(5), 1e-6)
	assert.InDelta(t, 1, at(15), 1e-6)
}
