package gpu

import (
	"fmt"

	"github.com/bmatthieu3/fits3/cubeview/rt/core"

	"github.com/cogentcore/webgpu/wgpu"
)

// UniformBuffers holds one GPU buffer per uniform slot and implements
// core.SlotWriter.
type UniformBuffers struct {
	queue   *wgpu.Queue
	buffers [core.SlotCount]*wgpu.Buffer
}

func NewUniformBuffers(device *wgpu.Device) (*UniformBuffers, error) {
	u := &UniformBuffers{queue: device.GetQueue()}
	for i := range u.buffers {
		slot := core.Slot(i)
		buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            slot.String() + " uniform",
			Size:             slot.Size(),
			Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		})
		if err != nil {
			u.Release()
			return nil, fmt.Errorf("create %s buffer: %w", slot, err)
		}
		u.buffers[i] = buf
	}
	return u, nil
}

func (u *UniformBuffers) Buffer(slot core.Slot) *wgpu.Buffer {
	return u.buffers[slot]
}

func (u *UniformBuffers) WriteSlot(slot core.Slot, data []byte) {
	buf := u.buffers[slot]
	if buf == nil {
		panic(fmt.Sprintf("UniformBuffers.WriteSlot: %s buffer was never allocated", slot))
	}
	if err := u.queue.WriteBuffer(buf, 0, data); err != nil {
		panic(fmt.Sprintf("UniformBuffers.WriteSlot: %s: %v", slot, err))
	}
}

func (u *UniformBuffers) Release() {
	for i, buf := range u.buffers {
		if buf != nil {
			buf.Release()
			u.buffers[i] = nil
		}
	}
}
