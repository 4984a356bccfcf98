package gpu

import (
	"fmt"

	"github.com/bmatthieu3/fits3/cubeview/rt/core"

	"github.com/cogentcore/webgpu/wgpu"
)

// VolumeTexture is a cube uploaded as a single-channel f32 3-D texture.
type VolumeTexture struct {
	extents core.Extents

	Texture *wgpu.Texture
	View    *wgpu.TextureView
	Sampler *wgpu.Sampler
}

func (t *VolumeTexture) Extents() core.Extents { return t.extents }

func (t *VolumeTexture) Release() {
	if t.Sampler != nil {
		t.Sampler.Release()
		t.Sampler = nil
	}
	if t.View != nil {
		t.View.Release()
		t.View = nil
	}
	if t.Texture != nil {
		t.Texture.Release()
		t.Texture = nil
	}
}

// CubeTextureFactory implements core.TextureFactory on a wgpu device.
type CubeTextureFactory struct {
	device *wgpu.Device
	queue  *wgpu.Queue
	maxDim uint32
}

func NewCubeTextureFactory(device *wgpu.Device, maxDim uint32) *CubeTextureFactory {
	return &CubeTextureFactory{
		device: device,
		queue:  device.GetQueue(),
		maxDim: maxDim,
	}
}

func (f *CubeTextureFactory) Build(extents core.Extents, samples []byte) (core.VolumeTexture, error) {
	if err := core.ValidateCube(extents, len(samples), f.maxDim); err != nil {
		return nil, err
	}

	size := wgpu.Extent3D{
		Width:              extents.W,
		Height:             extents.H,
		DepthOrArrayLayers: extents.D,
	}
	vt := &VolumeTexture{extents: extents}

	var err error
	vt.Texture, err = f.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "cube",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension3D,
		Format:        wgpu.TextureFormatR32Float,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create cube texture %s: %w", extents, err)
	}

	err = f.queue.WriteTexture(
		vt.Texture.AsImageCopy(),
		samples,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  extents.W * core.BytesPerSample,
			RowsPerImage: extents.H,
		},
		&size,
	)
	if err != nil {
		vt.Release()
		return nil, fmt.Errorf("upload cube %s: %w", extents, err)
	}

	vt.View, err = vt.Texture.CreateView(nil)
	if err != nil {
		vt.Release()
		return nil, fmt.Errorf("create cube view: %w", err)
	}

	// R32Float is not filterable, so the sampler must be nearest.
	vt.Sampler, err = f.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "cube sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeNearest,
		MinFilter:     wgpu.FilterModeNearest,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		vt.Release()
		return nil, fmt.Errorf("create cube sampler: %w", err)
	}
	return vt, nil
}
