package gpu

import (
	"fmt"

	"github.com/bmatthieu3/fits3/cubeview/rt/core"
	"github.com/bmatthieu3/fits3/cubeview/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
)

// Full-screen quad in NDC: two counter-clockwise triangles.
var (
	quadVertices = []float32{
		-1, -1,
		1, -1,
		1, 1,
		-1, 1,
	}
	quadIndices = []uint32{0, 1, 2, 0, 2, 3}
)

const QuadIndexCount = 6

// ClearColor is the background behind the volume.
var ClearColor = wgpu.Color{R: 0.01, G: 0.01, B: 0.01, A: 1}

// Renderer owns the raymarching pipeline, its bind group layout and the
// quad buffers. It builds bind groups for cubes and implements
// core.BindGroupBuilder.
type Renderer struct {
	device   *wgpu.Device
	uniforms *UniformBuffers

	Layout   *wgpu.BindGroupLayout
	Pipeline *wgpu.RenderPipeline
	Vertices *wgpu.Buffer
	Indices  *wgpu.Buffer
}

func NewRenderer(device *wgpu.Device, format wgpu.TextureFormat, uniforms *UniformBuffers) (*Renderer, error) {
	r := &Renderer{device: device, uniforms: uniforms}

	entries := []wgpu.BindGroupLayoutEntry{
		{
			Binding:    core.VolumeTextureBinding,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
				ViewDimension: wgpu.TextureViewDimension3D,
				Multisampled:  false,
			},
		},
		{
			Binding:    core.VolumeSamplerBinding,
			Visibility: wgpu.ShaderStageFragment,
			Sampler: wgpu.SamplerBindingLayout{
				Type: wgpu.SamplerBindingTypeNonFiltering,
			},
		},
	}
	for i := 0; i < core.SlotCount; i++ {
		slot := core.Slot(i)
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    slot.Binding(),
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				MinBindingSize:   slot.Size(),
				HasDynamicOffset: false,
			},
		})
	}

	var err error
	r.Layout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "cube bind group layout",
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group layout: %w", err)
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "cube pipeline layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{r.Layout},
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}
	defer pipelineLayout.Release()

	shader, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "cube raymarcher",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.CubeWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("compile cube shader: %w", err)
	}
	defer shader.Release()

	r.Pipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "cube pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: 2 * 4,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				Blend:     nil,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		Multisample: wgpu.MultisampleState{
			Count:                  1,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create cube pipeline: %w", err)
	}

	r.Vertices, err = device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "quad vertices",
		Contents: wgpu.ToBytes(quadVertices),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return nil, fmt.Errorf("create quad vertices: %w", err)
	}
	r.Indices, err = device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "quad indices",
		Contents: wgpu.ToBytes(quadIndices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		return nil, fmt.Errorf("create quad indices: %w", err)
	}
	return r, nil
}

// BuildBindGroup binds tex together with every uniform buffer. The uniform
// buffers are shared between bind groups, so the new group sees their
// current contents.
func (r *Renderer) BuildBindGroup(tex core.VolumeTexture) (core.BindGroup, error) {
	vt, ok := tex.(*VolumeTexture)
	if !ok || vt.View == nil || vt.Sampler == nil {
		return nil, fmt.Errorf("bind group needs a live *gpu.VolumeTexture, got %T", tex)
	}

	entries := []wgpu.BindGroupEntry{
		{Binding: core.VolumeTextureBinding, TextureView: vt.View},
		{Binding: core.VolumeSamplerBinding, Sampler: vt.Sampler},
	}
	for i := 0; i < core.SlotCount; i++ {
		slot := core.Slot(i)
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: slot.Binding(),
			Buffer:  r.uniforms.Buffer(slot),
			Offset:  0,
			Size:    slot.Size(),
		})
	}

	group, err := r.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "cube bind group",
		Layout:  r.Layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	return group, nil
}

// Encode records the cube pass into view and returns the finished commands.
func (r *Renderer) Encode(view *wgpu.TextureView, group *wgpu.BindGroup) (*wgpu.CommandBuffer, error) {
	encoder, err := r.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "cube pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: ClearColor,
		}},
	})
	pass.SetPipeline(r.Pipeline)
	pass.SetBindGroup(0, group, nil)
	pass.SetVertexBuffer(0, r.Vertices, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(r.Indices, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	pass.DrawIndexed(QuadIndexCount, 1, 0, 0, 0)
	if err := pass.End(); err != nil {
		return nil, fmt.Errorf("end cube pass: %w", err)
	}
	pass.Release()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finish encoder: %w", err)
	}
	return cmd, nil
}

func (r *Renderer) Release() {
	if r.Indices != nil {
		r.Indices.Release()
	}
	if r.Vertices != nil {
		r.Vertices.Release()
	}
	if r.Pipeline != nil {
		r.Pipeline.Release()
	}
	if r.Layout != nil {
		r.Layout.Release()
	}
}
