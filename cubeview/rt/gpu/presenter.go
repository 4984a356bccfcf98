package gpu

import (
	"fmt"

	"github.com/bmatthieu3/fits3/cubeview/rt/core"

	"github.com/cogentcore/webgpu/wgpu"
)

// Presenter adapts a Context and Renderer to core.Surface.
type Presenter struct {
	ctx      *Context
	renderer *Renderer
}

func NewPresenter(ctx *Context, renderer *Renderer) *Presenter {
	return &Presenter{ctx: ctx, renderer: renderer}
}

func (p *Presenter) Configure(width, height uint32) error {
	p.ctx.Configure(width, height)
	return nil
}

func (p *Presenter) AcquireFrame() (core.Frame, error) {
	tex, err := p.ctx.Surface.GetCurrentTexture()
	if err != nil {
		return nil, classifySurfaceError(err)
	}
	if tex == nil {
		return nil, fmt.Errorf("%w: no current texture", core.ErrTransientPresent)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("%w: create frame view: %v", core.ErrTransientPresent, err)
	}
	return &frame{p: p, texture: tex, view: view}, nil
}

type frame struct {
	p       *Presenter
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (f *frame) DrawQuad(group core.BindGroup) error {
	bg, ok := group.(*wgpu.BindGroup)
	if !ok {
		return fmt.Errorf("draw: unexpected bind group %T", group)
	}
	cmd, err := f.p.renderer.Encode(f.view, bg)
	if err != nil {
		return err
	}
	defer cmd.Release()
	f.p.ctx.Queue.Submit(cmd)
	return nil
}

func (f *frame) Present() {
	f.p.ctx.Surface.Present()
}

func (f *frame) Release() {
	f.view.Release()
	f.texture.Release()
}
