package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
)

type Mode int

const (
	ModeIdle Mode = iota
	ModePanning
	ModeAdjusting
)

func (m Mode) String() string {
	switch m {
	case ModePanning:
		return "panning"
	case ModeAdjusting:
		return "adjusting"
	}
	return "idle"
}

// ElevationEpsilon keeps the camera off the poles.
const ElevationEpsilon = 1e-3

// ClampElevation bounds delta to [-pi/2+eps, pi/2-eps].
func ClampElevation(delta float64) float64 {
	return mgl64.Clamp(delta, -math.Pi/2+ElevationEpsilon, math.Pi/2-ElevationEpsilon)
}

// ViewParams is the user-controlled part of the view: camera azimuth and
// elevation in radians, and the cuts window.
type ViewParams struct {
	Theta  float64
	Delta  float64
	Scale  float64
	Offset float64
}

// DefaultView looks at the cube from the equator with an identity cuts window.
var DefaultView = ViewParams{Scale: 1}

// InteractionController turns pointer gestures into CameraOrigin and
// CutsWindow writes. Moves preview the pending delta; only the matching
// release folds it into the committed view.
type InteractionController struct {
	bank *UniformBank

	mode   Mode
	anchor mgl64.Vec2
	cursor mgl64.Vec2

	width, height float64

	committed ViewParams
	// pending holds deltas, not absolute values.
	pending ViewParams
}

func NewInteractionController(bank *UniformBank) *InteractionController {
	return &InteractionController{
		bank:      bank,
		committed: DefaultView,
	}
}

func (c *InteractionController) Mode() Mode { return c.mode }

func (c *InteractionController) Committed() ViewParams { return c.committed }

// Pending returns the deltas of the gesture in progress.
func (c *InteractionController) Pending() ViewParams { return c.pending }

func (c *InteractionController) Cursor() (x, y float64) { return c.cursor[0], c.cursor[1] }

func (c *InteractionController) SetViewport(width, height uint32) {
	c.width = float64(width)
	c.height = float64(height)
}

// Sync writes the committed camera and cuts to the bank.
func (c *InteractionController) Sync() {
	c.writeCamera(c.committed.Theta, c.committed.Delta)
	c.writeCuts(c.committed.Scale, c.committed.Offset)
}

func (c *InteractionController) Press(b Button) {
	if c.mode != ModeIdle {
		return
	}
	c.anchor = c.cursor
	switch b {
	case ButtonPrimary:
		c.mode = ModePanning
		c.pending.Theta, c.pending.Delta = 0, 0
	case ButtonSecondary:
		c.mode = ModeAdjusting
		c.pending.Scale, c.pending.Offset = 0, 0
	}
}

func (c *InteractionController) Release(b Button) {
	switch {
	case b == ButtonPrimary && c.mode == ModePanning:
		c.committed.Theta += c.pending.Theta
		c.committed.Delta = ClampElevation(c.committed.Delta + c.pending.Delta)
	case b == ButtonSecondary && c.mode == ModeAdjusting:
		c.committed.Scale += c.pending.Scale
		c.committed.Offset += c.pending.Offset
	default:
		return
	}
	c.pending = ViewParams{}
	c.mode = ModeIdle
}

func (c *InteractionController) Move(x, y float64) {
	c.cursor = mgl64.Vec2{x, y}

	switch c.mode {
	case ModePanning:
		nx, ny := c.normalized()
		c.pending.Theta = 2 * nx
		c.pending.Delta = ny
		c.writeCamera(c.committed.Theta+c.pending.Theta, ClampElevation(c.committed.Delta+c.pending.Delta))
	case ModeAdjusting:
		nx, ny := c.normalized()
		c.pending.Scale = ny
		c.pending.Offset = nx
		c.writeCuts(c.committed.Scale+c.pending.Scale, c.committed.Offset+c.pending.Offset)
	}
}

// Abort drops an unfinished gesture and restores the committed value of the
// slot it was previewing.
func (c *InteractionController) Abort() {
	switch c.mode {
	case ModePanning:
		c.writeCamera(c.committed.Theta, c.committed.Delta)
	case ModeAdjusting:
		c.writeCuts(c.committed.Scale, c.committed.Offset)
	default:
		return
	}
	c.pending = ViewParams{}
	c.mode = ModeIdle
}

// Reset returns to the default view, discarding any gesture.
func (c *InteractionController) Reset() {
	c.mode = ModeIdle
	c.pending = ViewParams{}
	c.committed = DefaultView
	c.Sync()
}

// normalized returns the cursor offset from the anchor in units of the
// viewport half-extent. A zero-sized axis yields 0.
func (c *InteractionController) normalized() (nx, ny float64) {
	d := c.cursor.Sub(c.anchor)
	if c.width > 0 {
		nx = d[0] / (0.5 * c.width)
	}
	if c.height > 0 {
		ny = d[1] / (0.5 * c.height)
	}
	return nx, ny
}

func (c *InteractionController) writeCamera(theta, delta float64) {
	c.bank.WriteCameraOrigin(float32(theta), float32(delta))
}

func (c *InteractionController) writeCuts(scale, offset float64) {
	c.bank.WriteCuts(float32(scale), float32(offset))
}
