package app

import (
	"sync"

	"github.com/google/uuid"
)

// CubeRequest carries the raw bytes of a cube file to the frame thread.
type CubeRequest struct {
	ID     uuid.UUID
	Source string
	Data   []byte
}

func NewCubeRequest(source string, data []byte) CubeRequest {
	return CubeRequest{ID: uuid.New(), Source: source, Data: data}
}

// CubeInbox holds at most one pending CubeRequest. Posting while a request
// is still queued replaces it, so the frame thread only ever loads the
// newest cube.
type CubeInbox struct {
	mu sync.Mutex
	ch chan CubeRequest
}

func NewCubeInbox() *CubeInbox {
	return &CubeInbox{ch: make(chan CubeRequest, 1)}
}

// Post never blocks. It reports whether a queued request was superseded.
func (b *CubeInbox) Post(req CubeRequest) (superseded bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.ch:
		superseded = true
	default:
	}
	b.ch <- req
	return superseded
}

func (b *CubeInbox) TryTake() (CubeRequest, bool) {
	select {
	case req := <-b.ch:
		return req, true
	default:
		return CubeRequest{}, false
	}
}

type ParamKind int

const (
	SetPerspective ParamKind = iota
	TogglePerspective
	SetMinMax
	AutoMinMax
)

// ParamChange is an external change of the Perspective or MinMax uniforms.
type ParamChange struct {
	Kind        ParamKind
	Perspective bool
	Min, Max    float32
}

const paramInboxSize = 16

// ParamInbox is a bounded queue of parameter changes drained once per frame.
type ParamInbox struct {
	ch chan ParamChange
}

func NewParamInbox() *ParamInbox {
	return &ParamInbox{ch: make(chan ParamChange, paramInboxSize)}
}

// Post never blocks; it returns false and drops p when the queue is full.
func (b *ParamInbox) Post(p ParamChange) bool {
	select {
	case b.ch <- p:
		return true
	default:
		return false
	}
}

// Drain applies every change queued at call time, in order.
func (b *ParamInbox) Drain(apply func(ParamChange)) int {
	n := len(b.ch)
	for i := 0; i < n; i++ {
		apply(<-b.ch)
	}
	return n
}
