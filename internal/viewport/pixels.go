package viewport

import (
	"math"
	"sync"
)

// Pixels is the preview scroll container measured in pixels.
type Pixels struct {
	mu sync.RWMutex

	scrollTop     float64
	clientHeight  float64
	contentHeight float64
	attached      bool

	mutations int
	onScroll  func(top float64)
}

// NewPixels creates an attached preview container of the given client height.
func NewPixels(clientHeight float64) *Pixels {
	if clientHeight < 0 || math.IsNaN(clientHeight) {
		clientHeight = 0
	}
	return &Pixels{clientHeight: clientHeight, attached: true}
}

// OnScroll registers fn to be called after every position change.
func (v *Pixels) OnScroll(fn func(top float64)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onScroll = fn
}

// Attached reports whether the container is mounted.
func (v *Pixels) Attached() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.attached
}

// Attach remounts the container.
func (v *Pixels) Attach() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.attached = true
}

// Detach unmounts the container. Subsequent scrolls are ignored.
func (v *Pixels) Detach() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.attached = false
}

// ScrollTop returns the current scroll position.
func (v *Pixels) ScrollTop() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.scrollTop
}

// Height returns the client height.
func (v *Pixels) Height() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.clientHeight
}

// ScrollHeight returns the content height.
func (v *Pixels) ScrollHeight() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.contentHeight
}

// Center returns the content offset at the vertical middle of the viewport.
func (v *Pixels) Center() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.scrollTop + v.clientHeight/2
}

// Resize updates the client height.
func (v *Pixels) Resize(clientHeight float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if clientHeight < 0 || math.IsNaN(clientHeight) {
		clientHeight = 0
	}
	v.clientHeight = clientHeight
	v.scrollTop = v.clamp(v.scrollTop)
}

// SetContentHeight updates the scrollable content height.
func (v *Pixels) SetContentHeight(h float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if h < 0 || math.IsNaN(h) {
		h = 0
	}
	v.contentHeight = h
	v.scrollTop = v.clamp(v.scrollTop)
}

// SetScrollTop scrolls to top, clamped to the scrollable range.
func (v *Pixels) SetScrollTop(top float64) {
	v.mu.Lock()
	if !v.attached {
		v.mu.Unlock()
		return
	}
	top = v.clamp(top)
	if top == v.scrollTop {
		v.mu.Unlock()
		return
	}
	v.scrollTop = top
	v.mutations++
	fn := v.onScroll
	v.mu.Unlock()

	if fn != nil {
		fn(top)
	}
}

// Mutations returns how many times the scroll position changed.
func (v *Pixels) Mutations() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mutations
}

func (v *Pixels) clamp(top float64) float64 {
	maxTop := v.contentHeight - v.clientHeight
	if maxTop < 0 {
		maxTop = 0
	}
	switch {
	case math.IsNaN(top), top < 0:
		return 0
	case top > maxTop:
		return maxTop
	default:
		return top
	}
}
