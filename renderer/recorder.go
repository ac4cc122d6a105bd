package renderer

import "sync"

// Recorder keeps a private copy of the last rendered frame.
// Safe to read from other goroutines while frames are rendered.
type Recorder struct {
	mu     sync.RWMutex
	last   *Frame
	frames uint64
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Render(frame *Frame) error {
	c := frame.Clone()
	r.mu.Lock()
	r.last = c
	r.frames++
	r.mu.Unlock()
	return nil
}

// Last returns the last recorded frame or nil. Callers must not modify it.
func (r *Recorder) Last() *Frame {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

func (r *Recorder) Frames() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frames
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.last = nil
	r.frames = 0
	r.mu.Unlock()
}
