package led

import "sync"

// Sim is an in-memory Driver that records every frame it is given.
type Sim struct {
	mu     sync.Mutex
	frames [][]byte
	max    int
	closed bool
}

// NewSim keeps at most max frames; 0 keeps them all.
func NewSim(max int) *Sim { return &Sim{max: max} }

func (s *Sim) Write(rgb []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.frames = append(s.frames, append([]byte(nil), rgb...))
	if s.max > 0 && len(s.frames) > s.max {
		s.frames = s.frames[len(s.frames)-s.max:]
	}
	return nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Frames returns the recorded frames, oldest first.
func (s *Sim) Frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.frames...)
}

// Last returns the newest frame or nil.
func (s *Sim) Last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}
