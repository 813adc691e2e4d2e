package trigger

import (
	"context"
	"sync"
)

// Manual fires Update whenever TriggerUpdate is called. Requests that arrive
// while a frame is being produced are coalesced into one follow-up update;
// the most recent data wins.
type Manual struct {
	base

	signal chan struct{}
	mu     sync.Mutex
	data   CustomData
}

func NewManual() *Manual {
	m := &Manual{signal: make(chan struct{}, 1)}
	m.base.self = m
	m.base.name = "manual"
	return m
}

func (m *Manual) Start() { m.start(m.loop) }
func (m *Manual) Stop()  { m.stop() }

// TriggerUpdate requests a frame. data is forwarded to the Update handlers.
// It never blocks; calling it on a stopped trigger only stores the request.
func (m *Manual) TriggerUpdate(data CustomData) {
	m.mu.Lock()
	m.data = data
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *Manual) take() CustomData {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.data
	m.data = nil
	return d
}

func (m *Manual) loop(ctx context.Context) {
	m.fireStarting(nil)
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.signal:
			if ctx.Err() != nil {
				return
			}
			m.fireUpdate(m.take())
		}
	}
}
