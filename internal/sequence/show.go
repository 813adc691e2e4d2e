package sequence

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcaluminis/internal/brush"
	"github.com/coreman2200/arcaluminis/internal/effect"
	"github.com/coreman2200/arcaluminis/internal/surface"
)

// Show plays a Program on a led group. Each clip swaps the group's brush for
// one built from the registry; crossfades install a brush.Crossfade between
// the two. Clip params "brightness" and "opacity" and the bool "enabled"
// drive the active brush.
//
// A non-looping show finishes after its last clip. Detaching restores the
// brush the group had before.
type Show struct {
	effect.Base
	reg *brush.Registry

	mu        sync.Mutex
	player    *Player
	group     surface.Group
	prev      brush.Brush
	active    brush.Brush
	next      brush.Brush
	nextKey   string
	crossfade *brush.Crossfade
}

// NewShow checks every clip against reg and loads prog.
func NewShow(reg *brush.Registry, prog Program) (*Show, error) {
	for i, c := range prog.Clips {
		if c.Duration <= 0 {
			return nil, fmt.Errorf("clip %d (%s): duration must be positive", i, c.Name)
		}
		if _, err := reg.New(c.Brush, c.Preset); err != nil {
			return nil, fmt.Errorf("clip %d (%s): %w", i, c.Name, err)
		}
	}
	s := &Show{reg: reg}
	s.player = NewPlayer(Hooks{
		SetBrush:     s.setBrush,
		ArmNext:      s.armNext,
		SetCrossfade: s.setCrossfade,
		SetParam:     s.setParam,
		SetBool:      s.setBool,
		Ended:        s.Finish,
	})
	if err := s.player.Load(prog); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Show) OnAttach(g surface.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.group, s.prev = g, g.Brush()
	s.player.Start()
}

func (s *Show) OnDetach(g surface.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.Stop()
	g.SetBrush(s.prev)
	s.group, s.active, s.next, s.crossfade = nil, nil, nil, nil
}

func (s *Show) Update(dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.Tick(dt)
}

// State reports the player state.
func (s *Show) State() PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.State
}

// Position is the time into the program.
func (s *Show) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Position()
}

func (s *Show) Pause() {
	s.mu.Lock()
	s.player.Pause()
	s.mu.Unlock()
}

func (s *Show) Resume() {
	s.mu.Lock()
	s.player.Resume()
	s.mu.Unlock()
}

// Seek jumps to t into the program. It only shows the new clip while the
// show is attached.
func (s *Show) Seek(t time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.Seek(t)
}

// hooks below run with s.mu held

func (s *Show) setBrush(name, preset string) {
	key := name + "/" + preset
	b := s.next
	if b == nil || s.nextKey != key {
		var err error
		if b, err = s.reg.New(name, preset); err != nil {
			log.Error().Err(err).Msg("show: brush")
			return
		}
	}
	s.active, s.next, s.nextKey, s.crossfade = b, nil, "", nil
	if s.group != nil {
		s.group.SetBrush(b)
	}
}

func (s *Show) armNext(name, preset string) {
	b, err := s.reg.New(name, preset)
	if err != nil {
		log.Error().Err(err).Msg("show: armed brush")
		return
	}
	s.next, s.nextKey = b, name+"/"+preset
	s.crossfade = brush.NewCrossfade(s.active, b)
	if s.active != nil {
		s.crossfade.SetCalculationMode(s.active.CalculationMode())
	}
	if s.group != nil {
		s.group.SetBrush(s.crossfade)
	}
}

func (s *Show) setCrossfade(alpha float64) {
	if s.crossfade != nil {
		s.crossfade.SetAlpha(alpha)
	}
}

func (s *Show) setParam(name string, v float64) {
	if s.active == nil {
		return
	}
	switch name {
	case "brightness":
		s.active.SetBrightness(v)
	case "opacity":
		s.active.SetOpacity(v)
	default:
		log.Debug().Str("param", name).Msg("show: unknown param")
	}
}

func (s *Show) setBool(name string, v bool) {
	if s.active != nil && name == "enabled" {
		s.active.SetEnabled(v)
	}
}
