package sequence

import (
	"errors"
	"time"
)

var ErrEmptyProgram = errors.New("program has no clips")

// Player owns a Program timeline and drives Hooks from it. It is not safe
// for concurrent use.
type Player struct {
	State PlayerState

	prog Program
	now  time.Duration // position within program
	idx  int           // current clip index

	// crossfade bookkeeping
	armed     bool
	lastAlpha float64

	hooks Hooks
}

// NewPlayer constructs a Player with provided hooks.
func NewPlayer(h Hooks) *Player {
	return &Player{State: Idle, hooks: h}
}

// Load replaces the current program. Resets time and state to Idle.
func (p *Player) Load(prog Program) error {
	if len(prog.Clips) == 0 {
		return ErrEmptyProgram
	}
	for _, c := range prog.Clips {
		for _, env := range c.Params {
			env.Sort()
		}
		for _, env := range c.Bools {
			env.Sort()
		}
	}
	p.prog = prog
	p.State = Idle
	p.now = 0
	p.reset(0)
	return nil
}

// Program returns the loaded program.
func (p *Player) Program() Program { return p.prog }

// Position is the time into the program.
func (p *Player) Position() time.Duration { return p.now }

// Clip returns the current clip index.
func (p *Player) Clip() int { return p.idx }

// Start moves to Running and primes the current clip.
func (p *Player) Start() {
	if p.State == Running || len(p.prog.Clips) == 0 {
		return
	}
	p.State = Running
	p.show()
}

// Pause pauses playback.
func (p *Player) Pause() {
	if p.State == Running {
		p.State = Paused
	}
}

// Resume resumes playback.
func (p *Player) Resume() {
	if p.State == Paused {
		p.State = Running
	}
}

// Stop stops and rewinds to the start.
func (p *Player) Stop() {
	p.State = Idle
	p.now = 0
	p.reset(0)
	p.crossfade(0)
}

// Seek jumps to absolute program time t, clamped into [0, total).
func (p *Player) Seek(t time.Duration) {
	if len(p.prog.Clips) == 0 {
		return
	}
	if t < 0 {
		t = 0
	}
	if total := p.totalDuration(); total > 0 && t >= total {
		t = total - 1
	}
	idx, acc := 0, time.Duration(0)
	for i, c := range p.prog.Clips {
		if t < acc+c.Duration {
			idx = i
			break
		}
		acc += c.Duration
	}
	p.reset(idx)
	p.now = t
	p.show()
}

// Tick advances the sequencer by dt and emits control hooks.
func (p *Player) Tick(dt time.Duration) {
	if p.State != Running || len(p.prog.Clips) == 0 || dt <= 0 {
		return
	}
	p.now += dt

	clip, localT := p.currentClipAndLocalT()
	for name, env := range clip.Params {
		if p.hooks.SetParam != nil {
			p.hooks.SetParam(name, env.Eval(localT))
		}
	}
	for name, env := range clip.Bools {
		if p.hooks.SetBool != nil {
			p.hooks.SetBool(name, env.BoolEval(localT))
		}
	}

	if clip.XFade > 0 {
		remain := clip.Duration - localT
		if remain <= clip.XFade && remain >= 0 {
			next := p.nextIndex()
			if !p.armed && next != -1 && p.hooks.ArmNext != nil {
				nc := p.prog.Clips[next]
				p.hooks.ArmNext(nc.Brush, nc.Preset)
				p.armed = true
			}
			// alpha 0..1 over [Duration-XFade, Duration]
			alpha := clamp01(1 - float64(remain)/float64(clip.XFade))
			if p.armed && alpha != p.lastAlpha {
				p.crossfade(alpha)
			}
		}
	}

	if localT >= clip.Duration {
		p.advanceClip()
	}
}

func (p *Player) currentClipAndLocalT() (Clip, time.Duration) {
	var acc time.Duration
	for i := 0; i < p.idx; i++ {
		acc += p.prog.Clips[i].Duration
	}
	return p.prog.Clips[p.idx], p.now - acc
}

func (p *Player) totalDuration() time.Duration {
	var total time.Duration
	for _, c := range p.prog.Clips {
		total += c.Duration
	}
	return total
}

func (p *Player) nextIndex() int {
	ni := p.idx + 1
	if ni >= len(p.prog.Clips) {
		if p.prog.Loop {
			return 0
		}
		return -1
	}
	return ni
}

func (p *Player) advanceClip() {
	next := p.nextIndex()
	if next == -1 {
		p.State = Idle
		p.crossfade(0)
		if p.hooks.Ended != nil {
			p.hooks.Ended()
		}
		return
	}
	if next == 0 {
		// looped: the timeline restarts
		p.now -= p.totalDuration()
	}
	p.reset(next)
	p.show()
}

func (p *Player) reset(idx int) {
	p.idx = idx
	p.armed = false
	p.lastAlpha = 0
}

// show switches to the current clip's brush and resets the crossfade.
func (p *Player) show() {
	clip := p.prog.Clips[p.idx]
	if p.hooks.SetBrush != nil {
		p.hooks.SetBrush(clip.Brush, clip.Preset)
	}
	p.crossfade(0)
}

func (p *Player) crossfade(alpha float64) {
	p.lastAlpha = alpha
	if p.hooks.SetCrossfade != nil {
		p.hooks.SetCrossfade(alpha)
	}
}
