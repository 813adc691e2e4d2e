// Package diagnostics turns runtime failures into operator-facing reports
// and keeps the recent ones for the preview server.
package diagnostics

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcaluminis/internal/led"
	"github.com/coreman2200/arcaluminis/internal/notify"
	"github.com/coreman2200/arcaluminis/internal/surface"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

type Diagnostic struct {
	Time           time.Time      `json:"time" cbor:"time"`
	Severity       Severity       `json:"severity" cbor:"severity"`
	Code           string         `json:"code" cbor:"code"`
	Summary        string         `json:"summary" cbor:"summary"`
	Detail         string         `json:"detail,omitempty" cbor:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty" cbor:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty" cbor:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty" cbor:"evidence,omitempty"`
}

// FromError classifies an error raised by a surface.
func FromError(err error) Diagnostic {
	d := Diagnostic{Severity: Err, Code: "SURFACE.ERROR", Summary: "Surface error", Detail: err.Error()}

	var ge *surface.GroupError
	var de *surface.DeviceError
	switch {
	case errors.As(err, &ge):
		d.Code = "RENDER.GROUP"
		d.Summary = "Group failed to render"
		d.Evidence = map[string]any{"group": ge.Group}
		d.LikelyCauses = []string{"brush or decorator panicked"}
		d.SuggestedFixes = []string{"check the group's brush configuration"}
	case errors.As(err, &de):
		d.Code = "DEVICE.UPDATE"
		d.Summary = "Device update failed"
		d.Evidence = map[string]any{"device": de.Device}
		switch {
		case errors.Is(err, led.ErrClosed):
			d.Severity = Warn
			d.LikelyCauses = []string{"device was closed while attached"}
			d.SuggestedFixes = []string{"detach the device before closing it"}
		default:
			d.LikelyCauses = []string{"driver write failed", "SPI port busy or missing"}
			d.SuggestedFixes = []string{"check wiring and the port name", "run with the sim driver to isolate hardware"}
		}
	}
	if errors.Is(err, surface.ErrPanic) {
		d.Code += ".PANIC"
	}
	return d
}

// Recorder keeps the last diagnostics and notifies listeners of new ones.
type Recorder struct {
	max int

	mu    sync.Mutex
	items []Diagnostic
	subs  []*notify.Subscription

	added notify.Event[Diagnostic]
	now   func() time.Time
}

// NewRecorder keeps up to max diagnostics; max below one keeps 64.
func NewRecorder(max int) *Recorder {
	if max < 1 {
		max = 64
	}
	return &Recorder{max: max, now: time.Now}
}

// Watch records every exception s reports until the recorder is closed.
func (r *Recorder) Watch(s *surface.Surface) {
	sub := s.OnException(func(err error) { r.Push(FromError(err)) })
	r.mu.Lock()
	r.subs = append(r.subs, sub)
	r.mu.Unlock()
}

// Push records d, stamping it if it has no time.
func (r *Recorder) Push(d Diagnostic) {
	if d.Time.IsZero() {
		d.Time = r.now()
	}
	r.mu.Lock()
	r.items = append(r.items, d)
	if over := len(r.items) - r.max; over > 0 {
		r.items = append(r.items[:0:0], r.items[over:]...)
	}
	r.mu.Unlock()

	log.WithLevel(level(d.Severity)).Str("code", d.Code).Str("detail", d.Detail).Msg(d.Summary)
	r.added.Emit(d)
}

// Recent returns the recorded diagnostics, oldest first.
func (r *Recorder) Recent() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Diagnostic(nil), r.items...)
}

// OnDiagnostic subscribes fn to new diagnostics.
func (r *Recorder) OnDiagnostic(fn func(Diagnostic)) *notify.Subscription {
	return r.added.Subscribe(fn)
}

// Close stops watching surfaces.
func (r *Recorder) Close() {
	r.mu.Lock()
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()
	for _, s := range subs {
		s.Cancel()
	}
}

func level(s Severity) zerolog.Level {
	switch s {
	case Err:
		return zerolog.ErrorLevel
	case Warn:
		return zerolog.WarnLevel
	}
	return zerolog.InfoLevel
}
