// Package ws serves a live preview of a surface: rendered frames and
// diagnostics over websockets, plus a small HTTP control surface.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	diag "github.com/coreman2200/arcaluminis/internal/diagnostics"
	"github.com/coreman2200/arcaluminis/internal/notify"
	"github.com/coreman2200/arcaluminis/internal/surface"
	"github.com/coreman2200/arcaluminis/internal/trigger"
)

const writeWait = 200 * time.Millisecond

// Frame is the color of every surface led, in topology order, as
// premultiplied 8-bit RGB triples.
type Frame struct {
	T       int64  `json:"t" cbor:"t"`
	FrameID uint64 `json:"frame_id" cbor:"frame_id"`
	RGB     []byte `json:"rgb" cbor:"rgb"`
}

// LedInfo places one led on the surface.
type LedInfo struct {
	ID     string  `json:"id" cbor:"id"`
	Device string  `json:"device" cbor:"device"`
	X      float64 `json:"x" cbor:"x"`
	Y      float64 `json:"y" cbor:"y"`
	W      float64 `json:"w" cbor:"w"`
	H      float64 `json:"h" cbor:"h"`
}

// Topology is sent to frame clients when they connect.
type Topology struct {
	Boundary [4]float64 `json:"boundary" cbor:"boundary"`
	Leds     []LedInfo  `json:"leds" cbor:"leds"`
	Codec    string     `json:"codec" cbor:"codec"`
}

// Control is the body accepted by POST /control.
type Control struct {
	// Flush rewrites every led even if unchanged.
	Flush bool `json:"flush"`
	// Data is passed to the frame as custom data.
	Data map[string]bool `json:"data,omitempty"`
}

type Option func(*Server)

// WithCodec selects the frame encoding; JSON by default.
func WithCodec(c Codec) Option { return func(s *Server) { s.codec = c } }

// WithDiagnostics streams r on /diag.
func WithDiagnostics(r *diag.Recorder) Option { return func(s *Server) { s.diag = r } }

// WithManual routes /control requests through m instead of rendering
// inline.
func WithManual(m *trigger.Manual) Option { return func(s *Server) { s.manual = m } }

// Server broadcasts every frame the surface renders.
type Server struct {
	surface *surface.Surface
	codec   Codec
	diag    *diag.Recorder
	manual  *trigger.Manual
	router  chi.Router
	up      websocket.Upgrader

	mu          sync.Mutex
	frameID     uint64
	startTime   time.Time
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool
	subs        []*notify.Subscription
}

func New(s *surface.Surface, opts ...Option) *Server {
	srv := &Server{
		surface:     s,
		codec:       JSON,
		startTime:   time.Now(),
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
		up:          websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
	for _, o := range opts {
		o(srv)
	}

	r := chi.NewRouter()
	r.Get("/ws", srv.HandleFramesWS)
	r.Get("/diag", srv.HandleDiagWS)
	r.Post("/control", srv.HandleControl)
	r.Get("/health", srv.HandleHealth)
	srv.router = r

	srv.subs = append(srv.subs, s.OnUpdated(func(trigger.FrameArgs) { srv.broadcastFrame() }))
	if srv.diag != nil {
		srv.subs = append(srv.subs, srv.diag.OnDiagnostic(srv.pushDiag))
	}
	return srv
}

func (s *Server) Handler() http.Handler { return s.router }

// Close unsubscribes from the surface and disconnects every client.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		sub.Cancel()
	}
	s.subs = nil
	for c := range s.clients {
		c.Close()
		delete(s.clients, c)
	}
	for c := range s.diagClients {
		c.Close()
		delete(s.diagClients, c)
	}
}

func (s *Server) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.clients[conn] = true
	s.sendTopology(conn)
	s.mu.Unlock()

	go s.drain(conn, s.clients)
}

func (s *Server) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.diagClients[conn] = true
	if s.diag != nil {
		for _, d := range s.diag.Recent() {
			s.write(conn, d)
		}
	}
	s.mu.Unlock()

	go s.drain(conn, s.diagClients)
}

// drain reads until the client goes away, then forgets it.
func (s *Server) drain(conn *websocket.Conn, set map[*websocket.Conn]bool) {
	defer func() {
		s.mu.Lock()
		delete(set, conn)
		s.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// HandleControl requests a frame.
func (s *Server) HandleControl(w http.ResponseWriter, r *http.Request) {
	var c Control
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data := trigger.CustomData{trigger.FlushLeds: c.Flush}
	for k, v := range c.Data {
		data[k] = v
	}
	if s.manual != nil {
		s.manual.TriggerUpdate(data)
	} else {
		s.surface.Update(c.Flush)
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := map[string]any{
		"frame_id": s.frameID,
		"uptime_s": time.Since(s.startTime).Seconds(),
		"clients":  len(s.clients),
		"count":    len(s.surface.Leds()),
		"groups":   len(s.surface.Groups()),
		"codec":    s.codec.Name(),
	}
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// FrameID is the number of frames broadcast so far.
func (s *Server) FrameID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameID
}

func (s *Server) topology() Topology {
	b := s.surface.Boundary()
	top := Topology{
		Boundary: [4]float64{b.Location.X, b.Location.Y, b.Size.Width, b.Size.Height},
		Codec:    s.codec.Name(),
	}
	for _, l := range s.surface.Leds() {
		r, ok := s.surface.AbsoluteRectangle(l)
		if !ok {
			continue
		}
		top.Leds = append(top.Leds, LedInfo{
			ID: l.ID(), Device: l.DeviceID(),
			X: r.Location.X, Y: r.Location.Y, W: r.Size.Width, H: r.Size.Height,
		})
	}
	return top
}

// sendTopology must be called with s.mu held.
func (s *Server) sendTopology(conn *websocket.Conn) {
	s.write(conn, s.topology())
}

func (s *Server) broadcastFrame() {
	leds := s.surface.Leds()
	rgb := make([]byte, 0, 3*len(leds))
	for _, l := range leds {
		r, g, b := l.Color().Bytes()
		rgb = append(rgb, r, g, b)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameID++
	if len(s.clients) == 0 {
		return
	}
	b, err := s.codec.Marshal(Frame{T: time.Now().UnixNano(), FrameID: s.frameID, RGB: rgb})
	if err != nil {
		log.Error().Err(err).Msg("encode frame")
		return
	}
	for c := range s.clients {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(s.codec.MessageType(), b); err != nil {
			log.Debug().Err(err).Msg("write frame")
		}
	}
}

func (s *Server) pushDiag(d diag.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.diagClients {
		s.write(c, d)
	}
}

// write must be called with s.mu held.
func (s *Server) write(conn *websocket.Conn, v any) {
	b, err := s.codec.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("encode message")
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(s.codec.MessageType(), b); err != nil {
		log.Debug().Err(err).Msg("write message")
	}
}
