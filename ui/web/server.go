// Package web serves the browser UI: an embedded page plus a websocket
// push stream, with JSON endpoints for scripting. Each stream message is a
// text frame prefixed with a single letter, "M" for JSON metadata and "I"
// for a base64 PNG of the latest frame.
package web

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"golang.org/x/net/websocket"

	"github.com/tbeaulieu/mlxcam-go/assets"
	"github.com/tbeaulieu/mlxcam-go/debug"
	"github.com/tbeaulieu/mlxcam-go/domain/acquire"
	"github.com/tbeaulieu/mlxcam-go/domain/roi"
	"github.com/tbeaulieu/mlxcam-go/domain/sensor"
	"github.com/tbeaulieu/mlxcam-go/ui/images"
)

const (
	defaultScale = 20

	selectTitle = "Region Selection Mode:\nClick twice to define a region (max 4). Then click 'Start Live'."
	liveTitle   = "Live Mode ON"

	selectInfo   = "Live Mode OFF\nSelect regions then click 'Start Live'"
	liveWaitInfo = "Live Mode ON\nCalculating ROI averages..."

	startLiveLabel = "Start Live"
	stopLiveLabel  = "Stop Live"
)

// SessionView is the session state published to clients. The server only
// calls it during construction and from session listener callbacks, which
// run on the driver goroutine.
type SessionView interface {
	Mode() roi.Mode
	Live() bool
	Regions() []roi.Region
	Pending() *roi.Point
}

// LoopView exposes acquisition output. Implementations must be safe for
// concurrent use; handlers call it from request goroutines.
type LoopView interface {
	Latest() *acquire.Snapshot
	Stats() acquire.Stats
}

// EventPoster hands a browser input event to the driver. Post reports
// false when the event had to be dropped.
type EventPoster interface {
	Post(ev acquire.InputEvent) bool
}

// Options configures the web server.
type Options struct {
	Addr       string // listen address, e.g. ":8484"
	Scale      int    // integer upscale factor for streamed frames
	RecordPath string // path of the active record log, reported by /api/status
}

// Server streams rendered frames and session metadata to browser clients
// and feeds their input events back to the driver.
type Server struct {
	logger  *slog.Logger
	session SessionView
	loop    LoopView
	events  EventPoster
	opts    Options

	mu     sync.Mutex
	cond   *sync.Cond
	seq    uint64
	state  sessionState
	snap   *acquire.Snapshot
	closed bool

	ln  net.Listener
	srv *http.Server
}

// sessionState is a copy of the session fields the handlers serve,
// captured on the driver goroutine so request goroutines never touch the
// session itself.
type sessionState struct {
	mode    roi.Mode
	live    bool
	regions []roi.Region
	pending *roi.Point
}

// New builds a server over the given collaborators. The initial session
// state is captured here, before the driver starts.
func New(logger *slog.Logger, session SessionView, loop LoopView, events EventPoster, opts Options) *Server {
	if opts.Scale < 1 {
		opts.Scale = defaultScale
	}
	s := &Server{
		logger:  logger,
		session: session,
		loop:    loop,
		events:  events,
		opts:    opts,
	}
	s.cond = sync.NewCond(&s.mu)
	s.state = captureSession(session)
	return s
}

func captureSession(v SessionView) sessionState {
	return sessionState{
		mode:    v.Mode(),
		live:    v.Live(),
		regions: v.Regions(),
		pending: v.Pending(),
	}
}

// PublishChange refreshes the cached session state and wakes stream
// clients. Register it as a session listener; it runs on the driver
// goroutine.
func (s *Server) PublishChange(acquire.Change) {
	st := captureSession(s.session)
	s.mu.Lock()
	s.state = st
	s.seq++
	s.mu.Unlock()
	s.cond.Broadcast()
}

// PublishSnapshot stores the latest acquisition snapshot and wakes stream
// clients. Register it as a snapshot listener.
func (s *Server) PublishSnapshot(snap *acquire.Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.seq++
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Start binds the listen address and serves in the background. The
// returned error covers the bind only; serve errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.opts.Addr)
	}
	s.ln = ln
	s.srv = &http.Server{Handler: s.router()}
	s.logger.Info("web ui listening", slog.String("addr", ln.Addr().String()))
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("web server stopped", slog.String("err", err.Error()))
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s == nil || s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Close stops the HTTP server and releases blocked stream clients.
func (s *Server) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()
	if s.srv == nil {
		return nil
	}
	return s.srv.Close()
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.Handle("/stream", websocket.Handler(s.stream))
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/regions", s.handleRegions).Methods(http.MethodGet)
	r.HandleFunc("/debug/goroutines", s.handleGoroutines).Methods(http.MethodGet)
	r.Use(s.logRequests)
	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(assets.IndexHTML); err != nil {
		s.logger.Warn("index write failed", slog.String("err", err.Error()))
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	stats := s.loop.Stats()
	writeJSON(w, s.logger, statusReply{
		Mode:         st.mode.String(),
		Live:         st.live,
		Regions:      len(st.regions),
		RecordPath:   s.opts.RecordPath,
		Ticks:        stats.Ticks,
		Records:      stats.Records,
		SensorFaults: stats.SensorFaults,
		FPS:          stats.LastRate,
		FrameAgeMS:   stats.LatestFrameAge.Milliseconds(),
	})
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	st := s.state
	snap := s.snap
	s.mu.Unlock()
	writeJSON(w, s.logger, regionsReply{
		Mode:    st.mode.String(),
		Regions: regionInfos(st.regions, snap),
		Pending: pendingInfo(st.pending),
	})
}

func (s *Server) handleGoroutines(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := debug.WriteGoroutineDump(w); err != nil {
		s.logger.Warn("goroutine dump failed", slog.String("err", err.Error()))
	}
}

// stream pushes metadata and rendered frames to a websocket client and
// reads its input events. The first push happens immediately so a new
// client sees the current state without waiting for a change.
func (s *Server) stream(ws *websocket.Conn) {
	remote := ws.Request().RemoteAddr
	s.logger.Info("stream client connected", slog.String("remote", remote))
	defer ws.Close()
	go s.readEvents(ws, remote)

	buf := &bytes.Buffer{}
	var sentFrame uint64
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.closed {
		seq := s.seq
		st := s.state
		snap := s.snap
		s.mu.Unlock()

		// Encoding and socket writes happen without the lock.
		stats := s.loop.Stats()
		err := pushMetadata(ws, buf, buildMetadata(st, snap, stats, s.opts.Scale))
		if err == nil && snap != nil && snap.Sequence != sentFrame {
			sentFrame = snap.Sequence
			err = pushFrame(ws, buf, snap.Frame, s.opts.Scale)
		}

		s.mu.Lock()
		if err != nil {
			s.logger.Info("stream client dropped",
				slog.String("remote", remote),
				slog.String("err", err.Error()),
			)
			return
		}
		for !s.closed && s.seq == seq {
			s.cond.Wait()
		}
	}
}

// readEvents decodes input messages from one client and posts them to the
// driver. Malformed messages are logged and skipped.
func (s *Server) readEvents(ws *websocket.Conn, remote string) {
	for {
		var data []byte
		if err := websocket.Message.Receive(ws, &data); err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("stream read ended",
					slog.String("remote", remote),
					slog.String("err", err.Error()),
				)
			}
			return
		}
		ev, err := DecodeEvent(data)
		if err != nil {
			s.logger.Warn("client event rejected",
				slog.String("remote", remote),
				slog.String("err", err.Error()),
			)
			continue
		}
		if !s.events.Post(ev) {
			s.logger.Warn("input event dropped", slog.String("remote", remote))
		}
	}
}

func pushMetadata(ws *websocket.Conn, buf *bytes.Buffer, md *metadata) error {
	buf.Reset()
	buf.WriteByte('M')
	if err := json.NewEncoder(buf).Encode(md); err != nil {
		return errors.Wrap(err, "encode metadata")
	}
	return errors.Wrap(websocket.Message.Send(ws, buf.String()), "send metadata")
}

func pushFrame(ws *websocket.Conn, buf *bytes.Buffer, frame *sensor.Frame, scale int) error {
	buf.Reset()
	buf.WriteByte('I')
	enc := base64.NewEncoder(base64.StdEncoding, buf)
	if _, err := enc.Write(images.EncodePNG(images.Upscale(images.Render(frame), scale))); err != nil {
		return errors.Wrap(err, "encode frame")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "encode frame")
	}
	return errors.Wrap(websocket.Message.Send(ws, buf.String()), "send frame")
}

// Wire shapes for the push stream and JSON endpoints. Means are pointers
// so a NaN aggregate encodes as null.
type metadata struct {
	Mode        string       `json:"mode"`
	Live        bool         `json:"live"`
	Title       string       `json:"title"`
	Info        string       `json:"info"`
	ToggleLabel string       `json:"toggle_label"`
	Scale       int          `json:"scale"`
	Regions     []regionInfo `json:"regions"`
	Pending     *pointInfo   `json:"pending,omitempty"`
	Stats       statsInfo    `json:"stats"`
}

type regionInfo struct {
	Index  int      `json:"index"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
	Mean   *float64 `json:"mean,omitempty"`
}

type pointInfo struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type statsInfo struct {
	Ticks        uint64  `json:"ticks"`
	Records      uint64  `json:"records"`
	SensorFaults uint64  `json:"sensor_faults"`
	FPS          float64 `json:"fps"`
	FrameAgeMS   int64   `json:"frame_age_ms"`
}

type statusReply struct {
	Mode         string  `json:"mode"`
	Live         bool    `json:"live"`
	Regions      int     `json:"regions"`
	RecordPath   string  `json:"record_path"`
	Ticks        uint64  `json:"ticks"`
	Records      uint64  `json:"records"`
	SensorFaults uint64  `json:"sensor_faults"`
	FPS          float64 `json:"fps"`
	FrameAgeMS   int64   `json:"frame_age_ms"`
}

type regionsReply struct {
	Mode    string       `json:"mode"`
	Regions []regionInfo `json:"regions"`
	Pending *pointInfo   `json:"pending,omitempty"`
}

func buildMetadata(st sessionState, snap *acquire.Snapshot, stats acquire.Stats, scale int) *metadata {
	md := &metadata{
		Mode:        st.mode.String(),
		Live:        st.live,
		Title:       selectTitle,
		Info:        selectInfo,
		ToggleLabel: startLiveLabel,
		Scale:       scale,
		Regions:     regionInfos(st.regions, snap),
		Pending:     pendingInfo(st.pending),
		Stats: statsInfo{
			Ticks:        stats.Ticks,
			Records:      stats.Records,
			SensorFaults: stats.SensorFaults,
			FPS:          stats.LastRate,
			FrameAgeMS:   stats.LatestFrameAge.Milliseconds(),
		},
	}
	if st.live {
		md.Title = liveTitle
		md.ToggleLabel = stopLiveLabel
		md.Info = liveWaitInfo
		if snap != nil {
			md.Info = snap.Status
		}
	}
	return md
}

func regionInfos(regions []roi.Region, snap *acquire.Snapshot) []regionInfo {
	out := make([]regionInfo, len(regions))
	for i, rg := range regions {
		out[i] = regionInfo{
			Index:  i + 1,
			X:      rg.X,
			Y:      rg.Y,
			Width:  rg.Width,
			Height: rg.Height,
			Mean:   meanFor(snap, rg.ID),
		}
	}
	return out
}

func meanFor(snap *acquire.Snapshot, id uuid.UUID) *float64 {
	if snap == nil {
		return nil
	}
	for _, m := range snap.Means {
		if m.Region.ID == id && !math.IsNaN(m.Mean) {
			v := m.Mean
			return &v
		}
	}
	return nil
}

func pendingInfo(p *roi.Point) *pointInfo {
	if p == nil {
		return nil
	}
	return &pointInfo{X: p.X, Y: p.Y}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("json response failed", slog.String("err", err.Error()))
	}
}

// logRequests logs each request at debug level. The wrapper keeps Hijack
// reachable because /stream upgrades the connection.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lw, r)
		s.logger.Debug("http request",
			slog.String("remote", r.RemoteAddr),
			slog.Int("status", lw.status),
			slog.Int("bytes", lw.length),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	length int
	status int
}

var _ http.Hijacker = (*loggingResponseWriter)(nil)

func (l *loggingResponseWriter) Write(data []byte) (int, error) {
	n, err := l.ResponseWriter.Write(data)
	l.length += n
	return n, err
}

func (l *loggingResponseWriter) WriteHeader(status int) {
	l.ResponseWriter.WriteHeader(status)
	l.status = status
}

// Hijack is needed for the websocket upgrade.
func (l *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := l.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}
