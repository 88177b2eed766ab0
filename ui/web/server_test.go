package web

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/tbeaulieu/mlxcam-go/domain/acquire"
	"github.com/tbeaulieu/mlxcam-go/domain/roi"
	"github.com/tbeaulieu/mlxcam-go/domain/sensor"
)

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(discardWriter{}, nil))
}

type stubSession struct {
	mode    roi.Mode
	live    bool
	regions []roi.Region
	pending *roi.Point
}

func (s *stubSession) Mode() roi.Mode        { return s.mode }
func (s *stubSession) Live() bool            { return s.live }
func (s *stubSession) Regions() []roi.Region { return s.regions }
func (s *stubSession) Pending() *roi.Point   { return s.pending }

type stubLoop struct {
	snap  *acquire.Snapshot
	stats acquire.Stats
}

func (l *stubLoop) Latest() *acquire.Snapshot { return l.snap }
func (l *stubLoop) Stats() acquire.Stats      { return l.stats }

type stubPoster struct {
	posted []acquire.InputEvent
}

func (p *stubPoster) Post(ev acquire.InputEvent) bool {
	p.posted = append(p.posted, ev)
	return true
}

func newTestServer(session *stubSession, loop *stubLoop) *Server {
	opts := Options{
		Addr:       "127.0.0.1:0",
		Scale:      20,
		RecordPath: "/data/mlx90640_data_20260101_000000.txt",
	}
	return New(discardLogger(), session, loop, &stubPoster{}, opts)
}

func TestBuildMetadata_Selecting(t *testing.T) {
	st := sessionState{
		mode:    roi.ModeSelecting,
		regions: []roi.Region{{ID: uuid.New(), X: 1, Y: 2, Width: 3, Height: 4}},
	}
	md := buildMetadata(st, nil, acquire.Stats{}, 20)
	if md.Title != selectTitle || md.Info != selectInfo || md.ToggleLabel != "Start Live" {
		t.Fatalf("unexpected selecting metadata: %+v", md)
	}
	if len(md.Regions) != 1 || md.Regions[0].Index != 1 || md.Regions[0].Mean != nil {
		t.Fatalf("unexpected regions: %+v", md.Regions)
	}
	if md.Scale != 20 {
		t.Fatalf("scale = %d, want 20", md.Scale)
	}
}

func TestBuildMetadata_LiveUsesSnapshotStatus(t *testing.T) {
	rg := roi.Region{ID: uuid.New(), X: 5, Y: 5, Width: 2, Height: 2}
	snap := &acquire.Snapshot{
		Status:   "ROI Averages:\nRegion 1: 22.9 °C   \nRecording capacity: 250.0 s (~0.07 h)",
		Means:    []acquire.RegionMean{{Region: rg, Mean: 22.87}},
		Sequence: 3,
	}
	st := sessionState{mode: roi.ModeLive, live: true, regions: []roi.Region{rg}}
	md := buildMetadata(st, snap, acquire.Stats{LastRate: 4.0}, 20)
	if md.Title != liveTitle || md.ToggleLabel != "Stop Live" {
		t.Fatalf("unexpected live metadata: title=%q toggle=%q", md.Title, md.ToggleLabel)
	}
	if md.Info != snap.Status {
		t.Fatalf("info = %q, want snapshot status", md.Info)
	}
	if md.Regions[0].Mean == nil || *md.Regions[0].Mean != 22.87 {
		t.Fatalf("region mean not carried over: %+v", md.Regions[0])
	}
	if md.Stats.FPS != 4.0 {
		t.Fatalf("stats fps = %v, want 4.0", md.Stats.FPS)
	}
}

func TestBuildMetadata_LiveWithoutSnapshotShowsWaitText(t *testing.T) {
	st := sessionState{mode: roi.ModeLive, live: true}
	md := buildMetadata(st, nil, acquire.Stats{}, 20)
	if md.Info != liveWaitInfo {
		t.Fatalf("info = %q, want %q", md.Info, liveWaitInfo)
	}
}

func TestBuildMetadata_NaNMeanEncodesAsNull(t *testing.T) {
	rg := roi.Region{ID: uuid.New(), X: 30.6, Width: 0.3, Height: 4}
	snap := &acquire.Snapshot{Means: []acquire.RegionMean{{Region: rg, Mean: math.NaN()}}}
	st := sessionState{mode: roi.ModeLive, live: true, regions: []roi.Region{rg}}
	md := buildMetadata(st, snap, acquire.Stats{}, 20)
	if md.Regions[0].Mean != nil {
		t.Fatalf("NaN mean should be omitted, got %v", *md.Regions[0].Mean)
	}
	data, err := json.Marshal(md)
	if err != nil {
		t.Fatalf("metadata with a NaN aggregate must stay encodable: %v", err)
	}
	if !strings.Contains(string(data), `"index":1`) {
		t.Fatalf("region missing from encoded metadata: %s", data)
	}
}

func TestHandleIndex_ServesPage(t *testing.T) {
	s := newTestServer(&stubSession{}, &stubLoop{})
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "/stream") {
		t.Fatalf("page should reference the stream endpoint")
	}
}

func TestHandleStatus_ReportsCounters(t *testing.T) {
	loop := &stubLoop{stats: acquire.Stats{
		Ticks:          40,
		Records:        38,
		SensorFaults:   2,
		LastRate:       3.9,
		LatestFrameAge: 250 * time.Millisecond,
	}}
	session := &stubSession{mode: roi.ModeLive, live: true, regions: make([]roi.Region, 2)}
	s := newTestServer(session, loop)

	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got statusReply
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode status reply: %v", err)
	}
	want := statusReply{
		Mode:         "live",
		Live:         true,
		Regions:      2,
		RecordPath:   "/data/mlx90640_data_20260101_000000.txt",
		Ticks:        40,
		Records:      38,
		SensorFaults: 2,
		FPS:          3.9,
		FrameAgeMS:   250,
	}
	if got != want {
		t.Fatalf("status reply = %+v, want %+v", got, want)
	}
}

func TestHandleRegions_ServesPublishedState(t *testing.T) {
	session := &stubSession{mode: roi.ModeSelecting}
	s := newTestServer(session, &stubLoop{})

	// Session changes only become visible once the driver publishes them.
	session.regions = []roi.Region{{ID: uuid.New(), X: 2.25, Y: 3.25, Width: 3.25, Height: 4.75}}
	session.pending = &roi.Point{X: 1, Y: 1}

	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/regions", nil))
	var before regionsReply
	if err := json.NewDecoder(rec.Body).Decode(&before); err != nil {
		t.Fatalf("decode regions reply: %v", err)
	}
	if len(before.Regions) != 0 || before.Pending != nil {
		t.Fatalf("unpublished state served: %+v", before)
	}

	s.PublishChange(acquire.ChangeRegions)

	rec = httptest.NewRecorder()
	s.router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/regions", nil))
	var after regionsReply
	if err := json.NewDecoder(rec.Body).Decode(&after); err != nil {
		t.Fatalf("decode regions reply: %v", err)
	}
	if len(after.Regions) != 1 || after.Regions[0].X != 2.25 || after.Pending == nil {
		t.Fatalf("published state not served: %+v", after)
	}
}

func TestPublish_BumpsSequenceAndStoresSnapshot(t *testing.T) {
	s := newTestServer(&stubSession{}, &stubLoop{})
	if s.seq != 0 {
		t.Fatalf("fresh server seq = %d, want 0", s.seq)
	}
	snap := &acquire.Snapshot{Sequence: 1}
	s.PublishSnapshot(snap)
	s.PublishChange(acquire.ChangeMode)
	if s.seq != 2 {
		t.Fatalf("seq after two publishes = %d, want 2", s.seq)
	}
	if s.snap != snap {
		t.Fatalf("snapshot not stored")
	}
}

func TestStream_PushesStateAndAcceptsEvents(t *testing.T) {
	events := make(chan acquire.InputEvent, 4)
	poster := posterFunc(func(ev acquire.InputEvent) bool {
		events <- ev
		return true
	})
	session := &stubSession{mode: roi.ModeSelecting}
	s := New(discardLogger(), session, &stubLoop{}, poster, Options{Scale: 2})
	srv := httptest.NewServer(s.router())
	defer srv.Close()
	defer s.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	ws, err := websocket.Dial(url, "", srv.URL)
	if err != nil {
		t.Fatalf("dial stream: %v", err)
	}
	defer ws.Close()
	if err := ws.SetDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}

	var msg string
	if err := websocket.Message.Receive(ws, &msg); err != nil {
		t.Fatalf("receive initial metadata: %v", err)
	}
	if !strings.HasPrefix(msg, "M") {
		t.Fatalf("first message should be metadata, got %q", msg[:1])
	}
	var md metadata
	if err := json.Unmarshal([]byte(msg[1:]), &md); err != nil {
		t.Fatalf("decode pushed metadata: %v", err)
	}
	if md.Mode != "selecting" || md.ToggleLabel != "Start Live" {
		t.Fatalf("unexpected initial metadata: %+v", md)
	}

	frame := &sensor.Frame{Values: make([]float64, sensor.PixelCount), Time: time.Now()}
	s.PublishSnapshot(&acquire.Snapshot{Frame: frame, Status: "x", Sequence: 1})

	if err := websocket.Message.Receive(ws, &msg); err != nil {
		t.Fatalf("receive metadata after snapshot: %v", err)
	}
	if !strings.HasPrefix(msg, "M") {
		t.Fatalf("expected metadata push, got %q", msg[:1])
	}
	if err := websocket.Message.Receive(ws, &msg); err != nil {
		t.Fatalf("receive frame: %v", err)
	}
	if !strings.HasPrefix(msg, "I") {
		t.Fatalf("expected image push, got %q", msg[:1])
	}
	raw, err := base64.StdEncoding.DecodeString(msg[1:])
	if err != nil {
		t.Fatalf("frame payload is not base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("frame payload is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != sensor.Cols*2 || b.Dy() != sensor.Rows*2 {
		t.Fatalf("frame bounds = %v, want %dx%d", b, sensor.Cols*2, sensor.Rows*2)
	}

	if err := websocket.Message.Send(ws, `{"type":"toggle"}`); err != nil {
		t.Fatalf("send event: %v", err)
	}
	select {
	case ev := <-events:
		if _, ok := ev.(acquire.ToggleLiveEvent); !ok {
			t.Fatalf("posted event = %T, want ToggleLiveEvent", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("client event never reached the poster")
	}
}

type posterFunc func(acquire.InputEvent) bool

func (f posterFunc) Post(ev acquire.InputEvent) bool { return f(ev) }
