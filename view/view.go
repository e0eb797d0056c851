// Package view streams the sightings pane to the browser over a websocket.
//
// Every connection is one mount of the pane. The server runs a
// render.Selector for it: the browser reports what it can do in a hello
// message, the selector probes those capabilities, and the session pushes
// either the rich globe or the degraded map. The degraded pane falls back
// to the plain list when even the map cannot be built.
package view

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ufotracker/tracker/charts"
	"github.com/ufotracker/tracker/config"
	"github.com/ufotracker/tracker/consts"
	"github.com/ufotracker/tracker/logging"
	"github.com/ufotracker/tracker/observability"
	"github.com/ufotracker/tracker/render"
	"github.com/ufotracker/tracker/sighting"
	"github.com/ufotracker/tracker/source"
)

var (
	ErrNoWebGL      = errors.New("view: browser cannot create a WebGL context")
	ErrRichDisabled = errors.New("view: rich renderer disabled")
	ErrNoViewport   = errors.New("view: viewport has no area")
	errClosed       = errors.New("view: session closed")
)

type Config struct {
	Source     source.Source
	Limit      int
	SourceKind string
	// Assets checks the rich renderer's script. Nil skips the check.
	Assets       *AssetChecker
	AssetsHost   string
	DisableRich  bool
	ProbeTimeout time.Duration
	Logger       logging.Logger
	Metrics      *observability.Collector
}

// clientMessage is anything the browser sends. Renderer names the chart an
// error message is about.
type clientMessage struct {
	Type     string `json:"type"`
	WebGL    bool   `json:"webgl"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Message  string `json:"message"`
	Renderer string `json:"renderer"`
}

type Handler struct {
	cfg      Config
	log      logging.Logger
	upgrader websocket.Upgrader
}

func NewHandler(cfg Config) *Handler {
	log := cfg.Logger
	if log == nil {
		log = logging.Noop()
	}
	return &Handler{
		cfg: cfg,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The pane is same-origin; CORS is enforced on /api only.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "failed to upgrade view connection", logging.Err(err))
		return
	}

	ctx := r.Context()
	s := &session{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, consts.ViewSendBuffer),
		done: make(chan struct{}),
	}
	s.log = h.log.With(logging.String("session", s.id))

	h.cfg.Metrics.SessionOpened()
	defer h.cfg.Metrics.SessionClosed()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writePump()
	}()
	defer func() {
		s.close()
		wg.Wait()
		conn.Close()
		s.log.Debug(ctx, "view session closed")
	}()

	res := source.Load(ctx, h.cfg.Source, h.cfg.Limit, s.log)
	if res.Failed {
		h.cfg.Metrics.RecordSourceFailure(h.cfg.SourceKind)
	}
	s.sightings = res.Sightings
	_ = s.enqueue(map[string]interface{}{
		"type":   "session",
		"id":     s.id,
		"total":  len(res.Sightings),
		"failed": res.Failed,
	})

	hello, err := s.readHello()
	if err != nil {
		s.log.Info(ctx, "view session ended before hello", logging.Err(err))
		return
	}

	s.env = newRemoteEnvironment(render.Size{Width: hello.Width, Height: hello.Height})
	selector := render.New(render.Config{
		Probes:       h.probes(hello),
		ProbeTimeout: h.cfg.ProbeTimeout,
		Surface:      &remoteSurface{session: s, assetsHost: config.AssetsBaseURL(h.cfg.AssetsHost)},
		Environment:  s.env,
		OnChange:     s.onChange,
		Logger:       s.log,
		Metrics:      h.cfg.Metrics,
	})
	if err := selector.Mount(ctx); err != nil {
		s.log.Error(ctx, "failed to mount render selector", logging.Err(err))
		return
	}
	defer selector.Unmount()

	s.readPump(ctx, selector)
}

func (h *Handler) probes(hello clientMessage) []render.Probe {
	probes := []render.Probe{
		func(context.Context) error {
			if h.cfg.DisableRich {
				return ErrRichDisabled
			}
			return nil
		},
		func(context.Context) error {
			if !hello.WebGL {
				return ErrNoWebGL
			}
			return nil
		},
	}
	if h.cfg.Assets != nil {
		probes = append(probes, h.cfg.Assets.Check)
	}
	return probes
}

type session struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	log       logging.Logger
	env       *remoteEnvironment
	sightings []sighting.Sighting
	listSent  atomic.Bool
}

func (s *session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// enqueue hands a message to the write pump. It gives up once the session
// is closed.
func (s *session) enqueue(msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding view message: %w", err)
	}
	select {
	case s.send <- data:
		return nil
	case <-s.done:
		return errClosed
	}
}

func (s *session) readHello() (clientMessage, error) {
	s.conn.SetReadLimit(consts.ViewMaxMessage)
	s.conn.SetReadDeadline(time.Now().Add(consts.ViewHelloTimeout))
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return clientMessage{}, err
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "hello" {
			s.log.Debug(context.Background(), "ignoring message before hello", logging.String("data", string(data)))
			continue
		}
		return msg, nil
	}
}

// readPump forwards browser events to the selector until the connection
// goes away.
func (s *session) readPump(ctx context.Context, selector *render.Selector) {
	s.conn.SetReadDeadline(time.Now().Add(consts.ViewPongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(consts.ViewPongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn(ctx, "view connection error", logging.Err(err))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Debug(ctx, "ignoring malformed view message", logging.Err(err))
			continue
		}
		switch msg.Type {
		case "resize":
			s.env.resize(render.Size{Width: msg.Width, Height: msg.Height})
		case "error":
			if msg.Renderer == "degraded" {
				s.log.Info(ctx, "degraded map failed in the browser, sending list", logging.String("error", msg.Message))
				s.sendList()
				continue
			}
			selector.Fail(fmt.Errorf("view: browser reported: %s", msg.Message))
		default:
			s.log.Debug(ctx, "ignoring view message", logging.String("type", msg.Type))
		}
	}
}

func (s *session) writePump() {
	ticker := time.NewTicker(consts.ViewPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(consts.ViewWriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.log.Warn(context.Background(), "failed to write view message", logging.Err(err))
				s.close()
				s.conn.Close()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(consts.ViewWriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				s.conn.Close()
				return
			}
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(consts.ViewWriteTimeout))
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (s *session) onChange(st render.State) {
	msg := map[string]interface{}{"type": "state", "mode": st.Mode.String()}
	if st.Err != nil {
		msg["error"] = st.Err.Error()
	}
	if err := s.enqueue(msg); err != nil {
		return
	}
	if st.Mode == render.Degraded {
		s.sendFallback()
	}
}

// sendFallback pushes the 2D map, or the list when no map can be built.
func (s *session) sendFallback() {
	opts, err := charts.MapOptions(s.sightings)
	if err != nil {
		s.log.Info(context.Background(), "map unavailable, sending list", logging.Err(err))
		s.sendList()
		return
	}
	_ = s.enqueue(map[string]interface{}{"type": "chart", "renderer": "degraded", "chart": opts})
}

// sendList pushes the plain list. The list is the last fallback, so it is
// sent at most once per session.
func (s *session) sendList() {
	if !s.listSent.CompareAndSwap(false, true) {
		return
	}
	_ = s.enqueue(map[string]interface{}{"type": "list", "sightings": s.sightings})
}

// remoteSurface is the browser's rich renderer as seen from the server.
type remoteSurface struct {
	session    *session
	assetsHost string
}

func (r *remoteSurface) Init(_ context.Context, size render.Size) error {
	if err := checkViewport(size); err != nil {
		return err
	}
	return r.session.enqueue(map[string]interface{}{
		"type":     "chart",
		"renderer": "rich",
		"chart":    charts.GlobeOptions(r.session.sightings, r.assetsHost),
	})
}

func (r *remoteSurface) Resize(size render.Size) error {
	if err := checkViewport(size); err != nil {
		return err
	}
	return r.session.enqueue(map[string]interface{}{
		"type":   "resize",
		"width":  size.Width,
		"height": size.Height,
	})
}

func checkViewport(size render.Size) error {
	if size.Width <= 0 || size.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrNoViewport, size.Width, size.Height)
	}
	return nil
}

// remoteEnvironment tracks the browser viewport.
type remoteEnvironment struct {
	mu        sync.Mutex
	size      render.Size
	next      int
	listeners map[int]func(render.Size)
}

func newRemoteEnvironment(size render.Size) *remoteEnvironment {
	return &remoteEnvironment{size: size, listeners: map[int]func(render.Size){}}
}

func (e *remoteEnvironment) OnResize(listener func(render.Size)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.next
	e.next++
	e.listeners[id] = listener
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

func (e *remoteEnvironment) Size() render.Size {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.size
}

func (e *remoteEnvironment) resize(size render.Size) {
	e.mu.Lock()
	e.size = size
	listeners := make([]func(render.Size), 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, l)
	}
	e.mu.Unlock()
	for _, l := range listeners {
		l(size)
	}
}
