// Package render decides, once per mount, whether the sightings view runs
// the rich 3D renderer or falls back to the degraded one.
//
// A Selector starts in Probing, runs its capability probes and the rich
// surface initialisation on a single background task, and settles in Rich
// or Degraded. A Rich selector may still drop to Degraded when the surface
// reports a runtime failure. Degraded is terminal for the mount.
package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ufotracker/tracker/logging"
)

type Mode int

const (
	Probing Mode = iota
	Rich
	Degraded
)

func (m Mode) String() string {
	switch m {
	case Probing:
		return "probing"
	case Rich:
		return "rich"
	case Degraded:
		return "degraded"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

var (
	ErrAlreadyMounted = errors.New("render: selector already mounted")
	ErrNoSurface      = errors.New("render: no rich surface configured")
)

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// State is the observable state of a Selector. Err carries the reason for a
// Degraded mode and is nil otherwise.
type State struct {
	Mode Mode
	Err  error
}

// Probe checks one capability the rich renderer needs.
type Probe func(ctx context.Context) error

// Surface is the rich renderer.
type Surface interface {
	Init(ctx context.Context, size Size) error
	Resize(size Size) error
}

// Environment is the host the surface lives in. OnResize registers a
// listener and returns the function that removes it.
type Environment interface {
	OnResize(listener func(Size)) (release func())
	Size() Size
}

type Metrics interface {
	RecordTransition(from, to Mode)
}

type Config struct {
	Probes       []Probe
	ProbeTimeout time.Duration
	Surface      Surface
	Environment  Environment
	// OnChange is called once per transition, in transition order, never
	// while the selector holds its lock and never after Unmount.
	OnChange func(State)
	Logger   logging.Logger
	Metrics  Metrics
}

type Selector struct {
	cfg Config
	log logging.Logger

	mu        sync.Mutex
	state     State
	mounted   bool
	unmounted bool
	cancel    context.CancelFunc
	release   func()
	pending   []State
	emitting  bool
	// failed holds a surface failure reported before the selector settled.
	failed error

	resolved     chan struct{}
	resolvedOnce sync.Once
}

func New(cfg Config) *Selector {
	log := cfg.Logger
	if log == nil {
		log = logging.Noop()
	}
	return &Selector{
		cfg:      cfg,
		log:      log,
		state:    State{Mode: Probing},
		resolved: make(chan struct{}),
	}
}

func (s *Selector) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Resolved is closed once the selector leaves Probing or is unmounted.
func (s *Selector) Resolved() <-chan struct{} {
	return s.resolved
}

// Mount starts the initialisation task and returns immediately.
func (s *Selector) Mount(ctx context.Context) error {
	s.mu.Lock()
	if s.mounted {
		s.mu.Unlock()
		return ErrAlreadyMounted
	}
	s.mounted = true
	if s.unmounted {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(runCtx)
	return nil
}

// Unmount stops the selector. Results that arrive later are discarded and
// no further OnChange calls are made.
func (s *Selector) Unmount() {
	s.mu.Lock()
	if s.unmounted {
		s.mu.Unlock()
		return
	}
	s.unmounted = true
	s.pending = nil
	cancel, release := s.cancel, s.release
	s.release = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if release != nil {
		release()
	}
	s.markResolved()
}

// Fail reports a runtime failure of the rich surface. It moves a Rich
// selector to Degraded and removes its resize listener. While Probing the
// failure is held until initialisation settles, so a surface that broke
// right after Init still ends Degraded. In Degraded it does nothing.
func (s *Selector) Fail(err error) {
	if err == nil {
		err = errors.New("render: rich surface failed")
	}
	s.mu.Lock()
	if s.unmounted || s.state.Mode == Degraded {
		s.mu.Unlock()
		return
	}
	if s.state.Mode == Probing {
		if s.failed == nil {
			s.failed = err
		}
		s.mu.Unlock()
		return
	}
	release := s.release
	s.release = nil
	s.transitionLocked(State{Mode: Degraded, Err: err})
	s.mu.Unlock()

	s.log.Warn(context.Background(), "rich renderer failed at runtime", logging.Err(err))
	if release != nil {
		release()
	}
	s.drain()
}

func (s *Selector) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.settle(ctx, State{Mode: Degraded, Err: fmt.Errorf("render: initialisation panicked: %v", r)}, nil)
		}
	}()

	probeCtx := ctx
	if s.cfg.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, s.cfg.ProbeTimeout)
		defer cancel()
	}

	for i, probe := range s.cfg.Probes {
		if err := probe(probeCtx); err != nil {
			s.log.Info(ctx, "capability probe failed", logging.Int("probe", i), logging.Err(err))
			s.settle(ctx, State{Mode: Degraded, Err: err}, nil)
			return
		}
	}

	if s.cfg.Surface == nil {
		s.settle(ctx, State{Mode: Degraded, Err: ErrNoSurface}, nil)
		return
	}
	var size Size
	if s.cfg.Environment != nil {
		size = s.cfg.Environment.Size()
	}
	if err := s.cfg.Surface.Init(probeCtx, size); err != nil {
		s.settle(ctx, State{Mode: Degraded, Err: fmt.Errorf("render: initialising rich surface: %w", err)}, nil)
		return
	}

	var release func()
	if s.cfg.Environment != nil {
		release = s.cfg.Environment.OnResize(s.onResize)
	}
	s.settle(ctx, State{Mode: Rich}, release)
}

// settle applies the outcome of the initialisation task. A result that
// arrives after Unmount is dropped, and its listener released.
func (s *Selector) settle(ctx context.Context, next State, release func()) {
	s.mu.Lock()
	if s.unmounted || s.state.Mode != Probing {
		s.mu.Unlock()
		if release != nil {
			release()
		}
		return
	}
	if next.Mode == Rich && s.failed != nil {
		next = State{Mode: Degraded, Err: s.failed}
		if release != nil {
			defer release()
		}
		release = nil
	}
	s.failed = nil
	s.release = release
	s.transitionLocked(next)
	s.mu.Unlock()

	if next.Mode == Degraded {
		s.log.Info(ctx, "render mode degraded", logging.Err(next.Err))
	} else {
		s.log.Debug(ctx, "render mode resolved", logging.String("mode", next.Mode.String()))
	}
	s.markResolved()
	s.drain()
}

func (s *Selector) onResize(size Size) {
	if s.State().Mode != Rich {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.Fail(fmt.Errorf("render: resize panicked: %v", r))
		}
	}()
	if err := s.cfg.Surface.Resize(size); err != nil {
		s.Fail(fmt.Errorf("render: resizing rich surface: %w", err))
	}
}

func (s *Selector) transitionLocked(next State) {
	from := s.state.Mode
	s.state = next
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordTransition(from, next.Mode)
	}
	if s.cfg.OnChange != nil {
		s.pending = append(s.pending, next)
	}
}

// drain delivers queued transitions. Only one goroutine delivers at a time,
// so observers see transitions in the order they happened even when an
// observer triggers another transition.
func (s *Selector) drain() {
	s.mu.Lock()
	if s.emitting {
		s.mu.Unlock()
		return
	}
	s.emitting = true
	for len(s.pending) > 0 && !s.unmounted {
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		s.notify(next)
		s.mu.Lock()
	}
	s.pending = nil
	s.emitting = false
	s.mu.Unlock()
}

func (s *Selector) notify(next State) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error(context.Background(), "render observer panicked", logging.Any("panic", r))
		}
	}()
	s.cfg.OnChange(next)
}

func (s *Selector) markResolved() {
	s.resolvedOnce.Do(func() { close(s.resolved) })
}
