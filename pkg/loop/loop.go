// Package loop drives the per-frame update. Each tick runs, in order:
// input drain, camera update, animation advance, hover refresh and render.
package loop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/taigrr/diorama/pkg/scene"
)

// DefaultMaxDelta caps the frame delta so a stall does not fast-forward
// animations.
const DefaultMaxDelta = 0.1

var (
	// ErrRunning is returned by Start on a running loop.
	ErrRunning = errors.New("loop: already running")
	// ErrClosed is returned by Start after Stop.
	ErrClosed = errors.New("loop: stopped")
	// ErrIncomplete is returned by New when a required collaborator is nil.
	ErrIncomplete = errors.New("loop: missing collaborator")
)

// State is the lifecycle state of a Loop.
type State int

const (
	// Stopped is both the initial state and the state after Stop.
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// CameraUpdater moves the camera from accumulated input.
type CameraUpdater interface {
	Update(dt float64) bool
}

// Animator advances animation playback.
type Animator interface {
	Advance(dt float64)
}

// HoverRefresher re-evaluates what is under the pointer.
type HoverRefresher interface {
	Refresh()
}

// Renderer draws the scene from a camera.
type Renderer interface {
	Render(root *scene.Node, cam *scene.Camera) error
}

// Config wires a Loop. Camera, Root, Animator and Renderer are required.
type Config struct {
	Root          *scene.Node
	Camera        *scene.Camera
	CameraUpdater CameraUpdater
	Animator      Animator
	Hover         HoverRefresher
	Renderer      Renderer

	Clock     Clock
	Scheduler Scheduler
	// MaxDelta caps dt in seconds. Zero means DefaultMaxDelta.
	MaxDelta float64
	Logger   *slog.Logger
	// OnRenderError is called with every render failure. The loop keeps
	// running.
	OnRenderError func(error)
}

// Loop serializes all per-frame work onto one tick at a time.
type Loop struct {
	cfg Config
	log *slog.Logger

	mu      sync.Mutex
	state   State
	closed  bool
	cancel  func()
	inbox   []func()
	ticking bool
	idle    *sync.Cond
	done    chan struct{}

	last   time.Time
	primed bool
	frames uint64
}

// New validates cfg and returns a stopped loop.
func New(cfg Config) (*Loop, error) {
	switch {
	case cfg.Root == nil:
		return nil, errors.Join(ErrIncomplete, errors.New("root"))
	case cfg.Camera == nil:
		return nil, errors.Join(ErrIncomplete, errors.New("camera"))
	case cfg.Animator == nil:
		return nil, errors.Join(ErrIncomplete, errors.New("animator"))
	case cfg.Renderer == nil:
		return nil, errors.Join(ErrIncomplete, errors.New("renderer"))
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = NewFrameScheduler(60)
	}
	if cfg.MaxDelta <= 0 {
		cfg.MaxDelta = DefaultMaxDelta
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	l := &Loop{cfg: cfg, log: log, done: make(chan struct{})}
	l.idle = sync.NewCond(&l.mu)
	return l, nil
}

// State returns the current state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Frames returns the number of completed ticks.
func (l *Loop) Frames() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frames
}

// Start schedules the first tick.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if l.state == Running {
		return ErrRunning
	}
	l.state = Running
	l.cancel = l.cfg.Scheduler.Schedule(l.tick)
	l.log.Debug("frame loop started")
	return nil
}

// Stop cancels the pending tick. A tick already in progress completes but
// does not schedule another. Stop is idempotent.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.state = Stopped
	close(l.done)
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.log.Debug("frame loop stopped", "frames", l.frames)
}

// Post queues fn to run at the start of the next tick. It is safe to call
// from any goroutine; this is how input and asset completions reach the
// scene.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.inbox = append(l.inbox, fn)
	l.mu.Unlock()
}

// Done is closed by Stop.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Run starts the loop and blocks until ctx is done or Stop is called, and
// the last tick has finished.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-l.done:
	}
	l.Stop()

	l.mu.Lock()
	for l.ticking {
		l.idle.Wait()
	}
	l.mu.Unlock()
	return nil
}

// Step runs one tick synchronously regardless of state, for callers that
// drive frames themselves. If a scheduled tick is in progress Step waits for
// it; ticks never overlap.
func (l *Loop) Step() {
	l.mu.Lock()
	l.acquire()
	l.mu.Unlock()

	l.frame()

	l.mu.Lock()
	l.release()
	l.mu.Unlock()
}

func (l *Loop) tick() {
	l.mu.Lock()
	l.acquire()
	if l.state != Running {
		l.release()
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	l.frame()

	l.mu.Lock()
	l.release()
	if l.state == Running {
		l.cancel = l.cfg.Scheduler.Schedule(l.tick)
	}
	l.mu.Unlock()
}

// acquire waits for the running tick to finish and claims the next one.
// l.mu must be held.
func (l *Loop) acquire() {
	for l.ticking {
		l.idle.Wait()
	}
	l.ticking = true
}

// release ends the claimed tick. l.mu must be held.
func (l *Loop) release() {
	l.ticking = false
	l.idle.Broadcast()
}

func (l *Loop) frame() {
	// 1. time and input
	now := l.cfg.Clock.Now()
	dt := 0.0
	if l.primed {
		dt = now.Sub(l.last).Seconds()
		if dt < 0 {
			dt = 0
		}
		if dt > l.cfg.MaxDelta {
			dt = l.cfg.MaxDelta
		}
	}
	l.last, l.primed = now, true

	l.mu.Lock()
	inbox := l.inbox
	l.inbox = nil
	l.mu.Unlock()
	for _, fn := range inbox {
		fn()
	}

	// 2. camera
	if l.cfg.CameraUpdater != nil {
		l.cfg.CameraUpdater.Update(dt)
	}

	// 3. animation
	l.cfg.Animator.Advance(dt)

	// 4. hover
	if l.cfg.Hover != nil {
		l.cfg.Hover.Refresh()
	}

	// 5. render
	if err := l.cfg.Renderer.Render(l.cfg.Root, l.cfg.Camera); err != nil {
		l.log.Error("render failed", "err", err)
		if l.cfg.OnRenderError != nil {
			l.cfg.OnRenderError(err)
		}
	}

	l.mu.Lock()
	l.frames++
	l.mu.Unlock()
}
