// Package controller is the guide control loop: a task queue drained by a
// single goroutine that owns the step position, the current travel intent
// and the auto-travel switch. Long operations run on their own goroutines
// and post their results back through the queue.
package controller

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mj1618/guidepilot/internal/automation"
	"github.com/mj1618/guidepilot/internal/intent"
	"github.com/mj1618/guidepilot/internal/logx"
	"github.com/mj1618/guidepilot/internal/macro"
	"github.com/mj1618/guidepilot/internal/window"
)

// ErrStopped is returned by calls made after Run has returned.
var ErrStopped = errors.New("controller: stopped")

// Automation is the part of automation.Hub the controller drives.
type Automation interface {
	Bind(partialTitle string) bool
	Bound() (window.Bound, bool)
	LocateText(ctx context.Context, req automation.LocateRequest) (automation.LocateResult, error)
	Intent(stepText string) *intent.Intent
	GoIntent(in *intent.Intent, done func(macro.Report)) bool
	MacroRunning() bool
}

// EventKind tags an Event.
type EventKind string

const (
	EventStep    EventKind = "step"
	EventBound   EventKind = "bound"
	EventLocated EventKind = "located"
	EventMacro   EventKind = "macro"
	EventNotice  EventKind = "notice"
)

// Event is emitted on the Events channel.
type Event struct {
	Kind    EventKind                `yaml:"kind"              json:"kind"`
	State   *State                   `yaml:"state,omitempty"   json:"state,omitempty"`
	Bound   *window.Bound            `yaml:"bound,omitempty"   json:"bound,omitempty"`
	Locate  *automation.LocateResult `yaml:"locate,omitempty"  json:"locate,omitempty"`
	Report  *macro.Report            `yaml:"report,omitempty"  json:"report,omitempty"`
	Message string                   `yaml:"message,omitempty" json:"message,omitempty"`
	Err     string                   `yaml:"error,omitempty"   json:"error,omitempty"`
}

// State is a snapshot of the loop-owned state.
type State struct {
	Guide      string         `yaml:"guide"            json:"guide"`
	Step       int            `yaml:"step"             json:"step"`
	Total      int            `yaml:"total"            json:"total"`
	Text       string         `yaml:"text"             json:"text"`
	Intent     *intent.Intent `yaml:"intent,omitempty" json:"intent,omitempty"`
	AutoTravel bool           `yaml:"auto_travel"      json:"auto_travel"`
}

// Controller serializes all guide state changes through one goroutine.
type Controller struct {
	auto   Automation
	tasks  chan func()
	events chan Event
	done   chan struct{}
	log    *slog.Logger

	// Owned by the Run goroutine.
	ctx        context.Context
	guide      *Guide
	step       int
	current    *intent.Intent
	autoTravel bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithAutoTravel sets the initial auto-travel switch. Default on.
func WithAutoTravel(on bool) Option { return func(c *Controller) { c.autoTravel = on } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = logx.Component(l, "controller") }
}

// WithEventBuffer sets the Events channel capacity. Default 64.
func WithEventBuffer(n int) Option { return func(c *Controller) { c.events = make(chan Event, n) } }

// New creates a Controller for g. g may be nil until SetGuide.
func New(auto Automation, g *Guide, opts ...Option) *Controller {
	c := &Controller{
		auto:       auto,
		tasks:      make(chan func(), 64),
		events:     make(chan Event, 64),
		done:       make(chan struct{}),
		log:        logx.Component(nil, "controller"),
		ctx:        context.Background(),
		guide:      g,
		autoTravel: true,
	}
	for _, o := range opts {
		o(c)
	}
	c.refresh()
	return c
}

// Events delivers controller events. Events are dropped when the buffer
// is full.
func (c *Controller) Events() <-chan Event { return c.events }

// Run drains the task queue until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	defer close(c.done)
	c.log.Info("controller started")
	for {
		select {
		case <-ctx.Done():
			c.log.Info("controller stopped")
			return ctx.Err()
		case task := <-c.tasks:
			task()
		}
	}
}

// Post enqueues fn to run on the loop goroutine. It returns false once the
// loop has stopped.
func (c *Controller) Post(fn func()) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.tasks <- fn:
		return true
	case <-c.done:
		return false
	}
}

// State returns a snapshot taken on the loop goroutine.
func (c *Controller) State(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	if !c.Post(func() { reply <- c.snapshot() }) {
		return State{}, ErrStopped
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	case <-c.done:
		return State{}, ErrStopped
	}
}

// Next runs the current step's travel when auto-travel is on, then
// advances. It does nothing while a macro is in flight.
func (c *Controller) Next() bool { return c.Post(c.next) }

// Previous moves back one step.
func (c *Controller) Previous() bool {
	return c.Post(func() {
		if c.guide == nil || c.step == 0 {
			return
		}
		c.setStep(c.step - 1)
	})
}

// StepChanged jumps to step i, e.g. when the guide view was scrolled.
func (c *Controller) StepChanged(i int) bool {
	return c.Post(func() {
		if c.guide == nil || i < 0 || i >= len(c.guide.Steps) {
			c.notice("step out of range")
			return
		}
		c.setStep(i)
	})
}

// SetGuide replaces the guide and starts at its first step.
func (c *Controller) SetGuide(g *Guide) bool {
	return c.Post(func() {
		c.guide = g
		c.setStep(0)
	})
}

// SetAutoTravel switches auto-travel.
func (c *Controller) SetAutoTravel(on bool) bool {
	return c.Post(func() { c.applyAutoTravel(on) })
}

// ToggleAutoTravel flips auto-travel.
func (c *Controller) ToggleAutoTravel() bool {
	return c.Post(func() { c.applyAutoTravel(!c.autoTravel) })
}

// Bind binds the window in the background and reports an EventBound.
func (c *Controller) Bind(partialTitle string) bool {
	return c.Post(func() {
		go func() {
			ok := c.auto.Bind(partialTitle)
			c.Post(func() {
				ev := Event{Kind: EventBound}
				if b, bound := c.auto.Bound(); ok && bound {
					ev.Bound = &b
					ev.Message = "bound " + b.Title
				} else {
					ev.Err = "no window matches " + partialTitle
				}
				c.emit(ev)
			})
		}()
	})
}

// Locate runs a text locate in the background and reports an
// EventLocated.
func (c *Controller) Locate(req automation.LocateRequest) bool {
	return c.Post(func() {
		ctx := c.ctx
		go func() {
			res, err := c.auto.LocateText(ctx, req)
			c.Post(func() {
				ev := Event{Kind: EventLocated, Locate: &res}
				if err != nil {
					ev.Err = err.Error()
				}
				c.emit(ev)
			})
		}()
	})
}

func (c *Controller) next() {
	if c.auto.MacroRunning() {
		c.log.Warn("macro in flight, step not advanced")
		c.notice("macro running, please wait")
		return
	}
	if c.guide == nil {
		return
	}
	if c.step >= len(c.guide.Steps)-1 {
		c.log.Info("last step reached")
		c.notice("last step reached")
		return
	}

	if in := c.current; in != nil {
		if c.autoTravel {
			started := c.auto.GoIntent(in, func(r macro.Report) {
				c.Post(func() {
					ev := Event{Kind: EventMacro, Report: &r}
					if !r.OK() {
						ev.Err = r.Err.Error()
					}
					c.emit(ev)
				})
			})
			if !started {
				c.notice("travel rejected")
			}
		} else {
			c.log.Info("auto-travel off, command skipped", "command", in.RawCommandText)
			c.notice("auto-travel off, skipped " + in.RawCommandText)
		}
	}
	c.setStep(c.step + 1)
}

func (c *Controller) applyAutoTravel(on bool) {
	c.autoTravel = on
	c.log.Info("auto-travel switched", "enabled", on)
	s := c.snapshot()
	c.emit(Event{Kind: EventStep, State: &s})
}

func (c *Controller) setStep(i int) {
	c.step = i
	c.refresh()
	s := c.snapshot()
	c.emit(Event{Kind: EventStep, State: &s})
}

// refresh recomputes the travel intent of the current step.
func (c *Controller) refresh() {
	c.current = nil
	if c.guide == nil || c.step >= len(c.guide.Steps) {
		return
	}
	c.current = c.auto.Intent(c.guide.Steps[c.step].Body())
	if c.current != nil {
		c.log.Info("travel detected", "marker", c.current.MarkerText, "command", c.current.RawCommandText)
	}
}

func (c *Controller) snapshot() State {
	s := State{Step: c.step, Intent: c.current, AutoTravel: c.autoTravel}
	if c.guide != nil {
		s.Guide = c.guide.Name
		s.Total = len(c.guide.Steps)
		if c.step < len(c.guide.Steps) {
			s.Text = c.guide.Steps[c.step].Plain()
		}
	}
	return s
}

func (c *Controller) notice(msg string) {
	c.emit(Event{Kind: EventNotice, Message: msg})
}

func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.log.Warn("event dropped, consumer too slow", "kind", ev.Kind)
	}
}
