// Package idea owns the state of one idea cycle and drives the expansion and
// visualization services in response to user actions.
package idea

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"nexus/internal/trace"
	"nexus/internal/types"
)

// ErrorMessage is the only failure text the user ever sees.
const ErrorMessage = "Failed to expand idea. Please try again with a different prompt."

type Expander interface {
	Expand(ctx context.Context, seed string) (types.Expansion, error)
}

type Visualizer interface {
	Visualize(ctx context.Context, exp types.Expansion) types.ImageArtifact
}

// Machine is the single writer of a types.State. Every transition replaces
// the whole value; resolutions that arrive after a Reset are dropped by
// comparing generations.
type Machine struct {
	expander   Expander
	visualizer Visualizer
	log        *log.Logger
	sink       trace.Sink
	sessionID  string

	mu      sync.Mutex
	state   types.State
	gen     uint64
	subs    map[int]chan types.State
	nextSub int
}

type Option func(*Machine)

func WithLogger(l *log.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.log = l
		}
	}
}
func WithTraceSink(sink trace.Sink) Option {
	return func(m *Machine) {
		if sink != nil {
			m.sink = sink
		}
	}
}

func WithSessionID(id string) Option { return func(m *Machine) { m.sessionID = strings.TrimSpace(id) } }

func New(expander Expander, visualizer Visualizer, opts ...Option) *Machine {
	m := &Machine{
		expander:   expander,
		visualizer: visualizer,
		log:        log.Default(),
		sink:       trace.Discard,
		state:      types.InitialState(),
		subs:       make(map[int]chan types.State),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns a deep copy of the current state.
func (m *Machine) State() types.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Submit starts an expansion and blocks until it resolves. It returns false
// without calling the model when the seed is blank or the machine is not in
// the Input stage.
func (m *Machine) Submit(ctx context.Context, seed string) bool {
	if strings.TrimSpace(seed) == "" {
		return false
	}
	ctx = m.traceCtx(ctx)

	m.mu.Lock()
	if m.state.Stage != types.StageInput {
		m.mu.Unlock()
		return false
	}
	gen := m.gen
	next := m.state
	next.Seed = seed
	next.Stage = types.StageExpanding
	next.Error = ""
	m.setLocked(next)
	m.mu.Unlock()
	trace.Record(ctx, m.sink, "idea", "submit", map[string]any{"seed_bytes": len(seed)})

	exp, err := m.expand(ctx, seed)
	if err != nil {
		m.log.Printf("idea: expansion failed for session %s: %v", trace.SessionFrom(ctx), err)
	}
	m.sink.Append(ctx, m.resolveExpansion(ctx, gen, exp, err))
	return true
}

// resolveExpansion applies the result of cycle gen and returns the event to
// record once the lock is released.
func (m *Machine) resolveExpansion(ctx context.Context, gen uint64, exp types.Expansion, err error) trace.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return trace.NewEvent(ctx, "idea", "expand.discarded", nil)
	}
	next := m.state
	var ev trace.Event
	if err != nil {
		ev = trace.NewEvent(ctx, "idea", "expand.failed", map[string]any{"cause": err.Error()})
		next.Stage = types.StageInput
		next.Expansion = nil
		next.Error = ErrorMessage
	} else {
		stored := exp.Clone()
		next.Stage = types.StageComplete
		next.Expansion = &stored
		ev = trace.NewEvent(ctx, "idea", "expand.complete", map[string]any{"title": exp.Title})
	}
	m.setLocked(next)
	return ev
}

func (m *Machine) expand(ctx context.Context, seed string) (exp types.Expansion, err error) {
	defer func() {
		if r := recover(); r != nil {
			exp, err = types.Expansion{}, fmt.Errorf("expander panicked: %v", r)
		}
	}()
	return m.expander.Expand(ctx, seed)
}

// GenerateVisual requests an image for the current expansion and blocks until
// it resolves. It is a no-op unless an expansion is present and no visual is
// already in flight. IsVisualizing is cleared even if the visualizer panics.
func (m *Machine) GenerateVisual(ctx context.Context) (accepted bool) {
	ctx = m.traceCtx(ctx)

	m.mu.Lock()
	if m.state.Expansion == nil || m.state.Stage != types.StageComplete || m.state.IsVisualizing {
		m.mu.Unlock()
		return false
	}
	gen := m.gen
	exp := m.state.Expansion.Clone()
	next := m.state
	next.IsVisualizing = true
	m.setLocked(next)
	m.mu.Unlock()
	accepted = true

	var art types.ImageArtifact
	defer func() {
		r := recover()
		if r != nil {
			m.log.Printf("idea: visualizer panicked for session %s: %v", trace.SessionFrom(ctx), r)
			trace.Record(ctx, m.sink, "idea", "visualize.panic", map[string]any{"cause": fmt.Sprint(r)})
		}
		if ev, ok := m.resolveVisual(ctx, gen, art, r == nil); ok {
			m.sink.Append(ctx, ev)
		}
	}()
	art = m.visualizer.Visualize(ctx, exp)
	return accepted
}

// resolveVisual clears IsVisualizing for cycle gen and stores art when the
// visualizer returned normally. The event is recorded by the caller.
func (m *Machine) resolveVisual(ctx context.Context, gen uint64, art types.ImageArtifact, returned bool) (trace.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return trace.NewEvent(ctx, "idea", "visualize.discarded", nil), true
	}
	next := m.state
	next.IsVisualizing = false
	var ev trace.Event
	stored := returned && art != ""
	if stored {
		next.Image = art
		ev = trace.NewEvent(ctx, "idea", "visualize.complete", map[string]any{"fallback": art.IsFallback()})
	}
	m.setLocked(next)
	return ev, stored
}

// Reset returns to the initial state from any stage. In-flight calls keep
// running but their results are discarded.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.gen++
	m.setLocked(types.InitialState())
	m.mu.Unlock()
	trace.Record(m.traceCtx(context.Background()), m.sink, "idea", "reset", nil)
}

// Subscribe delivers the current state immediately and then every
// transition. Slow readers only see the latest state. The channel closes when
// ctx is done.
func (m *Machine) Subscribe(ctx context.Context) <-chan types.State {
	ch := make(chan types.State, 1)
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	ch <- m.state.Clone()
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
		close(ch)
	}()
	return ch
}

func (m *Machine) setLocked(next types.State) {
	m.state = next
	for _, ch := range m.subs {
		push(ch, next.Clone())
	}
}

func push(ch chan types.State, st types.State) {
	select {
	case ch <- st:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- st:
	default:
	}
}

func (m *Machine) traceCtx(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if m.sessionID != "" && trace.SessionFrom(ctx) == "unknown" {
		ctx = trace.WithSession(ctx, m.sessionID)
	}
	return ctx
}
