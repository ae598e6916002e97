// Package eventlog persists game events. A Pump buffers events from the
// engine and writes them to one or more sinks from its own goroutine, so a
// slow disk or database never stalls the game.
package eventlog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/lox/rook/internal/game"
)

// DefaultBuffer is the number of events held before new events are dropped
const DefaultBuffer = 256

// maxFailures is the number of consecutive write failures after which a sink
// is disabled
const maxFailures = 3

// Sink is a destination for game events
type Sink interface {
	Name() string
	Write(ctx context.Context, ev game.Event) error
	Close() error
}

type sinkState struct {
	Sink
	failures int
	disabled bool
}

// Pump implements game.Recorder. Record never blocks; Run drains the buffer
// into the sinks.
type Pump struct {
	logger  *log.Logger
	sinks   []*sinkState
	events  chan game.Event
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewPump creates a pump writing to sinks. A buffer of zero or less uses
// DefaultBuffer.
func NewPump(logger *log.Logger, buffer int, sinks ...Sink) *Pump {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	p := &Pump{
		logger: logger.WithPrefix("eventlog"),
		events: make(chan game.Event, buffer),
	}
	for _, s := range sinks {
		p.sinks = append(p.sinks, &sinkState{Sink: s})
	}
	return p
}

// Record queues an event. Events recorded after Close, or while the buffer
// is full, are dropped.
func (p *Pump) Record(ev game.Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.events <- ev:
	default:
		p.dropped.Add(1)
		p.logger.Warn("Event buffer full, dropping event", "event", ev.EventType())
	}
}

// Dropped returns the number of events lost to a full buffer
func (p *Pump) Dropped() int64 {
	return p.dropped.Load()
}

// Close stops accepting events. Run returns once the buffer is drained.
func (p *Pump) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
}

// Run writes queued events until Close is called or ctx is done, then
// flushes what is left and closes every sink.
func (p *Pump) Run(ctx context.Context) error {
	defer p.closeSinks()

	for {
		select {
		case ev, ok := <-p.events:
			if !ok {
				return nil
			}
			p.write(ctx, ev)
		case <-ctx.Done():
			p.Close()
			flush := context.WithoutCancel(ctx)
			for ev := range p.events {
				p.write(flush, ev)
			}
			return nil
		}
	}
}

func (p *Pump) write(ctx context.Context, ev game.Event) {
	for _, s := range p.sinks {
		if s.disabled {
			continue
		}
		if err := s.Write(ctx, ev); err != nil {
			s.failures++
			p.logger.Error("Failed to write event", "sink", s.Name(), "event", ev.EventType(), "error", err)
			if s.failures >= maxFailures {
				s.disabled = true
				p.logger.Error("Disabling event sink after repeated failures", "sink", s.Name())
			}
			continue
		}
		s.failures = 0
	}
}

func (p *Pump) closeSinks() {
	var errs []error
	for _, s := range p.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		p.logger.Error("Failed to close event sinks", "error", err)
	}
}
