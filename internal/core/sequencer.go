package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/gammazero/deque"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/hmirc/internal/metrics"
)

// Handler applies one command. It may block on remote calls.
type Handler func(ctx context.Context, cmd Command) error

// Sequencer is a per-session FIFO that applies commands one at a time in
// arrival order. A failing or panicking handler is logged and draining
// continues with the next command; nothing is retried.
type Sequencer struct {
	ctx    context.Context
	handle Handler
	log    *zerolog.Logger

	mu       sync.Mutex
	queue    deque.Deque[Command]
	draining bool
}

// NewSequencer creates a sequencer whose handlers run under ctx. Once ctx is
// done, queued commands are abandoned.
func NewSequencer(ctx context.Context, handle Handler, logger *zerolog.Logger) *Sequencer {
	return &Sequencer{
		ctx:    ctx,
		handle: handle,
		log:    logger,
	}
}

// Enqueue appends cmd and starts draining if idle. It never blocks on the handler.
func (q *Sequencer) Enqueue(cmd Command) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.queue.PushBack(cmd)
	if q.draining {
		return
	}
	q.draining = true
	go q.drain()
}

// Len returns the number of commands waiting to be applied.
func (q *Sequencer) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queue.Len()
}

func (q *Sequencer) drain() {
	for {
		q.mu.Lock()
		if q.queue.Len() == 0 || q.ctx.Err() != nil {
			q.draining = false
			q.mu.Unlock()
			return
		}
		cmd := q.queue.PopFront()
		q.mu.Unlock()

		metrics.CommandsTotal.WithLabelValues(cmd.Kind.String()).Inc()
		if err := q.run(cmd); err != nil {
			metrics.CommandFailuresTotal.WithLabelValues(cmd.Kind.String()).Inc()
			q.log.Warn().Err(err).Str("command", cmd.Verb).Msg("command failed")
		}
	}
}

func (q *Sequencer) run(cmd Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s handler: %v", cmd.Verb, r)
		}
	}()
	return q.handle(q.ctx, cmd)
}
