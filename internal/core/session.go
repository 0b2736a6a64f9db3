package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/vovakirdan/hmirc/internal/metrics"
	"github.com/vovakirdan/hmirc/internal/remote"
)

// Options tunes a session.
type Options struct {
	PollInterval   time.Duration
	LookbackWindow time.Duration
	SelfSentTTL    time.Duration
	// SendRate is outbound messages per second; zero disables limiting.
	SendRate  float64
	SendBurst int
	// EventBuffer is the capacity of the Events channel.
	EventBuffer int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		PollInterval:   time.Second,
		LookbackWindow: 5 * time.Minute,
		SelfSentTTL:    30 * time.Minute,
		SendRate:       2,
		SendBurst:      5,
		EventBuffer:    64,
	}
}

// Session is the per-connection engine. Commands go in through Enqueue and
// are applied one at a time; a poll loop runs beside them. Everything the
// connection should render comes out of Events.
type Session struct {
	ID     string
	Events chan *Event

	svc     ChatService
	opts    Options
	log     *zerolog.Logger
	now     func() time.Time
	limiter *rate.Limiter

	ctx       context.Context
	cancel    context.CancelFunc
	seq       *Sequencer
	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool

	mu               sync.Mutex
	nick             string
	lastValidNick    string
	ident            string
	authenticated    bool
	greeted          bool
	token            string
	owned            remote.Identities
	identity         string
	identityChannels []string
	joined           *channelSet
	poller           Poller
	generation       uint64
	selfSent         *SelfSent
}

// NewSession creates a session bound to parent. Call Start to begin polling.
func NewSession(parent context.Context, id string, svc ChatService, opts Options, logger *zerolog.Logger) *Session {
	def := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.LookbackWindow <= 0 {
		opts.LookbackWindow = def.LookbackWindow
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = def.EventBuffer
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	sessLog := logger.With().Str("session_id", id).Logger()

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.SendRate > 0 {
		burst := opts.SendBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.SendRate), burst)
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		ID:       id,
		Events:   make(chan *Event, opts.EventBuffer),
		svc:      svc,
		opts:     opts,
		log:      &sessLog,
		now:      now,
		limiter:  limiter,
		ctx:      ctx,
		cancel:   cancel,
		joined:   newChannelSet(),
		selfSent: NewSelfSent(opts.SelfSentTTL),
	}
	s.seq = NewSequencer(ctx, s.handle, s.log)
	return s
}

// Start launches the poll loop. It is safe to call more than once.
func (s *Session) Start() {
	if s.ctx.Err() != nil {
		return
	}
	s.startOnce.Do(func() {
		s.started.Store(true)
		metrics.SessionsActive.Inc()
		go s.pollLoop()
	})
}

// Enqueue schedules cmd behind every previously enqueued command.
func (s *Session) Enqueue(cmd Command) {
	if s.ctx.Err() != nil {
		return
	}
	s.seq.Enqueue(cmd)
}

// Close stops polling and abandons queued commands and in-flight remote calls.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		if s.started.Load() {
			metrics.SessionsActive.Dec()
		}
		s.log.Debug().Msg("session closed")
	})
}

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Joined returns the joined channels in join order.
func (s *Session) Joined() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joined.List()
}

// Identity returns the active remote identity, or "".
func (s *Session) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Nick returns the current display name.
func (s *Session) Nick() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nick
}

// emitLocked stamps ev with the current nick and ident and hands it to the
// connection. It blocks while the Events buffer is full, until the session closes.
func (s *Session) emitLocked(ev *Event) {
	ev.Nick = s.nick
	ev.User = s.ident
	select {
	case s.Events <- ev:
	case <-s.ctx.Done():
	}
}

func (s *Session) handle(ctx context.Context, cmd Command) error {
	switch cmd.Kind {
	case CommandPass:
		return s.handlePass(ctx, cmd)
	case CommandNick:
		return s.handleNick(ctx, cmd)
	case CommandUser:
		return s.handleUser(ctx, cmd)
	case CommandPing:
		s.mu.Lock()
		s.emitLocked(&Event{Kind: EventPong, Text: cmd.Arg(0)})
		s.mu.Unlock()
		return nil
	case CommandPrivmsg:
		return s.handlePrivmsg(ctx, cmd)
	case CommandJoin:
		return s.handleJoin(ctx, cmd)
	case CommandPart:
		return s.handlePart(ctx, cmd)
	case CommandNames:
		return s.handleNames(ctx, cmd)
	case CommandQuit:
		s.mu.Lock()
		s.emitLocked(&Event{Kind: EventClosing, Text: "Closing link"})
		s.mu.Unlock()
		return nil
	case CommandMode:
		return nil
	default:
		s.log.Debug().Str("verb", cmd.Verb).Strs("params", cmd.Params).Msg("ignoring unhandled command")
		return nil
	}
}
