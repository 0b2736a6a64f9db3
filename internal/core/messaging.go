package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vovakirdan/hmirc/internal/metrics"
	"github.com/vovakirdan/hmirc/internal/proto"
	"github.com/vovakirdan/hmirc/internal/remote"
)

const ctcpAction = "ACTION"

// controlStripper removes CTCP framing, bold and carriage returns from polled text.
var controlStripper = strings.NewReplacer("\x01", "", "\x02", "", "\r", "")

// shapeOutbound rewrites client text for the remote service. CTCP ACTION
// becomes *text*; any other CTCP request is dropped (ok=false).
func shapeOutbound(text string) (string, bool) {
	if text == "" || (text[0] != '\x01' && text[0] != '\x02') {
		return text, true
	}
	body := strings.TrimRight(text[1:], "\x01\x02")
	verb, rest, _ := strings.Cut(body, " ")
	if !strings.EqualFold(verb, ctcpAction) {
		return "", false
	}
	return "*" + rest + "*", true
}

// handlePrivmsg sends a message through the remote service. The echo is
// recorded before the send so a fast poll can already match it; a rejected
// send leaves the record to expire.
func (s *Session) handlePrivmsg(ctx context.Context, cmd Command) error {
	target, text := cmd.Arg(0), cmd.Arg(1)

	s.mu.Lock()
	if !s.greeted {
		s.mu.Unlock()
		return nil
	}
	if target == "" || len(cmd.Params) < 2 {
		s.emitLocked(&Event{Kind: EventError, Error: &CoreError{Code: ErrCodeNeedMoreParams, Message: "Not enough parameters", Subject: cmd.Verb}})
		s.mu.Unlock()
		return nil
	}
	text, ok := shapeOutbound(text)
	if !ok {
		s.mu.Unlock()
		return nil
	}
	token, from := s.token, s.identity
	s.selfSent.Record(target, text, s.now())
	s.mu.Unlock()

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send rate wait: %w", err)
	}

	dest := remote.ToUser(target)
	if proto.IsChannel(target) {
		dest = remote.ToChannel(target[1:])
	}
	if err := s.svc.SendMessage(ctx, token, from, dest, text); err != nil {
		metrics.RemoteError(metrics.OpSend)
		return fmt.Errorf("privmsg %s: %w", target, err)
	}
	return nil
}

// handleJoin accepts channels the active identity belongs to and rejects the rest.
func (s *Session) handleJoin(_ context.Context, cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.greeted {
		return nil
	}
	for _, ch := range strings.Split(cmd.Arg(0), ",") {
		if ch == "" {
			continue
		}
		ch = proto.NormalizeChannel(ch)
		switch {
		case s.joined.Has(ch):
		case s.ownsChannelLocked(ch):
			s.joinLocked(ch)
		default:
			s.emitLocked(&Event{Kind: EventError, Error: &CoreError{Code: ErrCodeCannotJoin, Message: "Cannot join channel (+k)", Subject: ch}})
		}
	}
	return nil
}

// handlePart re-asserts membership: channels follow the remote identity and
// cannot be left from the client side.
func (s *Session) handlePart(_ context.Context, cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range strings.Split(cmd.Arg(0), ",") {
		if ch == "" {
			continue
		}
		ch = proto.NormalizeChannel(ch)
		if s.joined.Has(ch) {
			s.joinLocked(ch)
		}
	}
	return nil
}

func (s *Session) handleNames(_ context.Context, cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	channels := s.joined.List()
	if arg := cmd.Arg(0); arg != "" {
		channels = strings.Split(arg, ",")
	}
	for _, ch := range channels {
		if ch == "" {
			continue
		}
		s.emitLocked(&Event{Kind: EventNames, Channel: proto.NormalizeChannel(ch)})
	}
	return nil
}

func (s *Session) pollLoop() {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce(s.ctx)
		}
	}
}

// pollOnce runs one tick: fetch outside the lock, then filter, order, trim,
// suppress echoes, deliver and advance the cursor under it. A batch fetched
// for an identity that has since been re-activated is discarded.
func (s *Session) pollOnce(ctx context.Context) {
	s.mu.Lock()
	if !s.greeted || s.identity == "" {
		s.mu.Unlock()
		return
	}
	token, identity, generation, after := s.token, s.identity, s.generation, s.poller.After()
	s.mu.Unlock()

	start := time.Now()
	raw, err := s.svc.FetchMessages(ctx, token, []string{identity}, after)
	metrics.PollDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.RemoteError(metrics.OpFetch)
		s.log.Warn().Err(err).Str("identity", identity).Msg("poll failed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		s.log.Debug().Int("messages", len(raw)).Msg("discarding poll for previous activation")
		return
	}
	batch := s.poller.Process(raw)
	for _, m := range batch {
		s.deliverLocked(m)
	}
	s.poller.Commit(batch)
}

// deliverLocked renders one ordered, de-duplicated message.
func (s *Session) deliverLocked(m remote.Message) {
	dest := m.To
	if m.Channel != "" {
		dest = proto.NormalizeChannel(m.Channel)
		if !s.joined.Has(dest) {
			s.joinLocked(dest)
		}
	}
	text := controlStripper.Replace(m.Text)

	if s.selfSent.Consume(dest, text, s.now()) {
		metrics.PollOutcome(metrics.OutcomeSuppressed, 1)
		return
	}

	lines := strings.Split(text, "\n")
	if m.From == s.identity && m.To != "" {
		if m.To == s.identity {
			metrics.PollOutcome(metrics.OutcomeLoopback, 1)
			return
		}
		for _, line := range lines {
			s.emitLocked(&Event{Kind: EventSelfMessage, From: m.To, Text: line})
		}
		metrics.PollOutcome(metrics.OutcomeDelivered, 1)
		return
	}

	for _, line := range lines {
		s.emitLocked(&Event{Kind: EventMessage, From: m.From, Target: dest, Text: line})
	}
	metrics.PollOutcome(metrics.OutcomeDelivered, 1)
}
