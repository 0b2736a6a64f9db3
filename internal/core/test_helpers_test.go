package core

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/hmirc/internal/remote"
	"github.com/vovakirdan/hmirc/internal/remote/remotetest"
)

var testEpoch = time.Unix(1_700_000_000, 0)

// newTestSession builds a session on a fake service with polling effectively
// disabled; tests drive polls through pollOnce.
func newTestSession(t *testing.T, svc *remotetest.Service) *Session {
	t.Helper()

	nop := zerolog.Nop()
	opts := DefaultOptions()
	opts.PollInterval = time.Hour
	opts.SendRate = 0
	opts.EventBuffer = 256
	opts.Now = func() time.Time { return testEpoch }

	s := NewSession(context.Background(), "test", svc, opts, &nop)
	s.Start()
	t.Cleanup(s.Close)
	return s
}

// newAccountService returns a fake that accepts pass "pw" (token "token-pw")
// and owns alice [#x, #y] and bob [#y, #z].
func newAccountService() *remotetest.Service {
	svc := remotetest.New()
	svc.AddAccount("pw", "token-pw", remote.Identities{
		"alice": {"x", "y"},
		"bob":   {"#y", "z"},
	})
	return svc
}

func cmd(verb string, params ...string) Command {
	return Command{Kind: commandVerbs[verb], Verb: verb, Params: params}
}

// login enqueues PASS/NICK/USER and waits for the welcome.
func login(t *testing.T, s *Session, nick string) {
	t.Helper()
	s.Enqueue(cmd("PASS", "pw"))
	s.Enqueue(cmd("NICK", nick))
	s.Enqueue(cmd("USER", "guest", "0", "*", "Guest"))
	mustEvent(t, s.Events, EventWelcome)
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// collect drains events until the channel stays quiet for a short while.
func collect(ch <-chan *Event) []*Event {
	var out []*Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		case <-time.After(100 * time.Millisecond):
			return out
		}
	}
}

// settle waits until the sequencer has drained, then returns the emitted events.
func settle(t *testing.T, s *Session) []*Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.seq.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("sequencer did not drain")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return collect(s.Events)
}

func kinds(evs []*Event) []EventKind {
	out := make([]EventKind, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Kind)
	}
	return out
}

func ofKind(evs []*Event, kind EventKind) []*Event {
	var out []*Event
	for _, ev := range evs {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}
