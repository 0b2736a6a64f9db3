package core

import (
	"reflect"
	"testing"

	"github.com/vovakirdan/hmirc/internal/remote"
	"github.com/vovakirdan/hmirc/internal/remote/remotetest"
)

func TestActivationWaitsForSlowCredentialExchange(t *testing.T) {
	svc := newAccountService()
	gate := make(chan struct{})
	svc.ExchangeGate = gate
	s := newTestSession(t, svc)

	s.Enqueue(cmd("PASS", "pw"))
	s.Enqueue(cmd("NICK", "alice"))
	s.Enqueue(cmd("USER", "guest", "0", "*", "Guest"))

	if evs := collect(s.Events); len(evs) != 0 {
		t.Fatalf("events emitted before credential resolved: %v", kinds(evs))
	}
	if st := s.State(); st != StateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", st)
	}
	if s.Nick() != "" {
		t.Fatalf("NICK applied out of order: %q", s.Nick())
	}

	close(gate)
	evs := settle(t, s)
	if n := len(ofKind(evs, EventWelcome)); n != 1 {
		t.Fatalf("expected exactly one welcome, got %d (%v)", n, kinds(evs))
	}
	if st := s.State(); st != StateIdentified {
		t.Fatalf("expected identified, got %v", st)
	}
	if svc.Exchanges() != 1 {
		t.Fatalf("expected one exchange, got %d", svc.Exchanges())
	}
}

func TestLoginInAnyOrder(t *testing.T) {
	svc := newAccountService()
	s := newTestSession(t, svc)

	s.Enqueue(cmd("USER", "guest", "0", "*", "Guest"))
	s.Enqueue(cmd("NICK", "alice"))
	if evs := settle(t, s); len(ofKind(evs, EventWelcome)) != 0 {
		t.Fatal("welcomed without a credential")
	}
	s.Enqueue(cmd("PASS", "pw"))

	evs := settle(t, s)
	want := []EventKind{EventWelcome, EventToken, EventJoined, EventNames, EventJoined, EventNames}
	if got := kinds(evs); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if evs[1].Text != "token-pw" {
		t.Fatalf("expected token reveal, got %q", evs[1].Text)
	}
	if evs[2].Channel != "#x" || evs[4].Channel != "#y" {
		t.Fatalf("unexpected join order: %s, %s", evs[2].Channel, evs[4].Channel)
	}
	if evs[2].Nick != "alice" || evs[2].User != "guest" {
		t.Fatalf("event not stamped with nick/user: %+v", evs[2])
	}
}

func TestBadCredentialIsRejected(t *testing.T) {
	svc := newAccountService()
	s := newTestSession(t, svc)

	s.Enqueue(cmd("PASS", "wrong"))
	ev := mustEvent(t, s.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodePasswordIncorrect {
		t.Fatalf("expected password_incorrect, got %+v", ev.Error)
	}
	if st := s.State(); st != StateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", st)
	}

	// The session stays usable and may retry.
	login(t, s, "alice")
}

func TestLongCredentialIsUsedAsToken(t *testing.T) {
	svc := remotetest.New()
	svc.AddAccount("", "a-long-chat-token", remote.Identities{"alice": nil})
	s := newTestSession(t, svc)

	s.Enqueue(cmd("PASS", "a-long-chat-token"))
	s.Enqueue(cmd("NICK", "alice"))
	s.Enqueue(cmd("USER", "guest"))

	mustEvent(t, s.Events, EventWelcome)
	tok := mustEvent(t, s.Events, EventToken)
	if tok.Text != "a-long-chat-token" {
		t.Fatalf("unexpected token %q", tok.Text)
	}
	if svc.Exchanges() != 0 {
		t.Fatalf("token-shaped credential must not be exchanged, got %d exchanges", svc.Exchanges())
	}
}

func TestReactivatingSameIdentityIsQuiet(t *testing.T) {
	svc := newAccountService()
	s := newTestSession(t, svc)
	login(t, s, "alice")
	settle(t, s)

	s.Enqueue(cmd("NICK", "alice"))
	evs := settle(t, s)
	if len(evs) != 0 {
		t.Fatalf("expected no events on re-activation, got %v", kinds(evs))
	}
	if got := s.Joined(); !reflect.DeepEqual(got, []string{"#x", "#y"}) {
		t.Fatalf("joined changed: %v", got)
	}
}

func TestIdentitySwapLeavesAllThenJoinsAll(t *testing.T) {
	svc := newAccountService()
	s := newTestSession(t, svc)
	login(t, s, "alice")
	settle(t, s)

	s.Enqueue(cmd("NICK", "bob"))
	evs := settle(t, s)

	if len(evs) == 0 || evs[0].Kind != EventNickChange || evs[0].From != "alice" || evs[0].Nick != "bob" {
		t.Fatalf("expected nick change first, got %+v", evs)
	}

	var got []string
	for _, ev := range evs {
		switch ev.Kind {
		case EventLeft:
			got = append(got, "leave "+ev.Channel)
		case EventJoined:
			got = append(got, "join "+ev.Channel)
		case EventWelcome:
			t.Fatal("greeting repeated on swap")
		}
	}
	want := []string{"leave #x", "leave #y", "join #y", "join #z"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if s.Identity() != "bob" {
		t.Fatalf("expected bob active, got %q", s.Identity())
	}
}

func TestUnownedNickRollsBack(t *testing.T) {
	svc := newAccountService()
	s := newTestSession(t, svc)
	login(t, s, "alice")
	settle(t, s)

	s.Enqueue(cmd("NICK", "mallory"))
	evs := settle(t, s)
	if len(evs) != 1 || evs[0].Kind != EventError || evs[0].Error.Code != ErrCodeErroneousNickname {
		t.Fatalf("expected a single erroneous nickname rejection, got %v", kinds(evs))
	}
	if evs[0].Error.Subject != "mallory" || evs[0].Nick != "alice" {
		t.Fatalf("unexpected rejection %+v", evs[0])
	}
	if s.Nick() != "alice" || s.Identity() != "alice" {
		t.Fatalf("identity changed: nick=%q identity=%q", s.Nick(), s.Identity())
	}
	if got := s.Joined(); !reflect.DeepEqual(got, []string{"#x", "#y"}) {
		t.Fatalf("joined changed: %v", got)
	}
}

func TestRePassForOtherAccountKeepsIdentityBinding(t *testing.T) {
	svc := newAccountService()
	svc.AddAccount("pw2", "token-pw2", remote.Identities{"carol": {"w"}})
	s := newTestSession(t, svc)
	login(t, s, "alice")
	settle(t, s)

	s.Enqueue(cmd("PASS", "pw2"))
	evs := settle(t, s)
	if got := kinds(evs); !reflect.DeepEqual(got, []EventKind{EventError}) {
		t.Fatalf("got %v", got)
	}
	if evs[0].Error.Code != ErrCodeErroneousNickname {
		t.Fatalf("expected erroneous nickname, got %+v", evs[0].Error)
	}
	if s.Identity() != "alice" {
		t.Fatalf("identity changed to %q", s.Identity())
	}

	s.Enqueue(cmd("PRIVMSG", "bob", "still me"))
	settle(t, s)
	sent := svc.Sent()
	if len(sent) != 1 || sent[0].Token != "token-pw" || sent[0].From != "alice" {
		t.Fatalf("send used a credential that does not own alice: %+v", sent)
	}
}

func TestRePassOwningActiveIdentityIsAdopted(t *testing.T) {
	svc := newAccountService()
	svc.AddAccount("pw3", "token-pw3", remote.Identities{"alice": {"x", "y"}})
	s := newTestSession(t, svc)
	login(t, s, "alice")
	settle(t, s)

	s.Enqueue(cmd("PASS", "pw3"))
	if evs := settle(t, s); len(ofKind(evs, EventError)) != 0 {
		t.Fatalf("unexpected rejection: %v", kinds(evs))
	}
	s.Enqueue(cmd("PRIVMSG", "bob", "hi"))
	settle(t, s)
	if sent := svc.Sent(); len(sent) != 1 || sent[0].Token != "token-pw3" {
		t.Fatalf("new credential not adopted: %+v", sent)
	}
}

func TestFirstUserWins(t *testing.T) {
	svc := newAccountService()
	s := newTestSession(t, svc)

	s.Enqueue(cmd("USER", "first"))
	s.Enqueue(cmd("USER", "second"))
	s.Enqueue(cmd("PASS", "pw"))
	s.Enqueue(cmd("NICK", "alice"))

	ev := mustEvent(t, s.Events, EventWelcome)
	if ev.User != "first" {
		t.Fatalf("expected first ident to win, got %q", ev.User)
	}
}

func TestActivationResetsCursor(t *testing.T) {
	svc := newAccountService()
	s := newTestSession(t, svc)
	login(t, s, "alice")
	settle(t, s)

	s.mu.Lock()
	c := s.poller.Cursor()
	s.mu.Unlock()
	want := toSeconds(testEpoch.Add(-DefaultOptions().LookbackWindow))
	if c.Timestamp != want || c.Pivot != "" {
		t.Fatalf("unexpected cursor %+v, want timestamp %v", c, want)
	}
}
