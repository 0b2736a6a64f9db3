// Package remotetest provides an in-memory remote chat service for tests.
package remotetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/vovakirdan/hmirc/internal/remote"
)

// Sent records one SendMessage call.
type Sent struct {
	Token string
	From  string
	Dest  remote.Destination
	Text  string
}

// Service is a scriptable stand-in for remote.Client.
type Service struct {
	mu sync.Mutex

	passwords  map[string]string
	identities map[string]remote.Identities
	messages   []remote.Message
	batches    [][]remote.Message

	sent       []Sent
	fetchAfter []float64
	exchanges  int

	// ExchangeGate, when set, blocks ExchangeCredential until a value is
	// received or the context ends.
	ExchangeGate chan struct{}
	// SendErr, when set, is returned (wrapped) by SendMessage.
	SendErr error
	// FetchErr, when set, is returned by FetchMessages.
	FetchErr error
}

// New returns an empty service.
func New() *Service {
	return &Service{
		passwords:  make(map[string]string),
		identities: make(map[string]remote.Identities),
	}
}

// AddAccount registers a pass, the token it exchanges to, and the identities
// the token owns. The token itself is also accepted as a credential.
func (s *Service) AddAccount(pass, token string, ids remote.Identities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pass != "" {
		s.passwords[pass] = token
	}
	s.identities[token] = ids
}

// Push appends messages to the backlog served by FetchMessages.
func (s *Service) Push(msgs ...remote.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msgs...)
}

// Script queues batches returned verbatim by successive FetchMessages calls,
// ignoring the after bound. Once exhausted the backlog is served again.
func (s *Service) Script(batches ...[]remote.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, batches...)
}

// Sent returns a copy of all recorded sends.
func (s *Service) Sent() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sent(nil), s.sent...)
}

// FetchAfter returns the after bound of each FetchMessages call.
func (s *Service) FetchAfter() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.fetchAfter...)
}

// Exchanges returns how many credential exchanges were attempted.
func (s *Service) Exchanges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchanges
}

// ExchangeCredential implements the remote service.
func (s *Service) ExchangeCredential(ctx context.Context, pass string) (string, error) {
	s.mu.Lock()
	s.exchanges++
	gate := s.ExchangeGate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.passwords[pass]
	if !ok {
		return "", &remote.AuthError{Op: "get_token", Err: remote.ErrRejected}
	}
	return token, nil
}

// ListOwnedIdentities implements the remote service.
func (s *Service) ListOwnedIdentities(_ context.Context, token string) (remote.Identities, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, ok := s.identities[token]
	if !ok {
		return nil, &remote.AuthError{Op: "account_data", Err: remote.ErrRejected}
	}
	out := make(remote.Identities, len(ids))
	for name, chans := range ids {
		out[name] = append(remote.ChannelList(nil), chans...)
	}
	return out, nil
}

// FetchMessages implements the remote service.
func (s *Service) FetchMessages(_ context.Context, token string, identities []string, after float64) ([]remote.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchAfter = append(s.fetchAfter, after)
	if s.FetchErr != nil {
		return nil, s.FetchErr
	}
	if _, ok := s.identities[token]; !ok {
		return nil, fmt.Errorf("unknown token %q", token)
	}
	if len(s.batches) > 0 {
		b := s.batches[0]
		s.batches = s.batches[1:]
		return append([]remote.Message(nil), b...), nil
	}

	want := make(map[string]struct{}, len(identities))
	for _, id := range identities {
		want[id] = struct{}{}
	}
	var out []remote.Message
	for _, m := range s.messages {
		if m.T != nil && *m.T <= after {
			continue
		}
		_, toMe := want[m.To]
		_, fromMe := want[m.From]
		if m.Channel != "" || toMe || fromMe {
			out = append(out, m)
		}
	}
	return out, nil
}

// SendMessage implements the remote service.
func (s *Service) SendMessage(_ context.Context, token, from string, dest remote.Destination, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendErr != nil {
		return &remote.DeliveryError{Dest: dest, Err: s.SendErr}
	}
	s.sent = append(s.sent, Sent{Token: token, From: from, Dest: dest, Text: text})
	return nil
}

// Msg builds a valid message at t seconds.
func Msg(id string, t float64, from, to, channel, text string) remote.Message {
	return remote.Message{ID: id, T: &t, From: from, To: to, Channel: channel, Text: text}
}
