package core

import (
	"context"
	"fmt"

	"github.com/vovakirdan/hmirc/internal/metrics"
	"github.com/vovakirdan/hmirc/internal/remote"
)

// tokenMinLength is the length above which a credential is used as a token
// without exchanging it.
const tokenMinLength = 6

// LoginState is the session's position in the login state machine.
type LoginState int

const (
	// StateUnauthenticated means no credential has been accepted yet.
	StateUnauthenticated LoginState = iota
	// StateAuthenticated means a credential was accepted and owned identities are known.
	StateAuthenticated
	// StateIdentified means a remote identity is active.
	StateIdentified
)

func (s LoginState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateIdentified:
		return "identified"
	default:
		return "unauthenticated"
	}
}

// State returns the current login state.
func (s *Session) State() LoginState {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.identity != "":
		return StateIdentified
	case s.authenticated:
		return StateAuthenticated
	default:
		return StateUnauthenticated
	}
}

// handlePass authenticates with a credential. Failure emits a rejection and
// leaves the login state as it was.
func (s *Session) handlePass(ctx context.Context, cmd Command) error {
	pass := cmd.Arg(0)
	if pass == "" {
		s.rejectPassword()
		return nil
	}

	token, owned, err := s.authenticate(ctx, pass)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.rejectPassword()
		return fmt.Errorf("authenticate: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prevToken, prevOwned := s.token, s.owned
	s.token = token
	s.owned = owned
	s.authenticated = true
	s.log.Debug().Int("identities", len(owned)).Msg("credential accepted")
	if !s.tryActivateLocked() && s.identity != "" {
		// The active identity stays bound to the credential that owns it.
		s.token, s.owned = prevToken, prevOwned
	}
	return nil
}

// authenticate resolves pass into a token and the identities it owns.
// Runs without the session lock.
func (s *Session) authenticate(ctx context.Context, pass string) (string, remote.Identities, error) {
	token := pass
	if len(pass) <= tokenMinLength {
		var err error
		token, err = s.svc.ExchangeCredential(ctx, pass)
		if err != nil {
			metrics.RemoteError(metrics.OpExchange)
			return "", nil, err
		}
	}
	owned, err := s.svc.ListOwnedIdentities(ctx, token)
	if err != nil {
		metrics.RemoteError(metrics.OpIdentities)
		return "", nil, err
	}
	return token, owned, nil
}

func (s *Session) rejectPassword() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(&Event{Kind: EventError, Error: coreError(ErrCodePasswordIncorrect, "Password incorrect")})
}

func (s *Session) handleNick(_ context.Context, cmd Command) error {
	nick := cmd.Arg(0)
	s.mu.Lock()
	defer s.mu.Unlock()
	if nick == "" {
		s.emitLocked(&Event{Kind: EventError, Error: &CoreError{Code: ErrCodeNeedMoreParams, Message: "Not enough parameters", Subject: cmd.Verb}})
		return nil
	}
	s.nick = nick
	s.tryActivateLocked()
	return nil
}

// handleUser sets the local identifier. The first value wins for the life of
// the session; later USER commands are ignored.
func (s *Session) handleUser(_ context.Context, cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ident != "" {
		return nil
	}
	ident := cmd.Arg(0)
	if ident == "" {
		s.emitLocked(&Event{Kind: EventError, Error: &CoreError{Code: ErrCodeNeedMoreParams, Message: "Not enough parameters", Subject: cmd.Verb}})
		return nil
	}
	s.ident = ident
	s.tryActivateLocked()
	return nil
}

// tryActivateLocked activates the identity named by the display name once a
// credential, display name and local identifier are all present. It reports
// whether an identity was activated.
func (s *Session) tryActivateLocked() bool {
	if !s.authenticated || s.nick == "" || s.ident == "" {
		return false
	}

	channels, ok := s.owned[s.nick]
	if !ok {
		attempted := s.nick
		s.nick = s.lastValidNick
		s.log.Info().Str("nick", attempted).Err(ErrNotOwned).Msg("activation rejected")
		s.emitLocked(&Event{Kind: EventError, Error: &CoreError{Code: ErrCodeErroneousNickname, Message: "Erroneous Nickname", Subject: attempted}})
		return false
	}

	s.generation++
	s.poller.Reset(s.now(), s.opts.LookbackWindow)
	s.selfSent.Reset()
	s.identity = s.nick
	s.identityChannels = append([]string(nil), channels...)

	previous := s.lastValidNick
	swapped := s.nick != previous
	s.lastValidNick = s.nick

	if !s.greeted {
		s.greeted = true
		s.emitLocked(&Event{Kind: EventWelcome})
		s.emitLocked(&Event{Kind: EventToken, Text: s.token})
	}

	if swapped {
		s.log.Info().Str("identity", s.identity).Str("previous", previous).Msg("identity activated")
		if previous != "" {
			s.emitLocked(&Event{Kind: EventNickChange, From: previous})
		}
		s.applySwapLocked(s.identityChannels)
	}
	return true
}
