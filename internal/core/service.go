package core

import (
	"context"

	"github.com/vovakirdan/hmirc/internal/remote"
)

// ChatService is the remote chat API as seen by a session.
// remote.Client implements it.
type ChatService interface {
	// ExchangeCredential trades a short pass for a token.
	ExchangeCredential(ctx context.Context, pass string) (string, error)
	// ListOwnedIdentities returns the identities a token may act as.
	ListOwnedIdentities(ctx context.Context, token string) (remote.Identities, error)
	// FetchMessages returns messages for identities newer than after.
	FetchMessages(ctx context.Context, token string, identities []string, after float64) ([]remote.Message, error)
	// SendMessage posts text as identity from to dest.
	SendMessage(ctx context.Context, token, from string, dest remote.Destination, text string) error
}
