// Package remote talks to the polling-only chat API the gateway fronts.
package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Message is a chat line as returned by the remote service. It is never
// mutated after decoding.
type Message struct {
	ID      string   `json:"id"`
	T       *float64 `json:"t"`
	From    string   `json:"from_user"`
	To      string   `json:"to_user,omitempty"`
	Channel string   `json:"channel,omitempty"`
	Text    string   `json:"msg"`
}

// Valid reports whether the message carries both an id and a timestamp.
func (m Message) Valid() bool {
	return m.ID != "" && m.T != nil
}

// Timestamp returns the message time in seconds, or 0 when absent.
func (m Message) Timestamp() float64 {
	if m.T == nil {
		return 0
	}
	return *m.T
}

// Destination addresses an outbound message to exactly one of a user or a channel.
type Destination struct {
	User    string
	Channel string
}

// ToUser addresses a direct message.
func ToUser(name string) Destination { return Destination{User: name} }

// ToChannel addresses a channel by its bare name.
func ToChannel(name string) Destination { return Destination{Channel: name} }

// Identities maps each owned identity to the channels it belongs to, in the
// order the service returned them.
type Identities map[string]ChannelList

// ChannelList is an ordered list of bare channel names.
//
// The service returns either a JSON array of names or an object keyed by
// channel name; both decode to the key order found in the payload.
type ChannelList []string

// UnmarshalJSON implements json.Unmarshaler.
func (c *ChannelList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = nil
		return nil
	}
	if data[0] == '[' {
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return fmt.Errorf("decode channel array: %w", err)
		}
		*c = names
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode channel object: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("decode channel object: unexpected token %v", tok)
	}
	names := ChannelList{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode channel key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("decode channel key: unexpected token %v", tok)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return fmt.Errorf("decode channel %q: %w", key, err)
		}
		names = append(names, key)
	}
	*c = names
	return nil
}

// ErrRejected is the cause of a request the service answered with ok=false.
var ErrRejected = errors.New("request rejected by remote service")

// AuthError reports a failed credential exchange or identity lookup.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return "auth " + e.Op + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// DeliveryError reports an outbound message the service refused.
type DeliveryError struct {
	Dest Destination
	Err  error
}

func (e *DeliveryError) Error() string {
	target := e.Dest.User
	if e.Dest.Channel != "" {
		target = "#" + e.Dest.Channel
	}
	return "deliver to " + target + ": " + e.Err.Error()
}

func (e *DeliveryError) Unwrap() error { return e.Err }
