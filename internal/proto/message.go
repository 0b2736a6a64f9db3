package proto

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/Travis-Britz/irc"
)

const (
	delimParam    = ' '
	startPrefix   = ':'
	startTrailing = ':'
)

var (
	// ErrEmptyLine is returned when a line carries no command.
	ErrEmptyLine = errors.New("empty line")
	// ErrMissingCommand is returned when marshaling a message without a verb.
	ErrMissingCommand = errors.New("missing command")
	// ErrMalformed is returned for lines the lexer rejects, such as a prefix
	// or tags with no verb after them.
	ErrMalformed = errors.New("malformed line")
)

// Prefix is the source of a line: a server name or nick!user@host.
type Prefix struct {
	Nick string
	User string
	Host string
}

// ServerPrefix returns a prefix naming a server.
func ServerPrefix(name string) Prefix {
	return Prefix{Host: name}
}

// UserPrefix returns a nick!user@host prefix.
func UserPrefix(nick, user, host string) Prefix {
	return Prefix{Nick: nick, User: user, Host: host}
}

// IsZero reports whether the prefix is empty.
func (p Prefix) IsZero() bool {
	return p == Prefix{}
}

// String implements fmt.Stringer.
func (p Prefix) String() string {
	switch {
	case p.IsZero():
		return ""
	case p.Nick == "":
		return p.Host
	case p.User == "" && p.Host == "":
		return p.Nick
	case p.User == "":
		return p.Nick + "@" + p.Host
	default:
		return p.Nick + "!" + p.User + "@" + p.Host
	}
}

// Message is one protocol line in either direction.
type Message struct {
	Source  Prefix
	Command string
	Params  []string
}

// NewMessage builds a message with the command upper-cased.
func NewMessage(source Prefix, cmd string, params ...string) *Message {
	return &Message{
		Source:  source,
		Command: strings.ToUpper(cmd),
		Params:  params,
	}
}

// Param returns the nth parameter (starting at 1) or "" when absent.
func (m *Message) Param(n int) string {
	if n < 1 || n > len(m.Params) {
		return ""
	}
	return m.Params[n-1]
}

// Parse decodes a single line without its line terminator. Lexing is done by
// the irc package; IRCv3 tags are accepted and discarded and the verb is
// upper-cased.
func Parse(line string) (*Message, error) {
	line = strings.TrimRight(line, "\r\n")
	line = strings.TrimLeft(line, " ")
	if line == "" {
		return nil, ErrEmptyLine
	}

	var raw irc.Message
	if err := raw.UnmarshalText([]byte(line)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if raw.Command == "" {
		return nil, ErrMalformed
	}

	params := []string(raw.Params)
	// The lexer reports a trailing space as an empty parameter; only an
	// explicit ":" means an empty last argument.
	if n := len(params); n > 0 && params[n-1] == "" && !strings.HasSuffix(line, string(startTrailing)) {
		params = params[:n-1]
	}
	if len(params) == 0 {
		params = nil
	}

	return &Message{
		Source: Prefix{
			Nick: string(raw.Source.Nick),
			User: raw.Source.User,
			Host: raw.Source.Host,
		},
		Command: strings.ToUpper(string(raw.Command)),
		Params:  params,
	}, nil
}

// MarshalText implements encoding.TextMarshaler. The returned line ends in CR-LF.
//
// The last parameter is written in trailing form when it contains a space,
// is empty, or starts with ':'.
func (m *Message) MarshalText() ([]byte, error) {
	if m.Command == "" {
		return nil, ErrMissingCommand
	}
	buf := bytes.NewBuffer(make([]byte, 0, 128))
	if !m.Source.IsZero() {
		buf.WriteByte(startPrefix)
		buf.WriteString(m.Source.String())
		buf.WriteByte(delimParam)
	}
	buf.WriteString(m.Command)
	for i, p := range m.Params {
		buf.WriteByte(delimParam)
		if i == len(m.Params)-1 && needsTrailing(p) {
			buf.WriteByte(startTrailing)
		}
		buf.WriteString(p)
	}
	buf.WriteString("\r\n")
	return buf.Bytes(), nil
}

// String returns the encoded line without CR-LF.
func (m *Message) String() string {
	b, err := m.MarshalText()
	if err != nil {
		return ""
	}
	return string(bytes.TrimRight(b, "\r\n"))
}

func needsTrailing(p string) bool {
	return p == "" || strings.ContainsRune(p, ' ') || p[0] == startTrailing
}
