package core

import "github.com/vovakirdan/hmirc/internal/proto"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandUnknown is any verb the gateway does not handle; it is logged and ignored.
	CommandUnknown CommandKind = iota
	// CommandPass sets the credential.
	CommandPass
	// CommandNick sets the display name, which selects the remote identity.
	CommandNick
	// CommandUser sets the local identifier. Only the first one counts.
	CommandUser
	// CommandPing asks for a keepalive reply.
	CommandPing
	// CommandPrivmsg sends a message to a user or channel.
	CommandPrivmsg
	// CommandJoin requests channel membership.
	CommandJoin
	// CommandPart requests leaving a channel.
	CommandPart
	// CommandNames requests a channel membership list.
	CommandNames
	// CommandMode is accepted and ignored.
	CommandMode
	// CommandQuit closes the session.
	CommandQuit
)

var commandNames = map[CommandKind]string{
	CommandUnknown: "unknown",
	CommandPass:    "pass",
	CommandNick:    "nick",
	CommandUser:    "user",
	CommandPing:    "ping",
	CommandPrivmsg: "privmsg",
	CommandJoin:    "join",
	CommandPart:    "part",
	CommandNames:   "names",
	CommandMode:    "mode",
	CommandQuit:    "quit",
}

var commandVerbs = map[string]CommandKind{
	proto.CmdPass:    CommandPass,
	proto.CmdNick:    CommandNick,
	proto.CmdUser:    CommandUser,
	proto.CmdPing:    CommandPing,
	proto.CmdPrivmsg: CommandPrivmsg,
	proto.CmdJoin:    CommandJoin,
	proto.CmdPart:    CommandPart,
	proto.CmdNames:   CommandNames,
	proto.CmdMode:    CommandMode,
	proto.CmdQuit:    CommandQuit,
}

func (k CommandKind) String() string {
	if s, ok := commandNames[k]; ok {
		return s
	}
	return "unknown"
}

// Command represents an action requested by a client.
type Command struct {
	Kind   CommandKind
	Verb   string
	Params []string
}

// CommandFromMessage maps a parsed protocol line to a command.
func CommandFromMessage(m *proto.Message) Command {
	return Command{
		Kind:   commandVerbs[m.Command],
		Verb:   m.Command,
		Params: m.Params,
	}
}

// Arg returns the i-th parameter (from 0) or "".
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Params) {
		return ""
	}
	return c.Params[i]
}
