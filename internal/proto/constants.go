package proto

import "github.com/Travis-Britz/irc"

// Commands understood or emitted by the gateway.
const (
	CmdPass    = irc.CmdPass
	CmdNick    = irc.CmdNick
	CmdUser    = irc.CmdUser
	CmdPing    = irc.CmdPing
	CmdPong    = irc.CmdPong
	CmdPrivmsg = irc.CmdPrivmsg
	CmdNotice  = irc.CmdNotice
	CmdJoin    = irc.CmdJoin
	CmdPart    = irc.CmdPart
	CmdKick    = irc.CmdKick
	CmdNames   = irc.CmdNames
	CmdMode    = irc.CmdMode
	CmdQuit    = irc.CmdQuit
	CmdError   = irc.CmdError
)

// Numeric replies.
const (
	RplWelcome        = irc.RplWelcome
	RplYourHost       = irc.RplYourHost
	RplCreated        = irc.RplCreated
	RplMyInfo         = irc.RplMyInfo
	RplNamReply       = irc.RplNamReply
	RplEndOfNames     = irc.RplEndOfNames
	ErrErroneusNick   = irc.RplErrErroneousNickname
	ErrPasswdMismatch = irc.RplErrPasswdMismatch
	ErrBadChannelKey  = irc.RplErrBadChannelKey
	ErrNeedMoreParams = irc.RplErrNeedMoreParams
)

// CTCP framing byte.
const CTCPDelim = '\x01'

// ChannelMarker prefixes channel names on the wire.
const ChannelMarker = '#'

// IsChannel reports whether target names a channel.
func IsChannel(target string) bool {
	return target != "" && target[0] == ChannelMarker
}

// NormalizeChannel prepends the channel marker when missing.
func NormalizeChannel(name string) string {
	if IsChannel(name) {
		return name
	}
	return string(ChannelMarker) + name
}
