package irc

import (
	"time"

	"github.com/vovakirdan/hmirc/internal/core"
	"github.com/vovakirdan/hmirc/internal/proto"
)

const systemNick = "*system"

// Renderer turns core events into protocol lines.
type Renderer struct {
	ServerName string
	UserHost   string
	Version    string
	Created    time.Time
}

func (r *Renderer) server() proto.Prefix {
	return proto.ServerPrefix(r.ServerName)
}

func (r *Renderer) user(nick, user string) proto.Prefix {
	return proto.UserPrefix(nick, user, r.UserHost)
}

func (r *Renderer) numeric(code string, ev *core.Event, params ...string) *proto.Message {
	return proto.NewMessage(r.server(), code, append([]string{nickOrStar(ev.Nick)}, params...)...)
}

// Render maps one event to the lines the client should see. Unknown kinds render nothing.
func (r *Renderer) Render(ev *core.Event) []*proto.Message {
	switch ev.Kind {
	case core.EventWelcome:
		return []*proto.Message{
			r.numeric(proto.RplWelcome, ev, "Welcome to the hmirc chat gateway"),
			r.numeric(proto.RplYourHost, ev, "Your host is "+r.ServerName+", running version "+r.Version),
			r.numeric(proto.RplCreated, ev, "This server was created "+r.Created.Format(time.RFC1123)),
			r.numeric(proto.RplMyInfo, ev, r.ServerName, r.Version, "inkvo", "inkvo", "inkvo"),
		}
	case core.EventToken:
		return []*proto.Message{
			proto.NewMessage(proto.Prefix{Nick: systemNick}, proto.CmdNotice, ev.Nick,
				"Your persistent token (you can also use this as server password) is "+ev.Text),
		}
	case core.EventNickChange:
		return []*proto.Message{proto.NewMessage(r.user(ev.From, ev.User), proto.CmdNick, ev.Nick)}
	case core.EventJoined:
		return []*proto.Message{proto.NewMessage(r.user(ev.Nick, ev.User), proto.CmdJoin, ev.Channel)}
	case core.EventNames:
		return []*proto.Message{
			r.numeric(proto.RplNamReply, ev, "@", ev.Channel, ev.Nick),
			r.numeric(proto.RplEndOfNames, ev, ev.Channel, "End of /NAMES list"),
		}
	case core.EventLeft:
		return []*proto.Message{
			proto.NewMessage(r.user(systemNick, "system"), proto.CmdKick, ev.Channel, ev.Nick, "You are not in this channel anymore"),
		}
	case core.EventMessage:
		return []*proto.Message{proto.NewMessage(r.user(ev.From, ev.From), proto.CmdPrivmsg, ev.Target, ev.Text)}
	case core.EventSelfMessage:
		action := string(proto.CTCPDelim) + "ACTION [SELF] " + ev.Text + string(proto.CTCPDelim)
		return []*proto.Message{proto.NewMessage(r.user(ev.From, ev.From), proto.CmdPrivmsg, ev.Nick, action)}
	case core.EventPong:
		token := ev.Text
		if token == "" {
			token = r.ServerName
		}
		return []*proto.Message{proto.NewMessage(r.server(), proto.CmdPong, token)}
	case core.EventError:
		return r.renderError(ev)
	case core.EventClosing:
		return []*proto.Message{proto.NewMessage(proto.Prefix{}, proto.CmdError, ev.Text)}
	default:
		return nil
	}
}

func (r *Renderer) renderError(ev *core.Event) []*proto.Message {
	if ev.Error == nil {
		return nil
	}
	switch ev.Error.Code {
	case core.ErrCodePasswordIncorrect:
		return []*proto.Message{r.numeric(proto.ErrPasswdMismatch, ev, ev.Error.Message)}
	case core.ErrCodeErroneousNickname:
		return []*proto.Message{r.numeric(proto.ErrErroneusNick, ev, ev.Error.Message)}
	case core.ErrCodeCannotJoin:
		return []*proto.Message{r.numeric(proto.ErrBadChannelKey, ev, ev.Error.Subject, ev.Error.Message)}
	case core.ErrCodeNeedMoreParams:
		return []*proto.Message{r.numeric(proto.ErrNeedMoreParams, ev, ev.Error.Subject, ev.Error.Message)}
	default:
		return []*proto.Message{proto.NewMessage(r.server(), proto.CmdNotice, nickOrStar(ev.Nick), ev.Error.Message)}
	}
}

func nickOrStar(nick string) string {
	if nick == "" {
		return "*"
	}
	return nick
}
