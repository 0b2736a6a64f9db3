package http

import (
	"context"
	"io"
	stdhttp "net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/hmirc/internal/transport/irc"
)

// WSHandler upgrades HTTP connections and hands them to the protocol server.
// Each text frame carries one or more lines.
type WSHandler struct {
	conns   ConnServer
	maxLine int
	log     *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(conns ConnServer, maxLine int, logger *zerolog.Logger) stdhttp.Handler {
	if maxLine <= 0 {
		maxLine = 8192
	}
	return &WSHandler{conns: conns, maxLine: maxLine, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	conn.SetReadLimit(int64(h.maxLine))

	h.conns.ServeConn(r.Context(), newWSConn(conn, r.RemoteAddr))
}

// wsConn adapts a websocket to irc.LineConn.
type wsConn struct {
	conn    *websocket.Conn
	remote  string
	pending []string
}

var _ irc.LineConn = (*wsConn)(nil)

func newWSConn(conn *websocket.Conn, remote string) *wsConn {
	return &wsConn{conn: conn, remote: remote}
}

// ReadLine is called from a single goroutine.
func (c *wsConn) ReadLine(ctx context.Context) (string, error) {
	for len(c.pending) == 0 {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return "", io.EOF
			}
			return "", err
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSuffix(line, "\r")
			if line != "" {
				c.pending = append(c.pending, line)
			}
		}
	}
	line := c.pending[0]
	c.pending = c.pending[1:]
	return line, nil
}

func (c *wsConn) WriteLine(ctx context.Context, line string) error {
	return c.conn.Write(ctx, websocket.MessageText, []byte(line))
}

func (c *wsConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "closing")
}

func (c *wsConn) RemoteAddr() string {
	return c.remote
}
