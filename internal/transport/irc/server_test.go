package irc

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/hmirc/internal/core"
	"github.com/vovakirdan/hmirc/internal/remote"
	"github.com/vovakirdan/hmirc/internal/remote/remotetest"
)

func startTestServer(t *testing.T, svc *remotetest.Service) (addr string, cancel context.CancelFunc, done <-chan error) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	opts := core.DefaultOptions()
	opts.PollInterval = 20 * time.Millisecond
	opts.SendRate = 0

	nop := zerolog.Nop()
	srv := NewServer(Settings{Session: opts, Renderer: *testRenderer()}, svc, &nop)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, ln) }()
	t.Cleanup(cancel)

	return ln.Addr().String(), cancel, errCh
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr string) *testClient {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return &testClient{t: t, conn: c, r: bufio.NewReader(c)}
}

func (c *testClient) send(lines ...string) {
	c.t.Helper()
	for _, l := range lines {
		if _, err := c.conn.Write([]byte(l + "\r\n")); err != nil {
			c.t.Fatalf("write %q: %v", l, err)
		}
	}
}

func (c *testClient) readLine() (string, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := c.r.ReadString('\n')
	return strings.TrimRight(line, "\r\n"), err
}

// expect reads until a line equal to want arrives.
func (c *testClient) expect(want string) {
	c.t.Helper()
	var seen []string
	for {
		line, err := c.readLine()
		if err != nil {
			c.t.Fatalf("waiting for %q: %v (saw %q)", want, err, seen)
		}
		if line == want {
			return
		}
		seen = append(seen, line)
	}
}

func newService() *remotetest.Service {
	svc := remotetest.New()
	svc.AddAccount("pw", "token-pw", remote.Identities{"alice": {"x"}})
	return svc
}

func TestServerLoginPollAndQuit(t *testing.T) {
	svc := newService()
	addr, _, _ := startTestServer(t, svc)
	c := dial(t, addr)

	c.send("NICK alice", "USER guest 0 * :Guest", "PASS pw")
	c.expect(":hmirc.test 001 alice :Welcome to the hmirc chat gateway")
	c.expect(":*system NOTICE alice :Your persistent token (you can also use this as server password) is token-pw")
	c.expect(":alice!guest@hackmud.trustnet JOIN #x")
	c.expect(":hmirc.test 366 alice #x :End of /NAMES list")

	c.send("PING keepalive")
	c.expect(":hmirc.test PONG keepalive")

	svc.Push(remotetest.Msg("m1", float64(time.Now().Unix()), "bob", "alice", "", "hello alice"))
	c.expect(":bob!bob@hackmud.trustnet PRIVMSG alice :hello alice")

	c.send("PRIVMSG #x :hi everyone")
	deadline := time.Now().Add(2 * time.Second)
	for len(svc.Sent()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sent := svc.Sent(); len(sent) != 1 || sent[0].Dest != remote.ToChannel("x") || sent[0].Text != "hi everyone" {
		t.Fatalf("unexpected sends %+v", sent)
	}

	c.send("QUIT :bye")
	c.expect("ERROR :Closing link")
	if _, err := c.readLine(); err == nil {
		t.Fatal("expected connection to close after QUIT")
	}
}

func TestServerRejectsBadPassword(t *testing.T) {
	addr, _, _ := startTestServer(t, newService())
	c := dial(t, addr)

	c.send("PASS nope")
	c.expect(":hmirc.test 464 * :Password incorrect")
}

func TestServerShutdownSendsClosingNotice(t *testing.T) {
	addr, cancel, done := startTestServer(t, newService())
	c := dial(t, addr)

	c.send("PING ready")
	c.expect(":hmirc.test PONG ready")

	cancel()
	c.expect("ERROR :Closing link")

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
