package irc

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"
)

// LineConn carries protocol lines without their terminators.
type LineConn interface {
	// ReadLine blocks until a full line arrives. It returns io.EOF on a clean close.
	ReadLine(ctx context.Context) (string, error)
	// WriteLine sends one line; the implementation adds framing.
	WriteLine(ctx context.Context, line string) error
	Close() error
	RemoteAddr() string
}

// tcpConn frames a byte stream into newline-terminated lines. A trailing
// partial line is delivered when the peer closes.
type tcpConn struct {
	conn    net.Conn
	scanner *bufio.Scanner

	wmu sync.Mutex
}

// NewTCPConn wraps c. Lines longer than maxLine bytes end the connection.
func NewTCPConn(c net.Conn, maxLine int) LineConn {
	sc := bufio.NewScanner(c)
	sc.Buffer(make([]byte, 0, 1024), maxLine)
	return &tcpConn{conn: c, scanner: sc}
}

func (c *tcpConn) ReadLine(_ context.Context) (string, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return c.scanner.Text(), nil
}

func (c *tcpConn) WriteLine(_ context.Context, line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := io.WriteString(c.conn, line+"\r\n")
	return err
}

func (c *tcpConn) Close() error {
	return c.conn.Close()
}

func (c *tcpConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
