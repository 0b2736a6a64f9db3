// Package irc serves the line protocol over TCP and bridges each connection
// to a core.Session.
package irc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/hmirc/internal/core"
	"github.com/vovakirdan/hmirc/internal/proto"
	"github.com/vovakirdan/hmirc/internal/utils"
)

// errClosedLocally ends a connection after the closing notice was written.
var errClosedLocally = errors.New("session closed locally")

// Server accepts connections and runs one session per connection.
type Server struct {
	addr    string
	maxLine int
	svc     core.ChatService
	opts    core.Options
	render  *Renderer
	log     *zerolog.Logger

	wg sync.WaitGroup
}

// Settings configures a Server.
type Settings struct {
	Addr          string
	MaxLineLength int
	Session       core.Options
	Renderer      Renderer
}

// NewServer builds a server that hands sessions to svc.
func NewServer(settings Settings, svc core.ChatService, logger *zerolog.Logger) *Server {
	if settings.MaxLineLength <= 0 {
		settings.MaxLineLength = 8192
	}
	render := settings.Renderer
	return &Server{
		addr:    settings.Addr,
		maxLine: settings.MaxLineLength,
		svc:     svc,
		opts:    settings.Session,
		render:  &render,
		log:     logger,
	}
}

// ListenAndServe listens on the configured address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.log.Info().Str("addr", ln.Addr().String()).Msg("irc listener started")
	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is done, then waits for open sessions to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ServeConn(ctx, NewTCPConn(c, s.maxLine))
		}()
	}
}

// ServeConn runs a session over conn until either side closes or ctx ends.
// On ctx end a closing notice is sent before the connection is dropped.
func (s *Server) ServeConn(ctx context.Context, conn LineConn) {
	id := utils.NewID()
	logger := s.log.With().Str("remote_addr", conn.RemoteAddr()).Logger()

	sess := core.NewSession(ctx, id, s.svc, s.opts, &logger)
	sess.Start()
	defer sess.Close()

	logger.Info().Str("session_id", id).Msg("session opened")

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.readLoop(loopCtx, conn, sess)
	}()
	go func() {
		errCh <- s.writeLoop(loopCtx, ctx, conn, sess)
	}()

	err := <-errCh
	cancel()
	sess.Close()
	_ = conn.Close()
	<-errCh

	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, errClosedLocally), errors.Is(err, context.Canceled):
		logger.Info().Str("session_id", id).Msg("session ended")
	default:
		logger.Warn().Err(err).Str("session_id", id).Msg("session ended with transport error")
	}
}

func (s *Server) readLoop(ctx context.Context, conn LineConn, sess *core.Session) error {
	for {
		line, err := conn.ReadLine(ctx)
		if err != nil {
			return err
		}
		msg, err := proto.Parse(line)
		if err != nil {
			if !errors.Is(err, proto.ErrEmptyLine) {
				s.log.Debug().Err(err).Str("session_id", sess.ID).Str("line", line).Msg("unparseable line")
			}
			continue
		}
		sess.Enqueue(core.CommandFromMessage(msg))
	}
}

// writeLoop renders session events. parent is the server context: when it
// ends the client gets a closing notice.
func (s *Server) writeLoop(ctx, parent context.Context, conn LineConn, sess *core.Session) error {
	for {
		select {
		case ev := <-sess.Events:
			if err := s.write(ctx, conn, ev); err != nil {
				return err
			}
			if ev.Kind == core.EventClosing {
				return errClosedLocally
			}
		case <-ctx.Done():
			if parent.Err() != nil {
				_ = s.write(context.Background(), conn, &core.Event{Kind: core.EventClosing, Text: "Closing link"})
			}
			return ctx.Err()
		}
	}
}

func (s *Server) write(ctx context.Context, conn LineConn, ev *core.Event) error {
	for _, m := range s.render.Render(ev) {
		if err := conn.WriteLine(ctx, m.String()); err != nil {
			return fmt.Errorf("write %s: %w", m.Command, err)
		}
	}
	return nil
}
