package app

import (
	"context"
	"errors"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/hmirc/internal/config"
	"github.com/vovakirdan/hmirc/internal/core"
	"github.com/vovakirdan/hmirc/internal/remote"
	transporthttp "github.com/vovakirdan/hmirc/internal/transport/http"
	"github.com/vovakirdan/hmirc/internal/transport/irc"
)

// Version is reported in the greeting.
var Version = "hmirc-dev"

// App wires the remote client, the line-protocol listener and the HTTP side server.
type App struct {
	irc             *irc.Server
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Remote calls carry no timeout; a hung call stalls only its own session.
	client := remote.NewClient(cfg.APIBaseURL, nil, logger)

	lines := irc.NewServer(irc.Settings{
		Addr:          cfg.ListenAddr,
		MaxLineLength: cfg.MaxLineLength,
		Session:       sessionOptions(cfg),
		Renderer: irc.Renderer{
			ServerName: cfg.ServerName,
			UserHost:   cfg.UserHost,
			Version:    Version,
			Created:    time.Now().UTC(),
		},
	}, client, logger)

	var server *stdhttp.Server
	if cfg.HTTPAddr != "" {
		server = transporthttp.NewServer(cfg, lines, logger)
	}

	logger.Info().
		Str("api", cfg.APIBaseURL).
		Dur("poll_interval", cfg.PollInterval).
		Msg("gateway configured")

	return &App{
		irc:             lines,
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}, nil
}

func sessionOptions(cfg config.Config) core.Options {
	opts := core.DefaultOptions()
	opts.PollInterval = cfg.PollInterval
	opts.LookbackWindow = cfg.LookbackWindow
	opts.SelfSentTTL = cfg.SelfSentTTL
	opts.SendRate = cfg.SendRate
	opts.SendBurst = cfg.SendBurst
	return opts
}

// Run starts both listeners and blocks until context cancellation or a fatal error.
// Open sessions get a closing notice on shutdown.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ircErr := make(chan error, 1)
	go func() {
		ircErr <- a.irc.ListenAndServe(ctx)
	}()

	serverErr := make(chan error, 1)
	if a.server != nil {
		a.server.BaseContext = func(net.Listener) context.Context { return ctx }
		go func() {
			a.log.Info().Str("addr", a.server.Addr).Msg("http listener started")
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				serverErr <- err
				return
			}
			serverErr <- nil
		}()
	}

	var runErr error
	select {
	case runErr = <-ircErr:
		ircErr = nil
	case runErr = <-serverErr:
	case <-ctx.Done():
	}
	cancel()

	if a.server != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer stop()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil && runErr == nil {
			runErr = err
		}
	}

	if ircErr != nil {
		select {
		case err := <-ircErr:
			if runErr == nil {
				runErr = err
			}
		case <-time.After(a.shutdownTimeout):
			a.log.Warn().Msg("sessions did not drain before shutdown timeout")
		}
	}
	return runErr
}
