// Package http exposes the gateway's side HTTP surface: health, Prometheus
// metrics and a websocket bridge into the line protocol.
package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/hmirc/internal/config"
	"github.com/vovakirdan/hmirc/internal/transport/irc"
)

// ConnServer runs a protocol session over an established line connection.
type ConnServer interface {
	ServeConn(ctx context.Context, conn irc.LineConn)
}

// NewServer builds the HTTP server. BaseContext is left to the caller.
func NewServer(cfg config.Config, conns ConnServer, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(conns, cfg.MaxLineLength, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// NewRouter registers the routes on a fresh gin engine.
func NewRouter(conns ConnServer, maxLine int, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), LoggerMiddleware(logger))

	r.GET("/health", healthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/irc", gin.WrapH(NewWSHandler(conns, maxLine, logger)))

	return r
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
