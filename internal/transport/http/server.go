// Package http exposes the relay over HTTP: a health probe and the
// websocket endpoint clients speak the command protocol on.
package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/LeanderJDev/Shello/internal/config"
	"github.com/LeanderJDev/Shello/internal/core"
)

// NewServer builds the HTTP server hosting /health and /ws.
func NewServer(dispatcher *core.Dispatcher, lifecycle *core.Lifecycle, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(RequestLogger(logger), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})
	router.GET("/ws", gin.WrapH(NewWSHandler(dispatcher, lifecycle, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
