package api

import (
	"net"
	"net/http"
	"time"

	"github.com/angelmondragon/distribridge/pkg/config"
)

// NewServer wraps the router in an http.Server listening on the configured port.
// The write timeout leaves room for synchronous job triggers.
func NewServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort("", cfg.App.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      15 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
}
