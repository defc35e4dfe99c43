package httpapi

import (
	"net/http"

	"github.com/SeitzDaniel/auckland-transport/internal/config"
)

func NewServer(cfg config.Config, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: requestLogger(mux),
	}
}
