package webserver

import (
	"net/http"

	"github.com/dbwizard/dbwizard/internal/webapi"
)

// registerRoutes sets up API routes on the given mux.
func registerRoutes(mux *http.ServeMux, cfg Config, asker webapi.Asker, pinger webapi.Pinger) {
	var store webapi.SessionStore
	if cfg.LogDir != "" {
		store = webapi.NewFileStore(cfg.LogDir)
	}
	h := webapi.NewHandlers(asker, pinger, store, cfg.AskTimeout)
	webapi.RegisterRoutes(mux, h)
}
