package main

import (
	"net/http"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", app.handleHealth)
	mux.Handle("/metrics", app.Metrics.Handler())
	mux.HandleFunc("/ws", app.authenticate(app.handleWebSocket))

	return mux
}
