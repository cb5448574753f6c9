// package server hosts the throwaway local HTTP server backing the OAuth2
// authorization-code flow of the auth bootstrap command.
package server

import (
	"net/http"
)

// Handler defines the interface for HTTP request handlers registered with a [BasicRouter].
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// BasicRouter is a small router built on [http.ServeMux].
type BasicRouter struct {
	mux *http.ServeMux
}

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Handler registers a [Handler] under every route it serves.
func (r *BasicRouter) Handler(handler Handler) {
	for _, route := range handler.Routes() {
		r.mux.Handle(route, handler)
	}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
