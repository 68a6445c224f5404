// package server contains the router, middleware & handlers exposing the localmusic backend over HTTP
package server

import (
	"net/http"
)

// Middleware decorates every routed handler, e.g. [Logging] and [Recover].
type Middleware func(http.Handler) http.Handler

// Handler serves a fixed set of paths, such as [CommandHandler] for commands and uploads.
type Handler interface {
	http.Handler
	Routes() []string
}

// Router registers backend handlers behind a shared middleware stack.
type Router interface {
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

var _ Router = (*BasicRouter)(nil)
