package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/CleepDevice/cleepapp-localmusic/internal/services"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
	"github.com/charmbracelet/log"
)

// BasicRouter is the [Router] used by the backend server.
//
// It routes with an [http.ServeMux]. Unmatched paths and wrong methods are answered with the same
// JSON error envelope as failed commands, after passing through the middleware stack.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
	logger      *log.Logger
}

// NewBasicRouter creates an empty router. A nil logger gets the default one.
func NewBasicRouter(logger *log.Logger) *BasicRouter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &BasicRouter{
		mux:         http.NewServeMux(),
		middlewares: []Middleware{},
		logger:      logger,
	}
}

// Use appends middleware, applied in the order added. Only routes registered afterwards are wrapped.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler for method on path.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Handle(path, r.Apply(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !strings.EqualFold(req.Method, method) {
			w.Header().Set("Allow", strings.ToUpper(method))
			r.fail(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", req.Method))
			return
		}
		handler.ServeHTTP(w, req)
	})))
}

// Handler registers handler on every path of [Handler.Routes].
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.Apply(handler)
	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if _, pattern := r.mux.Handler(req); pattern == "" {
		r.notFound().ServeHTTP(w, req)
		return
	}
	r.mux.ServeHTTP(w, req)
}

// Apply wraps handler with the registered middleware, the first added being outermost.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}
	return wrapped
}

func (r *BasicRouter) notFound() http.Handler {
	return r.Apply(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.fail(w, http.StatusNotFound, fmt.Sprintf("%v: %s", shared.ErrUnknownCommand, req.URL.Path))
	}))
}

func (r *BasicRouter) fail(w http.ResponseWriter, status int, message string) {
	writeResponse(w, status, services.Response{Error: true, Message: message}, r.logger)
}
