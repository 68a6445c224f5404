// Package server exposes a localmusic backend over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Logging] and [Recover] are the middleware used by the serve command.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Command Handler
//
// [CommandHandler] answers JSON commands posted to /command and multipart uploads posted to /upload,
// forwarding each one to a services.Dispatcher (normally the local backend) and replying with the
// response envelope the RPC dispatcher decodes.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
