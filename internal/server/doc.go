// Package server provides HTTP routing, middleware, and the OAuth callback used to link Spotify accounts.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers method patterns ("GET /callback") on an [http.ServeMux].
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens
// through an [Exchanger], and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Usage
//
// `betterblend auth login` starts a [CallbackServer] on the configured host and port, opens the
// authorization URL in the browser, waits for the result and shuts the server down.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
