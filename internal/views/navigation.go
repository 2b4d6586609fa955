// Package views holds routing and the text renderers for the terminal client.
package views

import (
	"context"
	"sync"
)

// Route names a screen.
type Route string

const (
	RouteLogin    Route = "login"
	RouteRegister Route = "register"
	RouteFeed     Route = "feed"
	RouteProfile  Route = "profile"
)

// Navigator switches the visible screen. Controllers call it instead of
// rendering anything themselves.
type Navigator interface {
	Navigate(ctx context.Context, to Route)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, to Route)

// Navigate calls f.
func (f NavigatorFunc) Navigate(ctx context.Context, to Route) { f(ctx, to) }

// History is a Navigator that records every navigation.
type History struct {
	mu     sync.Mutex
	routes []Route
}

// Navigate appends to to the history.
func (h *History) Navigate(_ context.Context, to Route) {
	h.mu.Lock()
	h.routes = append(h.routes, to)
	h.mu.Unlock()
}

// Routes returns the navigations so far, oldest first.
func (h *History) Routes() []Route {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Route(nil), h.routes...)
}

// Current returns the latest route, or "" before any navigation.
func (h *History) Current() Route {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.routes) == 0 {
		return ""
	}
	return h.routes[len(h.routes)-1]
}
