package gate

import (
	"fmt"
	"net/http"

	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods Mount needs. Any
// router.Router[T] satisfies it.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// Route is one entry of a route table. Public replaces the per endpoint
// allow-anonymous marker: the gate is still mounted, it just admits
// without a token.
type Route struct {
	Method  string
	Path    string
	Name    string
	Public  bool
	Roles   []string
	Handler router.HandlerFunc
}

// Wrap returns the route handler with the gate, and the role check when
// Roles is set, in front of it.
func (g *Gate) Wrap(rt Route) router.HandlerFunc {
	h := rt.Handler
	if !rt.Public && len(rt.Roles) > 0 {
		h = g.RequireRole(rt.Roles...)(h)
	}
	return g.Handler(rt.Public)(h)
}

// Mount registers routes on r with the gate in front of each one. It
// panics on a method it cannot register.
func (g *Gate) Mount(r RouteRegistrar, routes ...Route) {
	for _, rt := range routes {
		h := g.Wrap(rt)

		var info router.RouteInfo
		switch rt.Method {
		case http.MethodGet:
			info = r.Get(rt.Path, h)
		case http.MethodPost:
			info = r.Post(rt.Path, h)
		case http.MethodDelete:
			info = r.Delete(rt.Path, h)
		default:
			panic(fmt.Sprintf("AUTH: gate mount: unsupported method %q for %s", rt.Method, rt.Path))
		}

		if rt.Name != "" {
			info.SetName(rt.Name)
		}
	}
}
