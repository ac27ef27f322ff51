// Package router assembles the versioned API route tree.
package router

import (
	"path"

	"github.com/gin-gonic/gin"
)

const defaultAPIVersion = "v1"

// Route is one endpoint of a Group, Path relative to the group prefix
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// Group is a set of routes sharing a prefix and middleware
type Group struct {
	Name       string
	Prefix     string
	Middleware []gin.HandlerFunc
	Routes     []Route
}

// Router mounts groups under /api/{version}. Middleware given to Use
// applies to the API only, so /health stays public.
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	groups     []Group
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion replaces the "v1" path segment
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.apiVersion = version }
}

// NewRouter returns a router mounting on engine
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: defaultAPIVersion}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use appends API-wide middleware
func (r *Router) Use(middleware ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, middleware...)
	return r
}

// Register queues groups for Setup
func (r *Router) Register(groups ...Group) *Router {
	r.groups = append(r.groups, groups...)
	return r
}

// Setup mounts every registered group and returns the mounted endpoints as
// "METHOD /full/path".
func (r *Router) Setup() []string {
	api := r.engine.Group("/api/" + r.apiVersion)
	api.Use(r.middleware...)

	var mounted []string
	for _, g := range r.groups {
		rg := api.Group(g.Prefix)
		rg.Use(g.Middleware...)
		for _, route := range g.Routes {
			rg.Handle(route.Method, route.Path, route.Handler)
			mounted = append(mounted, route.Method+" "+joinPath(rg.BasePath(), route.Path))
		}
	}
	return mounted
}

func joinPath(base, rel string) string {
	if rel == "" {
		return base
	}
	return path.Join(base, rel)
}
