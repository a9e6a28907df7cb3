package server

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const paramsContextKey contextKey = "path_params"

// Params holds path parameters extracted by ParamRouter
type Params map[string]string

// PathParam retrieves a path parameter from the request context
func PathParam(r *http.Request, name string) string {
	params, _ := r.Context().Value(paramsContextKey).(Params)
	if params == nil {
		return ""
	}
	return params[name]
}

// ParamRouter is a tiny router supporting patterns with {param} segments
type ParamRouter struct {
	routes []route
}

type route struct {
	segments []string
	handler  http.HandlerFunc
}

// NewParamRouter creates a new ParamRouter instance
func NewParamRouter() *ParamRouter {
	return &ParamRouter{}
}

// Handle registers a handler for a pattern like "/api/session/commands/{command}"
func (rtr *ParamRouter) Handle(pattern string, handler http.HandlerFunc) {
	rtr.routes = append(rtr.routes, route{
		segments: splitPath(pattern),
		handler:  handler,
	})
}

// ServeHTTP matches the incoming request path and dispatches to the first
// matching handler.
func (rtr *ParamRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	in := splitPath(r.URL.Path)

	for _, rt := range rtr.routes {
		params, ok := match(rt.segments, in)
		if !ok {
			continue
		}
		ctx := context.WithValue(r.Context(), paramsContextKey, params)
		rt.handler(w, r.WithContext(ctx))
		return
	}

	http.NotFound(w, r)
}

func match(pattern, in []string) (Params, bool) {
	if len(pattern) != len(in) {
		return nil, false
	}
	params := make(Params)
	for i, seg := range pattern {
		if isParam(seg) {
			params[seg[1:len(seg)-1]] = in[i]
			continue
		}
		if seg != in[i] {
			return nil, false
		}
	}
	return params, true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func isParam(seg string) bool {
	return len(seg) > 2 && strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}
