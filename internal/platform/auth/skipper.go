package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// publicRoutes maps route patterns reachable without a bearer token to the
// methods allowed on them. An empty method list means any method.
var publicRoutes = map[string][]string{
	"/":                  nil,
	"/health":            nil,
	"/health/db":         nil,
	"/api/v1/auth/login": {http.MethodPost},
}

// AuthSkipper reports whether the matched route skips authentication.
// Preflight requests never carry credentials and are always skipped.
func AuthSkipper(c echo.Context) bool {
	if c.Request().Method == http.MethodOptions {
		return true
	}
	return IsPublicRoute(c.Request().Method, c.Path())
}

func IsPublicRoute(method, path string) bool {
	methods, ok := publicRoutes[path]
	if !ok {
		return false
	}
	if len(methods) == 0 {
		return true
	}
	for _, m := range methods {
		if m == method {
			return true
		}
	}
	return false
}
