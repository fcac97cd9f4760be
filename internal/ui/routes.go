package ui

import (
	"fmt"
	"net/url"
	"strings"
)

// Route names.
const (
	RouteMain   = "RoutePoS_Main"
	RouteDetail = "RoutePoS_Detail"

	// ParamPointOfSale is the detail route parameter.
	ParamPointOfSale = "pointofsale"
)

var routePatterns = map[string]string{
	RouteMain:   "/",
	RouteDetail: "/pos/{" + ParamPointOfSale + "}",
}

// NavTo builds the URL of a route with its parameters filled in.
func NavTo(route string, params map[string]string) (string, error) {
	pattern, ok := routePatterns[route]
	if !ok {
		return "", fmt.Errorf("ui: unknown route %q", route)
	}
	var b strings.Builder
	rest := pattern
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("ui: malformed pattern %q", pattern)
		}
		name := rest[open+1 : open+end]
		value, ok := params[name]
		if !ok || value == "" {
			return "", fmt.Errorf("ui: route %s requires parameter %s", route, name)
		}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(value))
		rest = rest[open+end+1:]
	}
	return b.String(), nil
}
