package instrumentation

// Routes served by the application. Anything else is recorded as RouteOther
// so that scanners probing random paths cannot grow the path label.
const (
	RouteCreate   = "/create"
	RouteAuth     = "/auth"
	RouteCallback = "/callback"
	RouteHealthz  = "/healthz"
	RouteReadyz   = "/readyz"
	RouteOther    = "other"
)

var knownRoutes = map[string]bool{
	RouteCreate:                true,
	RouteAuth:                  true,
	RouteCallback:              true,
	RouteHealthz:               true,
	RouteReadyz:                true,
	RouteHealthz + "/detailed": true,
}

// NormalizeRoute maps a request path to a bounded label value.
//
// Example:
//
//	NormalizeRoute("/auth")          // "/auth"
//	NormalizeRoute("/wp-login.php")  // "other"
func NormalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return RouteOther
}
