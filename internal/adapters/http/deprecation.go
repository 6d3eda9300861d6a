package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DeprecatedRoute marks an endpoint as deprecated with sunset date.
type DeprecatedRoute struct {
	Path        string    // Handler path pattern
	SunsetDate  time.Time // Date when endpoint will be removed
	Alternative string    // Recommended alternative endpoint (optional)
}

// DeprecationMiddleware adds Deprecation, Sunset, and Link headers to deprecated endpoints.
// This helps clients migrate gracefully to newer API versions.
func DeprecationMiddleware(deprecated []DeprecatedRoute) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Check if this route is deprecated
		for _, d := range deprecated {
			if c.Path() == d.Path || matchPattern(c.Path(), d.Path) {
				// RFC 8594 Deprecation header
				c.Set("Deprecation", "true")

				// RFC 8594 Sunset header (HTTP-Date format)
				c.Set("Sunset", d.SunsetDate.UTC().Format(time.RFC1123))

				// RFC 8288 Link header with deprecation info
				if d.Alternative != "" {
					alt := fillParams(d.Alternative, d.Path, c.Path())
					c.Set("Link", fmt.Sprintf(`<%s>; rel="successor-version"`, alt))
				}

				// Warning header (optional, RFC 7234)
				days := time.Until(d.SunsetDate).Hours() / 24
				c.Set("Warning", fmt.Sprintf(`299 - "Deprecated API, will sunset in %.0f days"`, days))

				break
			}
		}

		return c.Next()
	}
}

// matchPattern matches a path against a route pattern where ":name"
// segments match any single non-empty segment ("/display/:id" matches "/display/abc").
func matchPattern(path, pattern string) bool {
	if path == pattern {
		return true
	}

	ps := strings.Split(strings.Trim(path, "/"), "/")
	qs := strings.Split(strings.Trim(pattern, "/"), "/")
	if len(ps) != len(qs) {
		return false
	}
	for i, q := range qs {
		if strings.HasPrefix(q, ":") {
			if ps[i] == "" {
				return false
			}
			continue
		}
		if ps[i] != q {
			return false
		}
	}
	return true
}

// fillParams substitutes the ":name" segments of target with the values path
// holds at the same names in pattern.
func fillParams(target, pattern, path string) string {
	if !strings.Contains(target, ":") {
		return target
	}
	values := make(map[string]string)
	ps := strings.Split(strings.Trim(path, "/"), "/")
	for i, q := range strings.Split(strings.Trim(pattern, "/"), "/") {
		if strings.HasPrefix(q, ":") && i < len(ps) {
			values[q] = ps[i]
		}
	}
	ts := strings.Split(target, "/")
	for i, t := range ts {
		if v, ok := values[t]; ok {
			ts[i] = v
		}
	}
	return strings.Join(ts, "/")
}
