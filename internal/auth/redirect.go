// Package auth completes OAuth sign-in and decides where the browser goes next.
package auth

import (
	"net/url"
	"strings"

	"github.com/jmerrifield20/linkaday/internal/profiles"
)

// Paths are the application routes the callback redirects to.
type Paths struct {
	Login      string
	Onboarding string
	Dashboard  string
}

// DefaultPaths are the routes served by the web package.
var DefaultPaths = Paths{
	Login:      "/login",
	Onboarding: "/profile",
	Dashboard:  "/dashboard",
}

// SafeNext returns raw when it is a same-origin absolute path, and "" otherwise.
func SafeNext(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return raw
}

// Destination picks the post-login route for p. A non-empty next wins.
func (paths Paths) Destination(p *profiles.Profile, next string) (State, string) {
	state := RouteToDashboard
	target := paths.Dashboard
	if p.NeedsOnboarding() {
		state = RouteToOnboarding
		target = paths.Onboarding
	}
	if next != "" {
		target = next
	}
	return state, target
}

// LoginError builds the login redirect for a failed sign-in.
func (paths Paths) LoginError(code, description string) string {
	v := url.Values{}
	v.Set("error", code)
	if description != "" {
		v.Set("error_description", description)
	}
	return paths.Login + "?" + v.Encode()
}
