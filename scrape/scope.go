package scrape

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Scope enumerates the URL scope rules a crawl can be bounded by (§4.3).
type Scope string

const (
	ScopeSubpages Scope = "subpages"
	ScopeHostname Scope = "hostname"
	ScopeDomain   Scope = "domain"
)

// scopeChecker captures the start URL's origin/base-directory once and
// answers InScope for every discovered link.
type scopeChecker struct {
	scope       Scope
	scheme      string
	host        string
	baseDir     string
	registrable string
}

func newScopeChecker(scope Scope, startURL string) (*scopeChecker, error) {
	parsed, err := url.Parse(startURL)
	if err != nil {
		return nil, err
	}

	checker := &scopeChecker{
		scope:  scope,
		scheme: parsed.Scheme,
		host:   stripDefaultPort(parsed.Scheme, parsed.Host),
	}

	checker.baseDir = baseDirectory(parsed.Path)

	if registrable, err := publicsuffix.EffectiveTLDPlusOne(hostOnly(parsed.Host)); err == nil {
		checker.registrable = registrable
	}

	return checker, nil
}

// baseDirectory derives the base directory per §4.3: if the path ends in
// "/", use it as-is; else if the last segment contains a ".", use its
// parent directory; else append "/".
func baseDirectory(path string) string {
	if path == "" {
		return "/"
	}

	if strings.HasSuffix(path, "/") {
		return path
	}

	lastSlash := strings.LastIndex(path, "/")
	lastSegment := path[lastSlash+1:]

	if strings.Contains(lastSegment, ".") {
		if lastSlash <= 0 {
			return "/"
		}

		return path[:lastSlash+1]
	}

	return path + "/"
}

func hostOnly(hostport string) string {
	if idx := strings.LastIndex(hostport, ":"); idx > 0 && !strings.Contains(hostport[idx:], "]") {
		return hostport[:idx]
	}

	return hostport
}

// InScope reports whether target may be followed from the crawl's origin.
func (c *scopeChecker) InScope(target string) bool {
	parsed, err := url.Parse(target)
	if err != nil {
		return false
	}

	if parsed.Scheme != c.scheme {
		return false
	}

	targetHost := stripDefaultPort(parsed.Scheme, parsed.Host)

	switch c.scope {
	case ScopeHostname:
		return targetHost == c.host
	case ScopeDomain:
		registrable, err := publicsuffix.EffectiveTLDPlusOne(hostOnly(parsed.Host))
		if err != nil {
			return false
		}

		return registrable == c.registrable
	default: // ScopeSubpages
		if targetHost != c.host {
			return false
		}

		return strings.HasPrefix(parsed.Path, c.baseDir)
	}
}
