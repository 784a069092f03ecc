package scrape

import (
	"net/url"
	"regexp"
	"strings"
)

var indexFileRe = regexp.MustCompile(`(?i)/index\.(html?|asp|php|jsp)$`)

// NormalizeOptions flips individual normalization rules (§4.3). All default
// to true except StripQuery, which defaults to false (query params are kept
// by default).
type NormalizeOptions struct {
	Lowercase          bool
	StripFragment      bool
	StripTrailingSlash bool
	StripIndexFiles    bool
	StripQuery         bool
}

// DefaultNormalizeOptions returns the spec's default rule set.
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{
		Lowercase:          true,
		StripFragment:      true,
		StripTrailingSlash: true,
		StripIndexFiles:    true,
		StripQuery:         false,
	}
}

// NormalizeURL produces the deterministic form used for visited-set
// deduplication (§4.3, §8). It is idempotent: NormalizeURL(NormalizeURL(u))
// == NormalizeURL(u).
func NormalizeURL(raw string, opts NormalizeOptions) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if opts.StripFragment {
		parsed.Fragment = ""
	}

	if opts.Lowercase {
		parsed.Scheme = strings.ToLower(parsed.Scheme)
		parsed.Host = strings.ToLower(parsed.Host)
	}

	path := parsed.Path

	if opts.StripIndexFiles {
		path = indexFileRe.ReplaceAllString(path, "/")
	}

	if opts.StripTrailingSlash && len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}

	parsed.Path = path

	if opts.StripQuery {
		parsed.RawQuery = ""
	}

	return parsed.String()
}

// stripDefaultPort normalizes host:port so that https://example.com and
// https://example.com:443 compare equal for scope purposes (§8).
func stripDefaultPort(scheme, host string) string {
	lower := strings.ToLower(host)

	switch scheme {
	case "https":
		return strings.TrimSuffix(lower, ":443")
	case "http":
		return strings.TrimSuffix(lower, ":80")
	default:
		return lower
	}
}
