package scrape

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExcludePatterns is applied when the caller passes no exclude list
// at all; passing an explicit empty slice disables these (§6).
var DefaultExcludePatterns = []string{
	"**/CHANGELOG.*",
	"**/LICENSE",
	"**/LICENSE.md",
	"**/CODE_OF_CONDUCT.*",
	"**/*.test.*",
	"**/*.spec.*",
	"**/*_test.py",
	"**/*_test.go",
	"**/*.lock",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/*.min.js",
	"**/*.min.css",
	"**/.DS_Store",
	"**/Thumbs.db",
	"**/archive/**",
	"**/archived/**",
	"**/deprecated/**",
	"**/legacy/**",
	"**/old/**",
	"**/outdated/**",
	"**/previous/**",
	"**/superseded/**",
	"**/dist/**",
	"**/build/**",
	"**/out/**",
	"**/target/**",
	"**/.next/**",
	"**/.nuxt/**",
	"**/.vscode/**",
	"**/.idea/**",
	"**/i18n/de*/**",
	"**/i18n/fr*/**",
	"**/i18n/es*/**",
	"**/i18n/ja*/**",
	"**/i18n/ko*/**",
	"**/i18n/pt*/**",
	"**/i18n/ru*/**",
	"**/i18n/ar*/**",
	"**/zh-cn/**",
	"**/zh-tw/**",
	"**/zh-hk/**",
	"**/zh-mo/**",
	"**/zh-sg/**",
}

// compiledPattern is either a doublestar glob or, when wrapped in /…/, a
// compiled regexp.
type compiledPattern struct {
	raw   string
	regex *regexp.Regexp
}

func compilePattern(raw string) compiledPattern {
	if len(raw) >= 2 && strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") {
		if re, err := regexp.Compile(raw[1 : len(raw)-1]); err == nil {
			return compiledPattern{raw: raw, regex: re}
		}
	}

	return compiledPattern{raw: raw}
}

func (p compiledPattern) match(target string) bool {
	if p.regex != nil {
		return p.regex.MatchString(target)
	}

	ok, err := doublestar.Match(p.raw, target)

	return err == nil && ok
}

// PatternFilter applies include/exclude glob-or-regex matching (§4.3). An
// unset Exclude (nil, as opposed to an explicit empty slice) applies
// DefaultExcludePatterns.
type PatternFilter struct {
	include []compiledPattern
	exclude []compiledPattern
}

// NewPatternFilter compiles include/exclude pattern lists. Pass a non-nil
// empty excludePatterns slice to disable DefaultExcludePatterns entirely.
func NewPatternFilter(includePatterns, excludePatterns []string) *PatternFilter {
	filter := &PatternFilter{}

	for _, raw := range includePatterns {
		filter.include = append(filter.include, compilePattern(raw))
	}

	effectiveExclude := excludePatterns
	if effectiveExclude == nil {
		effectiveExclude = DefaultExcludePatterns
	}

	for _, raw := range effectiveExclude {
		filter.exclude = append(filter.exclude, compilePattern(raw))
	}

	return filter
}

// Matches reports whether targetURL passes the filter. For http(s) URLs the
// match target is "path?query"; for file:// URLs both the full path and
// the basename are tried. Exclude always wins over include.
func (f *PatternFilter) Matches(targetURL string) bool {
	candidates := matchCandidates(targetURL)

	for _, candidate := range candidates {
		for _, pattern := range f.exclude {
			if pattern.match(candidate) {
				return false
			}
		}
	}

	if len(f.include) == 0 {
		return true
	}

	for _, candidate := range candidates {
		for _, pattern := range f.include {
			if pattern.match(candidate) {
				return true
			}
		}
	}

	return false
}

func matchCandidates(targetURL string) []string {
	if strings.HasPrefix(targetURL, "github-file://") {
		p := strings.TrimPrefix(targetURL, "github-file://")

		return []string{p, path.Base(p)}
	}

	parsed, err := url.Parse(targetURL)
	if err != nil {
		return []string{targetURL}
	}

	if parsed.Scheme == "file" {
		p := parsed.Path

		return []string{p, path.Base(p)}
	}

	candidate := parsed.Path
	if parsed.RawQuery != "" {
		candidate += "?" + parsed.RawQuery
	}

	return []string{candidate}
}
