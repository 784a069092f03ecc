package fetch

import "strings"

// textExtensions is the exact allow-list of source/doc file extensions the
// GitHub strategy treats as text-like (§6).
var textExtensions = map[string]string{
	".md":           "text/markdown",
	".mdx":          "text/markdown",
	".txt":          "text/plain",
	".rst":          "text/plain",
	".adoc":         "text/plain",
	".asciidoc":     "text/plain",
	".html":         "text/html",
	".htm":          "text/html",
	".xml":          "application/xml",
	".css":          "text/css",
	".scss":         "text/x-scss",
	".sass":         "text/x-sass",
	".less":         "text/x-less",
	".js":           "text/javascript",
	".jsx":          "text/javascript",
	".ts":           "text/typescript",
	".tsx":          "text/typescript",
	".py":           "text/x-python",
	".java":         "text/x-java",
	".c":            "text/x-c",
	".cpp":          "text/x-c++",
	".cc":           "text/x-c++",
	".cxx":          "text/x-c++",
	".h":            "text/x-c",
	".hpp":          "text/x-c++",
	".cs":           "text/x-csharp",
	".go":           "text/x-go",
	".rs":           "text/x-rust",
	".rb":           "text/x-ruby",
	".php":          "text/x-php",
	".swift":        "text/x-swift",
	".kt":           "text/x-kotlin",
	".scala":        "text/x-scala",
	".clj":          "text/x-clojure",
	".cljs":         "text/x-clojure",
	".hs":           "text/x-haskell",
	".elm":          "text/x-elm",
	".dart":         "text/x-dart",
	".r":            "text/x-r",
	".m":            "text/x-objectivec",
	".mm":           "text/x-objectivec",
	".sh":           "text/x-shellscript",
	".bash":         "text/x-shellscript",
	".zsh":          "text/x-shellscript",
	".fish":         "text/x-shellscript",
	".ps1":          "text/x-powershell",
	".bat":          "text/x-batch",
	".cmd":          "text/x-batch",
	".json":         "application/json",
	".yaml":         "text/yaml",
	".yml":          "text/yaml",
	".toml":         "text/x-toml",
	".ini":          "text/plain",
	".cfg":          "text/plain",
	".conf":         "text/plain",
	".properties":   "text/plain",
	".env":          "text/plain",
	".gitignore":    "text/plain",
	".dockerignore": "text/plain",
	".gitattributes": "text/plain",
	".editorconfig": "text/plain",
	".gradle":       "text/x-gradle",
	".pom":          "application/xml",
	".sbt":          "text/x-scala",
	".maven":        "application/xml",
	".cmake":        "text/x-cmake",
	".make":         "text/x-makefile",
	".dockerfile":   "text/x-dockerfile",
	".mod":          "text/plain",
	".sum":          "text/plain",
	".sql":          "text/x-sql",
	".graphql":      "text/plain",
	".gql":          "text/plain",
	".proto":        "text/plain",
	".thrift":       "text/plain",
	".avro":         "text/plain",
	".csv":          "text/csv",
	".tsv":          "text/tab-separated-values",
	".log":          "text/plain",
}

// extensionlessAllow is the allow-list of basenames with no extension the
// GitHub strategy still treats as text-like, matched case-insensitively.
var extensionlessAllow = map[string]bool{
	"readme":           true,
	"license":          true,
	"changelog":        true,
	"contributing":     true,
	"authors":          true,
	"maintainers":      true,
	"code_of_conduct":  true,
	"dockerfile":       true,
	"makefile":         true,
	"rakefile":         true,
	"gemfile":          true,
	"podfile":          true,
	"cartfile":         true,
	"brewfile":         true,
	"procfile":         true,
	"vagrantfile":      true,
	"gulpfile":         true,
	"gruntfile":        true,
}

// dotfileRoots are extensionless dotfile roots (and accepted suffix forms
// like ".prettierrc.js") that are text-like.
var dotfileRoots = []string{
	".prettierrc",
	".eslintrc",
	".babelrc",
	".nvmrc",
	".npmrc",
}

// IsTextLikePath reports whether path should be treated as a text document
// by the GitHub strategy, per the extension/basename rules in §6.
func IsTextLikePath(path string) bool {
	base := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		base = path[idx+1:]
	}

	lowerBase := strings.ToLower(base)

	if strings.Contains(lowerBase, ".env.") || strings.HasSuffix(lowerBase, ".env") {
		return true
	}

	if strings.Contains(lowerBase, ".config.") || strings.Contains(lowerBase, ".lock") {
		return true
	}

	for _, root := range dotfileRoots {
		if strings.HasPrefix(lowerBase, root) {
			return true
		}
	}

	if ext := extOf(lowerBase); ext != "" {
		if _, ok := textExtensions[ext]; ok {
			return true
		}
	}

	return extensionlessAllow[strings.TrimSuffix(lowerBase, extOf(lowerBase))] ||
		extensionlessAllow[lowerBase]
}

// MimeForExtension returns the extension-derived MIME type for path, or
// "" if the extension isn't in the allow-list.
func MimeForExtension(path string) string {
	lowerBase := strings.ToLower(path)
	if idx := strings.LastIndexByte(lowerBase, '/'); idx >= 0 {
		lowerBase = lowerBase[idx+1:]
	}

	ext := extOf(lowerBase)
	if ext == "" {
		return ""
	}

	return textExtensions[ext]
}

func extOf(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return ""
	}

	return name[idx:]
}
