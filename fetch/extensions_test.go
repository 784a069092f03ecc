package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTextLikePath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path     string
		expected bool
	}{
		{"docs/guide.md", true},
		{"src/main.go", true},
		{"README", true},
		{"LICENSE", true},
		{"Dockerfile", true},
		{".prettierrc", true},
		{".prettierrc.js", true},
		{".env.production", true},
		{"package-lock.json", true},
		{"yarn.lock", true},
		{".dockerignore", true},
		{".gitignore", true},
		{".gitattributes", true},
		{".editorconfig", true},
		{"assets/logo.png", false},
		{"bin/app.exe", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.expected, IsTextLikePath(tc.path), "path=%q", tc.path)
	}
}

func TestMimeForExtension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "text/markdown", MimeForExtension("docs/guide.md"))
	assert.Equal(t, "text/x-go", MimeForExtension("src/main.go"))
	assert.Equal(t, "", MimeForExtension("README"))
	assert.Equal(t, "", MimeForExtension("assets/logo.png"))
}
