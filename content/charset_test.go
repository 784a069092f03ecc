package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveCharsetSniffsHTMLMeta(t *testing.T) {
	t.Parallel()

	html := []byte(`<html><head><meta charset="ISO-8859-1"></head></html>`)
	assert.Equal(t, "latin1", ResolveCharset(html, "text/html", ""))
}

func TestResolveCharsetFallsBackToHTTPHeader(t *testing.T) {
	t.Parallel()

	html := []byte(`<html><head></head></html>`)
	assert.Equal(t, "windows-1251", ResolveCharset(html, "text/html", "windows-1251"))
}

func TestResolveCharsetDefaultsToUTF8(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "utf-8", ResolveCharset([]byte("plain text"), "text/plain", ""))
}

func TestResolveCharsetIgnoresMetaForNonHTML(t *testing.T) {
	t.Parallel()

	body := []byte(`charset="ISO-8859-1" appears in plain text, not a meta tag`)
	assert.Equal(t, "utf-8", ResolveCharset(body, "text/plain", ""))
}

func TestNormalizeCharsetNameAliases(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "latin1", normalizeCharsetName("ISO-8859-1"))
	assert.Equal(t, "cp1252", normalizeCharsetName("windows-1252"))
	assert.Equal(t, "utf-8", normalizeCharsetName("UTF8"))
	assert.Equal(t, "shift_jis", normalizeCharsetName("  Shift_JIS  "))
}

func TestDecodeTextValidUTF8PassesThrough(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hello world", DecodeText([]byte("hello world"), "utf-8"))
}

func TestDecodeTextNeverErrors(t *testing.T) {
	t.Parallel()

	invalid := []byte{0xff, 0xfe, 0x00, 0x41}
	assert.NotPanics(t, func() {
		DecodeText(invalid, "bogus-charset-name")
	})
}
