package content

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

var metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?([a-zA-Z0-9_\-]+)`)

// charsetAliases mirrors the canonical aliasing spec.md calls out
// explicitly; anything not in this table falls through to htmlindex, which
// already understands the WHATWG alias table.
var charsetAliases = map[string]string{
	"iso-8859-1": "latin1",
	"windows-1252": "cp1252",
	"utf8":       "utf-8",
	"us-ascii":   "ascii",
}

// ResolveCharset implements §4.2's charset resolution order: sniff a
// <meta charset> for HTML, else the HTTP-reported charset, else UTF-8.
func ResolveCharset(raw []byte, mimeType, httpCharset string) string {
	if strings.Contains(mimeType, "html") {
		if sniffed := sniffMetaCharset(raw); sniffed != "" {
			return normalizeCharsetName(sniffed)
		}
	}

	if httpCharset != "" {
		return normalizeCharsetName(httpCharset)
	}

	return "utf-8"
}

func sniffMetaCharset(raw []byte) string {
	limit := len(raw)
	if limit > 1024 {
		limit = 1024
	}

	match := metaCharsetRe.FindSubmatch(raw[:limit])
	if match == nil {
		return ""
	}

	return string(match[1])
}

func normalizeCharsetName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := charsetAliases[name]; ok {
		return alias
	}

	return name
}

// DecodeText decodes raw bytes using charsetName, falling back to UTF-8 then
// latin-1 on failure; decoding never errors (§4.2).
func DecodeText(raw []byte, charsetName string) string {
	if enc := lookupEncoding(charsetName); enc != nil {
		if decoded, err := enc.NewDecoder().Bytes(raw); err == nil {
			return string(decoded)
		}
	}

	if utf8.Valid(raw) {
		return string(raw)
	}

	if latin1 := lookupEncoding("latin1"); latin1 != nil {
		if decoded, err := latin1.NewDecoder().Bytes(raw); err == nil {
			return string(decoded)
		}
	}

	return string(raw)
}

func lookupEncoding(name string) encoding.Encoding {
	if name == "" || name == "utf-8" {
		return nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil
	}

	return enc
}
