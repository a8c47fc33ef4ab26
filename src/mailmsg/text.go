package mailmsg

import (
	stdhtml "html"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	wsPattern  = regexp.MustCompile(`\s+`)
	tagPattern = regexp.MustCompile(`<[^>]+>`)
)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(wsPattern.ReplaceAllString(s, " "))
}

// HTMLToText is a very light HTML to text conversion: drop tags (and
// script/style content) and collapse all whitespace to single spaces.
func HTMLToText(h string) string {
	if h == "" {
		return ""
	}
	z := html.NewTokenizer(strings.NewReader(h))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseWhitespace(b.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			if n := string(name); n == "script" || n == "style" {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if n := string(name); (n == "script" || n == "style") && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

// CleanValue strips residual tags and entities from an extracted field value
// and collapses whitespace.
func CleanValue(val string) string {
	if val == "" {
		return ""
	}
	val = tagPattern.ReplaceAllString(val, " ")
	val = stdhtml.UnescapeString(val)
	return collapseWhitespace(val)
}

// ExtractField extracts the value after `<label>:` on its own line,
// case-insensitively. Returns the cleaned value, or "" when the label is
// not present.
func ExtractField(text, label string) string {
	pattern := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(label) + `\s*:\s*(.+)$`)
	for _, line := range strings.Split(text, "\n") {
		if m := pattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return CleanValue(m[1])
		}
	}
	return ""
}

// DecodeQuotedPrintable decodes possibly quoted-printable bytes, joining
// soft line wraps. Unlike mime/quotedprintable it is lenient: invalid
// escapes (such as the "=?" of encoded-word headers) pass through
// untouched, so whole raw messages can be scanned for wrapped URLs.
func DecodeQuotedPrintable(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '=' {
			b.WriteByte(c)
			continue
		}
		// Soft line break: "=\n" or "=\r\n".
		if i+1 < len(raw) && raw[i+1] == '\n' {
			i++
			continue
		}
		if i+2 < len(raw) && raw[i+1] == '\r' && raw[i+2] == '\n' {
			i += 2
			continue
		}
		if i+2 < len(raw) {
			if hi, ok := unhex(raw[i+1]); ok {
				if lo, ok := unhex(raw[i+2]); ok {
					b.WriteByte(hi<<4 | lo)
					i += 2
					continue
				}
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
