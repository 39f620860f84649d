package bolls

import (
	"strings"

	"golang.org/x/net/html"
)

// PlainText flattens the markup bolls.life embeds in verse text. Line breaks
// become spaces and Strong's numbers (<S>1234</S>) are dropped.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "s", "sup":
				skip++
			case "br", "p":
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if (string(name) == "s" || string(name) == "sup") && skip > 0 {
				skip--
			}
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}
