// Package tgui builds Telegram HTML-parse-mode text.
package tgui

import (
	"fmt"
	"html"
	"strings"
)

// H is HTML that is safe to pass to Telegram with ParseMode="HTML". Values
// of type H are treated as already escaped.
type H string

func (h H) String() string { return string(h) }

// Esc escapes plain text for Telegram HTML parse mode.
func Esc(s string) H { return H(html.EscapeString(s)) }

func B(s string) H { return H("<b>" + html.EscapeString(s) + "</b>") }

// Link builds an anchor; an empty url degrades to escaped text.
func Link(text, url string) H {
	if url == "" {
		return Esc(text)
	}
	return H(fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(url), html.EscapeString(text)))
}

// Join joins non-empty parts with sep.
func Join(sep H, parts ...H) H {
	ss := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p.String()) == "" {
			continue
		}
		ss = append(ss, p.String())
	}
	return H(strings.Join(ss, sep.String()))
}
