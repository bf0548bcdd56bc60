package maillist

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/net/html"

	"github.com/nhle/tempmail/internal/model"
)

const (
	noContent     = "(no content)"
	unknownSender = "(unknown sender)"
	noSubject     = "(no subject)"
)

var (
	spaceRun   = regexp.MustCompile(`[ \t\r\n\f]+`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// blockTags end a line of text when they open or close.
var blockTags = map[string]bool{
	"p": true, "div": true, "tr": true, "table": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "section": true, "article": true,
	"header": true, "footer": true, "hr": true,
}

// skipTags hold content that is never shown.
var skipTags = map[string]bool{
	"script": true, "style": true, "head": true, "title": true, "noscript": true,
}

// sanitize removes terminal escape sequences and control characters from
// server-supplied text, keeping newlines and tabs.
func sanitize(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0):
			return -1
		default:
			return r
		}
	}, s)
}

// plainLine renders an untrusted single-line field.
func plainLine(s, fallback string) string {
	s = strings.TrimSpace(spaceRun.ReplaceAllString(sanitize(s), " "))
	if s == "" {
		return fallback
	}
	return s
}

// htmlToText flattens an HTML body to readable text. Markup is never passed
// to the terminal.
func htmlToText(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	skip := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return tidy(b.String())

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			switch {
			case skipTags[tag]:
				if tt == html.StartTagToken {
					skip++
				}
			case tag == "br":
				b.WriteString("\n")
			case tag == "li":
				b.WriteString("\n• ")
			case blockTags[tag]:
				b.WriteString("\n")
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			switch {
			case skipTags[tag]:
				if skip > 0 {
					skip--
				}
			case blockTags[tag] || tag == "li":
				b.WriteString("\n")
			}

		case html.TextToken:
			if skip == 0 {
				b.WriteString(spaceRun.ReplaceAllString(string(z.Text()), " "))
			}
		}
	}
}

// tidy trims every line and collapses runs of blank lines.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// bodyText picks what to show for a message: the HTML body when present,
// then the text body, then a placeholder.
func bodyText(m model.Message) string {
	if m.HTMLBody != "" {
		if text := sanitize(htmlToText(m.HTMLBody)); strings.TrimSpace(text) != "" {
			return text
		}
	}
	if text := strings.TrimSpace(sanitize(m.TextBody)); text != "" {
		return text
	}
	return noContent
}

// PlainText renders m as sanitized plain text for non-interactive output.
func PlainText(m model.Message) string {
	var b strings.Builder
	b.WriteString("From:    " + plainLine(m.From, unknownSender) + "\n")
	b.WriteString("Date:    " + m.ReceivedAt.Format(timeLayout) + "\n")
	b.WriteString("Subject: " + plainLine(m.Title, noSubject) + "\n\n")
	b.WriteString(bodyText(m))
	b.WriteString("\n")
	return b.String()
}
