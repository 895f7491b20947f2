package llm

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// WordWrap wraps text at the specified width.
func WordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i > 0 {
			result.WriteString("\n")
		}

		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		currentLineLength := 0
		for j, word := range words {
			wl := len([]rune(word))
			if j > 0 {
				if currentLineLength+wl+1 > width {
					result.WriteString("\n")
					currentLineLength = 0
				} else {
					result.WriteString(" ")
					currentLineLength++
				}
			}
			result.WriteString(word)
			currentLineLength += wl
		}
	}

	return result.String()
}

var (
	fenceRe    = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")
	emphasisRe = regexp.MustCompile(`\*{1,3}([^*\n]+)\*{1,3}`)
	headingRe  = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	spacesRe   = regexp.MustCompile(`[ \t]+`)
	blankRe    = regexp.MustCompile(`\n{3,}`)
)

// CleanText turns a model answer into plain prose: markdown fences, headings,
// emphasis markers and stray HTML tags are removed, entities are decoded.
func CleanText(text string) string {
	text = fenceRe.ReplaceAllString(text, "")
	text = headingRe.ReplaceAllString(text, "")
	text = emphasisRe.ReplaceAllString(text, "$1")
	if strings.ContainsAny(text, "<&") {
		text = stripHTML(text)
	}
	text = spacesRe.ReplaceAllString(text, " ")
	text = blankRe.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// stripHTML keeps only the text nodes of s. <br> and </p> become line breaks.
func stripHTML(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var sb strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				sb.WriteString("\n")
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "p" {
				sb.WriteString("\n\n")
			}
		}
	}
}

// TruncateLines shortens every line of text to maxLen runes. Used for history logs.
func TruncateLines(text string, maxLen int) string {
	if text == "" || maxLen <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		runes := []rune(line)
		if len(runes) > maxLen {
			lines[i] = string(runes[:maxLen]) + "..."
		}
	}
	return strings.Join(lines, "\n")
}
