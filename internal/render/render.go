package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// thinkBlock matches reasoning blocks some models emit before the answer
var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Markdown renders assistant replies with GitHub flavoured markdown.
// Raw HTML in replies is not passed through.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown creates a markdown renderer.
func NewMarkdown() *Markdown {
	return &Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

// CleanReply removes reasoning blocks and surrounding whitespace.
func (m *Markdown) CleanReply(reply string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(reply, ""))
}

// RenderMarkdown converts markdown to an HTML fragment.
func (m *Markdown) RenderMarkdown(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}
