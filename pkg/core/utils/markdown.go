package utils

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))

// CleanMarkdown trims whitespace and an outer ```markdown fence that models
// like to wrap prose in.
func CleanMarkdown(input string) string {
	return stripFence(input)
}

// RenderMarkdown converts CommonMark (plus GFM tables) to HTML. Raw HTML in
// the input is not passed through.
func RenderMarkdown(input string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(CleanMarkdown(input)), &buf); err != nil {
		return "", fmt.Errorf("markdown render failed: %w", err)
	}
	return buf.String(), nil
}
