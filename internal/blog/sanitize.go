package blog

import (
	"strings"

	"golang.org/x/net/html"
)

// StripTags reduces submitted markup to its text content. Comment bodies are
// stored as plain text, so anything tag-shaped is dropped rather than escaped.
func StripTags(input string) string {
	if !strings.ContainsRune(input, '<') {
		return strings.TrimSpace(input)
	}

	tokenizer := html.NewTokenizer(strings.NewReader(input))
	var builder strings.Builder

	for {
		tokenType := tokenizer.Next()
		if tokenType == html.ErrorToken {
			break
		}
		if tokenType == html.TextToken {
			builder.Write(tokenizer.Text())
		}
	}

	return strings.TrimSpace(builder.String())
}
