package domain

import (
	"strconv"
	"strings"
)

// ReferenceSeparator starts the generated reference list inside content.
const ReferenceSeparator = "\n\n--- 資料引用清單 ---"

// CitationKey returns the marker for the n-th citation, e.g. "[3]".
func CitationKey(n int) string {
	return "[" + strconv.Itoa(n) + "]"
}

// Line renders the reference list line for the citation.
func (c Citation) Line() string {
	line := c.Key + " " + c.SourceName
	if c.URL != "" {
		line += ": " + c.URL
	}
	return line
}

// BodyWithoutReferences returns the content before the first reference
// separator, trimmed of surrounding whitespace.
func BodyWithoutReferences(content string) string {
	if i := strings.Index(content, ReferenceSeparator); i >= 0 {
		content = content[:i]
	}
	return strings.TrimSpace(content)
}

// RenderReferences builds the reference block appended after the body.
func RenderReferences(citations []Citation) string {
	lines := make([]string, len(citations))
	for i, c := range citations {
		lines[i] = c.Line()
	}
	return ReferenceSeparator + "\n" + strings.Join(lines, "\n")
}
