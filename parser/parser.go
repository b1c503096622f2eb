// Package parser converts a file on disk to plain text per its MIME type.
package parser

import (
	"context"
	"strings"
)

// ParseResult is what a parser produces from a document file: flat,
// trimmed text plus the MIME type it was parsed as.
type ParseResult struct {
	Text   string
	MIME   string
	Method string // "native"
}

// Parser can parse a specific document format.
type Parser interface {
	Parse(ctx context.Context, path string) (*ParseResult, error)
	SupportedFormats() []string
}

// mimeForExt guesses a MIME type from a lowercased, dot-prefixed extension.
func mimeForExt(ext string) string {
	switch ext {
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// trimmedNonEmpty reports whether s has any non-whitespace content.
func trimmedNonEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}
