package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lavandejoey/gorag/gerr"
)

// TextParser handles plain text and markdown files via a UTF-8 decode with
// replacement (mirroring golang.org/x/text/encoding's lossy-decode
// convention, without the extra dependency: strings.ToValidUTF8 replaces
// each run of invalid bytes with the Unicode replacement character).
type TextParser struct{}

func (p *TextParser) SupportedFormats() []string { return []string{"txt", "md"} }

func (p *TextParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading text file: %w", err)
	}

	content := strings.TrimSpace(strings.ToValidUTF8(string(data), "�"))
	if !trimmedNonEmpty(content) {
		return nil, fmt.Errorf("%w: %s", gerr.ErrEmptyDocument, path)
	}

	return &ParseResult{
		Text:   content,
		MIME:   mimeForExt(strings.ToLower(filepath.Ext(path))),
		Method: "native",
	}, nil
}
