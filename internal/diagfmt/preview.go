package diagfmt

import (
	"bytes"
	"fmt"
	"strings"

	"texify/internal/diag"
	"texify/internal/source"
)

// editPreview holds the lines an edit touches, before and after applying it.
type editPreview struct {
	before []string
	after  []string
}

// previewEdit applies edit to a copy of the whole lines it spans.
func previewEdit(fs *source.FileSet, edit diag.TextEdit) (editPreview, error) {
	if fs == nil {
		return editPreview{}, fmt.Errorf("preview: nil FileSet")
	}
	file := fs.Get(edit.Span.File)
	if file == nil {
		return editPreview{}, fmt.Errorf("preview: file %d not in FileSet", edit.Span.File)
	}
	start, end := int(edit.Span.Start), int(edit.Span.End)
	if start > end || end > len(file.Content) {
		return editPreview{}, fmt.Errorf("preview: %w: %s", source.ErrRange, edit.Span)
	}

	blockStart, blockEnd := lineBlock(file.Content, start, end)
	block := source.NewBuffer(file.Content[blockStart:blockEnd])
	before := block.Text()
	if err := block.Replace(start-blockStart, end-blockStart, edit.NewText); err != nil {
		return editPreview{}, fmt.Errorf("preview: %w", err)
	}
	return editPreview{
		before: previewLines(before),
		after:  previewLines(block.Text()),
	}, nil
}

// lineBlock widens [start, end) to whole lines, excluding the newline that
// ends the last one.
func lineBlock(content []byte, start, end int) (int, int) {
	blockStart := bytes.LastIndexByte(content[:start], '\n') + 1
	blockEnd := len(content)
	if i := bytes.IndexByte(content[end:], '\n'); i >= 0 {
		blockEnd = end + i
	}
	return blockStart, blockEnd
}

func previewLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
