// Package chunker prepares raw document text for embedding: cleaning
// followed by sliding-window splitting.
package chunker

import (
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanText removes NUL bytes and collapses all whitespace runs into
// single spaces.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// WindowChunker splits text into fixed-size character windows with
// overlap, preferring to break at a newline when one falls in the latter
// half of the window.
type WindowChunker struct {
	chunkSize int
	overlap   int
}

func NewWindowChunker(chunkSize, overlap int) *WindowChunker {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	return &WindowChunker{chunkSize: chunkSize, overlap: overlap}
}

// Chunk returns the ordered sequence of chunks covering text. Window
// size and overlap are measured in runes, so a window edge never splits
// a multibyte character. Empty text yields no chunks. The window always
// advances by at least one rune, so the loop terminates even when a
// chunk is shorter than the overlap.
func (c *WindowChunker) Chunk(text string) []string {
	runes := []rune(text)
	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if end < len(runes) {
			if i := lastNewline(runes[start:end]); i != -1 && float64(i) > float64(c.chunkSize)*0.5 {
				end = start + i + 1
			}
		}
		chunks = append(chunks, string(runes[start:end]))

		step := (end - start) - c.overlap
		if step <= 0 {
			step = end - start
		}
		start += step
	}
	return chunks
}

func lastNewline(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == '\n' {
			return i
		}
	}
	return -1
}
