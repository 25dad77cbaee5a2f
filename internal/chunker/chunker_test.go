package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("  a\n\tb \x00 c  "))
	assert.Equal(t, "", CleanText("\x00\x00"))
	assert.Equal(t, "hello", CleanText("hello"))
}

func TestChunkEmptyText(t *testing.T) {
	c := NewWindowChunker(500, 50)
	assert.Empty(t, c.Chunk(""))
}

func TestChunkShortTextSingleChunk(t *testing.T) {
	c := NewWindowChunker(500, 50)
	chunks := c.Chunk("short text")
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestChunkCoversWholeTextWithOverlap(t *testing.T) {
	c := NewWindowChunker(100, 20)
	text := strings.Repeat("abcdefghij", 35) // 350 chars

	chunks := c.Chunk(text)
	require.Greater(t, len(chunks), 1)

	// every chunk fits the window and consecutive chunks overlap
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch), 100)
	}
	// reconstruct: dropping the leading overlap of every later chunk
	// yields the original text exactly
	var sb strings.Builder
	sb.WriteString(chunks[0])
	for _, ch := range chunks[1:] {
		sb.WriteString(ch[20:])
	}
	assert.Equal(t, text, sb.String())

	// final chunk reaches the end of the text
	assert.True(t, strings.HasSuffix(text, chunks[len(chunks)-1]))
}

func TestChunkPrefersNewlineBreak(t *testing.T) {
	c := NewWindowChunker(100, 10)
	// newline at position 80, inside the latter half of the window
	text := strings.Repeat("a", 80) + "\n" + strings.Repeat("b", 100)

	chunks := c.Chunk(text)
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, strings.Repeat("a", 80)+"\n", chunks[0])
}

func TestChunkIgnoresEarlyNewline(t *testing.T) {
	c := NewWindowChunker(100, 10)
	// newline at position 10 is in the first half, so the window stays full
	text := strings.Repeat("a", 10) + "\n" + strings.Repeat("b", 150)

	chunks := c.Chunk(text)
	require.Greater(t, len(chunks), 1)
	assert.Len(t, chunks[0], 100)
}

func TestChunkMultibyteText(t *testing.T) {
	c := NewWindowChunker(100, 20)
	text := strings.Repeat("€", 350) // 3 bytes per rune

	chunks := c.Chunk(text)
	require.Greater(t, len(chunks), 1)

	// window edges land on rune boundaries, never inside a character
	for i, ch := range chunks {
		assert.True(t, utf8.ValidString(ch), "chunk %d is not valid UTF-8", i)
		assert.LessOrEqual(t, utf8.RuneCountInString(ch), 100)
	}

	// dropping each later chunk's leading overlap reproduces the text
	var sb strings.Builder
	sb.WriteString(chunks[0])
	for _, ch := range chunks[1:] {
		sb.WriteString(string([]rune(ch)[20:]))
	}
	assert.Equal(t, text, sb.String())
}

func TestChunkAlwaysAdvances(t *testing.T) {
	// overlap larger than the chunk size must still terminate
	c := NewWindowChunker(10, 50)
	chunks := c.Chunk(strings.Repeat("x", 35))
	require.NotEmpty(t, chunks)
	total := 0
	for _, ch := range chunks {
		total += len(ch)
	}
	assert.Equal(t, 35, total)
}

func TestChunkDefaults(t *testing.T) {
	c := NewWindowChunker(0, -5)
	assert.Equal(t, 500, c.chunkSize)
	assert.Equal(t, 0, c.overlap)
}
