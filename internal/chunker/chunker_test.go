package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_EmptyInput(t *testing.T) {
	c := New()

	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split("   \n\n  \t "))
}

func TestSplit_SingleSmallSection(t *testing.T) {
	c := New()

	fragments := c.Split("Hello world")

	require.Len(t, fragments, 1)
	assert.Equal(t, "Hello world", fragments[0].Content)
	assert.Equal(t, 0, fragments[0].Position)
	assert.Equal(t, 1, fragments[0].TotalChunks)
}

func TestSplit_AccumulatesSectionsUpToTargetSize(t *testing.T) {
	c := New(WithTargetSize(50), WithOverlap(10))

	fragments := c.Split("first section\n\nsecond one\n\nthird part here")

	// All three sections fit in one 50-char buffer with separators.
	require.Len(t, fragments, 1)
	assert.Contains(t, fragments[0].Content, "first section")
	assert.Contains(t, fragments[0].Content, "third part here")
}

func TestSplit_OverflowStartsNewChunkWithOverlap(t *testing.T) {
	c := New(WithTargetSize(30), WithOverlap(8))

	text := "aaaaaaaaaaaaaaaaaaaa\n\nbbbbbbbbbbbbbbbbbbbb"
	fragments := c.Split(text)

	require.Len(t, fragments, 2)
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaa", fragments[0].Content)
	// Second chunk is seeded with the tail of the first.
	assert.True(t, strings.HasPrefix(fragments[1].Content, "aaaaaaaa"))
	assert.Contains(t, fragments[1].Content, "bbbbbbbb")
}

func TestSplit_OversizeSectionSubSplitAtWordBoundary(t *testing.T) {
	c := New(WithTargetSize(40), WithOverlap(5))

	words := strings.Repeat("word ", 30) // 150 chars, one section
	fragments := c.Split(strings.TrimSpace(words))

	require.Greater(t, len(fragments), 1)
	for _, f := range fragments {
		assert.LessOrEqual(t, len(f.Content), 40)
		// Word-boundary cuts never split "word" itself.
		for _, w := range strings.Fields(f.Content) {
			assert.Equal(t, "word", w)
		}
	}
}

func TestSplit_PositionsContiguous(t *testing.T) {
	c := New(WithTargetSize(40), WithOverlap(5))

	var sections []string
	for i := 0; i < 20; i++ {
		sections = append(sections, strings.Repeat("x", 30))
	}
	fragments := c.Split(strings.Join(sections, "\n\n"))

	require.Greater(t, len(fragments), 1)
	for i, f := range fragments {
		assert.Equal(t, i, f.Position)
		assert.Equal(t, len(fragments), f.TotalChunks)
	}
}

func TestSplit_WordCoverage(t *testing.T) {
	c := New(WithTargetSize(100), WithOverlap(20))

	text := "The quick brown fox jumps over the lazy dog.\n\n" +
		"Pack my box with five dozen liquor jugs.\n\n" +
		"Sphinx of black quartz judge my vow."
	fragments := c.Split(text)
	require.NotEmpty(t, fragments)

	var joined strings.Builder
	for _, f := range fragments {
		joined.WriteString(f.Content)
		joined.WriteString(" ")
	}

	var total, found int
	for _, word := range strings.Fields(text) {
		if len(word) <= 3 {
			continue
		}
		total++
		if strings.Contains(joined.String(), word) {
			found++
		}
	}
	require.Greater(t, total, 0)
	assert.Greater(t, found*2, total, "chunks should cover a majority of significant words")
}

func TestNew_OverlapClampedBelowTargetSize(t *testing.T) {
	c := New(WithTargetSize(100), WithOverlap(500))

	assert.Equal(t, 25, c.overlap)
}
