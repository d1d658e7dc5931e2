// Package chunker splits document text into bounded, overlapping fragments.
package chunker

import "strings"

// DefaultTargetSize is the default number of characters per chunk.
const DefaultTargetSize = 1000

// DefaultOverlap is the default number of characters carried across
// chunk boundaries to preserve context.
const DefaultOverlap = 200

// DefaultSeparator is the natural boundary used to sectionise text.
const DefaultSeparator = "\n\n"

// Fragment is one chunk of a split document.
type Fragment struct {
	// Content is the fragment text.
	Content string

	// Position is the zero-based ordinal within the document.
	Position int

	// TotalChunks is the number of fragments the document produced,
	// stamped once the final count is known.
	TotalChunks int
}

// Chunker splits text into fragments of bounded size.
type Chunker struct {
	targetSize int
	overlap    int
	separator  string
}

// Option configures the chunker.
type Option func(*Chunker)

// WithTargetSize sets the chunk size in characters.
func WithTargetSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.targetSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithSeparator sets the section boundary.
func WithSeparator(sep string) Option {
	return func(c *Chunker) {
		if sep != "" {
			c.separator = sep
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		targetSize: DefaultTargetSize,
		overlap:    DefaultOverlap,
		separator:  DefaultSeparator,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.targetSize {
		c.overlap = c.targetSize / 4
	}

	return c
}

// Split chunks text into fragments with sequential positions starting
// at 0. Text is split on the separator into sections, which are greedily
// accumulated until the target size would be exceeded; each new buffer
// is seeded with the trailing overlap of the previous one. Empty or
// whitespace-only text yields no fragments.
func (c *Chunker) Split(text string) []Fragment {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var parts []string
	var buffer string

	for _, section := range strings.Split(text, c.separator) {
		if strings.TrimSpace(section) == "" {
			continue
		}

		// A single section beyond the target size is sub-split at word
		// boundaries; all pieces but the last are emitted directly and
		// the last becomes the running buffer.
		if len(section) > c.targetSize {
			if buffer != "" {
				parts = append(parts, buffer)
				buffer = ""
			}
			pieces := c.splitOversize(section)
			parts = append(parts, pieces[:len(pieces)-1]...)
			buffer = pieces[len(pieces)-1]
			continue
		}

		if buffer == "" {
			buffer = section
			continue
		}

		if len(buffer)+len(c.separator)+len(section) <= c.targetSize {
			buffer += c.separator + section
			continue
		}

		// Overflow: emit the buffer and seed the next one with its tail.
		parts = append(parts, buffer)
		buffer = c.carry(buffer) + section
	}

	if strings.TrimSpace(buffer) != "" {
		parts = append(parts, buffer)
	}

	fragments := make([]Fragment, len(parts))
	for i, content := range parts {
		fragments[i] = Fragment{
			Content:     content,
			Position:    i,
			TotalChunks: len(parts),
		}
	}

	return fragments
}

// splitOversize breaks a section larger than the target size at the
// nearest space before the limit, carrying the overlap forward.
// Always returns at least one piece.
func (c *Chunker) splitOversize(section string) []string {
	var pieces []string
	rest := section

	for len(rest) > c.targetSize {
		cut := strings.LastIndex(rest[:c.targetSize], " ")
		if cut <= c.overlap {
			// No usable word boundary; hard cut at the limit.
			cut = c.targetSize
		}
		pieces = append(pieces, rest[:cut])

		next := cut - c.overlap
		if next < 0 {
			next = 0
		}
		rest = strings.TrimLeft(rest[next:], " ")
	}

	if strings.TrimSpace(rest) != "" {
		pieces = append(pieces, rest)
	}
	if len(pieces) == 0 {
		pieces = append(pieces, section)
	}

	return pieces
}

// carry returns the trailing overlap of an emitted chunk, used to seed
// the next buffer. The result always ends with the separator so the
// following section reads naturally.
func (c *Chunker) carry(emitted string) string {
	if c.overlap <= 0 {
		return ""
	}
	tail := emitted
	if len(tail) > c.overlap {
		tail = tail[len(tail)-c.overlap:]
	}
	return tail + c.separator
}
