// Package chunking splits parsed documents into overlapping windows sized
// for embedding. Chunking is a pure function of the input and the config,
// so re-running it over the same document yields identical chunks.
package chunking

import (
	"strings"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// Config configures the chunker behavior.
type Config struct {
	// Size is the maximum characters per chunk
	Size int

	// Overlap is the character overlap between consecutive chunks
	Overlap int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Size:    400,
		Overlap: 50,
	}
}

// Chunker splits parsed documents into overlapping chunks.
type Chunker struct {
	config Config
}

// New creates a chunker with the given config. Invalid values fall back to
// defaults so a misconfigured chunker can never loop.
func New(config Config) *Chunker {
	def := DefaultConfig()
	if config.Size <= 0 {
		config.Size = def.Size
	}
	if config.Overlap < 0 || config.Overlap >= config.Size {
		config.Overlap = def.Overlap
		if config.Overlap >= config.Size {
			config.Overlap = config.Size / 8
		}
	}
	return &Chunker{config: config}
}

// pageSpan maps a rune range of the joined text back to a page number
type pageSpan struct {
	start  int
	end    int
	number int
}

// Split turns a parsed document into chunks. Returns
// domain.ErrEmptyInput when the document holds no extractable text.
func (c *Chunker) Split(doc *domain.ParsedDocument) ([]*domain.Chunk, error) {
	text, spans := joinPages(doc.Pages)
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyInput
	}

	runes := []rune(text)
	var chunks []*domain.Chunk
	start := 0

	for start < len(runes) {
		end := start + c.config.Size
		if end > len(runes) {
			end = len(runes)
		}

		// Prefer a whitespace or sentence boundary near the window end
		if end < len(runes) {
			if bp := findBreakPoint(runes, start, end); bp > start {
				end = bp
			}
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			pageStart, pageEnd := pagesFor(spans, start, end)
			chunks = append(chunks, &domain.Chunk{
				Content:   content,
				Index:     len(chunks),
				PageStart: pageStart,
				PageEnd:   pageEnd,
			})
		}

		if end >= len(runes) {
			break
		}

		// Move start with overlap, ensuring we always advance
		nextStart := end - c.config.Overlap
		if nextStart <= start {
			nextStart = start + 1
		}
		start = nextStart
	}

	if len(chunks) == 0 {
		return nil, domain.ErrEmptyInput
	}
	return chunks, nil
}

// joinPages concatenates page texts and records the rune span of each page
func joinPages(pages []domain.Page) (string, []pageSpan) {
	var sb strings.Builder
	var spans []pageSpan
	offset := 0

	for i, page := range pages {
		if i > 0 {
			sb.WriteString("\n\n")
			offset += 2
		}
		n := len([]rune(page.Text))
		spans = append(spans, pageSpan{start: offset, end: offset + n, number: page.Number})
		sb.WriteString(page.Text)
		offset += n
	}
	return sb.String(), spans
}

// pagesFor returns the first and last page numbers overlapping [start, end)
func pagesFor(spans []pageSpan, start, end int) (int, int) {
	first, last := 0, 0
	for _, s := range spans {
		if s.end <= start || s.start >= end {
			continue
		}
		if first == 0 {
			first = s.number
		}
		last = s.number
	}
	return first, last
}

// sentence enders checked when searching for a break point
var sentenceEnders = []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}

// findBreakPoint finds a good break point in the last stretch of the window.
func findBreakPoint(runes []rune, start, maxEnd int) int {
	searchStart := maxEnd - 100
	if searchStart < start {
		searchStart = start
	}

	searchContent := string(runes[searchStart:maxEnd])

	// Paragraph boundary first
	if idx := strings.LastIndex(searchContent, "\n\n"); idx != -1 {
		return searchStart + len([]rune(searchContent[:idx])) + 2
	}

	// Then sentence boundary
	bestIdx := -1
	for _, ender := range sentenceEnders {
		if idx := strings.LastIndex(searchContent, ender); idx != -1 {
			endPos := idx + len(ender)
			if endPos > bestIdx {
				bestIdx = endPos
			}
		}
	}
	if bestIdx > 0 {
		return searchStart + len([]rune(searchContent[:bestIdx]))
	}

	// Then any whitespace
	if idx := strings.LastIndexAny(searchContent, " \t\n"); idx != -1 {
		return searchStart + len([]rune(searchContent[:idx])) + 1
	}

	// No good break point found, cut mid-word at the window edge
	return maxEnd
}
