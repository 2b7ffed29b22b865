package chunker

import (
	"fmt"
	"sort"
	"strings"
)

// TokenChunker splits raw text into bounded, overlapping, metadata-tagged
// chunks. Splitting prefers blank-line paragraph boundaries; paragraphs that
// alone exceed the chunk size are re-split at sentence granularity so no
// content is ever dropped. Consecutive chunks share an overlap region of up
// to overlapTokens tokens, reproduced verbatim at the start of the next chunk.
type TokenChunker struct {
	chunkSize int
	overlap   int
	tok       Tokenizer
}

// New creates a TokenChunker. overlapTokens must be smaller than
// chunkSizeTokens; a chunk consisting entirely of overlap could never
// make progress through the document.
func New(chunkSizeTokens, overlapTokens int, tok Tokenizer) (*TokenChunker, error) {
	if tok == nil {
		return nil, fmt.Errorf("tokenizer is required")
	}
	if chunkSizeTokens <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSizeTokens)
	}
	if overlapTokens < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", overlapTokens)
	}
	if overlapTokens >= chunkSizeTokens {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", overlapTokens, chunkSizeTokens)
	}
	return &TokenChunker{
		chunkSize: chunkSizeTokens,
		overlap:   overlapTokens,
		tok:       tok,
	}, nil
}

// span is a piece of source text with its byte offsets.
type span struct {
	text  string
	start int
	end   int
}

// Chunk splits text into chunks. Empty or whitespace-only input yields an
// empty slice, not an error.
func (c *TokenChunker) Chunk(text string) []Chunk {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return []Chunk{}
	}

	headings := scanHeadings(text)

	var chunks []Chunk
	cur := newBuffer("\n\n")

	for _, para := range paragraphs {
		paraTokens := len(c.tok.Encode(para.text))

		switch {
		case paraTokens > c.chunkSize:
			// Oversized paragraph: flush the pending buffer, then re-split
			// the paragraph by sentences with the same overlap strategy.
			if !cur.empty() {
				chunks = append(chunks, cur.emit(len(chunks)))
			}
			chunks = c.chunkSentences(para, chunks)
			cur = newBuffer("\n\n")

		case cur.tokens+paraTokens > c.chunkSize && !cur.empty():
			chunks = append(chunks, cur.emit(len(chunks)))
			overlap := c.overlapText(cur.joined())
			cur = newBuffer("\n\n")
			if overlap != "" {
				cur.seed(overlap)
			}
			cur.add(para, 0)
			cur.tokens = len(c.tok.Encode(cur.joined()))

		default:
			cur.add(para, paraTokens)
		}
	}

	if !cur.empty() {
		chunks = append(chunks, cur.emit(len(chunks)))
	}

	for i := range chunks {
		chunks[i].SectionHeader = headingBefore(headings, chunks[i].CharEnd)
	}

	return chunks
}

// chunkSentences splits a single oversized paragraph at sentence boundaries,
// appending the resulting chunks to chunks.
func (c *TokenChunker) chunkSentences(para span, chunks []Chunk) []Chunk {
	sentences := splitSentences(para.text, para.start)
	cur := newBuffer(" ")

	for _, sent := range sentences {
		sentTokens := len(c.tok.Encode(sent.text))

		if cur.tokens+sentTokens > c.chunkSize && !cur.empty() {
			chunks = append(chunks, cur.emit(len(chunks)))
			overlap := c.overlapText(cur.joined())
			cur = newBuffer(" ")
			if overlap != "" {
				cur.seed(overlap)
			}
		}
		// A single indivisible sentence may still exceed the chunk size; it
		// is emitted oversized rather than dropped.
		cur.add(sent, sentTokens)
		if cur.seeded {
			cur.tokens = len(c.tok.Encode(cur.joined()))
			cur.seeded = false
		}
	}

	if !cur.empty() {
		chunks = append(chunks, cur.emit(len(chunks)))
	}
	return chunks
}

// overlapText returns the trailing overlap tokens of emitted, decoded back to
// text. Returns the whole text when it is shorter than the overlap window.
func (c *TokenChunker) overlapText(emitted string) string {
	if c.overlap == 0 {
		return ""
	}
	tokens := c.tok.Encode(emitted)
	if len(tokens) <= c.overlap {
		return emitted
	}
	return c.tok.Decode(tokens[len(tokens)-c.overlap:])
}

// buffer accumulates source spans (and an optional decoded overlap prefix)
// until the next chunk boundary.
type buffer struct {
	sep    string
	parts  []string
	tokens int
	start  int // offset of the first source span, -1 while only overlap is buffered
	end    int
	seeded bool
}

func newBuffer(sep string) *buffer {
	return &buffer{sep: sep, start: -1}
}

func (b *buffer) empty() bool {
	return len(b.parts) == 0
}

// seed places decoded overlap text at the front of the buffer. Overlap does
// not contribute to the chunk's source offsets.
func (b *buffer) seed(overlap string) {
	b.parts = append(b.parts, overlap)
	b.seeded = true
}

func (b *buffer) add(s span, tokenCount int) {
	b.parts = append(b.parts, s.text)
	b.tokens += tokenCount
	if b.start < 0 {
		b.start = s.start
	}
	b.end = s.end
}

func (b *buffer) joined() string {
	return strings.Join(b.parts, b.sep)
}

func (b *buffer) emit(index int) Chunk {
	start := b.start
	if start < 0 {
		start = b.end
	}
	return Chunk{
		Index:      index,
		Content:    b.joined(),
		TokenCount: b.tokens,
		CharStart:  start,
		CharEnd:    b.end,
	}
}

// splitParagraphs splits text on blank-line boundaries, preserving the byte
// offsets of each trimmed paragraph in the source.
func splitParagraphs(text string) []span {
	var paras []span
	pos := 0
	for pos <= len(text) {
		rest := text[pos:]
		idx := strings.Index(rest, "\n\n")
		var raw string
		var next int
		if idx < 0 {
			raw = rest
			next = len(text) + 1
		} else {
			raw = rest[:idx]
			next = pos + idx + 2
		}
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			lead := len(raw) - len(strings.TrimLeft(raw, " \t\r\n"))
			start := pos + lead
			paras = append(paras, span{text: trimmed, start: start, end: start + len(trimmed)})
		}
		pos = next
	}
	return paras
}

// splitSentences splits text on terminal punctuation followed by whitespace.
// base is the byte offset of text within the source document.
func splitSentences(text string, base int) []span {
	var sentences []span
	start := 0
	i := 0
	for i < len(text) {
		ch := text[i]
		if ch != '.' && ch != '!' && ch != '?' {
			i++
			continue
		}
		// Consume a run of terminal punctuation ("?!", "...").
		j := i + 1
		for j < len(text) && (text[j] == '.' || text[j] == '!' || text[j] == '?') {
			j++
		}
		if j < len(text) && !isSpace(text[j]) {
			// Not a sentence boundary (e.g. "3.14", "v1.2").
			i = j
			continue
		}
		appendTrimmed(&sentences, text[start:j], base+start)
		for j < len(text) && isSpace(text[j]) {
			j++
		}
		start = j
		i = j
	}
	if start < len(text) {
		appendTrimmed(&sentences, text[start:], base+start)
	}
	return sentences
}

func appendTrimmed(sentences *[]span, raw string, start int) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return
	}
	lead := len(raw) - len(strings.TrimLeft(raw, " \t\r\n"))
	*sentences = append(*sentences, span{
		text:  trimmed,
		start: start + lead,
		end:   start + lead + len(trimmed),
	})
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// headingBefore returns the text of the last heading starting before the
// given byte offset, or "" if none precedes it.
func headingBefore(headings []heading, offset int) string {
	idx := sort.Search(len(headings), func(i int) bool {
		return headings[i].offset >= offset
	})
	if idx == 0 {
		return ""
	}
	return headings[idx-1].text
}
