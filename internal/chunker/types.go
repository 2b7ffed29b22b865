package chunker

// Chunk represents a bounded span of document text, the unit of embedding
// and retrieval.
type Chunk struct {
	Index         int    // Chunk index within the document (starts at 0)
	Content       string // Chunk text content
	TokenCount    int    // Subword token count of Content
	CharStart     int    // Byte offset of the first fresh (non-overlap) content in the source text
	CharEnd       int    // Byte offset one past the last content in the source text
	SectionHeader string // Nearest preceding markdown heading, empty if none
}
