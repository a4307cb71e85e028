package models

// Document is one harvested article section. Immutable once ingested.
type Document struct {
	ID      string
	URL     string
	Title   string
	Section string
	Text    string
}

// Chunk is a bounded window of a document's text. DocumentID is a
// back-reference, not ownership.
type Chunk struct {
	ID         string
	DocumentID string
	Text       string
	Ordinal    int

	// Carried from the parent document so citations can be built
	// without a document lookup.
	URL     string
	Title   string
	Section string
}

// ScoredChunk is one retrieval hit, ranked by cosine similarity.
type ScoredChunk struct {
	Chunk
	Score float32
}

// SourceRef is a citation for one chunk surfaced to the generator.
type SourceRef struct {
	Label   string `json:"label"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Section string `json:"section"`
}

// Answer is the generated text plus the citations it is grounded on.
type Answer struct {
	Text    string      `json:"answer"`
	Sources []SourceRef `json:"sources"`
}

// ImageRequest is one prompt in a fan-out batch. Ordinal fixes the
// output slot regardless of completion order.
type ImageRequest struct {
	Prompt  string
	Ordinal int
}

// ImageResult is the outcome of one image call. Payload is nil when
// Err is set.
type ImageResult struct {
	Ordinal int
	Payload []byte
	Err     error
}
