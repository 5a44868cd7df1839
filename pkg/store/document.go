package store

// SourceFile is the sentinel source identifier for documents that came from an
// uploaded attachment instead of the web.
const SourceFile = "File"

// DocumentMetadata describes where a document came from.
type DocumentMetadata struct {
	Title         string `json:"title"`
	URL           string `json:"url"` // source URL, or SourceFile for attachments
	ImageURL      string `json:"img_src,omitempty"`
	Engine        string `json:"engine,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
}

// Document is one retrieved unit of content. Immutable once created.
type Document struct {
	PageContent string           `json:"page_content"`
	Metadata    DocumentMetadata `json:"metadata"`
}

// RerankedDocument pairs a document with its relevance score in [0,1] and the
// rank it held before reranking, kept for auditability.
type RerankedDocument struct {
	Document       Document `json:"document"`
	RelevanceScore float64  `json:"relevance_score"`
	OriginalRank   int      `json:"original_rank"`
}

// ContextChunk is a fused slice of one or more reranked documents.
type ContextChunk struct {
	ID             string         `json:"id"`
	Content        string         `json:"content"`
	Sources        []string       `json:"sources"`
	RelevanceScore float64        `json:"relevance_score"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}
