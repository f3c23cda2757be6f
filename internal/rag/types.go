// File path: internal/rag/types.go
package rag

import "time"

// Document processing statuses. Only completed documents are retrievable.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Document describes the stored metadata for an uploaded file. Identity is
// assigned by the document store; this core only consumes the IDs.
type Document struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Filename   string    `json:"filename" db:"filename"`
	MimeType   string    `json:"mime_type" db:"mime_type"`
	FileSize   int64     `json:"file_size" db:"file_size"`
	FolderID   string    `json:"folder_id,omitempty" db:"folder_id"`
	Status     string    `json:"status" db:"status"`
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// Chunk is a bounded span of a document's extracted text, the unit of
// retrieval.
type Chunk struct {
	ID         string `json:"id" db:"id"`
	DocumentID string `json:"document_id" db:"document_id"`
	UserID     string `json:"user_id" db:"user_id"`
	Index      int    `json:"index" db:"idx"`
	Content    string `json:"content" db:"content"`
}

// ChunkMatch is a chunk scored against a query. Relevance is clamped to
// [0,1] and never persisted beyond the response that produced it.
type ChunkMatch struct {
	ChunkID      string   `json:"chunk_id"`
	DocumentID   string   `json:"document_id"`
	Filename     string   `json:"filename,omitempty"`
	Excerpt      string   `json:"excerpt"`
	Relevance    float64  `json:"relevance"`
	MatchedTerms []string `json:"matched_terms,omitempty"`
}

// DocumentMatch is a document scored against a query. Confidence is derived
// per query, not stored.
type DocumentMatch struct {
	DocumentID      string       `json:"document_id"`
	Filename        string       `json:"filename"`
	MimeType        string       `json:"mime_type,omitempty"`
	FileSize        int64        `json:"file_size,omitempty"`
	FolderID        string       `json:"folder_id,omitempty"`
	Confidence      float64      `json:"confidence"`
	MatchedCriteria []string     `json:"matched_criteria,omitempty"`
	MatchedChunks   []ChunkMatch `json:"matched_chunks,omitempty"`
}

// CriteriaType enumerates the kinds of criteria a query decomposes into.
type CriteriaType string

const (
	CriteriaKeyword    CriteriaType = "keyword"
	CriteriaTimePeriod CriteriaType = "time_period"
	CriteriaMetric     CriteriaType = "metric"
	CriteriaTopic      CriteriaType = "topic"
	CriteriaFileType   CriteriaType = "file_type"
)

// SearchCriteria is a single constraint extracted from a query. Weight is a
// [0,1] ranking signal, not a hard filter.
type SearchCriteria struct {
	Type   CriteriaType `json:"type"`
	Value  string       `json:"value"`
	Weight float64      `json:"weight"`
}

// Message is one conversation turn.
type Message struct {
	ID             string    `json:"id" db:"id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	Role           string    `json:"role" db:"role"`
	Content        string    `json:"content" db:"content"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Clamp01 bounds a heuristic score to [0,1]. Confidence values never leave
// helper functions unclamped.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
