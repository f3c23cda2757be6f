// File path: internal/docstore/queries.go
package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docuchat-ai/docuchat/internal/rag"
)

// InsertDocument persists document metadata. An empty ID is assigned.
func (s *Store) InsertDocument(ctx context.Context, doc rag.Document) (rag.Document, error) {
	if s == nil || s.db == nil {
		return rag.Document{}, fmt.Errorf("docstore not initialised")
	}
	if strings.TrimSpace(doc.UserID) == "" {
		return rag.Document{}, fmt.Errorf("document user id required")
	}
	if strings.TrimSpace(doc.Filename) == "" {
		return rag.Document{}, fmt.Errorf("document filename required")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Status == "" {
		doc.Status = rag.StatusProcessing
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, user_id, filename, mime_type, file_size, folder_id, status, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.UserID, doc.Filename, doc.MimeType, doc.FileSize, doc.FolderID, doc.Status, doc.UploadedAt)
	if err != nil {
		return rag.Document{}, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

// DocumentsForUser returns all document metadata owned by a user.
func (s *Store) DocumentsForUser(ctx context.Context, userID string) ([]rag.Document, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("docstore not initialised")
	}
	docs := []rag.Document{}
	if err := s.db.SelectContext(ctx, &docs,
		`SELECT * FROM documents WHERE user_id = ? ORDER BY uploaded_at DESC, filename`, userID); err != nil {
		return nil, fmt.Errorf("select documents: %w", err)
	}
	return docs, nil
}

// DocumentByID retrieves one document scoped to its owner.
func (s *Store) DocumentByID(ctx context.Context, userID, documentID string) (*rag.Document, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("docstore not initialised")
	}
	var doc rag.Document
	err := s.db.GetContext(ctx, &doc,
		`SELECT * FROM documents WHERE user_id = ? AND id = ?`, userID, documentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select document: %w", err)
	}
	return &doc, nil
}

// UpdateDocumentStatus transitions a document's processing status.
func (s *Store) UpdateDocumentStatus(ctx context.Context, documentID, status string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("docstore not initialised")
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ? WHERE id = ?`, status, documentID); err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return nil
}

// ReleaseStuckDocuments resets documents left in 'processing' for longer
// than the provided age back to 'failed' so they can be retried. Returns the
// number of documents released.
func (s *Store) ReleaseStuckDocuments(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("docstore not initialised")
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = 'failed' WHERE status = 'processing' AND uploaded_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("release stuck documents: %w", err)
	}
	released, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("release stuck documents: %w", err)
	}
	return released, nil
}

// InsertChunks persists extracted chunks for a document in one transaction.
func (s *Store) InsertChunks(ctx context.Context, chunks []rag.Chunk) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("docstore not initialised")
	}
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunk insert: %w", err)
	}
	defer tx.Rollback()
	for _, chunk := range chunks {
		if chunk.ID == "" {
			chunk.ID = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (id, document_id, user_id, idx, content) VALUES (?, ?, ?, ?, ?)`,
			chunk.ID, chunk.DocumentID, chunk.UserID, chunk.Index, chunk.Content); err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}
	return tx.Commit()
}

// ChunksForDocument returns a document's chunks in extraction order.
func (s *Store) ChunksForDocument(ctx context.Context, documentID string) ([]rag.Chunk, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("docstore not initialised")
	}
	chunks := []rag.Chunk{}
	if err := s.db.SelectContext(ctx, &chunks,
		`SELECT * FROM chunks WHERE document_id = ? ORDER BY idx`, documentID); err != nil {
		return nil, fmt.Errorf("select chunks: %w", err)
	}
	return chunks, nil
}

// SearchChunks performs a case-insensitive substring match over a user's
// chunk text, the lexical half of hybrid retrieval.
func (s *Store) SearchChunks(ctx context.Context, userID, term string, limit int) ([]rag.Chunk, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("docstore not initialised")
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + strings.ToLower(term) + "%"
	chunks := []rag.Chunk{}
	if err := s.db.SelectContext(ctx, &chunks,
		`SELECT * FROM chunks WHERE user_id = ? AND lower(content) LIKE ? ORDER BY document_id, idx LIMIT ?`,
		userID, pattern, limit); err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	return chunks, nil
}

// AppendMessage records one conversation turn.
func (s *Store) AppendMessage(ctx context.Context, msg rag.Message) (rag.Message, error) {
	if s == nil || s.db == nil {
		return rag.Message{}, fmt.Errorf("docstore not initialised")
	}
	if strings.TrimSpace(msg.ConversationID) == "" {
		return rag.Message{}, fmt.Errorf("conversation id required")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Role == "" {
		msg.Role = "user"
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.CreatedAt); err != nil {
		return rag.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// RecentMessages returns the last limit turns for a conversation in
// chronological order.
func (s *Store) RecentMessages(ctx context.Context, conversationID string, limit int) ([]rag.Message, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("docstore not initialised")
	}
	if limit <= 0 {
		limit = 10
	}
	msgs := []rag.Message{}
	if err := s.db.SelectContext(ctx, &msgs,
		`SELECT * FROM (
			SELECT * FROM messages WHERE conversation_id = ? ORDER BY created_at DESC, id DESC LIMIT ?
		) ORDER BY created_at, id`,
		conversationID, limit); err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	return msgs, nil
}
