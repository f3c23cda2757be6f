// File path: internal/docstore/store_test.go
package docstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat-ai/docuchat/internal/rag"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedDocument(t *testing.T, store *Store, userID, filename string) rag.Document {
	t.Helper()
	doc, err := store.InsertDocument(context.Background(), rag.Document{UserID: userID, Filename: filename})
	require.NoError(t, err)
	return doc
}

func TestInsertDocumentAssignsDefaults(t *testing.T) {
	store := newTestStore(t)

	doc := seedDocument(t, store, "user-1", "report.pdf")

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "processing", doc.Status)
	assert.False(t, doc.UploadedAt.IsZero())

	fetched, err := store.DocumentByID(context.Background(), "user-1", doc.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "report.pdf", fetched.Filename)
}

func TestInsertDocumentValidation(t *testing.T) {
	store := newTestStore(t)

	_, err := store.InsertDocument(context.Background(), rag.Document{Filename: "a.pdf"})
	assert.Error(t, err)
	_, err = store.InsertDocument(context.Background(), rag.Document{UserID: "user-1"})
	assert.Error(t, err)
}

func TestDocumentScoping(t *testing.T) {
	store := newTestStore(t)
	mine := seedDocument(t, store, "user-1", "mine.pdf")
	seedDocument(t, store, "user-2", "theirs.pdf")

	docs, err := store.DocumentsForUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "mine.pdf", docs[0].Filename)

	// The wrong owner cannot reach the document.
	other, err := store.DocumentByID(context.Background(), "user-2", mine.ID)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestSearchChunksCaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "user-1", "report.pdf")

	require.NoError(t, store.InsertChunks(context.Background(), []rag.Chunk{
		{DocumentID: doc.ID, UserID: "user-1", Index: 0, Content: "Revenue grew 12% in Q3."},
		{DocumentID: doc.ID, UserID: "user-1", Index: 1, Content: "Headcount stayed flat."},
	}))

	chunks, err := store.SearchChunks(context.Background(), "user-1", "REVENUE", 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "Revenue grew")

	none, err := store.SearchChunks(context.Background(), "user-2", "revenue", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestChunksForDocumentPreservesOrder(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "user-1", "report.pdf")

	var chunks []rag.Chunk
	for i := 2; i >= 0; i-- {
		chunks = append(chunks, rag.Chunk{DocumentID: doc.ID, UserID: "user-1", Index: i, Content: fmt.Sprintf("part %d", i)})
	}
	require.NoError(t, store.InsertChunks(context.Background(), chunks))

	ordered, err := store.ChunksForDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, ordered, 3)
	for i, chunk := range ordered {
		assert.Equal(t, i, chunk.Index)
	}
}

func TestReleaseStuckDocuments(t *testing.T) {
	store := newTestStore(t)

	stale, err := store.InsertDocument(context.Background(), rag.Document{
		UserID:     "user-1",
		Filename:   "stale.pdf",
		UploadedAt: time.Now().UTC().Add(-30 * time.Minute),
	})
	require.NoError(t, err)
	fresh := seedDocument(t, store, "user-1", "fresh.pdf")

	released, err := store.ReleaseStuckDocuments(context.Background(), 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	staleDoc, err := store.DocumentByID(context.Background(), "user-1", stale.ID)
	require.NoError(t, err)
	require.NotNil(t, staleDoc)
	assert.Equal(t, "failed", staleDoc.Status)

	freshDoc, err := store.DocumentByID(context.Background(), "user-1", fresh.ID)
	require.NoError(t, err)
	require.NotNil(t, freshDoc)
	assert.Equal(t, "processing", freshDoc.Status)
}

func TestRecentMessagesWindow(t *testing.T) {
	store := newTestStore(t)
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 15; i++ {
		_, err := store.AppendMessage(context.Background(), rag.Message{
			ConversationID: "conv-1",
			Role:           "user",
			Content:        fmt.Sprintf("turn %d", i),
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	msgs, err := store.RecentMessages(context.Background(), "conv-1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 10)
	// The window keeps the newest ten, oldest first.
	assert.Equal(t, "turn 5", msgs[0].Content)
	assert.Equal(t, "turn 14", msgs[9].Content)
}
