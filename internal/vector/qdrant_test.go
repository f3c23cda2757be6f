// File path: internal/vector/qdrant_test.go
package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat-ai/docuchat/internal/rag"
)

func TestSearchFilterRequiresCompletedStatus(t *testing.T) {
	filter := searchFilter("user-1")
	require.Len(t, filter.Must, 2)
	assert.Equal(t, "status", filter.Must[0].GetField().GetKey())
	assert.Equal(t, rag.StatusCompleted, filter.Must[0].GetField().GetMatch().GetKeyword())
	assert.Equal(t, "user_id", filter.Must[1].GetField().GetKey())
	assert.Equal(t, "user-1", filter.Must[1].GetField().GetMatch().GetKeyword())
}

func TestSearchFilterWithoutUserStillScopesStatus(t *testing.T) {
	filter := searchFilter("  ")
	require.Len(t, filter.Must, 1)
	assert.Equal(t, "status", filter.Must[0].GetField().GetKey())
	assert.Equal(t, rag.StatusCompleted, filter.Must[0].GetField().GetMatch().GetKeyword())
}

func TestChunkPayloadCarriesStatus(t *testing.T) {
	payload := chunkPayload(ChunkPoint{
		ID:         "c-1",
		DocumentID: "doc-1",
		Filename:   "report.pdf",
		Content:    "Quarterly figures.",
		UserID:     "user-1",
		Status:     rag.StatusCompleted,
	})
	assert.Equal(t, rag.StatusCompleted, payload["status"])
	assert.Equal(t, "user-1", payload["user_id"])

	// Chunks are only indexed after extraction, so an unset status defaults
	// to completed.
	defaulted := chunkPayload(ChunkPoint{ID: "c-2", DocumentID: "doc-2"})
	assert.Equal(t, rag.StatusCompleted, defaulted["status"])
}
