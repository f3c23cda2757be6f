// File path: internal/vector/qdrant.go
package vector

import (
	"context"
	"fmt"
	"strings"
	"sync"

	qd "github.com/qdrant/go-client/qdrant"

	"github.com/docuchat-ai/docuchat/internal/common"
	"github.com/docuchat-ai/docuchat/internal/common/telemetry"
	"github.com/docuchat-ai/docuchat/internal/rag"
)

// Store is the nearest-neighbor contract the retrieval core depends on.
// Implementations filter by user and apply a similarity floor; callers never
// see another user's chunks.
type Store interface {
	Available() bool
	EnsureCollection(ctx context.Context) error
	UpsertChunks(ctx context.Context, points []ChunkPoint) error
	Search(ctx context.Context, vector []float32, userID string, limit int, floor float32) ([]SearchResult, error)
}

// ChunkPoint pairs a chunk's embedding with the payload persisted next to
// it. Chunks are only indexed once extraction finishes; an unset Status is
// stored as completed.
type ChunkPoint struct {
	ID         string
	DocumentID string
	Filename   string
	Content    string
	UserID     string
	Status     string
	Vector     []float32
}

type SearchResult struct {
	ID         string
	DocumentID string
	Filename   string
	Content    string
	Score      float32
}

// Client is a qdrant-backed Store.
type Client struct {
	client     *qd.Client
	collection string
	dimension  int
	available  bool

	mu sync.RWMutex
}

// NewFromEnv constructs a client from QDRANT_* environment variables.
func NewFromEnv(ctx context.Context) (*Client, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg)
}

// New constructs a client using the provided configuration. Connection
// failures degrade to an unavailable client rather than an error so the
// keyword path can still serve requests.
func New(ctx context.Context, cfg Config) (*Client, error) {
	logger := common.Logger()
	logger.Info("vector: initializing qdrant client",
		"host", cfg.Host, "port", cfg.Port, "collection", cfg.Collection, "dimension", cfg.Dimension)
	qc, err := qd.NewClient(&qd.Config{Host: cfg.Host, Port: cfg.Port, APIKey: cfg.APIKey})
	if err != nil {
		logger.Warn("vector: qdrant client construction failed", "error", err)
		return &Client{collection: cfg.Collection, dimension: cfg.Dimension}, nil
	}
	client := &Client{client: qc, collection: cfg.Collection, dimension: cfg.Dimension}
	if _, err := qc.HealthCheck(ctx); err != nil {
		logger.Warn("vector: qdrant health check failed", "error", err)
		return client, nil
	}
	client.available = true
	logger.Info("vector: qdrant connection established")
	return client, nil
}

func (c *Client) Available() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available && c.client != nil
}

// EnsureCollection creates the chunk collection when it does not exist yet.
func (c *Client) EnsureCollection(ctx context.Context) error {
	if !c.Available() {
		return fmt.Errorf("vector store unavailable")
	}
	exists, err := c.client.CollectionExists(ctx, c.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		return nil
	}
	err = c.client.CreateCollection(ctx, &qd.CreateCollection{
		CollectionName: c.collection,
		VectorsConfig: qd.NewVectorsConfig(&qd.VectorParams{
			Size:     uint64(c.dimension),
			Distance: qd.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", c.collection, err)
	}
	common.Logger().Info("vector: collection created", "collection", c.collection)
	return nil
}

// UpsertChunks writes chunk embeddings with their payloads.
func (c *Client) UpsertChunks(ctx context.Context, points []ChunkPoint) error {
	if !c.Available() {
		return fmt.Errorf("vector store unavailable")
	}
	if len(points) == 0 {
		return nil
	}
	upserts := make([]*qd.PointStruct, 0, len(points))
	for _, point := range points {
		if len(point.Vector) == 0 || strings.TrimSpace(point.Content) == "" {
			continue
		}
		upserts = append(upserts, &qd.PointStruct{
			Id:      &qd.PointId{PointIdOptions: &qd.PointId_Uuid{Uuid: point.ID}},
			Vectors: qd.NewVectors(point.Vector...),
			Payload: qd.NewValueMap(chunkPayload(point)),
		})
	}
	if len(upserts) == 0 {
		return nil
	}
	wait := true
	_, err := c.client.Upsert(ctx, &qd.UpsertPoints{
		CollectionName: c.collection,
		Points:         upserts,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

// Search runs nearest-neighbor retrieval filtered to one user with a score
// floor applied server-side.
func (c *Client) Search(ctx context.Context, vector []float32, userID string, limit int, floor float32) ([]SearchResult, error) {
	if !c.Available() {
		return nil, fmt.Errorf("vector store unavailable")
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector required")
	}
	if limit <= 0 {
		limit = 10
	}
	spanCtx := telemetry.StartSpan(ctx, "vector.search")
	defer telemetry.EndSpan(spanCtx)
	telemetry.RecordVectorSearch()

	queryLimit := uint64(limit)
	request := &qd.QueryPoints{
		CollectionName: c.collection,
		Query:          qd.NewQuery(vector...),
		Limit:          &queryLimit,
		WithPayload:    qd.NewWithPayload(true),
	}
	if floor > 0 {
		threshold := floor
		request.ScoreThreshold = &threshold
	}
	request.Filter = searchFilter(userID)
	points, err := c.client.Query(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("qdrant query: %w", err)
	}
	results := make([]SearchResult, 0, len(points))
	for _, point := range points {
		result := SearchResult{Score: point.Score}
		if point.Id != nil {
			if uuid := point.Id.GetUuid(); uuid != "" {
				result.ID = uuid
			} else {
				result.ID = point.Id.String()
			}
		}
		if payload := point.Payload; payload != nil {
			if v, ok := payload["document_id"]; ok {
				result.DocumentID = v.GetStringValue()
			}
			if v, ok := payload["filename"]; ok {
				result.Filename = v.GetStringValue()
			}
			if v, ok := payload["content"]; ok {
				result.Content = v.GetStringValue()
			}
		}
		results = append(results, result)
	}
	return results, nil
}

func chunkPayload(point ChunkPoint) map[string]any {
	status := point.Status
	if status == "" {
		status = rag.StatusCompleted
	}
	return map[string]any{
		"document_id": point.DocumentID,
		"filename":    point.Filename,
		"content":     point.Content,
		"user_id":     point.UserID,
		"status":      status,
	}
}

// searchFilter scopes retrieval to one user's completed documents. Chunks of
// documents still processing, or whose extraction failed, never surface.
func searchFilter(userID string) *qd.Filter {
	must := []*qd.Condition{qd.NewMatch("status", rag.StatusCompleted)}
	if strings.TrimSpace(userID) != "" {
		must = append(must, qd.NewMatch("user_id", userID))
	}
	return &qd.Filter{Must: must}
}
