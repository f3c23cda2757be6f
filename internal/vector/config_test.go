// File path: internal/vector/config_test.go
package vector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("QDRANT_HOST", "")
	t.Setenv("QDRANT_PORT", "")
	t.Setenv("QDRANT_COLLECTION", "")
	t.Setenv("QDRANT_DIMENSION", "")
	t.Setenv("QDRANT_TIMEOUT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6334, cfg.Port)
	assert.Equal(t, "docuchat_chunks", cfg.Collection)
	assert.Equal(t, 1536, cfg.Dimension)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("QDRANT_HOST", "qdrant.internal")
	t.Setenv("QDRANT_PORT", "7443")
	t.Setenv("QDRANT_COLLECTION", "custom")
	t.Setenv("QDRANT_DIMENSION", "768")
	t.Setenv("QDRANT_TIMEOUT", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "qdrant.internal", cfg.Host)
	assert.Equal(t, 7443, cfg.Port)
	assert.Equal(t, "custom", cfg.Collection)
	assert.Equal(t, 768, cfg.Dimension)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestLoadConfigRejectsBadPort(t *testing.T) {
	t.Setenv("QDRANT_PORT", "not-a-port")

	_, err := LoadConfig()
	require.Error(t, err)
}
