package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_ProductionWritesJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	initLogger(&buf, "bedfinder", "production")

	log.Info().Str("hospital", "Apex").Msg("synced")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "bedfinder", entry["service"])
	assert.Equal(t, "Apex", entry["hospital"])
	assert.Equal(t, "synced", entry["message"])
}

func TestLoggerFromContext_WithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	initLogger(&buf, "bedfinder", "production")

	LoggerFromContext(context.Background()).Info().Msg("no trace")

	assert.NotContains(t, buf.String(), "trace_id")
}

func TestInitMetrics_NoopProvider(t *testing.T) {
	metrics, err := InitMetrics()
	require.NoError(t, err)

	// recording on the no-op provider must not panic
	AddCount(context.Background(), metrics.SyncInserted, 3)
	RecordRequestMetric(context.Background(), metrics, "GET", "/health", 200, 0)
	RecordRequestMetric(context.Background(), nil, "GET", "/health", 200, 0)
}
