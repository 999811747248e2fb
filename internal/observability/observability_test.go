package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "newsboard-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestStartRepositorySpan_RecordsLatency(t *testing.T) {
	before := testutil.CollectAndCount(DatabaseQueryLatency)

	_, finish := StartRepositorySpan(context.Background(), "TestSpan", "span_table")
	finish(errors.New("boom"))

	assert.Greater(t, testutil.CollectAndCount(DatabaseQueryLatency), before)
}

func TestRecordBoardEvent(t *testing.T) {
	before := testutil.ToFloat64(BoardEventsTotal.WithLabelValues("sample_event"))
	RecordBoardEvent("sample_event")
	assert.Equal(t, before+1, testutil.ToFloat64(BoardEventsTotal.WithLabelValues("sample_event")))
}
