package replay_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vei-sim/vei/bus"
	"github.com/vei-sim/vei/replay"
)

const datasetJSON = `{
  "metadata": {"name": "demo"},
  "events": [
    {"time_ms": 1500, "actor_id": "user", "channel": "mail", "type": "received", "payload": {"body_text": "price"}},
    {"time_ms": 1000, "actor_id": "user", "channel": "slack", "type": "message", "payload": {"text": "hello"}}
  ]
}`

func TestLoadDatasetFileDecodesEventsAndMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.json")
	require.NoError(t, os.WriteFile(path, []byte(datasetJSON), 0o644))

	ds, err := replay.LoadDatasetFile(path)
	require.NoError(t, err)
	require.Equal(t, "demo", ds.Metadata["name"])
	require.Len(t, ds.Events, 2)
}

func TestPrimeSchedulesEventsInRecordedOrderRegardlessOfInputOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.json")
	require.NoError(t, os.WriteFile(path, []byte(datasetJSON), 0o644))
	ds, err := replay.LoadDatasetFile(path)
	require.NoError(t, err)

	b := bus.New()
	adapter := replay.New(b, ds.Events)
	adapter.Prime()

	require.GreaterOrEqual(t, b.PendingCount("slack"), 1)
	require.GreaterOrEqual(t, b.PendingCount("mail"), 1)

	var delivered []string
	b.Tick(2000, func(e *bus.Entry) { delivered = append(delivered, e.Target) })
	require.Equal(t, []string{"slack", "mail"}, delivered)
}

func TestPrimeClampsPastOffsetsToCurrentClock(t *testing.T) {
	b := bus.New()
	b.Advance(5000)
	adapter := replay.New(b, []replay.DatasetEvent{
		{TimeMS: 1000, Channel: "slack", Payload: map[string]any{"text": "late"}},
	})
	adapter.Prime()

	var due int64 = -1
	b.Tick(0, func(e *bus.Entry) { due = e.DueMS })
	require.Equal(t, int64(5000), due)
}
