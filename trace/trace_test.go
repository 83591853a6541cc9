package trace_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vei-sim/vei/trace"
)

func TestFlushWritesRecordsInAppendOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.jsonl")
	logger := trace.New(path, nil)

	logger.RecordCall("slack.send_message", map[string]any{"text": "hi"}, map[string]any{"ts": "1"}, 100)
	logger.RecordEvent("chat.approve", map[string]any{"text": "ok"}, true, 200)
	logger.Flush()
	require.NoError(t, logger.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []map[string]any
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 2)
	require.Equal(t, "call", lines[0]["type"])
	require.Equal(t, "event", lines[1]["type"])
	require.Equal(t, float64(1), lines[0]["trace_version"])
}

func TestEmptyPathDisablesFileOutputWithoutError(t *testing.T) {
	logger := trace.New("", nil)
	logger.RecordCall("vei.ping", nil, "pong", 0)
	require.NotPanics(t, func() { logger.Flush() })
}
