package annex_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annex"
)

func decodeLogs(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func findLog(logs []map[string]any, msg string) map[string]any {
	for _, rec := range logs {
		if rec["msg"] == msg {
			return rec
		}
	}
	return nil
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := annex.NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	idx, err := annex.NewL2sq(2, "f32", 0, 0, 0, annex.WithLogger(logger), annex.WithGrowth(false))
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Reserve(1))
	require.NoError(t, idx.Add(1, []float32{0, 0}))
	require.ErrorIs(t, idx.Add(2, []float32{1, 1}), annex.ErrCapacityExceeded)
	_, err = idx.Search([]float32{0, 0}, 1)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "log.anx")
	require.NoError(t, idx.Save(path))

	logs := decodeLogs(t, &buf)

	failed := findLog(logs, "insert failed")
	require.NotNil(t, failed)
	assert.Equal(t, "ERROR", failed["level"])
	assert.EqualValues(t, 2, failed["label"])
	assert.Equal(t, "l2sq", failed["metric"])

	search := findLog(logs, "search completed")
	require.NotNil(t, search)
	assert.EqualValues(t, 1, search["results"])

	saved := findLog(logs, "index saved")
	require.NotNil(t, saved)
	assert.Equal(t, path, saved["target"])
	assert.EqualValues(t, 1, saved["size"])
}

func TestLogger_Constructors(t *testing.T) {
	assert.NotNil(t, annex.NewLogger(nil))
	assert.NotNil(t, annex.NewJSONLogger(slog.LevelWarn))
	assert.NotNil(t, annex.NewTextLogger(slog.LevelInfo))

	// A nil logger disables output instead of panicking.
	idx, err := annex.NewL2sq(2, "f32", 0, 0, 0, annex.WithLogger(nil))
	require.NoError(t, err)
	require.NoError(t, idx.Add(1, []float32{1, 2}))
	require.NoError(t, idx.Close())
}

func TestBasicMetricsCollector(t *testing.T) {
	mc := &annex.BasicMetricsCollector{}
	idx, err := annex.NewL2sq(2, "f32", 0, 0, 0, annex.WithMetrics(mc))
	require.NoError(t, err)
	defer idx.Close()

	for i := range 10 {
		require.NoError(t, idx.Add(uint32(i), []float32{float32(i), 0}))
	}
	require.Error(t, idx.Add(99, []float32{1}))

	for range 3 {
		_, err := idx.Search([]float32{0, 0}, 2)
		require.NoError(t, err)
	}
	_, err = idx.Search([]float32{0}, 2)
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "m.anx")
	require.NoError(t, idx.Save(path))
	require.NoError(t, idx.Load(path))

	st := mc.GetStats()
	assert.EqualValues(t, 11, st.InsertCount)
	assert.EqualValues(t, 1, st.InsertErrors)
	assert.EqualValues(t, 4, st.SearchCount)
	assert.EqualValues(t, 1, st.SearchErrors)
	assert.EqualValues(t, 1, st.SaveCount)
	assert.Positive(t, st.SaveBytes)
	assert.EqualValues(t, 1, st.LoadCount)
	assert.Zero(t, st.LoadErrors)
	// Growth from an empty index 0 -> 8 -> 16, then the load trims to size.
	assert.EqualValues(t, 3, st.GrowCount)
	assert.EqualValues(t, 10, st.Capacity)
}
