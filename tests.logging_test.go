package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreateLogFilePath(t *testing.T) {
	at := NewMockClocker().Now().Add(90*time.Minute + 1500*time.Millisecond)
	assert.Equal(t, filepath.Join("logs", "demo-lending.20230702.013001.500.dev.log"), CreateLogFilePath("logs", false, at))
	assert.Equal(t, filepath.Join("logs", "demo-lending.20230702.013001.500.prod.log"), CreateLogFilePath("logs", true, at))
}

// TestRSyncWrite ensures the writer opens a new file once the current one is full.
func TestRSyncWrite(t *testing.T) {
	folder := t.TempDir()
	clock := NewMockClocker()
	w := NewRSyncWriter(&Config{LogFolder: folder, LogMaxSize: 1}, clock)

	require.NoError(t, w.Sync())
	entry := bytes.Repeat([]byte("a"), 600*1024)

	n, err := w.Write(entry)
	require.NoError(t, err)
	assert.Equal(t, len(entry), n)
	assert.Equal(t, 0, w.Rotations())

	clock.MockNow = clock.MockNow.Add(time.Second)
	_, err = w.Write(entry)
	require.NoError(t, err)
	assert.Equal(t, 1, w.Rotations())

	_, err = w.Write(bytes.Repeat([]byte("a"), megabyte+1))
	assert.Error(t, err)

	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	files, err := os.ReadDir(folder)
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, f := range files {
		info, err := f.Info()
		require.NoError(t, err)
		assert.Equal(t, int64(len(entry)), info.Size(), f.Name())
	}
}

func TestRSyncWrite_DefaultMaxSize(t *testing.T) {
	w := NewRSyncWriter(&Config{LogFolder: t.TempDir()}, NewMockClocker())
	assert.Equal(t, int64(10*megabyte), w.maxBytes)
}

// TestSetupLogging ensures the file entries carry the app details.
func TestSetupLogging(t *testing.T) {
	folder := t.TempDir()
	config := &Config{IsProduction: true, LogFolder: folder, GitTag: "v1.0.0", GitCommit: "abc123"}
	clock := NewMockClocker()
	w := NewRSyncWriter(config, clock)
	defer w.Close()

	logger, flush := SetupLogging(config, w, NewTickClock(clock))
	logger.Debug("filtered out")
	logger.Info("success to create book", zap.Uint("book.id", 1))
	require.NoError(t, flush())

	content, err := os.ReadFile(CreateLogFilePath(folder, true, clock.Now()))
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(content), []byte("\n"))
	require.Len(t, lines, 1)

	entry := make(map[string]interface{})
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "success to create book", entry["msg"])
	assert.Equal(t, "info", entry["lvl"])
	assert.Equal(t, "lending", entry["name"])
	assert.Equal(t, AppName, entry["app.name"])
	assert.Equal(t, "v1.0.0", entry["app.tag"])
	assert.Equal(t, "abc123", entry["app.commit"])
	assert.Equal(t, float64(1), entry["book.id"])
	assert.Contains(t, entry["ts"], "2023-07-02T00:00:00")
}
