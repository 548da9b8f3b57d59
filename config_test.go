package chunkstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/chunkstore/backend"
)

const sampleConfig = `
backend:
  type: minio
  endpoint: localhost:9000
  bucket: chunks
  access_key: ${CHUNKSTORE_TEST_KEY}
store:
  name: movie
  chunk_length: 10
  total_length: 26
  compression: zstd
  memory_cache_bytes: 1024
  files:
    - path: a.bin
      length: 5
    - path: b.bin
      length: 5
    - path: dir/c.bin
      length: 8
      offset: 10
    - path: dir/d.bin
      length: 8
log:
  level: debug
  format: json
`

func TestParseConfig(t *testing.T) {
	t.Setenv("CHUNKSTORE_TEST_KEY", "secret")

	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "minio", cfg.Backend.Type)
	assert.Equal(t, "secret", cfg.Backend.AccessKey)
	assert.Equal(t, "movie", cfg.Store.Name)
	assert.Equal(t, 10, cfg.Store.ChunkLength)
	require.NotNil(t, cfg.Store.TotalLength)
	assert.Equal(t, int64(26), *cfg.Store.TotalLength)
	require.Len(t, cfg.Store.Files, 4)
	require.NotNil(t, cfg.Store.Files[2].Offset)
	assert.Equal(t, int64(10), *cfg.Store.Files[2].Offset)
	assert.Nil(t, cfg.Store.Files[3].Offset)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Backend.Type)
	assert.Equal(t, ".", cfg.Backend.Path)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown key":     "store:\n  chunk_size: 10\n",
		"unknown backend": "backend:\n  type: ftp\n",
		"bad compression": "store:\n  compression: brotli\n",
		"bad level":       "log:\n  level: loud\n",
		"malformed":       "store: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunkstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  chunk_length: 4\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Store.ChunkLength)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfig_Options(t *testing.T) {
	t.Setenv("CHUNKSTORE_TEST_KEY", "")
	ctx := context.Background()

	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)
	cfg.Log.Level = "off"

	opts, err := cfg.Options()
	require.NoError(t, err)

	s, err := New(ctx, backend.NewMemory(), cfg.Store.ChunkLength, opts...)
	require.NoError(t, err)
	defer s.Close(ctx)

	st := s.Stats()
	assert.Equal(t, "movie", st.Name)
	assert.Equal(t, int64(26), st.TotalLength)
	assert.Equal(t, 4, st.Files)

	require.NoError(t, s.Put(ctx, 0, []byte("0123456789")))
	assert.Equal(t, 1, s.Stats().MemoryChunks)
}

func TestLogConfig_Logger(t *testing.T) {
	for _, c := range []LogConfig{
		{Level: "debug", Format: "text"},
		{Level: "warn", Format: "json"},
		{Level: "off"},
		{},
	} {
		l, err := c.Logger()
		require.NoError(t, err)
		assert.NotNil(t, l)
	}

	_, err := LogConfig{Format: "xml"}.Logger()
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}
