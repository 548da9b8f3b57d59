package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), err
}

func TestCLI_BareStore(t *testing.T) {
	root := t.TempDir()
	base := []string{"--path", root, "--name", "bare", "--chunk-length", "10", "--log-level", "off"}

	_, err := runCLI(t, "0123456789", append(base, "put", "4")...)
	require.NoError(t, err)

	out, err := runCLI(t, "", append(base, "get", "4")...)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", out)

	out, err = runCLI(t, "", append(base, "get", "4", "--offset", "2", "--length", "3")...)
	require.NoError(t, err)
	assert.Equal(t, "234", out)

	_, err = runCLI(t, "short", append(base, "put", "5")...)
	assert.Error(t, err)

	_, err = runCLI(t, "", append(base, "destroy")...)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "bare"))
	assert.True(t, os.IsNotExist(err))
}

func TestCLI_ConfigWithFiles(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "store.yaml")
	cfg := `
backend:
  type: local
  path: ` + filepath.ToSlash(filepath.Join(dir, "data")) + `
store:
  name: album
  chunk_length: 10
  files:
    - path: a.bin
      length: 5
    - path: b.bin
      length: 5
log:
  level: off
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	chunk := filepath.Join(dir, "chunk.bin")
	require.NoError(t, os.WriteFile(chunk, []byte("helloworld"), 0o600))

	_, err := runCLI(t, "", "--config", cfgPath, "put", "0", chunk)
	require.NoError(t, err)

	a, err := os.ReadFile(filepath.Join(dir, "data", "album", "a.bin"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(a))

	// Each invocation reopens the store, so reads come from the files.
	out, err := runCLI(t, "", "--config", cfgPath, "get", "0", "--offset", "3", "--length", "4")
	require.NoError(t, err)
	assert.Equal(t, "lowo", out)

	out, err = runCLI(t, "", "--config", cfgPath, "info")
	require.NoError(t, err)
	var got info
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "album", got.Name)
	assert.Equal(t, 2, got.Files)
	assert.Equal(t, int64(10), got.TotalLength)
	assert.Equal(t, 1, got.NumChunks)

	_, err = runCLI(t, "", "--config", cfgPath, "cleanup")
	require.NoError(t, err)

	_, err = runCLI(t, "", "--config", cfgPath, "purge")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "data", ".chunkcache"))
	assert.True(t, os.IsNotExist(err))
}

func TestCLI_Errors(t *testing.T) {
	_, err := runCLI(t, "")
	assert.Error(t, err)

	_, err = runCLI(t, "", "frobnicate")
	assert.ErrorContains(t, err, "unknown command")

	_, err = runCLI(t, "", "--path", t.TempDir(), "--chunk-length", "4", "get", "0")
	assert.ErrorContains(t, err, "store name")

	_, err = runCLI(t, "", "--path", t.TempDir(), "--name", "x", "--chunk-length", "4", "get", "nope")
	assert.ErrorContains(t, err, "invalid chunk index")

	_, err = runCLI(t, "", "--backend", "ftp", "purge")
	assert.Error(t, err)
}
