package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRunReturnsConfigError(t *testing.T) {
	path := writeConfig(t, "analysis:\n  max_concurrency: 0\n")

	err := run(path)
	assert.ErrorContains(t, err, "failed to load configuration")
}

func TestRunReturnsListenError(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	path := writeConfig(t, fmt.Sprintf(`app:
  env: test
  log_level: error
server:
  port: %d
database:
  enabled: false
redis:
  enabled: false
analysis:
  use_llm: false
`, port))
	t.Setenv("SERVER_PORT", fmt.Sprint(port))

	err = run(path)
	assert.ErrorContains(t, err, "server failed")
}
