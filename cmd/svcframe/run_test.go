package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dermesser/svcframe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("message: from file\ncount: 2\n"), 0600))

	config, err := loadConfig(path, []string{"count", "5"})
	require.NoError(t, err)
	assert.Equal(t, svcframe.Config{"message": "from file", "count": 5}, config)

	config, err = loadConfig("", nil)
	require.NoError(t, err)
	assert.Empty(t, config)

	_, err = loadConfig("", []string{"dangling"})
	assert.Error(t, err)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestServicesAreRegistered(t *testing.T) {
	out, err := runCommand(t, "services")
	require.NoError(t, err)
	assert.Contains(t, out, "echo_server")
	assert.Contains(t, out, "echo_client")
}

func TestKeygen(t *testing.T) {
	dir := t.TempDir()
	pub, priv := filepath.Join(dir, "pub.txt"), filepath.Join(dir, "priv.txt")

	_, err := runCommand(t, "keygen", "--pub", pub, "--priv", priv)
	require.NoError(t, err)

	for _, f := range []string{pub, priv} {
		content, err := os.ReadFile(f)
		require.NoError(t, err)
		assert.Len(t, content, 40)
	}
}
