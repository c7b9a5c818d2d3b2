package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, Version+"\n", out.String())
}

func TestServeFailsWithoutAPIKey(t *testing.T) {
	t.Setenv("API_KEY", "")
	t.Setenv("STORAGE_DRIVER", "memory")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"serve", "--env-file", t.TempDir() + "/missing.env"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_KEY")
}
