package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["serve"], "serve must be registered")
	assert.True(t, names["replay"], "replay must be registered")
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
}

func TestRootCommand_Version(t *testing.T) {
	assert.Equal(t, version, rootCmd.Version)
}

func TestReplayCommand_RequiresPayloadArg(t *testing.T) {
	assert.Error(t, replayCmd.Args(replayCmd, nil))
	assert.Error(t, replayCmd.Args(replayCmd, []string{"a.json", "b.json"}))
	assert.NoError(t, replayCmd.Args(replayCmd, []string{"run-55.json"}))
}
