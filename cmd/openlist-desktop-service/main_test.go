package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRootHasExpectedSubcommands(t *testing.T) {
	root := buildRoot()
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"list", "start", "stop", "logs"} {
		assert.True(t, names[want], "expected subcommand %q", want)
	}
}

func TestHelpExitsCleanly(t *testing.T) {
	root := buildRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--help"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "openlist-desktop-service")
}

func TestStartRequiresExactlyOneArg(t *testing.T) {
	root := buildRoot()
	root.SetArgs([]string{"start"})
	err := root.Execute()
	assert.Error(t, err)
}
