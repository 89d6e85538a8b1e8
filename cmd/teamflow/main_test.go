package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TEAMFLOW_CONFIG", "")

	var out bytes.Buffer

	command := NewCommand()
	command.Writer = &out
	command.ErrWriter = &out

	err := command.Run(context.Background(), append([]string{"teamflow"}, args...))

	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "teamflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestValidateCommand_Builtin(t *testing.T) {
	out, err := runCLI(t, "validate")
	require.NoError(t, err)

	assert.Contains(t, out, "Team: hr")
	assert.Contains(t, out, "Team: coordinator")
	assert.Contains(t, out, "Placeholder teams: 17")
	assert.Contains(t, out, "All teams are valid!")
}

func TestValidateCommand_UnknownDependency(t *testing.T) {
	path := writeConfig(t, `
dependencies:
  - team: finance
    depends_on: [treasury]
`)

	out, err := runCLI(t, "--config", path, "validate")
	require.Error(t, err)

	assert.Contains(t, out, "❌ INVALID")
	assert.Contains(t, out, "treasury")
}

func TestValidateCommand_MalformedConfig(t *testing.T) {
	path := writeConfig(t, "workers: 4\n")

	out, err := runCLI(t, "--config", path, "validate")
	require.Error(t, err)
	assert.Contains(t, out, "INVALID configuration")
}

func TestTeamsCommand(t *testing.T) {
	path := writeConfig(t, "disabled_teams: [healthcare]\n")

	out, err := runCLI(t, "--config", path, "teams")
	require.NoError(t, err)

	assert.Contains(t, out, "Team: finance")
	assert.Contains(t, out, "Depends on: operations")
	assert.Contains(t, out, "healthcare (disabled)")
	assert.NotContains(t, out, "Team: healthcare")
}
