package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand_Valid(t *testing.T) {
	stdout, _, err := executeCommand(t, "validate", filepath.Join("testdata", "config"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Configuration is valid")
	assert.Contains(t, stdout, "max_ticks: 500")
	assert.Contains(t, stdout, "tick_interval: 20ms")
	assert.Contains(t, stdout, "create_point: repeating=true scope=site")
	assert.Contains(t, stdout, `object="chair"`)
}

func TestValidateCommand_JSON(t *testing.T) {
	stdout, _, err := executeCommand(t, "validate", filepath.Join("testdata", "config"), "--format", "json")
	require.NoError(t, err)

	var result ValidationResult
	decodeData(t, stdout, &result)
	assert.True(t, result.Valid)
	assert.Equal(t, 1, result.Files)
	require.NotNil(t, result.Config)
	assert.Equal(t, 500, result.Config.MaxTicks)
	assert.True(t, result.Config.Modes["create_point"].Repeating)
	assert.Equal(t, "chair", result.Config.Modes["place_object_2d"].Object)
}

func TestValidateCommand_Invalid(t *testing.T) {
	stdout, _, err := executeCommand(t, "validate", filepath.Join("testdata", "config_invalid"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ Validation failed:")
	assert.Contains(t, stdout, "max_ticks")
}

func TestValidateCommand_MissingDir(t *testing.T) {
	stdout, _, err := executeCommand(t, "validate", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "[E005]")
}

func TestValidateCommand_NoFiles(t *testing.T) {
	stdout, _, err := executeCommand(t, "validate", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "no CUE files found")
}
