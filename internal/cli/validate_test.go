package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runValidateCommand(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func TestValidateCommandMissingArgs(t *testing.T) {
	_, err := runValidateCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestValidateCommandValidReport(t *testing.T) {
	reportPath := writeTestReport(t, t.TempDir())

	buf, err := runValidateCommand(t, "text", reportPath)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "report valid")
}

func TestValidateCommandValidReportJSON(t *testing.T) {
	reportPath := writeTestReport(t, t.TempDir())

	buf, err := runValidateCommand(t, "json", reportPath)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Empty(t, resp.Data.Errors)
}

func TestValidateCommandInvalidReport(t *testing.T) {
	tmpDir := t.TempDir()
	reportPath := filepath.Join(tmpDir, "report.yaml")
	require.NoError(t, os.WriteFile(reportPath, []byte("run: {}\nresults: []\n"), 0644))

	buf, err := runValidateCommand(t, "text", reportPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.NotEmpty(t, buf.String(), "violations are listed for the user")
}

func TestValidateCommandInvalidReportJSON(t *testing.T) {
	tmpDir := t.TempDir()
	reportPath := filepath.Join(tmpDir, "report.yaml")
	require.NoError(t, os.WriteFile(reportPath, []byte("run: {}\nresults: []\n"), 0644))

	buf, err := runValidateCommand(t, "json", reportPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.Data.Valid)
	assert.NotEmpty(t, resp.Data.Errors)
}

func TestValidateCommandMissingFile(t *testing.T) {
	_, err := runValidateCommand(t, "text", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
