package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plate = "../../pkg/sceneconfig/testdata/plate"

func writeScene(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestBuildCommand(t *testing.T) {
	var out, logs bytes.Buffer
	err := run(&out, &logs, []string{"build", "--log-level", "debug", plate})
	require.NoError(t, err)

	text := out.String()
	for _, name := range []string{"skin", "iso", "edges", "flow", "full_rebuild"} {
		assert.Contains(t, text, name)
	}
	assert.Contains(t, logs.String(), "built full_rebuild")
}

func TestCheckCommand(t *testing.T) {
	var out, logs bytes.Buffer
	require.NoError(t, run(&out, &logs, []string{"check", plate}))
	assert.Contains(t, out.String(), "4 graphic(s) ok")

	bad := writeScene(t, "region {\n  counts = [2, 2]\n}\n\ngraphics \"contours\" \"iso\" {}\n")
	out.Reset()
	err := run(&out, &logs, []string{"check", bad})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
	assert.Contains(t, out.String(), "iso")
}

func TestBuildFailureExitCode(t *testing.T) {
	bad := writeScene(t, "region {\n  counts = [2, 2]\n}\n\ngraphics \"contours\" \"iso\" {}\n\ngraphics \"surfaces\" \"skin\" {}\n")
	var out, logs bytes.Buffer
	err := run(&out, &logs, []string{"build", bad})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
	assert.Contains(t, out.String(), "skin")
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad level", []string{"build", "--log-level", "loud", plate}},
		{"bad format", []string{"check", "--log-format", "xml", plate}},
		{"bad scene", []string{"build", writeScene(t, "region {")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, logs bytes.Buffer
			err := run(&out, &logs, tt.args)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
		})
	}

	var out, logs bytes.Buffer
	assert.Error(t, run(&out, &logs, []string{"build"}))
}

func TestAttributesCommand(t *testing.T) {
	var out, logs bytes.Buffer
	require.NoError(t, run(&out, &logs, []string{"attributes"}))
	assert.Contains(t, out.String(), "isovalue_range")
	assert.Contains(t, out.String(), "recompile")
}
