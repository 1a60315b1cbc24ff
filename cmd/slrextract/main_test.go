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
)

func TestParseFlags(t *testing.T) {
	var stderr bytes.Buffer
	f, err := parseFlags([]string{"-instruction", "x", "-dry-run", "a.pdf", "b.pdf"}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "x", f.instruction)
	assert.True(t, f.dryRun)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, f.files)

	_, err = parseFlags([]string{"-nope"}, &stderr)
	assert.Error(t, err)
}

func TestRun_DryRunText(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	dir := t.TempDir()
	text := filepath.Join(dir, "abstracts.txt")
	require.NoError(t, os.WriteFile(text, []byte("ID 1: a\n\nID 2: b\n\nID 3: c"), 0o600))

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-dry-run", "-text", text, "-instruction", "Extract."}, strings.NewReader(""), &stdout, &stderr)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout.String(), "Extraction Plan (estimated)"))
	assert.Contains(t, stdout.String(), `"batch-1"`)
}

func TestRun_DryRunCSVFromStdinText(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "papers.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("ID,Title,Abstract\n1,X,Y\n"), 0o600))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-dry-run", "-csv", csvPath}, nil, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "records=1")

	stdout.Reset()
	require.NoError(t, run(context.Background(), []string{"-dry-run", "-text", "-"}, strings.NewReader("ID 4: stdin"), &stdout, &stderr))
	assert.Contains(t, stdout.String(), "records=1")
}

func TestRun_Errors(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"-dry-run"}, nil, &stdout, &stderr)
	assert.ErrorContains(t, err, "no input")

	dir := t.TempDir()
	text := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(text, []byte("ID 1: a"), 0o600))
	err = run(context.Background(), []string{"-text", text}, nil, &stdout, &stderr)
	assert.ErrorContains(t, err, "GEMINI_API_KEY")

	err = run(context.Background(), []string{"-dry-run", "-text", filepath.Join(dir, "missing.txt")}, nil, &stdout, &stderr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
