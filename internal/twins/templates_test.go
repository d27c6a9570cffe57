// ABOUTME: Tests for TOML template loading and reload behavior
// ABOUTME: Broken manifests are skipped, reloads replace the full set

package twins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestTemplateLibraryLoadsManifests(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "curator.toml", `
name = "Curator"
description = "Knows every exhibit"
tags = ["museum", "history"]
suggested_questions = ["What is the oldest piece here?"]
`)
	writeTemplate(t, dir, "barista.toml", `
name = "Barista"
description = "Coffee expert"
`)
	writeTemplate(t, dir, "notes.txt", "not a manifest")

	lib, err := NewTemplateLibrary(dir, nil)
	require.NoError(t, err)

	all := lib.List()
	require.Len(t, all, 2)
	assert.Equal(t, "Barista", all[0].Name)
	assert.Equal(t, "Curator", all[1].Name)

	curator, ok := lib.Get("curator")
	require.True(t, ok)
	assert.Equal(t, []string{"museum", "history"}, curator.Tags)
	assert.Equal(t, []string{"What is the oldest piece here?"}, curator.SuggestedQuestions)
}

func TestTemplateLibrarySkipsBrokenManifest(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "good.toml", `name = "Good"`)
	writeTemplate(t, dir, "broken.toml", `name = [unclosed`)
	writeTemplate(t, dir, "unnamed.toml", `description = "no name"`)

	lib, err := NewTemplateLibrary(dir, nil)
	require.NoError(t, err)
	assert.Len(t, lib.List(), 1)
}

func TestTemplateLibraryReloadReplacesSet(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "first.toml", `name = "First"`)

	lib, err := NewTemplateLibrary(dir, nil)
	require.NoError(t, err)
	require.Len(t, lib.List(), 1)

	require.NoError(t, os.Remove(filepath.Join(dir, "first.toml")))
	writeTemplate(t, dir, "second.toml", `name = "Second"`)

	require.NoError(t, lib.Reload())
	all := lib.List()
	require.Len(t, all, 1)
	assert.Equal(t, "Second", all[0].Name)
}

func TestTemplateLibraryEmptyDirAllowed(t *testing.T) {
	lib, err := NewTemplateLibrary("", nil)
	require.NoError(t, err)
	assert.Empty(t, lib.List())

	_, ok := lib.Get("anything")
	assert.False(t, ok)
}
