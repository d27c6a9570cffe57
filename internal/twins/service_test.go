// ABOUTME: Tests for the twin service's CRUD and processing pipeline
// ABOUTME: Uses the in-memory mock store and short simulated delays

package twins

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinspace/twinchat/internal/store"
)

func TestServiceCreate(t *testing.T) {
	st := store.NewMockStore()
	svc := NewService(st, nil, time.Millisecond, nil)

	twin, err := svc.Create(context.Background(), CreateParams{
		Name:     "Museum Guide",
		ImageURL: "https://example.com/guide.png",
		Tags:     []string{"history", "art"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, twin.ID)
	assert.Equal(t, store.TwinStatusDraft, twin.Status)
	assert.Equal(t, []string{"history", "art"}, twin.Tags)

	got, err := st.GetTwin(context.Background(), twin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Museum Guide", got.Name)
}

func TestServiceCreateRequiresName(t *testing.T) {
	svc := NewService(store.NewMockStore(), nil, time.Millisecond, nil)

	_, err := svc.Create(context.Background(), CreateParams{})
	assert.Error(t, err)
}

func TestServiceCreateFromTemplate(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "curator.toml", `
name = "Curator"
description = "Knows every exhibit"
tags = ["museum"]
`)
	lib, err := NewTemplateLibrary(dir, nil)
	require.NoError(t, err)

	svc := NewService(store.NewMockStore(), lib, time.Millisecond, nil)
	twin, err := svc.Create(context.Background(), CreateParams{Template: "curator"})
	require.NoError(t, err)
	assert.Equal(t, "Curator", twin.Name)
	assert.Equal(t, "Knows every exhibit", twin.Description)
	assert.Equal(t, []string{"museum"}, twin.Tags)
}

func TestServiceCreateTemplateDoesNotOverrideFields(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "curator.toml", `
name = "Curator"
description = "Knows every exhibit"
`)
	lib, err := NewTemplateLibrary(dir, nil)
	require.NoError(t, err)

	svc := NewService(store.NewMockStore(), lib, time.Millisecond, nil)
	twin, err := svc.Create(context.Background(), CreateParams{
		Name:     "My Curator",
		Template: "curator",
	})
	require.NoError(t, err)
	assert.Equal(t, "My Curator", twin.Name)
	assert.Equal(t, "Knows every exhibit", twin.Description)
}

func TestServiceStartProcessing(t *testing.T) {
	st := store.NewMockStore()
	svc := NewService(st, nil, 10*time.Millisecond, nil)

	twin, err := svc.Create(context.Background(), CreateParams{
		Name:     "Guide",
		ImageURL: "https://example.com/guide.png",
	})
	require.NoError(t, err)

	job, err := svc.StartProcessing(context.Background(), twin.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, store.JobStatusProcessing, job.Status)

	processing, err := st.GetTwin(context.Background(), twin.ID)
	require.NoError(t, err)
	assert.Equal(t, store.TwinStatusProcessing, processing.Status)

	require.Eventually(t, func() bool {
		j, err := st.GetProcessingJob(context.Background(), job.ID)
		return err == nil && j.Status == store.JobStatusCompleted
	}, time.Second, 5*time.Millisecond)

	done, err := st.GetTwin(context.Background(), twin.ID)
	require.NoError(t, err)
	assert.Equal(t, store.TwinStatusActive, done.Status)
	assert.Contains(t, done.Features, "detectedObjects")
	assert.Contains(t, done.ModelData, "glTF")
}

func TestServiceStartProcessingRequiresImage(t *testing.T) {
	st := store.NewMockStore()
	svc := NewService(st, nil, time.Millisecond, nil)

	twin, err := svc.Create(context.Background(), CreateParams{Name: "No Image"})
	require.NoError(t, err)

	_, err = svc.StartProcessing(context.Background(), twin.ID)
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestServiceStartProcessingUnknownTwin(t *testing.T) {
	svc := NewService(store.NewMockStore(), nil, time.Millisecond, nil)

	_, err := svc.StartProcessing(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
