package transcript_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gi4nks/promptchain/internal/errors"
	"github.com/gi4nks/promptchain/internal/models"
	"github.com/gi4nks/promptchain/internal/transcript"
)

func stepsOf(responses ...string) []models.ChainStep {
	steps := make([]models.ChainStep, len(responses))
	for i, r := range responses {
		steps[i] = models.ChainStep{ResponseText: r}
	}
	return steps
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		steps    []models.ChainStep
		expected string
	}{
		{name: "three steps", steps: stepsOf("A", "B", "C"), expected: "A\n-----\nB\n-----\nC"},
		{name: "single step", steps: stepsOf("only"), expected: "only"},
		{name: "no steps", steps: nil, expected: ""},
		{name: "empty response kept", steps: stepsOf("A", "", "C"), expected: "A\n-----\n\n-----\nC"},
		{name: "multiline and unicode", steps: stepsOf("赤\nred", "青"), expected: "赤\nred\n-----\n青"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, transcript.Render(tt.steps))
		})
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name     string
		at       time.Time
		expected string
	}{
		{
			name:     "utc with millis",
			at:       time.Date(2024, 3, 5, 7, 8, 9, 123_000_000, time.UTC),
			expected: "2024-03-05T07-08-09-123Z.txt",
		},
		{
			name:     "zero millis are kept",
			at:       time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC),
			expected: "2024-12-31T23-59-59-000Z.txt",
		},
		{
			name:     "converted to utc",
			at:       time.Date(2024, 3, 5, 9, 8, 9, 500_000_000, time.FixedZone("CEST", 2*60*60)),
			expected: "2024-03-05T07-08-09-500Z.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, transcript.FileName(tt.at))
		})
	}
}

func TestFromRun(t *testing.T) {
	started := time.Date(2024, 3, 5, 7, 8, 9, 123_000_000, time.UTC)

	t.Run("completed run", func(t *testing.T) {
		export, err := transcript.FromRun(models.Run{StartedAt: started, Steps: stepsOf("A", "B")})

		require.NoError(t, err)
		assert.Equal(t, "2024-03-05T07-08-09-123Z.txt", export.FileName)
		assert.Equal(t, "A\n-----\nB", export.Content)
	})

	t.Run("run without steps", func(t *testing.T) {
		_, err := transcript.FromRun(models.Run{StartedAt: started, State: models.StateFailed})

		require.Error(t, err)
		assert.Equal(t, errors.ErrNothingToExport, errors.Code(err))
	})
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	run := models.Run{
		StartedAt: time.Date(2024, 3, 5, 7, 8, 9, 123_000_000, time.UTC),
		Steps:     stepsOf("A", "B", "C"),
	}

	path, err := transcript.Write(dir, run)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "2024-03-05T07-08-09-123Z.txt"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "A\n-----\nB\n-----\nC", string(data))
}

func TestWrite_NothingToExport(t *testing.T) {
	dir := t.TempDir()

	_, err := transcript.Write(dir, models.Run{})

	assert.True(t, errors.IsNotFound(err))
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}
