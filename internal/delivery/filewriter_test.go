package delivery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain", "Team Standup", "Team Standup"},
		{"illegal chars", `a:b?c"d*e<f>g|h~i/j\k`, "a_b_c_d_e_f_g_h_i_j_k"},
		{"leading dot", ".hidden", "_hidden"},
		{"trailing space", "meeting ", "meeting_"},
		{"reserved device name", "CON", "_"},
		{"reserved with extension", "con.txt", "_.txt"},
		{"reserved prefix not replaced", "CONFERENCE", "CONFERENCE"},
		{"control chars", "a\x01b\x1fc", "a_b_c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeTitle(tt.title))
		})
	}
}

func TestFilename_Shape(t *testing.T) {
	name := Filename("Weekly Sync", 1700000000000)
	assert.Contains(t, name, "Transcript-Weekly Sync at ")
	assert.True(t, filepath.Ext(name) == ".txt")
}

func TestWrite_UniquifiesOnCollision(t *testing.T) {
	dir := t.TempDir()
	w := NewFileWriter(dir, zap.NewNop())

	first, err := w.Write("Transcript.txt", "one")
	require.NoError(t, err)
	second, err := w.Write("Transcript.txt", "two")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Transcript.txt"), first)
	assert.Equal(t, filepath.Join(dir, "Transcript (1).txt"), second)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	data, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestWrite_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "downloads")
	w := NewFileWriter(dir, zap.NewNop())

	path, err := w.Write("Transcript.txt", "content")
	require.NoError(t, err)
	assert.FileExists(t, path)
}
