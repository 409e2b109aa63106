package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliate-studio/internal/config"
	"affiliate-studio/internal/gemini"
	"affiliate-studio/internal/gemini/geminitest"
)

type harness struct {
	dir    string
	models *geminitest.Models
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{dir: t.TempDir(), models: geminitest.New()}
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCmd(Options{
		LoadConfig: func() (config.Config, error) {
			return config.Config{
				DBPath:          filepath.Join(h.dir, "studio.db"),
				HistoryCapacity: 50,
				MaxUploads:      4,
				BatchMode:       "sequential",
				TrendsCacheTTL:  time.Minute,
				VideoPoll:       time.Millisecond,
			}, nil
		},
		NewModels: h.models.Factory(),
	})

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func (h *harness) image(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(path, geminitest.PNG, 0o644))
	return path
}

func TestKeyLifecycle(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "key", "status")
	require.NoError(t, err)
	assert.Equal(t, "Not connected\n", out)

	_, err = h.run(t, "key", "set", "short")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid input")

	out, err = h.run(t, "key", "set", "manual-key-123456")
	require.NoError(t, err)
	assert.Contains(t, out, "Connected (manual)")
	assert.NotContains(t, out, "manual-key-123456")

	// The key is kept in the local database between runs.
	out, err = h.run(t, "key", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Connected (manual)")

	out, err = h.run(t, "key", "clear")
	require.NoError(t, err)
	assert.Equal(t, "Not connected\n", out)

	_, err = h.run(t, "key", "pick")
	require.Error(t, err)
}

func TestGenerateWritesImagesAndHistory(t *testing.T) {
	h := newHarness(t)
	img := h.image(t, "bottle.png")
	outDir := filepath.Join(h.dir, "out")

	_, err := h.run(t, "generate", "-i", img, "-a", "front")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not connected")
	assert.Contains(t, err.Error(), "studio key set")
	assert.Equal(t, 0, h.models.Calls())

	_, err = h.run(t, "key", "set", "manual-key-123456")
	require.NoError(t, err)

	out, err := h.run(t, "generate", "-i", img, "-a", "front", "-a", "top", "--category", "ugc", "-o", outDir)
	require.NoError(t, err)

	paths := strings.Fields(out)
	require.Len(t, paths, 2)
	assert.Contains(t, paths[0], "01-front-view-")
	assert.Contains(t, paths[1], "02-top-down-")
	for _, p := range paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, geminitest.PNG, data)
		assert.Equal(t, ".png", filepath.Ext(p))
	}

	out, err = h.run(t, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Front View")
	assert.Contains(t, out, "Top Down")
	assert.Contains(t, out, "ugc")

	out, err = h.run(t, "history", "export", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "angle: Front View")

	saveDir := filepath.Join(h.dir, "saved")
	out, err = h.run(t, "history", "save", "1", "-o", saveDir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), saveDir))

	out, err = h.run(t, "history", "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 left")

	_, err = h.run(t, "history", "delete", "7")
	require.Error(t, err)

	_, err = h.run(t, "history", "clear")
	require.NoError(t, err)
	out, err = h.run(t, "history", "list")
	require.NoError(t, err)
	assert.Equal(t, "History is empty.\n", out)
}

func TestGenerateRejectsInput(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "key", "set", "manual-key-123456")
	require.NoError(t, err)

	notes := filepath.Join(h.dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("plain text"), 0o644))
	_, err = h.run(t, "generate", "-i", notes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an image")

	_, err = h.run(t, "generate", "-i", h.image(t, "a.png"), "--quality", "8K")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid input")

	_, err = h.run(t, "generate", "-i", h.image(t, "b.png"), "--batch", "random")
	require.Error(t, err)

	_, err = h.run(t, "generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload at least one product image")

	assert.Equal(t, 0, h.models.Calls())
}

func TestCopyTrendsVideo(t *testing.T) {
	h := newHarness(t)
	h.models.Sources = []gemini.Source{{URI: "https://example.com/report", Title: "Report"}}
	_, err := h.run(t, "key", "set", "manual-key-123456")
	require.NoError(t, err)
	img := h.image(t, "bottle.png")

	out, err := h.run(t, "copy", "-i", img, "--kind", "hook")
	require.NoError(t, err)
	assert.Equal(t, "generated copy\n", out)

	out, err = h.run(t, "copy", "-i", img, "--html")
	require.NoError(t, err)
	assert.Contains(t, out, "<p>generated copy</p>")

	out, err = h.run(t, "trends", "skincare", "serum")
	require.NoError(t, err)
	assert.Contains(t, out, "generated copy")
	assert.Contains(t, out, "Report https://example.com/report")

	_, err = h.run(t, "trends")
	require.Error(t, err)

	outDir := filepath.Join(h.dir, "video")
	out, err = h.run(t, "video", "-i", img, "-o", outDir)
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.Equal(t, filepath.Join(outDir, "video-commercial.mp4"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp4"), data)
}

func TestCatalog(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "id: commercial")
	assert.Contains(t, out, "- front")

	out, err = h.run(t, "catalog", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"aspect_ratios"`)

	_, err = h.run(t, "catalog", "--format", "toml")
	require.Error(t, err)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "front-view", slug("Front View"))
	assert.Equal(t, "d-3q", slug("D-3Q"))
	assert.Equal(t, "image", slug("  "))
	assert.Equal(t, "glass-light", slug("Glass & Light"))
}
