package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngOf(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func TestSaveResizesWideImages(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir, "/uploads/", 100)
	require.NoError(t, err)

	url, err := s.Save(pngOf(t, 400, 200), "wide.PNG")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".jpg"))

	f, err := os.Open(filepath.Join(dir, filepath.Base(url)))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestSaveKeepsSmallImages(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir, "/uploads", 800)
	require.NoError(t, err)

	url, err := s.Save(pngOf(t, 40, 30), "small.png")
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, filepath.Base(url)))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)
}

func TestSaveRejects(t *testing.T) {
	s, err := NewStorage(filepath.Join(t.TempDir(), "nested"), "/uploads", 800)
	require.NoError(t, err)

	_, err = s.Save(strings.NewReader("GIF89a"), "anim.gif")
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = s.Save(strings.NewReader("not a png"), "broken.png")
	assert.ErrorIs(t, err, ErrCorruptImage)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
