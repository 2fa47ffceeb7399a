package slate

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestLoad_ImageResizedToCanonicalSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slate.png")
	writePNG(t, path, 640, 360, color.White)

	l := NewLoader("ffmpeg")
	out, err := l.LoadOne(context.Background(), "file://"+path)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, Width, img.Bounds().Dx())
	assert.Equal(t, Height, img.Bounds().Dy())
}

func TestLoad_UnrecognizedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slate.gif")
	require.NoError(t, os.WriteFile(path, []byte("not a real gif"), 0o644))

	l := NewLoader("ffmpeg")
	_, err := l.LoadOne(context.Background(), "file://"+path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	l := NewLoader("ffmpeg")
	_, err := l.LoadOne(context.Background(), "file:///no/such/slate.png")
	assert.Error(t, err)
}
