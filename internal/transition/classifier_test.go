package transition

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"testing"
	"time"

	"github.com/cuehook/cuehook/internal/detector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	calls int
}

func (f *fakeRecorder) ObserveSimilarityExecution(time.Duration) { f.calls++ }

const (
	width  = 213
	height = 120
)

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func newTestClassifier(t *testing.T) (*Classifier, []byte, []byte) {
	t.Helper()

	slateImg := solidPNG(t, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	contentImg := solidPNG(t, color.RGBA{R: 10, G: 120, B: 40, A: 255})

	slates := detector.NewSlateDetector()
	require.NoError(t, slates.AddReference("https://x/a.png", slateImg))

	black := detector.NewBlackFrameDetector(width, height)

	c := NewClassifier(black, slates, map[string]string{"https://x/a.png": "https://x/a.png"}, slog.Default(), nil)
	return c, slateImg, contentImg
}

func TestClassifier_BlackFrameIsDropped(t *testing.T) {
	c, _, _ := newTestClassifier(t)
	blackFrame := solidPNG(t, color.Black)

	_, dropped := c.Classify(blackFrame)
	assert.True(t, dropped)
}

func TestClassifier_SlateMatch(t *testing.T) {
	c, slateImg, _ := newTestClassifier(t)

	mode, dropped := c.Classify(slateImg)
	assert.False(t, dropped)
	assert.True(t, mode.FrameType == "slate")
	assert.Equal(t, "https://x/a.png", mode.SlateContext.URL)
}

func TestClassifier_ContentFallback(t *testing.T) {
	c, _, contentImg := newTestClassifier(t)

	mode, dropped := c.Classify(contentImg)
	assert.False(t, dropped)
	assert.Equal(t, "content", string(mode.FrameType))
}

func TestClassifier_RecordsSimilarityExecutionOnlyWhenNotBlack(t *testing.T) {
	slateImg := solidPNG(t, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	slates := detector.NewSlateDetector()
	require.NoError(t, slates.AddReference("https://x/a.png", slateImg))
	black := detector.NewBlackFrameDetector(width, height)

	rec := &fakeRecorder{}
	c := NewClassifier(black, slates, map[string]string{"https://x/a.png": "https://x/a.png"}, slog.Default(), rec)

	_, dropped := c.Classify(solidPNG(t, color.Black))
	assert.True(t, dropped)
	assert.Equal(t, 0, rec.calls)

	c.Classify(slateImg)
	assert.Equal(t, 1, rec.calls)
}
