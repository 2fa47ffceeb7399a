package transition

import (
	"log/slog"
	"time"

	"github.com/cuehook/cuehook/internal/config"
	"github.com/cuehook/cuehook/internal/detector"
)

// Classifier applies the per-frame classification rule: the black detector
// is checked first and, on a match, the frame is dropped entirely; failing
// that, the slate detector is consulted; failing that, the frame is
// classified as content.
type Classifier struct {
	black     *detector.BlackFrameDetector
	slates    *detector.SlateDetector
	slateURLs map[string]string // detector reference label -> slate URL
	logger    *slog.Logger
	recorder  Recorder
}

// NewClassifier builds a Classifier. slateURLs maps each reference label
// registered on slates (via AddReference) back to the slate URL that
// identifies its VideoMode. recorder may be nil.
func NewClassifier(black *detector.BlackFrameDetector, slates *detector.SlateDetector, slateURLs map[string]string, logger *slog.Logger, recorder Recorder) *Classifier {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Classifier{black: black, slates: slates, slateURLs: slateURLs, logger: logger, recorder: recorder}
}

// Classify returns the classification for a decoded frame, and whether the
// frame must be dropped outright (black-frame match): when dropped is true,
// mode is meaningless and the caller must not update any executor state nor
// emit an event.
func (c *Classifier) Classify(pngFrame []byte) (mode config.VideoMode, dropped bool) {
	isBlack, err := c.black.IsBlack(pngFrame)
	if err != nil {
		c.logger.Warn("frame decode failed during black-frame check, treating as content", "error", err)
		return config.Content(), false
	}
	if isBlack {
		return config.VideoMode{}, true
	}

	start := time.Now()
	result, err := c.slates.Match(pngFrame)
	c.recorder.ObserveSimilarityExecution(time.Since(start))
	if err != nil {
		c.logger.Warn("frame decode failed during slate match, treating as content", "error", err)
		return config.Content(), false
	}
	if !result.Matched {
		return config.Content(), false
	}

	url, ok := c.slateURLs[result.Label]
	if !ok {
		c.logger.Warn("matched slate has no known url, treating as content", "label", result.Label)
		return config.Content(), false
	}
	return config.Slate(url), false
}
