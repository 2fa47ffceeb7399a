// Package slate resolves reference slate images from configuration URLs
// and normalizes them into the canonical 213x120 frame used for perceptual
// comparison throughout the rest of the pipeline.
package slate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // register JPEG decoder for image.Decode
	"image/png"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	ximage "golang.org/x/image/draw"

	"github.com/cuehook/cuehook/internal/ffmpeg"
	"github.com/cuehook/cuehook/internal/urlutil"
	"github.com/cuehook/cuehook/pkg/httpclient"
)

// Width and Height are the canonical slate/frame dimensions every reference
// and candidate frame is normalized to before comparison.
const (
	Width  = 213
	Height = 120
)

const (
	connectTimeout = 1 * time.Second
	overallTimeout = 10 * time.Second
)

var imageExtensions = map[string]bool{"jpg": true, "jpeg": true, "png": true}
var videoExtensions = map[string]bool{"mp4": true, "mkv": true}

// Loader resolves slate URLs into normalized, PNG-encoded 213x120 frames.
type Loader struct {
	fetcher    *urlutil.ResourceFetcher
	ffmpegPath string
}

// NewLoader builds a Loader. ffmpegPath is used to extract the first frame
// of video-extension slate references.
func NewLoader(ffmpegPath string) *Loader {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = overallTimeout
	cfg.RetryAttempts = 0
	cfg.BaseClient = &http.Client{
		Timeout: overallTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
		},
	}

	return &Loader{
		fetcher:    urlutil.NewResourceFetcherWithBreaker(cfg, httpclient.NewCircuitBreaker(0, 0, 0)),
		ffmpegPath: ffmpegPath,
	}
}

// LoadOne resolves a single slate URL to its canonical PNG-encoded frame.
func (l *Loader) LoadOne(ctx context.Context, rawURL string) ([]byte, error) {
	return l.load(ctx, rawURL)
}

func (l *Loader) load(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing slate url %q: %w", rawURL, err)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(u.Path), "."))

	raw, localPath, err := l.fetch(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("fetching slate %q: %w", rawURL, err)
	}

	switch {
	case imageExtensions[ext]:
		return l.decodeAndResizeImage(raw)
	case videoExtensions[ext]:
		path := localPath
		if path == "" {
			path, err = writeTempFile(raw, ext)
			if err != nil {
				return nil, err
			}
			defer os.Remove(path)
		}
		return l.firstFrameFromVideo(ctx, path)
	default:
		return nil, fmt.Errorf("slate url %q has unrecognized extension %q", rawURL, ext)
	}
}

// fetch returns either the raw bytes of the resource, or for file:// URLs
// whose path exists on disk, the local path directly (avoiding a copy for
// video extraction, which needs a real file path for ffmpeg).
func (l *Loader) fetch(ctx context.Context, u *url.URL) (raw []byte, localPath string, err error) {
	scheme := u.Scheme
	if scheme == "" {
		scheme = urlutil.SchemeFile
	}

	switch scheme {
	case urlutil.SchemeHTTP, urlutil.SchemeHTTPS, urlutil.SchemeFile:
	default:
		return nil, "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	normalized := u.String()
	if u.Scheme == "" {
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		normalized = "file://" + path
	}

	if scheme == urlutil.SchemeFile {
		path, pathErr := urlutil.FilePathFromURL(normalized)
		if pathErr != nil {
			return nil, "", pathErr
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, "", readErr
		}
		return data, path, nil
	}

	body, err := l.fetcher.Fetch(ctx, normalized)
	if err != nil {
		return nil, "", err
	}
	defer body.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(body); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "", nil
}

func (l *Loader) decodeAndResizeImage(raw []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, Width, Height))
	// Bilinear scaling approximates the triangle-filter resize used by the
	// reference implementation closely enough for perceptual comparison.
	ximage.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, dst); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// firstFrameFromVideo shells out to ffmpeg to decode, scale, and emit the
// first frame of the video at path as PNG bytes.
func (l *Loader) firstFrameFromVideo(ctx context.Context, path string) ([]byte, error) {
	cmd := ffmpeg.NewCommandBuilder(l.ffmpegPath).
		HideBanner().
		LogLevel("error").
		InputArgs("-y").
		Input(path).
		VideoFilter(fmt.Sprintf("scale=%d:%d", Width, Height)).
		OutputArgs("-frames:v", "1", "-f", "image2pipe", "-vcodec", "png").
		Output("pipe:1").
		Build()

	ctx, cancel := context.WithTimeout(ctx, overallTimeout)
	defer cancel()

	cmd.Prepare(ctx)
	stdout, err := cmd.Stdout()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting ffmpeg: %w", err)
	}

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(stdout); err != nil {
		_ = cmd.Kill()
		return nil, fmt.Errorf("reading first frame: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ffmpeg first-frame extraction failed: %w", err)
	}

	if buf.Len() == 0 {
		return nil, fmt.Errorf("no frame produced from video %q", path)
	}

	return buf.Bytes(), nil
}

func writeTempFile(data []byte, ext string) (string, error) {
	f, err := os.CreateTemp("", "cuehook-slate-*."+ext)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return "", err
	}
	return f.Name(), nil
}
