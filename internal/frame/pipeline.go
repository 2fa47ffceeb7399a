// Package frame implements the Frame Source: an RTP/UDP ingest that decodes,
// rate-limits, and normalizes a video stream into a lazy sequence of
// 213x120 PNG-encoded frames.
package frame

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/cuehook/cuehook/internal/codec"
	"github.com/cuehook/cuehook/internal/ffmpeg"
)

// Width and Height are the canonical frame dimensions produced by the
// pipeline, matching the slate loader's normalized slate size.
const (
	Width  = 213
	Height = 120
)

// ErrEnded is returned by Next once the pipeline has permanently stopped
// producing frames, whether due to a clean end-of-stream or an
// unrecoverable pipeline error.
var ErrEnded = errors.New("frame pipeline ended")

// Config describes the inputs needed to construct a Pipeline.
type Config struct {
	IngestIP       string
	IngestPort     int
	Container      codec.Container
	Codec          codec.Codec
	FrameRateLimit int
	FFmpegPath     string
}

// Pipeline is the Frame Source: it owns the UDP listener and the decode
// subprocess, and exposes a pull-based Next contract mirroring
// Result<Option<FrameBytes>> from the source design: (frame, nil) for a new
// frame, (nil, nil) when none is ready yet (the caller should sleep and
// retry), and (nil, err) — with err wrapping ErrEnded when terminal — once
// the pipeline cannot produce further frames.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger

	ingest *ingest
	cmd    *ffmpeg.Command
	slot   *Slot

	ended  atomic.Bool
	endErr atomic.Value // error
	doneCh chan struct{}
}

// New validates the configured container/codec combination, starts the
// decode subprocess, and begins listening for RTP traffic. The returned
// Pipeline must be closed by the caller.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if !codec.IsSupportedCombination(cfg.Container, cfg.Codec) {
		return nil, fmt.Errorf("unsupported combination %s/%s", cfg.Container, cfg.Codec)
	}
	if cfg.FrameRateLimit <= 0 {
		cfg.FrameRateLimit = 10
	}

	inputFormat, err := codec.InputFormatName(cfg.Container, cfg.Codec)
	if err != nil {
		return nil, err
	}

	cmd := ffmpeg.NewCommandBuilder(cfg.FFmpegPath).
		HideBanner().
		LogLevel("error").
		InputArgs("-f", inputFormat).
		Input("pipe:0").
		VideoFilter(fmt.Sprintf("fps=%d,scale=%d:%d", cfg.FrameRateLimit, Width, Height)).
		OutputArgs("-pix_fmt", "rgba", "-f", "rawvideo").
		Output("pipe:1").
		Build()

	cmd.Prepare(ctx)

	stdin, err := cmd.Stdin()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.Stdout()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.Stderr()
	if err != nil {
		return nil, err
	}
	tail := ffmpeg.DrainStderr(stderr, 20)

	if err := cmd.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting decoder: %w", err)
	}

	in, err := newIngest(cfg.IngestIP, cfg.IngestPort, cfg.Container, cfg.Codec, stdin, logger)
	if err != nil {
		_ = cmd.Kill()
		return nil, err
	}

	p := &Pipeline{
		cfg:    cfg,
		logger: logger,
		ingest: in,
		cmd:    cmd,
		slot:   NewSlot(),
		doneCh: make(chan struct{}),
	}

	go p.runIngest()
	go p.runDecode(stdout, stdin, tail)

	return p, nil
}

func (p *Pipeline) runIngest() {
	if err := p.ingest.run(); err != nil {
		p.logger.Warn("rtp ingest stopped", "error", err)
	}
}

func (p *Pipeline) runDecode(stdout io.Reader, stdin io.Closer, tail *ffmpeg.StderrTail) {
	defer close(p.doneCh)
	defer stdin.Close()

	frameSize := ffmpeg.DecodedFrameSize(image.Rect(0, 0, Width, Height))
	raw := make([]byte, frameSize)

	for {
		if _, err := io.ReadFull(stdout, raw); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				p.finish(nil)
			} else {
				p.finish(fmt.Errorf("decoder stream error: %w", err))
			}
			if waitErr := p.cmd.Wait(); waitErr != nil {
				p.logger.Warn("decoder exited with error", "error", waitErr, "stderr", tail.Lines())
			}
			return
		}

		png, err := encodePNG(raw, Width, Height)
		if err != nil {
			p.logger.Warn("dropping frame: png encode failed", "error", err)
			continue
		}
		p.slot.TrySend(png)
	}
}

func (p *Pipeline) finish(err error) {
	if err != nil {
		p.endErr.Store(err)
	}
	p.ended.Store(true)
}

// Next returns the next available frame. See the Pipeline doc comment for
// the full (frame, err) contract.
func (p *Pipeline) Next(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if frame, ok := p.slot.TryRecv(); ok {
		return frame, nil
	}

	if p.ended.Load() {
		if v := p.endErr.Load(); v != nil {
			return nil, fmt.Errorf("%w: %v", ErrEnded, v.(error))
		}
		return nil, ErrEnded
	}

	return nil, nil
}

// Close tears down the decode subprocess and the UDP listener.
func (p *Pipeline) Close() error {
	ingestErr := p.ingest.close()
	killErr := p.cmd.Kill()
	<-p.doneCh
	if ingestErr != nil {
		return ingestErr
	}
	return killErr
}

func encodePNG(raw []byte, w, h int) ([]byte, error) {
	img := &image.RGBA{
		Pix:    raw,
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	}
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
