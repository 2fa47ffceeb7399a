// Package watcher wires the Slate Loader, Frame Source, Slate Detector,
// Transition & Debounce Engine and Action Executor Runtime into the
// complete Watcher worker, and owns its three threads of execution (frame,
// executor, metrics) plus graceful shutdown.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cuehook/cuehook/internal/codec"
	"github.com/cuehook/cuehook/internal/config"
	"github.com/cuehook/cuehook/internal/detector"
	"github.com/cuehook/cuehook/internal/executor"
	"github.com/cuehook/cuehook/internal/ffmpeg"
	"github.com/cuehook/cuehook/internal/frame"
	"github.com/cuehook/cuehook/internal/metrics"
	"github.com/cuehook/cuehook/internal/slate"
	"github.com/cuehook/cuehook/internal/snapshot"
	"github.com/cuehook/cuehook/internal/transition"
)

// defaultEmptyPollInterval is how long the frame thread sleeps after Next yields
// no frame, mirroring the ~100ms suspension point described for the frame
// iterator.
const defaultEmptyPollInterval = 100 * time.Millisecond

// Watcher is one running instance of the worker: it owns the frame
// pipeline, the debounce engine, the action executor and the metrics
// server, and coordinates their shutdown.
type Watcher struct {
	cfg       *config.WatcherConfig
	ambient   *config.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	snapshot  *snapshot.Cell
	running   atomic.Bool
}

// New constructs a Watcher from a validated WatcherConfig and ambient
// process configuration. It does not start anything; call Run for that.
func New(cfg *config.WatcherConfig, ambient *config.Config, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		cfg:      cfg,
		ambient:  ambient,
		logger:   logger,
		metrics:  metrics.New(),
		snapshot: snapshot.New(),
	}
	w.running.Store(true)
	return w
}

// Run builds the Slate Detector from the configured slates, starts the
// Frame Source, the Action Executor Runtime and the metrics server, and
// runs the frame loop until ctx is cancelled, a SIGINT/SIGTERM is received,
// Stop is called or the pipeline ends. It then performs the shutdown
// sequence described in §4.6: close the event channel (Terminate), stop the
// metrics server, wait for the executor to drain and the metrics server to
// return, then close the pipeline.
func (w *Watcher) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	binInfo, err := ffmpeg.NewBinaryDetector().Detect(ctx)
	if err != nil {
		return fmt.Errorf("detecting ffmpeg: %w", err)
	}

	classifier, err := w.buildClassifier(ctx, binInfo.FFmpegPath)
	if err != nil {
		return fmt.Errorf("building slate detector: %w", err)
	}

	pipeline, err := frame.New(ctx, frame.Config{
		IngestIP:       w.cfg.Source.IngestIP,
		IngestPort:     w.cfg.Source.IngestPort,
		Container:      codec.Container(w.cfg.Source.Container),
		Codec:          codec.Codec(w.cfg.Source.Codec),
		FrameRateLimit: w.ambient.Ingest.FrameRateLimit,
		FFmpegPath:     binInfo.FFmpegPath,
	}, w.logger)
	if err != nil {
		return fmt.Errorf("starting frame pipeline: %w", err)
	}

	debounceWindow := w.ambient.Pipeline.DebounceWindow.Duration()
	if debounceWindow <= 0 {
		debounceWindow = transition.DefaultDebounceWindow
	}

	events := make(chan transition.ActionInvocation)
	engine := transition.NewEngine(w.cfg, debounceWindow, events)
	runtime := executor.New(w.logger, w.metrics)

	metricsServer := metrics.NewServer(metrics.ServerConfig{
		Host:            "0.0.0.0",
		Port:            w.cfg.Source.IngestPort,
		ShutdownTimeout: w.ambient.Metrics.ShutdownTimeout,
	}, w.metrics, w.snapshot, w.logger)

	metricsCtx, stopMetrics := context.WithCancel(ctx)
	defer stopMetrics()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		runtime.Run(ctx, events)
	}()
	go func() {
		defer wg.Done()
		if err := metricsServer.ListenAndServe(metricsCtx); err != nil {
			w.logger.Error("metrics server stopped with error", "error", err)
		}
	}()

	pollInterval := w.ambient.Ingest.EmptyPollInterval
	if pollInterval <= 0 {
		pollInterval = defaultEmptyPollInterval
	}

	runErr := w.runFrameLoop(ctx, pipeline, classifier, engine, pollInterval)

	close(events) // Terminate: let the executor drain in-flight work.
	stopMetrics()
	wg.Wait()

	if closeErr := pipeline.Close(); closeErr != nil {
		w.logger.Warn("pipeline close error", "error", closeErr)
	}

	return runErr
}

// Stop causes the frame loop to exit before its next iteration. It mirrors
// the SIGINT handler's effect on the shared "running" flag, for callers
// that want to drive shutdown programmatically (e.g. tests).
func (w *Watcher) Stop() {
	w.running.Store(false)
}

// framePipeline is the subset of *frame.Pipeline the frame loop depends on,
// narrowed to an interface so the loop can be exercised against a fake feed
// of frames in tests.
type framePipeline interface {
	Next(ctx context.Context) ([]byte, error)
}

func (w *Watcher) runFrameLoop(ctx context.Context, pipeline framePipeline, classifier *transition.Classifier, engine *transition.Engine, pollInterval time.Duration) error {
	for w.running.Load() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		png, err := pipeline.Next(ctx)
		if err != nil {
			w.logger.Info("frame pipeline ended", "error", err)
			return nil
		}
		if png == nil {
			time.Sleep(pollInterval)
			continue
		}

		frameStart := time.Now()
		mode, dropped := classifier.Classify(png)
		w.metrics.ObserveFrameProcessingDuration(time.Since(frameStart))
		if dropped {
			continue
		}

		w.snapshot.Set(png)
		w.metrics.RecordClassification(mode.FrameType == config.FrameTypeSlate)

		if err := engine.Observe(ctx, mode, time.Now()); err != nil {
			w.logger.Warn("dispatching transition event failed", "error", err)
		}
	}
	return nil
}

func (w *Watcher) buildClassifier(ctx context.Context, ffmpegPath string) (*transition.Classifier, error) {
	loader := slate.NewLoader(ffmpegPath)
	slates := detector.NewSlateDetector()
	slateURLs := make(map[string]string)

	for _, url := range w.cfg.SlateURLs() {
		data, err := loader.LoadOne(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("loading slate %q: %w", url, err)
		}
		if err := slates.AddReference(url, data); err != nil {
			return nil, fmt.Errorf("registering slate %q: %w", url, err)
		}
		slateURLs[url] = url
	}

	black := detector.NewBlackFrameDetector(frame.Width, frame.Height)
	return transition.NewClassifier(black, slates, slateURLs, w.logger, w.metrics), nil
}
