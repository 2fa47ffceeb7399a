// Package ffmpeg wraps the ffmpeg binary for RTP frame extraction and slate
// image preparation.
package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cuehook/cuehook/internal/util"
)

// BinaryInfo describes the detected ffmpeg installation.
type BinaryInfo struct {
	FFmpegPath   string
	Version      string
	MajorVersion int
	MinorVersion int
}

// SupportsMinVersion returns true if the detected version meets the minimum.
func (info *BinaryInfo) SupportsMinVersion(major, minor int) bool {
	if info.MajorVersion > major {
		return true
	}
	return info.MajorVersion == major && info.MinorVersion >= minor
}

// BinaryDetector caches ffmpeg binary detection.
type BinaryDetector struct {
	mu           sync.RWMutex
	info         *BinaryInfo
	lastDetected time.Time
	cacheTTL     time.Duration
}

// NewBinaryDetector creates a new binary detector with a 5 minute cache TTL.
func NewBinaryDetector() *BinaryDetector {
	return &BinaryDetector{cacheTTL: 5 * time.Minute}
}

// WithCacheTTL overrides the cache TTL.
func (d *BinaryDetector) WithCacheTTL(ttl time.Duration) *BinaryDetector {
	d.cacheTTL = ttl
	return d
}

// Detect resolves the ffmpeg binary path and version, using the cache if fresh.
func (d *BinaryDetector) Detect(ctx context.Context) (*BinaryInfo, error) {
	d.mu.RLock()
	if d.info != nil && time.Since(d.lastDetected) < d.cacheTTL {
		info := d.info
		d.mu.RUnlock()
		return info, nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.info != nil && time.Since(d.lastDetected) < d.cacheTTL {
		return d.info, nil
	}

	info, err := d.detect(ctx)
	if err != nil {
		return nil, err
	}

	d.info = info
	d.lastDetected = time.Now()
	return info, nil
}

// Clear drops the cached binary info.
func (d *BinaryDetector) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.info = nil
}

func (d *BinaryDetector) detect(ctx context.Context) (*BinaryInfo, error) {
	// Search order: CUEHOOK_FFMPEG_BINARY env var -> ./ffmpeg -> PATH
	ffmpegPath, err := util.FindBinary("ffmpeg", "CUEHOOK_FFMPEG_BINARY")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	info := &BinaryInfo{FFmpegPath: ffmpegPath}

	version, err := getVersion(ctx, ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("getting ffmpeg version: %w", err)
	}
	info.Version = version.full
	info.MajorVersion = version.major
	info.MinorVersion = version.minor

	return info, nil
}

type versionInfo struct {
	full  string
	major int
	minor int
}

var versionRegex = regexp.MustCompile(`^n?(\d+)\.(\d+)`)

func getVersion(ctx context.Context, ffmpegPath string) (*versionInfo, error) {
	cmd := exec.CommandContext(ctx, ffmpegPath, "-version")
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	for _, line := range strings.Split(string(output), "\n") {
		if !strings.HasPrefix(line, "ffmpeg version") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 3 {
			continue
		}
		info := &versionInfo{full: parts[2]}
		if matches := versionRegex.FindStringSubmatch(parts[2]); len(matches) >= 3 {
			info.major, _ = strconv.Atoi(matches[1])
			info.minor, _ = strconv.Atoi(matches[2])
		}
		return info, nil
	}

	return nil, fmt.Errorf("failed to parse ffmpeg version")
}
