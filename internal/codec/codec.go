// Package codec defines the ingest container, codec, and transport
// combinations a watcher source can accept, and validates them against the
// set mediacommon can actually demux.
package codec

import "fmt"

// Container is the wire container carried over the ingest transport.
type Container string

// Supported containers. ContainerFMP4 is a recognized configuration value
// with no ingest pipeline behind it yet; IsSupportedCombination always
// reports false for it.
const (
	ContainerMPEGTS   Container = "mpeg-ts"
	ContainerRawVideo Container = "raw-video"
	ContainerFMP4     Container = "fmp4"
)

// Codec is the elementary video codec carried inside the container.
type Codec string

// Supported codecs.
const (
	CodecH264 Codec = "h264"
	CodecH265 Codec = "h265"
)

// Transport is the network transport the ingest port listens on.
type Transport string

// Supported transports.
const (
	TransportRTP Transport = "rtp"
)

func (c Container) String() string { return string(c) }
func (c Codec) String() string     { return string(c) }
func (t Transport) String() string { return string(t) }

// combo identifies one (container, codec) pairing the worker knows how to
// build an ffmpeg decode pipeline for.
type combo struct {
	container Container
	codec     Codec
}

// supportedCombos lists every (container, codec) pair a Source may declare.
// Pairs whose codec mediacommon cannot demux are removed by the capability
// detection in init().
var supportedCombos = map[combo]bool{
	{ContainerMPEGTS, CodecH264}:   true,
	{ContainerMPEGTS, CodecH265}:   true,
	{ContainerRawVideo, CodecH264}: true,
	{ContainerRawVideo, CodecH265}: true,
}

// IsSupportedCombination reports whether the container/codec pair can be
// decoded by the ingest pipeline.
func IsSupportedCombination(container Container, codec Codec) bool {
	return supportedCombos[combo{container, codec}]
}

// ValidateContainer returns an error if container is not one of the known
// container kebab-case values.
func ValidateContainer(container string) (Container, error) {
	switch Container(container) {
	case ContainerMPEGTS, ContainerRawVideo, ContainerFMP4:
		return Container(container), nil
	default:
		return "", fmt.Errorf("unsupported container %q: must be %q, %q, or %q", container, ContainerMPEGTS, ContainerRawVideo, ContainerFMP4)
	}
}

// ValidateCodec returns an error if codec is not one of the known
// lowercase codec values.
func ValidateCodec(codec string) (Codec, error) {
	switch Codec(codec) {
	case CodecH264, CodecH265:
		return Codec(codec), nil
	default:
		return "", fmt.Errorf("unsupported codec %q: must be %q or %q", codec, CodecH264, CodecH265)
	}
}

// ValidateTransport returns an error if transport is not "rtp", the only
// transport this worker currently ingests.
func ValidateTransport(transport string) (Transport, error) {
	if Transport(transport) != TransportRTP {
		return "", fmt.Errorf("unsupported transport %q: must be %q", transport, TransportRTP)
	}
	return TransportRTP, nil
}

// RTPPayloadType returns the RTP payload type number expected for the given
// container/codec pairing, matching the static/dynamic assignment this
// worker's ffmpeg pipelines are built against.
func RTPPayloadType(container Container, codec Codec) (int, error) {
	switch container {
	case ContainerMPEGTS:
		return 33, nil // MP2T static payload type
	case ContainerRawVideo:
		switch codec {
		case CodecH264:
			return 96, nil
		case CodecH265:
			return 96, nil
		}
	}
	return 0, fmt.Errorf("no RTP payload type for container %q codec %q", container, codec)
}

// InputFormatName returns the ffmpeg -f demuxer name used to read the
// intermediate RTP-depayloaded elementary stream for container/codec.
func InputFormatName(container Container, codec Codec) (string, error) {
	switch container {
	case ContainerMPEGTS:
		return "mpegts", nil
	case ContainerRawVideo:
		switch codec {
		case CodecH264:
			return "h264", nil
		case CodecH265:
			return "hevc", nil
		}
	}
	return "", fmt.Errorf("no input format for container %q codec %q", container, codec)
}
