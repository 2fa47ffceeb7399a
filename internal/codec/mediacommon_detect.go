package codec

import (
	"github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"
)

// mediacommonSupport tracks which of the two video codecs this worker cares
// about are actually demuxable by the vendored mediacommon version, detected
// at init time via type assertion against its CodecUnsupported sentinel so
// this adapts automatically when upstream changes.
var mediacommonSupport = struct {
	H264 bool
	H265 bool
}{}

func init() {
	var h264 mpegts.Codec = &mpegts.CodecH264{}
	mediacommonSupport.H264 = !isUnsupportedCodec(h264)

	var h265 mpegts.Codec = &mpegts.CodecH265{}
	mediacommonSupport.H265 = !isUnsupportedCodec(h265)

	if !mediacommonSupport.H264 {
		delete(supportedCombos, combo{ContainerMPEGTS, CodecH264})
	}
	if !mediacommonSupport.H265 {
		delete(supportedCombos, combo{ContainerMPEGTS, CodecH265})
	}
}

func isUnsupportedCodec(c mpegts.Codec) bool {
	_, isUnsupported := c.(*mpegts.CodecUnsupported)
	return isUnsupported
}

// IsMediacommonDemuxable reports whether mediacommon's MPEG-TS demuxer
// recognizes codec as a distinct stream type, as opposed to falling back to
// its unsupported-codec sentinel.
func IsMediacommonDemuxable(codec Codec) bool {
	switch codec {
	case CodecH264:
		return mediacommonSupport.H264
	case CodecH265:
		return mediacommonSupport.H265
	default:
		return false
	}
}
