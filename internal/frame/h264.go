package frame

// h264Depacketizer reassembles RFC 6184 RTP/H264 payloads into an Annex-B
// elementary byte stream suitable for feeding directly to an "-f h264"
// decoder. It understands single-NAL-unit packets, STAP-A aggregation, and
// FU-A fragmentation; any other NAL unit type (interleaved modes, FU-B) is
// dropped, which is sufficient for the baseline RTP payloads this worker
// targets.
type h264Depacketizer struct {
	fuBuffer    []byte
	fuNALHeader byte
	inFU        bool
}

var annexBStartCode = []byte{0, 0, 0, 1}

func (d *h264Depacketizer) depacketize(payload []byte) []byte {
	if len(payload) == 0 {
		return nil
	}

	nalType := payload[0] & 0x1F
	switch {
	case nalType >= 1 && nalType <= 23:
		out := make([]byte, 0, len(annexBStartCode)+len(payload))
		out = append(out, annexBStartCode...)
		return append(out, payload...)
	case nalType == 24:
		return d.depacketizeSTAPA(payload)
	case nalType == 28:
		return d.depacketizeFUA(payload)
	default:
		return nil
	}
}

func (d *h264Depacketizer) depacketizeFUA(payload []byte) []byte {
	if len(payload) < 2 {
		return nil
	}
	fuHeader := payload[1]
	start := fuHeader&0x80 != 0
	end := fuHeader&0x40 != 0
	nalType := fuHeader & 0x1F

	if start {
		fnri := payload[0] & 0x60
		d.fuNALHeader = fnri | nalType
		d.fuBuffer = append(d.fuBuffer[:0], payload[2:]...)
		d.inFU = true
		if end {
			return d.finishFU()
		}
		return nil
	}

	if !d.inFU {
		return nil
	}
	d.fuBuffer = append(d.fuBuffer, payload[2:]...)
	if end {
		return d.finishFU()
	}
	return nil
}

func (d *h264Depacketizer) finishFU() []byte {
	out := make([]byte, 0, len(annexBStartCode)+1+len(d.fuBuffer))
	out = append(out, annexBStartCode...)
	out = append(out, d.fuNALHeader)
	out = append(out, d.fuBuffer...)
	d.inFU = false
	d.fuBuffer = nil
	return out
}

func (d *h264Depacketizer) depacketizeSTAPA(payload []byte) []byte {
	var out []byte
	i := 1
	for i+2 <= len(payload) {
		size := int(payload[i])<<8 | int(payload[i+1])
		i += 2
		if size < 0 || i+size > len(payload) {
			break
		}
		out = append(out, annexBStartCode...)
		out = append(out, payload[i:i+size]...)
		i += size
	}
	return out
}
