package frame

import (
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/pion/rtp"

	"github.com/cuehook/cuehook/internal/codec"
)

// udpMaxDatagram is large enough for any RTP packet a conforming sender
// would emit over UDP without IP fragmentation concerns.
const udpMaxDatagram = 65507

// ingest terminates an RTP/UDP stream on ingestAddr and writes the
// depacketized elementary byte stream to sink until the connection is
// closed or a read error occurs.
type ingest struct {
	conn       *net.UDPConn
	sink       io.Writer
	container  codec.Container
	payloadTyp uint8
	logger     *slog.Logger

	h264 h264Depacketizer
}

func newIngest(ingestIP string, ingestPort int, container codec.Container, codecName codec.Codec, sink io.Writer, logger *slog.Logger) (*ingest, error) {
	payloadType, err := codec.RTPPayloadType(container, codecName)
	if err != nil {
		return nil, err
	}

	addr := &net.UDPAddr{IP: net.ParseIP(ingestIP), Port: ingestPort}
	if ingestIP == "" {
		addr.IP = net.IPv4zero
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on udp %s:%d: %w", ingestIP, ingestPort, err)
	}

	return &ingest{
		conn:       conn,
		sink:       sink,
		container:  container,
		payloadTyp: uint8(payloadType),
		logger:     logger,
	}, nil
}

// run reads RTP packets until the connection is closed, writing depayloaded
// elementary-stream bytes to the sink. It returns the terminal error, or nil
// if the connection was closed intentionally via Close.
func (in *ingest) run() error {
	buf := make([]byte, udpMaxDatagram)
	for {
		n, _, err := in.conn.ReadFromUDP(buf)
		if err != nil {
			if isClosedConnError(err) {
				return nil
			}
			return fmt.Errorf("reading rtp packet: %w", err)
		}

		var pkt rtp.Packet
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			in.logger.Warn("discarding malformed rtp packet", "error", err)
			continue
		}
		if pkt.PayloadType != in.payloadTyp {
			continue
		}

		payload := in.depacketize(pkt.Payload)
		if len(payload) == 0 {
			continue
		}
		if _, err := in.sink.Write(payload); err != nil {
			return fmt.Errorf("writing to decoder: %w", err)
		}
	}
}

func (in *ingest) depacketize(payload []byte) []byte {
	if in.container == codec.ContainerMPEGTS {
		// RTP/MP2T (RFC 2250) carries whole transport-stream packets as the
		// RTP payload verbatim; no reassembly is required.
		return payload
	}
	return in.h264.depacketize(payload)
}

func (in *ingest) close() error {
	return in.conn.Close()
}

func isClosedConnError(err error) bool {
	return err != nil && (err == net.ErrClosed || isUseOfClosedNetworkConnection(err))
}

func isUseOfClosedNetworkConnection(err error) bool {
	opErr, ok := err.(*net.OpError)
	return ok && opErr.Err != nil && opErr.Err.Error() == "use of closed network connection"
}
