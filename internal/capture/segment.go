// Package capture adapts the system's three documented input shapes
// (spec.md §6): real packet captures become the transport layer's Segment
// type, while converter `.bin` files and hex-logged text captures become
// already-delimited (direction, bundle bytes) frames.
package capture

import (
	"net"
	"time"

	"github.com/dreadl0ck/gopacket"
	"github.com/dreadl0ck/gopacket/layers"

	"github.com/opcap/opcap/internal/transport"
)

// SegmentsFromPacket adapts a gopacket-decoded IPv4/IPv6 + TCP packet into
// a transport.Segment, mirroring how the teacher's stream package pulls
// the network and transport layers off a gopacket.Packet before handing
// them to its own assembler.
func SegmentsFromPacket(pkt gopacket.Packet) (transport.Segment, bool) {
	tcpLayer := pkt.Layer(layers.LayerTypeTCP)
	if tcpLayer == nil {
		return transport.Segment{}, false
	}
	tcp, ok := tcpLayer.(*layers.TCP)
	if !ok {
		return transport.Segment{}, false
	}

	nl := pkt.NetworkLayer()
	if nl == nil {
		return transport.Segment{}, false
	}
	flow := nl.NetworkFlow()
	src, dst := flow.Endpoints()

	var flags transport.TCPFlags
	if tcp.SYN {
		flags |= transport.FlagSYN
	}
	if tcp.ACK {
		flags |= transport.FlagACK
	}
	if tcp.FIN {
		flags |= transport.FlagFIN
	}
	if tcp.RST {
		flags |= transport.FlagRST
	}

	var ts time.Time
	if md := pkt.Metadata(); md != nil {
		ts = md.Timestamp
	}

	seg := transport.Segment{
		Src:       transport.Endpoint{Addr: net.IP(src.Raw()).String(), Port: uint16(tcp.SrcPort)},
		Dst:       transport.Endpoint{Addr: net.IP(dst.Raw()).String(), Port: uint16(tcp.DstPort)},
		Seq:       tcp.Seq,
		NextSeq:   tcp.Seq + uint32(len(tcp.Payload)),
		Flags:     flags,
		Payload:   tcp.Payload,
		Timestamp: ts,
	}
	return seg, true
}
