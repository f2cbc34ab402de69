package h3frame

import (
	"sort"

	"github.com/quic-go/quic-go/quicvarint"
)

// HTTP/3 frame types, RFC 9114 Section 7.2 plus the extension frames this
// decoder understands.
const (
	FrameTypeData               uint64 = 0x00
	FrameTypeHeaders            uint64 = 0x01
	FrameTypeCancelPush         uint64 = 0x03
	FrameTypeSettings           uint64 = 0x04
	FrameTypePushPromise        uint64 = 0x05
	FrameTypeGoAway             uint64 = 0x07
	FrameTypeMaxPushID          uint64 = 0x0d
	FrameTypePriorityUpdateOld  uint64 = 0x0f
	FrameTypeWebTransportStream uint64 = 0x41
	FrameTypeAcceptCh           uint64 = 0x89
	FrameTypePriorityUpdate     uint64 = 0x800f0700
)

// Payload cap for buffered frames that are not a single varint.
const payloadLengthLimit = 1024 * 1024

type DataFrame struct {
	Length uint64
}

func (f DataFrame) Append(b []byte) []byte {
	b = quicvarint.Append(b, FrameTypeData)
	return quicvarint.Append(b, f.Length)
}

type HeadersFrame struct {
	Length uint64
}

func (f HeadersFrame) Append(b []byte) []byte {
	b = quicvarint.Append(b, FrameTypeHeaders)
	return quicvarint.Append(b, f.Length)
}

type CancelPushFrame struct {
	PushID uint64
}

func (f CancelPushFrame) Append(b []byte) []byte {
	b = quicvarint.Append(b, FrameTypeCancelPush)
	b = quicvarint.Append(b, uint64(quicvarint.Len(f.PushID)))
	return quicvarint.Append(b, f.PushID)
}

type MaxPushIDFrame struct {
	PushID uint64
}

func (f MaxPushIDFrame) Append(b []byte) []byte {
	b = quicvarint.Append(b, FrameTypeMaxPushID)
	b = quicvarint.Append(b, uint64(quicvarint.Len(f.PushID)))
	return quicvarint.Append(b, f.PushID)
}

type GoAwayFrame struct {
	ID uint64
}

func (f GoAwayFrame) Append(b []byte) []byte {
	b = quicvarint.Append(b, FrameTypeGoAway)
	b = quicvarint.Append(b, uint64(quicvarint.Len(f.ID)))
	return quicvarint.Append(b, f.ID)
}

// SettingsFrame carries the identifier to value map of a SETTINGS frame.
type SettingsFrame struct {
	Values map[uint64]uint64
}

// Append encodes the frame with identifiers in ascending order.
func (f SettingsFrame) Append(b []byte) []byte {
	ids := make([]uint64, 0, len(f.Values))
	var payloadLen uint64
	for id, val := range f.Values {
		ids = append(ids, id)
		payloadLen += uint64(quicvarint.Len(id) + quicvarint.Len(val))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	b = quicvarint.Append(b, FrameTypeSettings)
	b = quicvarint.Append(b, payloadLen)
	for _, id := range ids {
		b = quicvarint.Append(b, id)
		b = quicvarint.Append(b, f.Values[id])
	}
	return b
}

// PrioritizedElementType distinguishes the element a PRIORITY_UPDATE frame
// refers to. Only the obsolete frame encoding carries it on the wire.
type PrioritizedElementType uint8

const (
	RequestStream PrioritizedElementType = 0x00
	PushStream    PrioritizedElementType = 0x80
)

type PriorityUpdateFrame struct {
	PrioritizedElementType PrioritizedElementType
	PrioritizedElementID   uint64
	PriorityFieldValue     string
}

// Append encodes the frame with the current type code; the element type is
// implicitly RequestStream in that encoding.
func (f PriorityUpdateFrame) Append(b []byte) []byte {
	payloadLen := uint64(quicvarint.Len(f.PrioritizedElementID)) + uint64(len(f.PriorityFieldValue))
	b = quicvarint.Append(b, FrameTypePriorityUpdate)
	b = quicvarint.Append(b, payloadLen)
	b = quicvarint.Append(b, f.PrioritizedElementID)
	return append(b, f.PriorityFieldValue...)
}

type AcceptChEntry struct {
	Origin string
	Value  string
}

type AcceptChFrame struct {
	Entries []AcceptChEntry
}

func (f AcceptChFrame) Append(b []byte) []byte {
	var payloadLen uint64
	for _, e := range f.Entries {
		payloadLen += uint64(quicvarint.Len(uint64(len(e.Origin)))) + uint64(len(e.Origin))
		payloadLen += uint64(quicvarint.Len(uint64(len(e.Value)))) + uint64(len(e.Value))
	}
	b = quicvarint.Append(b, FrameTypeAcceptCh)
	b = quicvarint.Append(b, payloadLen)
	for _, e := range f.Entries {
		b = quicvarint.Append(b, uint64(len(e.Origin)))
		b = append(b, e.Origin...)
		b = quicvarint.Append(b, uint64(len(e.Value)))
		b = append(b, e.Value...)
	}
	return b
}

// isBuffered reports whether the frame's whole payload is accumulated before
// its value callback fires. The decoder streams everything else.
func (d *Decoder) isBuffered(frameType uint64) bool {
	switch frameType {
	case FrameTypeCancelPush, FrameTypeSettings, FrameTypeGoAway,
		FrameTypeMaxPushID, FrameTypeAcceptCh, FrameTypePriorityUpdate:
		return true
	case FrameTypePriorityUpdateOld:
		return !d.opts.IgnoreOldPriorityUpdateFrame
	}
	return false
}

// maxFrameLength caps the payload of buffered frames. Single-varint frames
// cannot exceed the longest varint encoding.
func maxFrameLength(frameType uint64) uint64 {
	switch frameType {
	case FrameTypeCancelPush, FrameTypeGoAway, FrameTypeMaxPushID:
		return 8
	}
	return payloadLengthLimit
}
