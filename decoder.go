package h3frame

import (
	"bytes"
	"fmt"
	"io"

	"github.com/quic-go/quic-go/quicvarint"
)

// ErrorCode classifies the reason a Decoder stopped. Once set it is sticky;
// further ProcessInput calls are no-ops.
type ErrorCode uint8

const (
	ErrCodeNoError ErrorCode = iota
	ErrCodeFrameError
	ErrCodeFrameTooLarge
	ErrCodeDuplicateSettingIdentifier
	ErrCodeReceivedSpdyFrame
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeNoError:
		return "NO_ERROR"
	case ErrCodeFrameError:
		return "FRAME_ERROR"
	case ErrCodeFrameTooLarge:
		return "FRAME_TOO_LARGE"
	case ErrCodeDuplicateSettingIdentifier:
		return "DUPLICATE_SETTING_IDENTIFIER"
	case ErrCodeReceivedSpdyFrame:
		return "RECEIVED_SPDY_FRAME"
	case ErrCodeInternal:
		return "INTERNAL_ERROR"
	}
	return fmt.Sprintf("ErrorCode(%d)", uint8(c))
}

// Options configures a Decoder.
type Options struct {
	// ErrorOnHTTP3Push rejects CANCEL_PUSH and PUSH_PROMISE frames as soon
	// as their type field is read.
	ErrorOnHTTP3Push bool
	// IgnoreOldPriorityUpdateFrame surfaces the obsolete PRIORITY_UPDATE
	// encoding (type 0x0f) through the unknown-frame callbacks instead of
	// parsing it.
	IgnoreOldPriorityUpdateFrame bool
	// AllowWebTransportStream recognizes the WEBTRANSPORT_STREAM preface
	// (type 0x41). The second varint is the session id, not a length; the
	// decoder hands the stream off and accepts no further input.
	AllowWebTransportStream bool
}

type decoderState uint8

const (
	stateReadFrameType decoderState = iota
	stateReadFrameLength
	stateReadFramePayload
	stateFinishParsing
	stateParsingNoLongerPossible
	stateError
)

// Decoder is a push HTTP/3 frame decoder. Feed it stream bytes with
// ProcessInput in fragments of any size; it invokes the Visitor as frame
// boundaries and payloads become available. It holds no connection or
// stream state and applies no HTTP semantics.
type Decoder struct {
	visitor Visitor
	opts    Options

	state decoderState

	typeReader   varintReader
	lengthReader varintReader
	pushIDReader varintReader

	currentFrameType         uint64
	currentTypeFieldLength   int
	currentLengthFieldLength int
	currentFrameLength       uint64
	remainingFrameLength     uint64
	pushIDSeen               bool

	buffer []byte

	errCode   ErrorCode
	errDetail string
}

func NewDecoder(v Visitor) *Decoder {
	return NewDecoderWithOptions(v, Options{})
}

func NewDecoderWithOptions(v Visitor, opts Options) *Decoder {
	return &Decoder{visitor: v, opts: opts}
}

// Err returns the sticky error code, ErrCodeNoError while decoding is
// healthy.
func (d *Decoder) Err() ErrorCode {
	return d.errCode
}

// ErrorDetail returns a human-readable description of the error, empty while
// decoding is healthy.
func (d *Decoder) ErrorDetail() string {
	return d.errDetail
}

// ProcessInput feeds the next stream bytes to the decoder and returns how
// many were consumed. Fewer than len(data) bytes are consumed only when a
// visitor callback paused the decoder, an error was raised, or a
// WEBTRANSPORT_STREAM preface ended decoding; after a pause processing
// resumes exactly where it stopped on the next call. In the error state
// ProcessInput consumes nothing.
func (d *Decoder) ProcessInput(data []byte) int {
	if d.state == stateError {
		return 0
	}
	if d.state == stateParsingNoLongerPossible {
		d.raiseError(ErrCodeInternal, "Decoder called after an indefinite-length frame")
		return 0
	}
	pos := 0
	cont := true
	for cont && (pos < len(data) || d.state == stateFinishParsing) {
		var n int
		switch d.state {
		case stateReadFrameType:
			n, cont = d.readFrameType(data[pos:])
		case stateReadFrameLength:
			n, cont = d.readFrameLength(data[pos:])
		case stateReadFramePayload:
			n, cont = d.readFramePayload(data[pos:])
		case stateFinishParsing:
			cont = d.finishParsing()
		default:
			cont = false
		}
		pos += n
	}
	return pos
}

func (d *Decoder) readFrameType(b []byte) (int, bool) {
	n := d.typeReader.consume(b)
	if !d.typeReader.done() {
		return n, true
	}
	t := d.typeReader.value
	d.currentFrameType = t
	d.currentTypeFieldLength = d.typeReader.length
	d.typeReader.reset()

	switch t {
	case 0x02, 0x06, 0x08, 0x09:
		d.raiseError(ErrCodeReceivedSpdyFrame,
			fmt.Sprintf("HTTP/2 frame received in a HTTP/3 connection: %d", t))
		return n, false
	}
	if d.opts.ErrorOnHTTP3Push {
		switch t {
		case FrameTypeCancelPush:
			d.raiseError(ErrCodeFrameError, "CANCEL_PUSH frame received.")
			return n, false
		case FrameTypePushPromise:
			d.raiseError(ErrCodeFrameError, "PUSH_PROMISE frame received.")
			return n, false
		}
	}
	d.state = stateReadFrameLength
	return n, true
}

func (d *Decoder) readFrameLength(b []byte) (int, bool) {
	n := d.lengthReader.consume(b)
	if !d.lengthReader.done() {
		return n, true
	}
	length := d.lengthReader.value
	d.currentLengthFieldLength = d.lengthReader.length
	d.lengthReader.reset()
	headerLen := d.currentTypeFieldLength + d.currentLengthFieldLength

	if d.opts.AllowWebTransportStream && d.currentFrameType == FrameTypeWebTransportStream {
		// The second varint carries the session id. Everything after it
		// belongs to the WebTransport session.
		d.visitor.OnWebTransportStreamFrameType(headerLen, length)
		d.state = stateParsingNoLongerPossible
		return n, false
	}

	if d.isBuffered(d.currentFrameType) && length > maxFrameLength(d.currentFrameType) {
		d.raiseError(ErrCodeFrameTooLarge, "Frame is too large.")
		return n, false
	}
	if d.currentFrameType == FrameTypePushPromise && length == 0 {
		d.raiseError(ErrCodeFrameError, "PUSH_PROMISE frame with empty payload.")
		return n, false
	}

	d.currentFrameLength = length
	d.remainingFrameLength = length
	d.pushIDSeen = false
	d.pushIDReader.reset()
	d.buffer = d.buffer[:0]

	cont := true
	switch d.currentFrameType {
	case FrameTypeData:
		cont = d.visitor.OnDataFrameStart(headerLen, length)
	case FrameTypeHeaders:
		cont = d.visitor.OnHeadersFrameStart(headerLen, length)
	case FrameTypePushPromise:
		cont = d.visitor.OnPushPromiseFrameStart(headerLen)
	case FrameTypeSettings:
		cont = d.visitor.OnSettingsFrameStart(headerLen)
	case FrameTypeCancelPush, FrameTypeGoAway, FrameTypeMaxPushID:
		// single-varint frames have no start callback
	case FrameTypeAcceptCh:
		cont = d.visitor.OnAcceptChFrameStart(headerLen)
	case FrameTypePriorityUpdate:
		cont = d.visitor.OnPriorityUpdateFrameStart(headerLen)
	case FrameTypePriorityUpdateOld:
		if d.opts.IgnoreOldPriorityUpdateFrame {
			cont = d.visitor.OnUnknownFrameStart(d.currentFrameType, headerLen, length)
		} else {
			cont = d.visitor.OnPriorityUpdateFrameStart(headerLen)
		}
	default:
		cont = d.visitor.OnUnknownFrameStart(d.currentFrameType, headerLen, length)
	}

	if length == 0 {
		d.state = stateFinishParsing
	} else {
		d.state = stateReadFramePayload
	}
	return n, cont
}

func (d *Decoder) readFramePayload(b []byte) (int, bool) {
	avail := uint64(len(b))
	if avail > d.remainingFrameLength {
		avail = d.remainingFrameLength
	}
	chunk := b[:avail]
	cont := true
	consumed := 0

	switch {
	case d.isBuffered(d.currentFrameType):
		d.buffer = append(d.buffer, chunk...)
		d.remainingFrameLength -= avail
		consumed = int(avail)

	case d.currentFrameType == FrameTypePushPromise && !d.pushIDSeen:
		n := d.pushIDReader.consume(chunk)
		d.remainingFrameLength -= uint64(n)
		consumed = n
		if d.pushIDReader.done() {
			d.pushIDSeen = true
			idLen := d.pushIDReader.length
			pushID := d.pushIDReader.value
			d.pushIDReader.reset()
			cont = d.visitor.OnPushPromiseFramePushID(pushID, idLen,
				d.currentFrameLength-uint64(idLen))
		} else if d.remainingFrameLength == 0 {
			d.raiseError(ErrCodeFrameError, "Unable to read PUSH_PROMISE push_id.")
			return consumed, false
		}

	default:
		if avail > 0 {
			d.remainingFrameLength -= avail
			consumed = int(avail)
			switch d.currentFrameType {
			case FrameTypeData:
				cont = d.visitor.OnDataFramePayload(chunk)
			case FrameTypeHeaders:
				cont = d.visitor.OnHeadersFramePayload(chunk)
			case FrameTypePushPromise:
				cont = d.visitor.OnPushPromiseFramePayload(chunk)
			default:
				cont = d.visitor.OnUnknownFramePayload(chunk)
			}
		}
	}

	if d.remainingFrameLength == 0 {
		d.state = stateFinishParsing
	}
	return consumed, cont
}

// finishParsing completes the current frame without consuming input. Paused
// end-of-frame callbacks are invoked again on the next ProcessInput call;
// value callbacks of buffered frames fire exactly once.
func (d *Decoder) finishParsing() bool {
	cont := true
	switch d.currentFrameType {
	case FrameTypeData:
		cont = d.visitor.OnDataFrameEnd()
	case FrameTypeHeaders:
		cont = d.visitor.OnHeadersFrameEnd()
	case FrameTypePushPromise:
		cont = d.visitor.OnPushPromiseFrameEnd()
	case FrameTypeCancelPush:
		cont = d.parseCancelPush()
	case FrameTypeSettings:
		cont = d.parseSettings()
	case FrameTypeGoAway:
		cont = d.parseGoAway()
	case FrameTypeMaxPushID:
		cont = d.parseMaxPushID()
	case FrameTypeAcceptCh:
		cont = d.parseAcceptCh()
	case FrameTypePriorityUpdate:
		cont = d.parsePriorityUpdate()
	case FrameTypePriorityUpdateOld:
		if d.opts.IgnoreOldPriorityUpdateFrame {
			cont = d.visitor.OnUnknownFrameEnd()
		} else {
			cont = d.parsePriorityUpdateOld()
		}
	default:
		cont = d.visitor.OnUnknownFrameEnd()
	}
	if d.state == stateError {
		return false
	}
	if !cont && !d.isBuffered(d.currentFrameType) {
		return false
	}
	d.resetForNextFrame()
	return cont
}

func (d *Decoder) resetForNextFrame() {
	// currentFrameType is kept so the last completed frame stays observable.
	d.state = stateReadFrameType
	d.buffer = d.buffer[:0]
	d.typeReader.reset()
	d.lengthReader.reset()
	d.pushIDReader.reset()
	d.pushIDSeen = false
	d.remainingFrameLength = 0
}

func (d *Decoder) raiseError(code ErrorCode, detail string) {
	d.state = stateError
	d.errCode = code
	d.errDetail = detail
	d.visitor.OnError(d)
}

func (d *Decoder) parseCancelPush() bool {
	r := bytes.NewReader(d.buffer)
	pushID, err := quicvarint.Read(r)
	if err != nil {
		d.raiseError(ErrCodeFrameError, "Unable to read CANCEL_PUSH push_id.")
		return false
	}
	if r.Len() > 0 {
		d.raiseError(ErrCodeFrameError, "Superfluous data in CANCEL_PUSH frame.")
		return false
	}
	return d.visitor.OnCancelPushFrame(CancelPushFrame{PushID: pushID})
}

func (d *Decoder) parseGoAway() bool {
	r := bytes.NewReader(d.buffer)
	id, err := quicvarint.Read(r)
	if err != nil {
		d.raiseError(ErrCodeFrameError, "Unable to read GOAWAY ID.")
		return false
	}
	if r.Len() > 0 {
		d.raiseError(ErrCodeFrameError, "Superfluous data in GOAWAY frame.")
		return false
	}
	return d.visitor.OnGoAwayFrame(GoAwayFrame{ID: id})
}

func (d *Decoder) parseMaxPushID() bool {
	r := bytes.NewReader(d.buffer)
	pushID, err := quicvarint.Read(r)
	if err != nil {
		d.raiseError(ErrCodeFrameError, "Unable to read MAX_PUSH_ID push_id.")
		return false
	}
	if r.Len() > 0 {
		d.raiseError(ErrCodeFrameError, "Superfluous data in MAX_PUSH_ID frame.")
		return false
	}
	return d.visitor.OnMaxPushIDFrame(MaxPushIDFrame{PushID: pushID})
}

func (d *Decoder) parseSettings() bool {
	r := bytes.NewReader(d.buffer)
	frame := SettingsFrame{Values: make(map[uint64]uint64)}
	for r.Len() > 0 {
		id, err := quicvarint.Read(r)
		if err != nil {
			d.raiseError(ErrCodeFrameError, "Unable to read setting identifier.")
			return false
		}
		val, err := quicvarint.Read(r)
		if err != nil {
			d.raiseError(ErrCodeFrameError, "Unable to read setting value.")
			return false
		}
		if _, ok := frame.Values[id]; ok {
			d.raiseError(ErrCodeDuplicateSettingIdentifier, "Duplicate setting identifier.")
			return false
		}
		frame.Values[id] = val
	}
	return d.visitor.OnSettingsFrame(frame)
}

func (d *Decoder) parsePriorityUpdate() bool {
	r := bytes.NewReader(d.buffer)
	id, err := quicvarint.Read(r)
	if err != nil {
		d.raiseError(ErrCodeFrameError, "Unable to read prioritized element id.")
		return false
	}
	rest := make([]byte, r.Len())
	io.ReadFull(r, rest)
	return d.visitor.OnPriorityUpdateFrame(PriorityUpdateFrame{
		PrioritizedElementType: RequestStream,
		PrioritizedElementID:   id,
		PriorityFieldValue:     string(rest),
	})
}

func (d *Decoder) parsePriorityUpdateOld() bool {
	r := bytes.NewReader(d.buffer)
	et, err := r.ReadByte()
	if err != nil {
		d.raiseError(ErrCodeFrameError, "Unable to read prioritized element type.")
		return false
	}
	if et != byte(RequestStream) && et != byte(PushStream) {
		d.raiseError(ErrCodeFrameError, "Invalid prioritized element type.")
		return false
	}
	id, err := quicvarint.Read(r)
	if err != nil {
		d.raiseError(ErrCodeFrameError, "Unable to read prioritized element id.")
		return false
	}
	rest := make([]byte, r.Len())
	io.ReadFull(r, rest)
	return d.visitor.OnPriorityUpdateFrame(PriorityUpdateFrame{
		PrioritizedElementType: PrioritizedElementType(et),
		PrioritizedElementID:   id,
		PriorityFieldValue:     string(rest),
	})
}

func (d *Decoder) parseAcceptCh() bool {
	r := bytes.NewReader(d.buffer)
	var frame AcceptChFrame
	for r.Len() > 0 {
		origin, ok := readLengthPrefixed(r)
		if !ok {
			d.raiseError(ErrCodeFrameError, "Unable to read ACCEPT_CH origin.")
			return false
		}
		value, ok := readLengthPrefixed(r)
		if !ok {
			d.raiseError(ErrCodeFrameError, "Unable to read ACCEPT_CH value.")
			return false
		}
		frame.Entries = append(frame.Entries, AcceptChEntry{Origin: origin, Value: value})
	}
	return d.visitor.OnAcceptChFrame(frame)
}

func readLengthPrefixed(r *bytes.Reader) (string, bool) {
	l, err := quicvarint.Read(r)
	if err != nil || l > uint64(r.Len()) {
		return "", false
	}
	buf := make([]byte, l)
	io.ReadFull(r, buf)
	return string(buf), true
}
