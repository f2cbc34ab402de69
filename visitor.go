package h3frame

// Visitor receives frame events from a Decoder. Every method returning a bool
// may pause the decoder by returning false; ProcessInput then stops and
// reports how many bytes it consumed, and decoding picks up where it left off
// on the next call. Payload slices passed to the On*FramePayload methods are
// only valid for the duration of the call and must be copied if retained.
type Visitor interface {
	// OnError is called once when the decoder enters the error state. The
	// code and detail are available through Err and ErrorDetail.
	OnError(d *Decoder)

	OnCancelPushFrame(f CancelPushFrame) bool
	OnMaxPushIDFrame(f MaxPushIDFrame) bool
	OnGoAwayFrame(f GoAwayFrame) bool

	OnSettingsFrameStart(headerLen int) bool
	OnSettingsFrame(f SettingsFrame) bool

	OnDataFrameStart(headerLen int, payloadLen uint64) bool
	OnDataFramePayload(p []byte) bool
	OnDataFrameEnd() bool

	OnHeadersFrameStart(headerLen int, payloadLen uint64) bool
	OnHeadersFramePayload(p []byte) bool
	OnHeadersFrameEnd() bool

	OnPushPromiseFrameStart(headerLen int) bool
	OnPushPromiseFramePushID(pushID uint64, pushIDLen int, headerBlockLen uint64) bool
	OnPushPromiseFramePayload(p []byte) bool
	OnPushPromiseFrameEnd() bool

	OnPriorityUpdateFrameStart(headerLen int) bool
	OnPriorityUpdateFrame(f PriorityUpdateFrame) bool

	OnAcceptChFrameStart(headerLen int) bool
	OnAcceptChFrame(f AcceptChFrame) bool

	// OnWebTransportStreamFrameType is called when a WEBTRANSPORT_STREAM
	// preface is read and AllowWebTransportStream is set. The rest of the
	// stream belongs to the session; the decoder accepts no further input.
	OnWebTransportStreamFrameType(headerLen int, sessionID uint64)

	OnUnknownFrameStart(frameType uint64, headerLen int, payloadLen uint64) bool
	OnUnknownFramePayload(p []byte) bool
	OnUnknownFrameEnd() bool
}

// NopVisitor implements Visitor with methods that do nothing and never pause.
// Embed it to implement only the callbacks a use case needs.
type NopVisitor struct{}

var _ Visitor = NopVisitor{}

func (NopVisitor) OnError(*Decoder) {}

func (NopVisitor) OnCancelPushFrame(CancelPushFrame) bool { return true }
func (NopVisitor) OnMaxPushIDFrame(MaxPushIDFrame) bool   { return true }
func (NopVisitor) OnGoAwayFrame(GoAwayFrame) bool         { return true }

func (NopVisitor) OnSettingsFrameStart(int) bool      { return true }
func (NopVisitor) OnSettingsFrame(SettingsFrame) bool { return true }

func (NopVisitor) OnDataFrameStart(int, uint64) bool { return true }
func (NopVisitor) OnDataFramePayload([]byte) bool    { return true }
func (NopVisitor) OnDataFrameEnd() bool              { return true }

func (NopVisitor) OnHeadersFrameStart(int, uint64) bool { return true }
func (NopVisitor) OnHeadersFramePayload([]byte) bool    { return true }
func (NopVisitor) OnHeadersFrameEnd() bool              { return true }

func (NopVisitor) OnPushPromiseFrameStart(int) bool               { return true }
func (NopVisitor) OnPushPromiseFramePushID(uint64, int, uint64) bool { return true }
func (NopVisitor) OnPushPromiseFramePayload([]byte) bool          { return true }
func (NopVisitor) OnPushPromiseFrameEnd() bool                    { return true }

func (NopVisitor) OnPriorityUpdateFrameStart(int) bool            { return true }
func (NopVisitor) OnPriorityUpdateFrame(PriorityUpdateFrame) bool { return true }

func (NopVisitor) OnAcceptChFrameStart(int) bool      { return true }
func (NopVisitor) OnAcceptChFrame(AcceptChFrame) bool { return true }

func (NopVisitor) OnWebTransportStreamFrameType(int, uint64) {}

func (NopVisitor) OnUnknownFrameStart(uint64, int, uint64) bool { return true }
func (NopVisitor) OnUnknownFramePayload([]byte) bool            { return true }
func (NopVisitor) OnUnknownFrameEnd() bool                      { return true }
