package h3frame

import "fmt"

type settingsCapture struct {
	NopVisitor
	frame *SettingsFrame
	other bool
}

func (c *settingsCapture) OnSettingsFrame(f SettingsFrame) bool {
	if c.frame == nil {
		c.frame = &f
	}
	return false
}

func (c *settingsCapture) OnDataFrameStart(int, uint64) bool        { c.other = true; return false }
func (c *settingsCapture) OnHeadersFrameStart(int, uint64) bool     { c.other = true; return false }
func (c *settingsCapture) OnPushPromiseFrameStart(int) bool         { c.other = true; return false }
func (c *settingsCapture) OnCancelPushFrame(CancelPushFrame) bool   { c.other = true; return false }
func (c *settingsCapture) OnMaxPushIDFrame(MaxPushIDFrame) bool     { c.other = true; return false }
func (c *settingsCapture) OnGoAwayFrame(GoAwayFrame) bool           { c.other = true; return false }
func (c *settingsCapture) OnPriorityUpdateFrameStart(int) bool      { c.other = true; return false }
func (c *settingsCapture) OnAcceptChFrameStart(int) bool            { c.other = true; return false }
func (c *settingsCapture) OnUnknownFrameStart(uint64, int, uint64) bool {
	c.other = true
	return false
}

// DecodeSettings parses data as a single complete SETTINGS frame. It fails
// if the input is malformed or truncated, or if its first frame is not a
// SETTINGS frame. Bytes after the first SETTINGS frame are not examined.
func DecodeSettings(data []byte) (SettingsFrame, error) {
	var capture settingsCapture
	d := NewDecoder(&capture)
	d.ProcessInput(data)
	if d.Err() != ErrCodeNoError {
		return SettingsFrame{}, fmt.Errorf("decode settings: %s", d.ErrorDetail())
	}
	if capture.other {
		return SettingsFrame{}, fmt.Errorf("decode settings: not a SETTINGS frame")
	}
	if capture.frame == nil {
		return SettingsFrame{}, fmt.Errorf("decode settings: incomplete frame")
	}
	return *capture.frame, nil
}
