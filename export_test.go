package h3frame

// CurrentFrameType exposes the type of the frame being decoded, or of the
// last completed frame, for tests.
func (d *Decoder) CurrentFrameType() uint64 {
	return d.currentFrameType
}
