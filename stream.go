package h3frame

import (
	"fmt"
	"io"
)

const bodyCopyBufferSize = 8 * 1024

// FrameWriter frames writes onto an HTTP/3 request stream. Write wraps p in
// a DATA frame; WriteHeaders wraps an already encoded header block in a
// HEADERS frame.
type FrameWriter struct {
	w   io.Writer
	buf []byte
}

func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

func (fw *FrameWriter) Write(p []byte) (int, error) {
	fw.buf = DataFrame{Length: uint64(len(p))}.Append(fw.buf[:0])
	if _, err := fw.w.Write(fw.buf); err != nil {
		return 0, err
	}
	return fw.w.Write(p)
}

func (fw *FrameWriter) WriteHeaders(block []byte) error {
	fw.buf = HeadersFrame{Length: uint64(len(block))}.Append(fw.buf[:0])
	if _, err := fw.w.Write(fw.buf); err != nil {
		return err
	}
	_, err := fw.w.Write(block)
	return err
}

// BodyReader reads the concatenated DATA payloads of an HTTP/3 stream,
// skipping every other frame. Malformed framing surfaces as a read error.
type BodyReader struct {
	src     io.Reader
	dec     *Decoder
	pending []byte
	readBuf []byte
	err     error
}

type bodyVisitor struct {
	NopVisitor
	r *BodyReader
}

func (v bodyVisitor) OnDataFramePayload(p []byte) bool {
	// p is only valid during the callback, append copies it out.
	v.r.pending = append(v.r.pending, p...)
	return true
}

func NewBodyReader(r io.Reader) *BodyReader {
	br := &BodyReader{src: r, readBuf: make([]byte, bodyCopyBufferSize)}
	br.dec = NewDecoder(bodyVisitor{r: br})
	return br
}

func (br *BodyReader) Read(p []byte) (int, error) {
	for len(br.pending) == 0 {
		if br.err != nil {
			return 0, br.err
		}
		n, err := br.src.Read(br.readBuf)
		if n > 0 {
			br.dec.ProcessInput(br.readBuf[:n])
			if code := br.dec.Err(); code != ErrCodeNoError {
				br.err = fmt.Errorf("decode body: %s: %s", code, br.dec.ErrorDetail())
			}
		}
		if err != nil {
			if br.err == nil {
				br.err = err
			}
			break
		}
	}
	if len(br.pending) == 0 {
		return 0, br.err
	}
	n := copy(p, br.pending)
	br.pending = br.pending[n:]
	return n, nil
}
