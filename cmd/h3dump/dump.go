package main

import (
	"fmt"
	"io"

	"github.com/gospider007/h3frame"
	"github.com/quic-go/qpack"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/http/httpguts"
)

// dumpVisitor logs one line per frame event. HEADERS payloads are collected
// and decompressed with qpack once the frame completes.
type dumpVisitor struct {
	h3frame.NopVisitor
	headerBlock []byte
}

func (v *dumpVisitor) OnError(d *h3frame.Decoder) {
	log.WithFields(log.Fields{
		"code":   d.Err().String(),
		"detail": d.ErrorDetail(),
	}).Error("Decoder error")
}

func (v *dumpVisitor) OnCancelPushFrame(f h3frame.CancelPushFrame) bool {
	log.WithField("push_id", f.PushID).Info("CANCEL_PUSH")
	return true
}

func (v *dumpVisitor) OnMaxPushIDFrame(f h3frame.MaxPushIDFrame) bool {
	log.WithField("push_id", f.PushID).Info("MAX_PUSH_ID")
	return true
}

func (v *dumpVisitor) OnGoAwayFrame(f h3frame.GoAwayFrame) bool {
	log.WithField("id", f.ID).Info("GOAWAY")
	return true
}

func (v *dumpVisitor) OnSettingsFrame(f h3frame.SettingsFrame) bool {
	log.WithField("values", f.Values).Info("SETTINGS")
	return true
}

func (v *dumpVisitor) OnDataFrameStart(headerLen int, payloadLen uint64) bool {
	log.WithField("len", payloadLen).Info("DATA")
	return true
}

func (v *dumpVisitor) OnDataFramePayload(p []byte) bool {
	log.WithField("bytes", len(p)).Debug("DATA payload")
	return true
}

func (v *dumpVisitor) OnHeadersFrameStart(headerLen int, payloadLen uint64) bool {
	log.WithField("len", payloadLen).Info("HEADERS")
	v.headerBlock = v.headerBlock[:0]
	return true
}

func (v *dumpVisitor) OnHeadersFramePayload(p []byte) bool {
	v.headerBlock = append(v.headerBlock, p...)
	return true
}

func (v *dumpVisitor) OnHeadersFrameEnd() bool {
	dec := qpack.NewDecoder(func(qpack.HeaderField) {})
	fields, err := dec.DecodeFull(v.headerBlock)
	if err != nil {
		log.WithError(err).Warn("HEADERS block did not decompress")
		return true
	}
	for _, hf := range fields {
		entry := log.WithFields(log.Fields{"name": hf.Name, "value": hf.Value})
		if !hf.IsPseudo() && !httpguts.ValidHeaderFieldName(hf.Name) {
			entry.Warn("Invalid header field name")
			continue
		}
		entry.Info("header")
	}
	return true
}

func (v *dumpVisitor) OnPushPromiseFrameStart(headerLen int) bool {
	log.Info("PUSH_PROMISE")
	return true
}

func (v *dumpVisitor) OnPushPromiseFramePushID(pushID uint64, pushIDLen int, headerBlockLen uint64) bool {
	log.WithFields(log.Fields{
		"push_id":          pushID,
		"header_block_len": headerBlockLen,
	}).Info("PUSH_PROMISE push_id")
	return true
}

func (v *dumpVisitor) OnPriorityUpdateFrame(f h3frame.PriorityUpdateFrame) bool {
	log.WithFields(log.Fields{
		"element_type": f.PrioritizedElementType,
		"element_id":   f.PrioritizedElementID,
		"field_value":  f.PriorityFieldValue,
	}).Info("PRIORITY_UPDATE")
	return true
}

func (v *dumpVisitor) OnAcceptChFrame(f h3frame.AcceptChFrame) bool {
	for _, e := range f.Entries {
		log.WithFields(log.Fields{"origin": e.Origin, "value": e.Value}).Info("ACCEPT_CH")
	}
	return true
}

func (v *dumpVisitor) OnWebTransportStreamFrameType(headerLen int, sessionID uint64) {
	log.WithField("session_id", sessionID).Info("WEBTRANSPORT_STREAM")
}

func (v *dumpVisitor) OnUnknownFrameStart(frameType uint64, headerLen int, payloadLen uint64) bool {
	log.WithFields(log.Fields{
		"type": fmt.Sprintf("%#x", frameType),
		"len":  payloadLen,
	}).Info("unknown frame")
	return true
}

func runDump(r io.Reader, chunk int, opts h3frame.Options) error {
	dec := h3frame.NewDecoderWithOptions(&dumpVisitor{}, opts)
	buf := make([]byte, chunk)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			dec.ProcessInput(buf[:n])
			if code := dec.Err(); code != h3frame.ErrCodeNoError {
				return fmt.Errorf("%s: %s", code, dec.ErrorDetail())
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
