package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/gospider007/h3frame"
	"github.com/quic-go/qpack"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	log "github.com/sirupsen/logrus"
)

func runProbe(rawURL string, insecure bool, opts h3frame.Options) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "https" {
		return fmt.Errorf("probe needs an https URL, got %q", rawURL)
	}
	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "443")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := dial(ctx, addr, &tls.Config{
		ServerName:         u.Hostname(),
		InsecureSkipVerify: insecure,
		NextProtos:         []string{http3.NextProtoH3},
	})
	if err != nil {
		return err
	}
	defer conn.CloseWithError(0, "done")

	str, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return err
	}

	var headerBuf bytes.Buffer
	enc := qpack.NewEncoder(&headerBuf)
	for _, hf := range []qpack.HeaderField{
		{Name: ":authority", Value: u.Host},
		{Name: ":method", Value: "GET"},
		{Name: ":path", Value: u.RequestURI()},
		{Name: ":scheme", Value: "https"},
		{Name: "user-agent", Value: "h3dump"},
	} {
		if err := enc.WriteField(hf); err != nil {
			return err
		}
	}
	if err := enc.Close(); err != nil {
		return err
	}

	fw := h3frame.NewFrameWriter(str)
	if err := fw.WriteHeaders(headerBuf.Bytes()); err != nil {
		return err
	}
	if err := str.Close(); err != nil {
		return err
	}

	log.WithField("addr", addr).Info("Request sent, dumping response stream")
	return runDump(str, 4096, opts)
}

func dial(ctx context.Context, addr string, tlsCfg *tls.Config) (quic.EarlyConnection, error) {
	udpConn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, err
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	return quic.DialEarly(ctx, udpConn, udpAddr, tlsCfg, nil)
}
