package sim

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"time"

	"github.com/quic-go/quic-go"
)

// ALPN is the TLS application protocol negotiated on QUIC connections.
const ALPN = "rgbd-sim"

// conn is one request/response stream to the bridge.
type conn interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
}

func dialBridge(ctx context.Context, cfg Config) (conn, error) {
	switch cfg.Mode {
	case ModeTCP:
		var d net.Dialer
		return d.DialContext(ctx, "tcp", cfg.Address())
	case ModeUDP:
		qc, err := dialQUIC(ctx, cfg.Address())
		if err != nil {
			return nil, err
		}
		return qc, nil
	default:
		return nil, fmt.Errorf("unsupported transport mode %q", cfg.Mode)
	}
}

// quicConn owns a QUIC connection carrying a single stream.
type quicConn struct {
	*quic.Stream
	conn *quic.Conn
}

func dialQUIC(ctx context.Context, addr string) (*quicConn, error) {
	qc, err := quic.DialAddr(ctx, addr, &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{ALPN},
	}, &quic.Config{
		HandshakeIdleTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	st, err := qc.OpenStreamSync(ctx)
	if err != nil {
		_ = qc.CloseWithError(0, "")
		return nil, err
	}
	return &quicConn{Stream: st, conn: qc}, nil
}

// Close closes the stream and the connection.
func (c *quicConn) Close() error {
	return errors.Join(c.Stream.Close(), c.conn.CloseWithError(0, ""))
}

// GenerateTLSConfig returns a server TLS config with a fresh self-signed
// certificate for the QUIC transport.
func GenerateTLSConfig() (*tls.Config, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	tmpl := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: ALPN},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
		NextProtos:   []string{ALPN},
	}, nil
}
