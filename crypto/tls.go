package crypto

import (
	"crypto/tls"
	"fmt"
	"net"
)

// ClientTLSConfig returns the TLS configuration of connections to the service
// at address, a host:port pair. The host is used to verify the server
// certificate.
func ClientTLSConfig(address string) (*tls.Config, error) {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("failed parsing address '%s': %w", address, err)
	}

	return &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
		// Only curves with constant-time implementations
		CurvePreferences: []tls.CurveID{tls.X25519, tls.CurveP256},
	}, nil
}
