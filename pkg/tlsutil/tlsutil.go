// Package tlsutil builds TLS client configuration for HTTPS senders.
package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ategus/bridginghub/errors"
)

// ClientConfig selects the trust settings for outbound HTTPS connections.
type ClientConfig struct {
	// CAFile adds one PEM-encoded CA to the system trust pool.
	CAFile string

	// InsecureSkipVerify disables certificate verification entirely.
	InsecureSkipVerify bool
}

// NeedsTransport reports whether the settings require a custom transport.
func (c ClientConfig) NeedsTransport() bool {
	return c.CAFile != "" || c.InsecureSkipVerify
}

// LoadClientTLSConfig creates a tls.Config from the client settings. The
// system CA pool stays trusted; CAFile adds one more trusted CA.
func LoadClientTLSConfig(cfg ClientConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	rootCAs, err := x509.SystemCertPool()
	if err != nil {
		rootCAs = x509.NewCertPool()
	}

	if cfg.CAFile != "" {
		caPEM, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, errors.Wrap(err, "tlsutil", "LoadClientTLSConfig",
				fmt.Sprintf("read CA file %s", cfg.CAFile))
		}
		if !rootCAs.AppendCertsFromPEM(caPEM) {
			return nil, errors.Wrap(
				fmt.Errorf("invalid PEM data"),
				"tlsutil", "LoadClientTLSConfig",
				fmt.Sprintf("parse CA certificate from %s", cfg.CAFile),
			)
		}
	}

	tlsConfig.RootCAs = rootCAs

	// Operators opt into this knowingly; the sender logs a warning.
	if cfg.InsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true
	}

	return tlsConfig, nil
}

// NewHTTPClient returns an HTTP client with the given per-request timeout.
// Default transport when no custom trust settings are required.
func NewHTTPClient(timeout time.Duration, cfg ClientConfig) (*http.Client, error) {
	client := &http.Client{Timeout: timeout}

	if !cfg.NeedsTransport() {
		return client, nil
	}

	tlsConfig, err := LoadClientTLSConfig(cfg)
	if err != nil {
		return nil, err
	}
	client.Transport = &http.Transport{
		TLSClientConfig: tlsConfig,
	}
	return client, nil
}
