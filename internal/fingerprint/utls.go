package fingerprint

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// Profile represents a recognized TLS fingerprint profile.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // standard go TLS
	ProfileRandom  Profile = "random" // randomized uTLS profile
)

// ForUserAgent picks the TLS profile matching the browser a user-agent
// string claims to be, so the ClientHello and the UA header tell the same
// story to fingerprinting anti-bot systems.
func ForUserAgent(ua string) Profile {
	lower := strings.ToLower(ua)
	switch {
	case strings.Contains(lower, "firefox"):
		return ProfileFirefox
	case strings.Contains(lower, "chrome"), strings.Contains(lower, "edg/"):
		return ProfileChrome
	case strings.Contains(lower, "safari"):
		return ProfileSafari
	default:
		return ProfileChrome
	}
}

// Transport returns an http.RoundTripper configured with the specified
// TLS fingerprint profile. If the profile is "go", it returns a standard
// http.Transport. Otherwise, it wraps http.Transport to use utls.UClient.
// proxyFunc is optional. If provided, it configures the underlying transport's Proxy.
func Transport(p Profile, proxyFunc func(*http.Request) (*url.URL, error)) (http.RoundTripper, error) {
	if p == ProfileGo {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if proxyFunc != nil {
			transport.Proxy = proxyFunc
		}
		return transport, nil
	}

	var clientHelloID utls.ClientHelloID
	switch p {
	case ProfileChrome:
		clientHelloID = utls.HelloChrome_Auto
	case ProfileFirefox:
		clientHelloID = utls.HelloFirefox_Auto
	case ProfileSafari:
		clientHelloID = utls.HelloIOS_Auto
	case ProfileRandom:
		clientHelloID = utls.HelloRandomizedALPN
	default:
		return nil, fmt.Errorf("unknown fingerprint profile %q", p)
	}

	// Wrap the standard TCP dialer and perform the uTLS handshake on top.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyFunc != nil {
		transport.Proxy = proxyFunc
	}

	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := transport.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr // fallback if no port
		}

		uConn := utls.UClient(tcpConn, &utls.Config{ServerName: host}, clientHelloID)
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("utls handshake failed: %w", err)
		}

		return uConn, nil
	}

	return transport, nil
}
