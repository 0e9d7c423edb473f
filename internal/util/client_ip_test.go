package util

import (
	"net/http/httptest"
	"net/netip"
	"testing"
)

func TestClientIP(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"10.0.0.0/8", "192.168.1.10", "fd00::/8"})
	if err != nil {
		t.Fatalf("new trusted proxies: %v", err)
	}

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xrip       string
		trusted    *TrustedProxies
		want       string
	}{
		{name: "untrusted peer ignores headers", remoteAddr: "198.51.100.10:1234", xff: "203.0.113.5", xrip: "203.0.113.6", want: "198.51.100.10"},
		{name: "trusted peer uses forwarded for", remoteAddr: "10.0.0.20:1234", xff: "203.0.113.5", trusted: trusted, want: "203.0.113.5"},
		{name: "skips trusted hops from the right", remoteAddr: "192.168.1.10:80", xff: "203.0.113.5, 10.0.0.10", trusted: trusted, want: "203.0.113.5"},
		{name: "spoofed leftmost entry is ignored", remoteAddr: "10.0.0.20:1234", xff: "1.1.1.1, 203.0.113.9", trusted: trusted, want: "203.0.113.9"},
		{name: "falls back to real ip", remoteAddr: "10.0.0.20:1234", xff: "garbage", xrip: "203.0.113.7", trusted: trusted, want: "203.0.113.7"},
		{name: "all hops trusted", remoteAddr: "10.0.0.20:1234", xff: "10.0.0.5, 10.0.0.10", trusted: trusted, want: "10.0.0.5"},
		{name: "ipv6 proxy", remoteAddr: "[fd00::1]:443", xff: "2001:db8::7", trusted: trusted, want: "2001:db8::7"},
		{name: "ipv4 mapped peer", remoteAddr: "[::ffff:10.0.0.20]:1234", xff: "203.0.113.5", trusted: trusted, want: "203.0.113.5"},
		{name: "unparseable peer returned as is", remoteAddr: "pipe", want: "pipe"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "http://example.com", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xrip != "" {
				req.Header.Set("X-Real-IP", tc.xrip)
			}
			if got := ClientIP(req, tc.trusted); got != tc.want {
				t.Fatalf("client ip = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewTrustedProxies(t *testing.T) {
	got, err := NewTrustedProxies([]string{" ", ""})
	if err != nil || got != nil {
		t.Fatalf("expected nil set for blank input, got %v %v", got, err)
	}
	for _, bad := range []string{"bad-cidr", "10.0.0.0/99"} {
		if _, err := NewTrustedProxies([]string{bad}); err == nil {
			t.Fatalf("expected parse error for %q", bad)
		}
	}
	set, err := NewTrustedProxies([]string{"10.1.2.3/8"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !set.Contains(netip.MustParseAddr("10.200.0.1")) {
		t.Fatalf("expected masked prefix to cover 10.200.0.1")
	}
	var none *TrustedProxies
	if none.Contains(netip.MustParseAddr("10.0.0.1")) {
		t.Fatalf("nil set must trust nobody")
	}
}
