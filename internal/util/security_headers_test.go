package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithSecurityHeaders(t *testing.T) {
	h := WithSecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/countries/image" {
			w.Header().Set("Cache-Control", "no-cache")
		}
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name      string
		path      string
		proto     string
		wantCache string
		wantHSTS  bool
	}{
		{name: "json endpoint", path: "/status", wantCache: "no-store"},
		{name: "handler overrides cache", path: "/countries/image", wantCache: "no-cache"},
		{name: "forwarded https", path: "/status", proto: "https", wantCache: "no-store", wantHSTS: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tc.proto)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
				t.Fatalf("X-Content-Type-Options = %q", got)
			}
			if got := rec.Header().Get("Cross-Origin-Resource-Policy"); got != "cross-origin" {
				t.Fatalf("Cross-Origin-Resource-Policy = %q", got)
			}
			if got := rec.Header().Get("Cache-Control"); got != tc.wantCache {
				t.Fatalf("Cache-Control = %q, want %q", got, tc.wantCache)
			}
			if got := rec.Header().Get("Strict-Transport-Security"); (got != "") != tc.wantHSTS {
				t.Fatalf("Strict-Transport-Security = %q, want present=%v", got, tc.wantHSTS)
			}
		})
	}
}
