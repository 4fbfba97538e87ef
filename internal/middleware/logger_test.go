package middleware

import (
	"net/http/httptest"
	"testing"
)

func TestGetClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	if ip := getClientIP(req); ip != "10.0.0.1" {
		t.Fatalf("expected first forwarded ip, got %q", ip)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Real-IP", "10.0.0.9")
	if ip := getClientIP(req); ip != "10.0.0.9" {
		t.Fatalf("expected real ip, got %q", ip)
	}
}
