package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestMultiLimiterAllow(t *testing.T) {
	// 2 events per second with burst 2
	ml := newMultiLimiter(rate.Limit(2), 2, time.Minute)
	key := "test"
	if !ml.allow(key) {
		t.Fatal("first allow should pass")
	}
	if !ml.allow(key) {
		t.Fatal("second allow should pass")
	}
	// third immediate call exhausts the burst
	if ml.allow(key) {
		t.Fatal("third allow should be rate limited")
	}
}

func TestMultiLimiterKeysAreIndependent(t *testing.T) {
	ml := newMultiLimiter(rate.Limit(1), 1, time.Minute)
	if !ml.allow("a") {
		t.Fatal("first key should pass")
	}
	if !ml.allow("b") {
		t.Fatal("second key has its own bucket")
	}
	if ml.allow("a") {
		t.Fatal("first key is exhausted")
	}
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.1.2.3:5555"
	if got := getClientIP(r); got != "10.1.2.3" {
		t.Fatalf("got %q", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := getClientIP(r); got != "203.0.113.9" {
		t.Fatalf("XFF takes precedence, got %q", got)
	}
}
