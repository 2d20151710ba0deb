package httpapi

import (
	"testing"
	"time"
)

func TestSetMaxBodyBytes_DefaultWhenNonPositive(t *testing.T) {
	SetMaxBodyBytes(-1)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(1234)
	if maxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(0)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB on zero, got %d", maxBodyBytes)
	}
}

func TestSetQueryTimeout_NormalizesNegativeToZero(t *testing.T) {
	defer SetQueryTimeout(0)
	SetQueryTimeout(-5 * time.Second)
	if queryTimeout != 0 {
		t.Fatalf("expected 0, got %v", queryTimeout)
	}
	SetQueryTimeout(3 * time.Second)
	if queryTimeout != 3*time.Second {
		t.Fatalf("expected 3s, got %v", queryTimeout)
	}
}

func TestSetCORSOptions_Copies(t *testing.T) {
	origins := []string{"http://a"}
	SetCORSOptions(true, origins, nil, nil)
	defer SetCORSOptions(false, nil, nil, nil)
	origins[0] = "http://b"
	if corsAllowedOrigins[0] != "http://a" {
		t.Fatalf("origins aliased caller slice: %v", corsAllowedOrigins)
	}
}
