package crypto

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
)

func TestPublicKeyCache_FetchesAndCaches(t *testing.T) {
	var fetches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/AOnline/auth":
			w.WriteHeader(http.StatusOK)
		case "/AOnline/config-properties/public-key":
			atomic.AddInt32(&fetches, 1)
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("-----BEGIN PUBLIC KEY-----\nfakekey\n-----END PUBLIC KEY-----\n"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cache := NewPublicKeyCache(server.URL, server.Client())

	key1, err := cache.GetPublicKey()
	if err != nil {
		t.Fatalf("GetPublicKey() error = %v", err)
	}
	key2, err := cache.GetPublicKey()
	if err != nil {
		t.Fatalf("GetPublicKey() second call error = %v", err)
	}

	if string(key1) != string(key2) {
		t.Errorf("expected cached key to be identical across calls")
	}
	if got := atomic.LoadInt32(&fetches); got != 1 {
		t.Errorf("expected exactly 1 upstream fetch, got %d", got)
	}
}

func TestPublicKeyCache_NonOKDoesNotCache(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"server error", http.StatusInternalServerError},
		{"not found", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/AOnline/config-properties/public-key" {
					w.WriteHeader(tt.status)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cache := NewPublicKeyCache(server.URL, server.Client())
			if _, err := cache.GetPublicKey(); err == nil {
				t.Errorf("expected error for status %s", strconv.Itoa(tt.status))
			}

			if _, ok := cache.cached(); ok {
				t.Errorf("expected cache to remain empty after a non-200 response")
			}
		})
	}
}
