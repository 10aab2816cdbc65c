package insper

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/felipeadeildo/insper-sync/internal/crypto"
)

func newFakeEncryptor() *crypto.PasswordEncryptor {
	// Encryptor is only exercised when encryptPassword=true; tests below
	// use the stored-ciphertext path, so a cache pointed at nothing is
	// fine as long as it is never dereferenced.
	return crypto.NewPasswordEncryptor(crypto.NewPublicKeyCache("http://unused.invalid", http.DefaultClient))
}

func userDataCookieValue(t *testing.T, data UserData) string {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal user data: %v", err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func TestSession_Login_Success(t *testing.T) {
	want := UserData{ID: "123", Name: "Alice", Login: "alice", Roles: "student"}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/AOnline/auth" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method == http.MethodPost && r.URL.Path == "/AOnline/auth" {
			if got := r.Header.Get("User-Agent"); got != "" {
				t.Errorf("expected no User-Agent header, got %q", got)
			}
			http.SetCookie(w, &http.Cookie{Name: "user-data", Value: userDataCookieValue(t, want)})
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	session, err := NewSession(server.URL, newFakeEncryptor())
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	ok, err := session.Login("alice", "already-encrypted-ciphertext", false)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !ok {
		t.Fatal("Login() = false, want true")
	}
	if session.UserData.ID != want.ID {
		t.Errorf("UserData.ID = %q, want %q", session.UserData.ID, want.ID)
	}
}

func TestSession_Login_MissingCookieFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	session, err := NewSession(server.URL, newFakeEncryptor())
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	ok, err := session.Login("alice", "ciphertext", false)
	if ok || err == nil {
		t.Fatalf("Login() = (%v, %v), want (false, non-nil error)", ok, err)
	}
}

func TestSession_TestConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The fragment is never sent over HTTP, so this must receive "/AOnline/".
		if r.URL.Path != "/AOnline/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	session, err := NewSession(server.URL, newFakeEncryptor())
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	if !session.TestConnection() {
		t.Error("TestConnection() = false, want true")
	}
}
