package handler

import (
	"net/http"
	"regexp"
	"strings"
	"testing"
)

func TestRegister(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/register", map[string]string{"username": "alice", "password": "s3cret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body := decodeBody(t, resp)
	if body["message"] != "registration successful!" {
		t.Errorf("message = %v, want %q", body["message"], "registration successful!")
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/register", map[string]string{"username": "alice", "password": "s3cret"})
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/register", map[string]string{"username": "alice", "password": "other"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	body := decodeBody(t, resp)
	if body["code"] != "USERNAME_TAKEN" {
		t.Errorf("code = %v, want USERNAME_TAKEN", body["code"])
	}
}

func TestRegisterInvalidInput(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"empty username", "", "s3cret"},
		{"empty password", "alice", ""},
		{"username too long", strings.Repeat("a", 21), "s3cret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/register", map[string]string{"username": tt.username, "password": tt.password})
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
			}
			body := decodeBody(t, resp)
			if body["code"] != "INVALID_INPUT" {
				t.Errorf("code = %v, want INVALID_INPUT", body["code"])
			}
		})
	}
}

func TestRegisterMalformedJSON(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/register", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST /register: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	resp.Body.Close()
}

func TestLogin(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/register", map[string]string{"username": "alice", "password": "s3cret"})
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/login", map[string]string{"username": "alice", "password": "s3cret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body := decodeBody(t, resp)
	if body["message"] != "login successful!" {
		t.Errorf("message = %v, want %q", body["message"], "login successful!")
	}
	token, _ := body["jwt"].(string)
	if !regexp.MustCompile(`^[a-f0-9]{64}$`).MatchString(token) {
		t.Errorf("jwt = %q, want 64 lowercase hex chars", token)
	}
}

// A failed login is a 200 whose body has no "jwt" key at all; the shipped
// client distinguishes success and failure only by that key's presence.
func TestLoginBadCredentials(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/register", map[string]string{"username": "alice", "password": "s3cret"})
	resp.Body.Close()

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "wrong"},
		{"unknown user", "mallory", "s3cret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/login", map[string]string{"username": tt.username, "password": tt.password})
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
			}
			body := decodeBody(t, resp)
			if body["message"] != "incorrect username or password!" {
				t.Errorf("message = %v, want %q", body["message"], "incorrect username or password!")
			}
			if _, ok := body["jwt"]; ok {
				t.Errorf("failed login body contains jwt field: %v", body)
			}
		})
	}
}
