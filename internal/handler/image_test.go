package handler

import (
	"bytes"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestFetchImage(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	token := registerAndLogin(t, srv.URL, "alice", "s3cret")

	resp := uploadImage(t, srv.URL, "alice", token, pngBytes(t, 48, 48, color.RGBA{B: 220, A: 255}), "")
	body := decodeBody(t, resp)
	filename := body["filename"].(string)

	// Fetching needs no token: the 256-bit hash in the path is the capability.
	resp, err := http.Get(srv.URL + "/images/" + filename)
	if err != nil {
		t.Fatalf("GET /images/%s: %v", filename, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("served bytes are not a decodable JPEG: %v", err)
	}
	if img.Bounds().Dx() != 48 || img.Bounds().Dy() != 48 {
		t.Errorf("served image is %dx%d, want 48x48", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestFetchImageNotFound(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/images/" + strings.Repeat("0", 64) + ".jpg")
	if err != nil {
		t.Fatalf("GET /images: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	body := decodeBody(t, resp)
	if body["code"] != "IMAGE_NOT_FOUND" {
		t.Errorf("code = %v, want IMAGE_NOT_FOUND", body["code"])
	}
}
