package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/imgpress/imgpress/internal/blob"
	"github.com/imgpress/imgpress/internal/cache"
	"github.com/imgpress/imgpress/internal/middleware"
	"github.com/imgpress/imgpress/internal/model"
	"github.com/imgpress/imgpress/internal/repository"
	"github.com/imgpress/imgpress/internal/service"
	"github.com/imgpress/imgpress/internal/transform"
)

// In-memory fakes mirroring the persistence semantics the handlers sit on.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*model.User)}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.Username]; ok {
		return repository.ErrUsernameExists
	}
	clone := *user
	f.users[user.Username] = &clone
	return nil
}

func (f *fakeUserStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]string)}
}

func (f *fakeSessionStore) PutSession(ctx context.Context, token, username string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[token] = username
	return nil
}

func (f *fakeSessionStore) ResolveSession(ctx context.Context, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	username, ok := f.sessions[token]
	if !ok {
		return "", cache.ErrSessionNotFound
	}
	return username, nil
}

type fakeRecordStore struct {
	mu      sync.Mutex
	records []*model.ImageRecord
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{}
}

func (f *fakeRecordStore) CreateImage(ctx context.Context, record *model.ImageRecord) (*model.ImageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.records {
		if existing.OwnerUsername == record.OwnerUsername && existing.ContentHash == record.ContentHash {
			clone := *existing
			return &clone, nil
		}
	}
	clone := *record
	f.records = append(f.records, &clone)
	out := clone
	return &out, nil
}

func (f *fakeRecordStore) ListImagesByOwner(ctx context.Context, owner string) ([]*model.ImageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.ImageRecord, 0)
	for _, record := range f.records {
		if record.OwnerUsername == owner {
			clone := *record
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeRecordStore) GetImageByStorageKey(ctx context.Context, key string) (*model.ImageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.records {
		if record.StorageKey == key {
			clone := *record
			return &clone, nil
		}
	}
	return nil, repository.ErrImageNotFound
}

// newTestServer assembles the full route surface over in-memory stores and a
// temp-dir blob store, mirroring the production router.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	blobs, err := blob.NewFSStore(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("NewFSStore() error = %v", err)
	}

	authSvc, err := service.NewAuthService(newFakeUserStore(), newFakeSessionStore(), time.Hour, nil)
	if err != nil {
		t.Fatalf("NewAuthService() error = %v", err)
	}
	gallerySvc := service.NewGalleryService(newFakeRecordStore(), blobs, transform.NewEngine(1024, 85), 5*time.Second, nil)

	h := New()
	authHandler := NewAuthHandler(authSvc, logger)
	galleryHandler := NewGalleryHandler(gallerySvc, logger)
	imageHandler := NewImageHandler(gallerySvc, logger)

	r := chi.NewRouter()
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)
	r.Post("/register", authHandler.Register)
	r.Post("/login", authHandler.Login)
	r.Get("/images/{key}", imageHandler.Get)
	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(middleware.AuthConfig{Logger: logger, Validator: authSvc}))
		r.Get("/get_images", galleryHandler.List)
		r.Post("/compress_img", galleryHandler.Upload)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return out
}

// registerAndLogin creates a user and returns a live session token.
func registerAndLogin(t *testing.T, baseURL, username, password string) string {
	t.Helper()

	resp := postJSON(t, baseURL+"/register", map[string]string{"username": username, "password": password})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	resp = postJSON(t, baseURL+"/login", map[string]string{"username": username, "password": password})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body := decodeBody(t, resp)
	token, ok := body["jwt"].(string)
	if !ok || token == "" {
		t.Fatalf("login response missing jwt field: %v", body)
	}
	return token
}

// pngBytes encodes a solid-color image for upload tests.
func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// uploadImage posts a multipart compress request with the token as a form
// field, the way the shipped client does.
func uploadImage(t *testing.T, baseURL, username, token string, file []byte, greyscale string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("username", username); err != nil {
		t.Fatalf("write username field: %v", err)
	}
	if err := mw.WriteField("token", token); err != nil {
		t.Fatalf("write token field: %v", err)
	}
	if greyscale != "" {
		if err := mw.WriteField("greyscale", greyscale); err != nil {
			t.Fatalf("write greyscale field: %v", err)
		}
	}
	fw, err := mw.CreateFormFile("file", "upload.png")
	if err != nil {
		t.Fatalf("create file part: %v", err)
	}
	if _, err := fw.Write(file); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	resp, err := http.Post(baseURL+"/compress_img", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /compress_img: %v", err)
	}
	return resp
}
