package service

import (
	"context"
	"sync"
	"time"

	"github.com/imgpress/imgpress/internal/cache"
	"github.com/imgpress/imgpress/internal/model"
	"github.com/imgpress/imgpress/internal/repository"
)

// In-memory fakes mirroring the persistence semantics the services rely on.

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
	expiries map[string]time.Time
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: make(map[string]string),
		expiries: make(map[string]time.Time),
	}
}

func (f *fakeSessionStore) PutSession(ctx context.Context, token, username string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[token] = username
	f.expiries[token] = time.Now().Add(ttl)
	return nil
}

func (f *fakeSessionStore) ResolveSession(ctx context.Context, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	username, ok := f.sessions[token]
	if !ok || time.Now().After(f.expiries[token]) {
		return "", cache.ErrSessionNotFound
	}
	return username, nil
}

// expire forces a token past its lifetime.
func (f *fakeSessionStore) expire(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expiries[token] = time.Now().Add(-time.Second)
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

func (f *fakeRecordStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}
