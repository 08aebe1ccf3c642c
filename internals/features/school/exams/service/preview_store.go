// file: internals/features/school/exams/service/preview_store.go
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"schooldesk_backend/internals/features/school/exams/reconcile"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type ImportKind string

const (
	ImportMarks         ImportKind = "marks"
	ImportNonScholastic ImportKind = "non_scholastic"
)

var ErrPreviewNotFound = errors.New("import preview not found or expired")

// Preview is a validated upload waiting for confirmation. Exactly one of
// Marks / NonScholastic is set, according to Kind.
type Preview struct {
	ID         uuid.UUID  `json:"preview_id"`
	Kind       ImportKind `json:"kind"`
	ClassID    uuid.UUID  `json:"class_id"`
	CreatedBy  uuid.UUID  `json:"created_by"`
	FileName   string     `json:"file_name"`
	ArchiveKey string     `json:"archive_key,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`

	Marks         *reconcile.MarksPreview         `json:"marks,omitempty"`
	NonScholastic *reconcile.NonScholasticPreview `json:"non_scholastic,omitempty"`
}

type PreviewStore interface {
	Put(ctx context.Context, p *Preview) error
	Get(ctx context.Context, id uuid.UUID) (*Preview, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Purge drops expired previews; the redis store lets keys expire itself.
	Purge(ctx context.Context) (int, error)
}

/* =========================
   In-memory
========================= */

type memoryPreviewStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*Preview
	now   func() time.Time
}

func NewMemoryPreviewStore() PreviewStore {
	return &memoryPreviewStore{items: map[uuid.UUID]*Preview{}, now: time.Now}
}

func (s *memoryPreviewStore) Put(_ context.Context, p *Preview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.items[p.ID] = &cp
	return nil
}

func (s *memoryPreviewStore) Get(_ context.Context, id uuid.UUID) (*Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return nil, ErrPreviewNotFound
	}
	if !p.ExpiresAt.IsZero() && s.now().After(p.ExpiresAt) {
		delete(s.items, id)
		return nil, ErrPreviewNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memoryPreviewStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *memoryPreviewStore) Purge(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, p := range s.items {
		if !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt) {
			delete(s.items, id)
			n++
		}
	}
	return n, nil
}

/* =========================
   Redis
========================= */

const previewKeyPrefix = "schooldesk:import:"

type redisPreviewStore struct {
	rdb *redis.Client
}

func NewRedisPreviewStore(rdb *redis.Client) PreviewStore {
	return &redisPreviewStore{rdb: rdb}
}

func previewKey(id uuid.UUID) string { return previewKeyPrefix + id.String() }

func (s *redisPreviewStore) Put(ctx context.Context, p *Preview) error {
	b, err := sonic.Marshal(p)
	if err != nil {
		return err
	}
	ttl := time.Until(p.ExpiresAt)
	if ttl <= 0 {
		return ErrPreviewNotFound
	}
	return s.rdb.Set(ctx, previewKey(p.ID), b, ttl).Err()
}

func (s *redisPreviewStore) Get(ctx context.Context, id uuid.UUID) (*Preview, error) {
	b, err := s.rdb.Get(ctx, previewKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPreviewNotFound
	}
	if err != nil {
		return nil, err
	}
	var p Preview
	if err := sonic.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *redisPreviewStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.rdb.Del(ctx, previewKey(id)).Err()
}

func (s *redisPreviewStore) Purge(context.Context) (int, error) { return 0, nil }
