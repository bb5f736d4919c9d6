package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/redis/go-redis/v9"
)

// SessionRepository holds at most one checkout session per user.
type SessionRepository interface {
	// Get returns ErrSessionNotFound when the user has no session.
	Get(ctx context.Context, userID int64) (*models.CheckoutSession, error)
	// Put replaces any session the user already has.
	Put(ctx context.Context, session *models.CheckoutSession) error
	Delete(ctx context.Context, userID int64) error
}

// MemorySessionRepository keeps sessions in process memory; they are lost on
// restart.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[int64][]byte
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[int64][]byte)}
}

func (r *MemorySessionRepository) Get(_ context.Context, userID int64) (*models.CheckoutSession, error) {
	r.mu.RLock()
	data, ok := r.sessions[userID]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	// Stored encoded so callers can never mutate the held copy.
	var s models.CheckoutSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *MemorySessionRepository) Put(_ context.Context, session *models.CheckoutSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.sessions[session.TelegramID] = data
	r.mu.Unlock()
	return nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, userID int64) error {
	r.mu.Lock()
	delete(r.sessions, userID)
	r.mu.Unlock()
	return nil
}

// RedisSessionRepository stores sessions as JSON with a sliding TTL, so a
// restart mid-checkout resumes from the same snapshot.
type RedisSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionRepository(client *redis.Client, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, ttl: ttl}
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("checkout:session:%d", userID)
}

func (r *RedisSessionRepository) Get(ctx context.Context, userID int64) (*models.CheckoutSession, error) {
	data, err := r.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var s models.CheckoutSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisSessionRepository) Put(ctx context.Context, session *models.CheckoutSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(session.TelegramID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}
