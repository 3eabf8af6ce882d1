package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/auth-service/internal/domain"
)

type redisUserRecord struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"password_hash"`
	Role         domain.Role `json:"role"`
	CreatedAt    time.Time   `json:"created_at"`
}

// RedisUserRepository stores users as JSON documents with a SETNX email index
// that makes email uniqueness atomic across concurrent registrations.
type RedisUserRepository struct {
	client *redis.Client
	prefix string
	newID  func() string
	now    func() time.Time
}

// NewRedisUserRepository creates a Redis-backed repository under the key prefix.
func NewRedisUserRepository(client *redis.Client, prefix string) *RedisUserRepository {
	return &RedisUserRepository{
		client: client,
		prefix: prefix,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

func (r *RedisUserRepository) userKey(id string) string {
	return fmt.Sprintf("%s:users:id:%s", r.prefix, id)
}

func (r *RedisUserRepository) emailKey(email string) string {
	return fmt.Sprintf("%s:users:email:%s", r.prefix, email)
}

// Create writes the record first and then claims the email. If the claim
// loses, the orphaned record is removed so the index never points at a
// record owned by someone else.
func (r *RedisUserRepository) Create(ctx context.Context, user *domain.User) error {
	record := redisUserRecord{
		ID:           r.newID(),
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         user.Role,
		CreatedAt:    r.now().UTC(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	if err := r.client.Set(ctx, r.userKey(record.ID), string(data), 0).Err(); err != nil {
		return err
	}

	claimed, err := r.client.SetNX(ctx, r.emailKey(record.Email), record.ID, 0).Result()
	if err != nil || !claimed {
		_ = r.client.Del(ctx, r.userKey(record.ID)).Err()
		if err != nil {
			return err
		}
		return domain.ErrDuplicateEmail
	}

	user.ID = record.ID
	user.CreatedAt = record.CreatedAt
	return nil
}

func (r *RedisUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	data, err := r.client.Get(ctx, r.userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	var record redisUserRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	return &domain.User{
		ID:           record.ID,
		Name:         record.Name,
		Email:        record.Email,
		PasswordHash: record.PasswordHash,
		Role:         record.Role,
		CreatedAt:    record.CreatedAt,
	}, nil
}

func (r *RedisUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	id, err := r.client.Get(ctx, r.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}
