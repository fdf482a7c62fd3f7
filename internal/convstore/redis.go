package convstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/chatcart-backend/internal/conversation"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
	"github.com/angelmondragon/chatcart-backend/pkg/redis"
)

const redisHashKey = "chatcart:conversations"

// RedisStore keeps each record as a JSON field in a single hash, keyed by
// phone. The version check in Replace relies on the engine's per-address
// lock to avoid racing between the read and the write.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) GetOrCreate(ctx context.Context, phone string) (*conversation.Record, error) {
	raw, err := s.client.HGet(ctx, redisHashKey, phone)
	if err == nil {
		return decodeRecord(raw)
	}
	if !redis.IsNil(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read conversation")
	}

	rec := conversation.NewRecord(phone)
	rec.UpdatedAt = time.Now().UTC()
	encoded, err := json.Marshal(rec)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode conversation")
	}
	created, err := s.client.HSetNX(ctx, redisHashKey, phone, encoded)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create conversation")
	}
	if created {
		return rec, nil
	}

	// Lost the create race; read whoever won.
	raw, err = s.client.HGet(ctx, redisHashKey, phone)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read conversation")
	}
	return decodeRecord(raw)
}

func (s *RedisStore) Replace(ctx context.Context, phone string, rec *conversation.Record) (*conversation.Record, error) {
	raw, err := s.client.HGet(ctx, redisHashKey, phone)
	if err != nil && !redis.IsNil(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read conversation")
	}
	if err == nil {
		stored, decodeErr := decodeRecord(raw)
		if decodeErr != nil {
			return nil, decodeErr
		}
		if stored.Version != rec.Version {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "conversation was modified concurrently")
		}
	}

	next := rec.Clone()
	next.Phone = phone
	next.Version = rec.Version + 1
	next.UpdatedAt = time.Now().UTC()
	encoded, err := json.Marshal(next)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode conversation")
	}
	if err := s.client.HSet(ctx, redisHashKey, phone, encoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write conversation")
	}
	return next.Clone(), nil
}

func (s *RedisStore) ListAll(ctx context.Context) ([]*conversation.Record, error) {
	all, err := s.client.HGetAll(ctx, redisHashKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list conversations")
	}
	records := make([]*conversation.Record, 0, len(all))
	for _, raw := range all {
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeRecord(raw string) (*conversation.Record, error) {
	var rec conversation.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode conversation")
	}
	if rec.Cart == nil {
		rec.Cart = conversation.Cart{}
	}
	return &rec, nil
}
