package httprequest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"advanced-http-worker/internal/common/database"
	"advanced-http-worker/internal/common/errors"
)

// ResultStore remembers the completion variables of finished jobs so a
// redelivered job is completed again without repeating its requests.
type ResultStore interface {
	Load(ctx context.Context, jobKey int64) (map[string]interface{}, bool, error)
	Save(ctx context.Context, jobKey int64, variables map[string]interface{}) error
}

type RedisResultStore struct {
	client *database.RedisClient
	ttl    time.Duration
}

func NewRedisResultStore(client *database.RedisClient, ttl time.Duration) *RedisResultStore {
	return &RedisResultStore{client: client, ttl: ttl}
}

func resultKey(jobKey int64) string {
	return fmt.Sprintf("%s:result:%d", TaskType, jobKey)
}

func (s *RedisResultStore) Load(ctx context.Context, jobKey int64) (map[string]interface{}, bool, error) {
	raw, found, err := s.client.Get(ctx, resultKey(jobKey))
	if err != nil {
		return nil, false, errors.NewResultStoreFailedError("load", err)
	}
	if !found {
		return nil, false, nil
	}

	var variables map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &variables); err != nil {
		return nil, false, errors.NewResultStoreFailedError("decode", err)
	}
	return variables, true, nil
}

func (s *RedisResultStore) Save(ctx context.Context, jobKey int64, variables map[string]interface{}) error {
	raw, err := json.Marshal(variables)
	if err != nil {
		return errors.NewResultStoreFailedError("encode", err)
	}
	if err := s.client.Set(ctx, resultKey(jobKey), raw, s.ttl); err != nil {
		return errors.NewResultStoreFailedError("save", err)
	}
	return nil
}
