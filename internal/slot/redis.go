package slot

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix はRedis上のキーの接頭辞。
const redisKeyPrefix = "bloghub:slot:"

// RedisStore はRedisにスロットを保存する。有効期限は設定しない。
type RedisStore struct {
	client redis.Cmdable
	key    string
}

// NewRedisStore はRedisStoreを生成する。
func NewRedisStore(client redis.Cmdable, key string) *RedisStore {
	return &RedisStore{client: client, key: redisKeyPrefix + key}
}

// NewRedisClient はREDIS_URL形式のURLからクライアントを生成する。
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Load はキーに対応する値を返す。存在しない場合は (nil, nil)。
func (s *RedisStore) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot from redis: %w", err)
	}
	return data, nil
}

// Save はキーに値を書き込む。
func (s *RedisStore) Save(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set slot in redis: %w", err)
	}
	return nil
}

// Clear はキーを削除する。
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to delete slot from redis: %w", err)
	}
	return nil
}
