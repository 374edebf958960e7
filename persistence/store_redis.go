package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/gomodule/redigo/redis"
)

const redisKeyPrefix = "ledger:"

type RedisStore struct {
	pool *redis.Pool
}

// NewRedisPool returns a connection pool dialing rawurl.
func NewRedisPool(rawurl string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     16,
		MaxActive:   256,
		IdleTimeout: 5 * time.Minute,
		Dial: func() (redis.Conn, error) {
			return redis.DialURL(rawurl)
		},
	}
}

func NewRedisStore(pool *redis.Pool) *RedisStore {
	return &RedisStore{pool}
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, false, err
	}
	defer conn.Close()

	blob, err := redis.Bytes(conn.Do("GET", redisKeyPrefix+key))
	if errors.Is(err, redis.ErrNil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return blob, true, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, blob []byte) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Do("SET", redisKeyPrefix+key, blob)
	return err
}
