package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"
	log "github.com/sirupsen/logrus"
)

// Idempotency Handler middleware
// ===========================================================================

const IdempotencyKeyHeader = "Idempotency-Key"

type IdempotencyStore interface {
	// Claim marks key as used for expiry and reports whether it was unused.
	Claim(key string, expiry time.Duration) (bool, error)
}

// Redis store for idempotency keys
type IdempotencyStoreRedis struct {
	pool   *redis.Pool
	prefix string
}

func NewIdempotencyStoreRedis(pool *redis.Pool) *IdempotencyStoreRedis {
	return &IdempotencyStoreRedis{pool: pool, prefix: "idempotencykey"}
}

func (s *IdempotencyStoreRedis) Claim(key string, expiry time.Duration) (bool, error) {
	conn := s.pool.Get()
	defer conn.Close()

	res, err := redis.String(conn.Do("SET", fmt.Sprintf("%s:%s", s.prefix, key), 1, "PX", expiry.Milliseconds(), "NX"))
	if errors.Is(err, redis.ErrNil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res == "OK", nil
}

// Local / in-memory store for idempotency keys
type IdempotencyStoreLocal struct {
	mu   sync.Mutex
	keys map[string]time.Time // key: expiry
	now  func() time.Time
}

func NewIdempotencyStoreLocal() *IdempotencyStoreLocal {
	return &IdempotencyStoreLocal{keys: make(map[string]time.Time), now: time.Now}
}

func (m *IdempotencyStoreLocal) Claim(key string, expiry time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if dl, ok := m.keys[key]; ok && dl.After(now) {
		return false, nil
	}

	// Expired keys are pruned as a side effect
	for k, dl := range m.keys {
		if !dl.After(now) {
			delete(m.keys, k)
		}
	}

	m.keys[key] = now.Add(expiry)
	return true, nil
}

// UseIdempotency rejects POST requests repeating an Idempotency-Key header
// seen within expiry. Requests without the header pass through.
func UseIdempotency(h http.Handler, expiry time.Duration, store IdempotencyStore) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(IdempotencyKeyHeader)
		if r.Method != http.MethodPost || key == "" {
			h.ServeHTTP(rw, r)
			return
		}

		claimed, err := store.Claim(key, expiry)
		if err != nil {
			log.
				WithFields(log.Fields{"error": err, "key": key}).
				Warn("Error while claiming idempotency key")
			http.Error(rw, "Error while reading idempotency key", http.StatusInternalServerError)
			return
		}

		if !claimed {
			http.Error(rw, fmt.Sprintf("Idempotency-Key conflict, key: %s", key), http.StatusConflict)
			return
		}

		h.ServeHTTP(rw, r)
	})
}
